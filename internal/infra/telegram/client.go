// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"strings"

	"gopkg.in/telebot.v3"

	domainTelegram "training_reminder_bot/internal/domain/telegram"
)

var (
	snoozeMarkup = &telebot.ReplyMarkup{}
	btnSnooze    = snoozeMarkup.Data("⏰ הזכר לי שוב", "snooze")
)

func init() {
	snoozeMarkup.Inline(snoozeMarkup.Row(btnSnooze))
}

// TelebotNotifier implements the Notifier interface by messaging the owner chat.
type TelebotNotifier struct {
	bot    *telebot.Bot
	chatID int64
}

func NewTelebotNotifier(b *telebot.Bot, chatID int64) *TelebotNotifier {
	return &TelebotNotifier{bot: b, chatID: chatID}
}

// Notify sends the reminder with the title on the first line.
func (n *TelebotNotifier) Notify(_ context.Context, msg domainTelegram.Notification) error {
	options := &telebot.SendOptions{}
	if msg.Snoozable {
		options.ReplyMarkup = snoozeMarkup
	}
	_, err := n.bot.Send(&telebot.User{ID: n.chatID}, messageText(msg.Title, msg.Body), options)
	return err
}

func messageText(title, body string) string {
	if body == "" {
		return title
	}
	return title + "\n" + body
}

// splitMessage is the inverse of messageText.
func splitMessage(text string) (title, body string) {
	title, body, _ = strings.Cut(text, "\n")
	return title, body
}
