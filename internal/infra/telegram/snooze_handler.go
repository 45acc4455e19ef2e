// internal/infra/telegram/snooze_handler.go
package telegram

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"training_reminder_bot/internal/domain/alarm"
)

// RegisterSnoozeHandler routes the inline snooze button to the alarm receiver.
// The reminder text is taken from the message the button is attached to.
// Presses from anyone but the owner are refused like any other command.
func RegisterSnoozeHandler(ctx context.Context, b *telebot.Bot, receiver alarm.Receiver, ownerChatID int64, snoozeMinutes int, baseLogger *logrus.Entry) {
	b.Handle(&btnSnooze, snoozeHandler(ctx, receiver, ownerChatID, snoozeMinutes, baseLogger))
}

func snoozeHandler(ctx context.Context, receiver alarm.Receiver, ownerChatID int64, snoozeMinutes int, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil || sender.ID != ownerChatID {
			fields := logrus.Fields{"handler": "snooze"}
			if sender != nil {
				fields["sender_id"] = sender.ID
			}
			baseLogger.WithFields(fields).Warn("Unauthorized access attempt")
			return c.Respond(&telebot.CallbackResponse{Text: "שגיאה: אין לך הרשאה להשתמש בבוט הזה."})
		}
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "snooze",
			"sender_id": sender.ID,
		})
		if c.Message() == nil {
			logCtx.Warn("Snooze callback without message")
			return c.Respond(&telebot.CallbackResponse{Text: "לא ניתן לדחות את התזכורת."})
		}

		title, body := splitMessage(c.Message().Text)
		receiver.Receive(ctx, alarm.Event{
			Action:  alarm.ActionSnooze,
			Payload: alarm.Payload{Title: title, Body: body},
		})
		logCtx.Info("Snooze requested")
		return c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("אזכיר שוב בעוד %d דקות", snoozeMinutes)})
	}
}
