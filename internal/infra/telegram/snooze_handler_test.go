package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"gopkg.in/telebot.v3"

	"training_reminder_bot/internal/domain/alarm"
)

const ownerID int64 = 42

type callbackContext struct {
	telebot.Context // unimplemented methods panic

	sender    *telebot.User
	message   *telebot.Message
	responses []*telebot.CallbackResponse
}

func (c *callbackContext) Sender() *telebot.User { return c.sender }
func (c *callbackContext) Message() *telebot.Message { return c.message }
func (c *callbackContext) Respond(resp ...*telebot.CallbackResponse) error {
	c.responses = append(c.responses, resp...)
	return nil
}

type recordingReceiver struct {
	events []alarm.Event
}

func (r *recordingReceiver) Receive(_ context.Context, ev alarm.Event) {
	r.events = append(r.events, ev)
}

func TestSnoozeHandler(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	text := messageText("תזכורת: אימון בעוד 30 דקות", "North-Center · בוגרים")

	t.Run("owner press snoozes the reminder", func(t *testing.T) {
		receiver := &recordingReceiver{}
		h := snoozeHandler(context.Background(), receiver, ownerID, 10, logrus.NewEntry(logger))
		c := &callbackContext{sender: &telebot.User{ID: ownerID}, message: &telebot.Message{Text: text}}

		if err := h(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
		if len(receiver.events) != 1 {
			t.Fatalf("got %d events, want 1", len(receiver.events))
		}
		ev := receiver.events[0]
		if ev.Action != alarm.ActionSnooze || ev.Payload.Title != "תזכורת: אימון בעוד 30 דקות" || ev.Payload.Body != "North-Center · בוגרים" {
			t.Errorf("event = %+v", ev)
		}
		if len(c.responses) != 1 || !strings.Contains(c.responses[0].Text, "10") {
			t.Errorf("responses = %+v", c.responses)
		}
	})

	t.Run("other users are refused", func(t *testing.T) {
		hook.Reset()
		receiver := &recordingReceiver{}
		h := snoozeHandler(context.Background(), receiver, ownerID, 10, logrus.NewEntry(logger))
		c := &callbackContext{sender: &telebot.User{ID: 7}, message: &telebot.Message{Text: text}}

		if err := h(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
		if len(receiver.events) != 0 {
			t.Errorf("stranger press produced events %+v", receiver.events)
		}
		if len(c.responses) != 1 || !strings.Contains(c.responses[0].Text, "אין לך הרשאה") {
			t.Errorf("responses = %+v", c.responses)
		}
		if last := hook.LastEntry(); last == nil || last.Level != logrus.WarnLevel {
			t.Errorf("refusal was not logged as a warning: %+v", last)
		}
	})

	t.Run("missing message", func(t *testing.T) {
		receiver := &recordingReceiver{}
		h := snoozeHandler(context.Background(), receiver, ownerID, 10, logrus.NewEntry(logger))
		c := &callbackContext{sender: &telebot.User{ID: ownerID}}

		if err := h(c); err != nil {
			t.Fatalf("handler: %v", err)
		}
		if len(receiver.events) != 0 || len(c.responses) != 1 {
			t.Errorf("events = %+v, responses = %+v", receiver.events, c.responses)
		}
	})
}
