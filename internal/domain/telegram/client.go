package telegram

import "context"

// Notification is a reminder message shown to the user.
type Notification struct {
	Title     string
	Body      string
	Snoozable bool // attach the snooze action
}

// Notifier defines the notification side effect of a fired reminder.
// This decouples the reminder logic from the specific bot library.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
