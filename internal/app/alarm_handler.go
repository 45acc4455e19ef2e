// internal/app/alarm_handler.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"training_reminder_bot/internal/domain/alarm"
	"training_reminder_bot/internal/domain/reminder"
	"training_reminder_bot/internal/domain/schedule"
	"training_reminder_bot/internal/domain/telegram"
)

const DefaultSnoozeDelay = 10 * time.Minute

// AlarmHandler is invoked by the alarm platform at trigger time, on snooze and
// at host start. It keeps no state between calls: everything is re-derived
// from the persisted settings and the catalog.
type AlarmHandler struct {
	reminders   *ReminderService
	lookup      *LookupService
	settings    *SettingsRepository
	platform    alarm.Platform
	notifier    telegram.Notifier
	snoozeDelay time.Duration
	clock       func() time.Time
	logger      *logrus.Entry
}

func NewAlarmHandler(
	reminders *ReminderService,
	lookup *LookupService,
	settings *SettingsRepository,
	platform alarm.Platform,
	notifier telegram.Notifier,
	snoozeDelay time.Duration,
	clock func() time.Time,
	logger *logrus.Entry,
) *AlarmHandler {
	if snoozeDelay <= 0 {
		snoozeDelay = DefaultSnoozeDelay
	}
	if clock == nil {
		clock = time.Now
	}
	return &AlarmHandler{
		reminders:   reminders,
		lookup:      lookup,
		settings:    settings,
		platform:    platform,
		notifier:    notifier,
		snoozeDelay: snoozeDelay,
		clock:       clock,
		logger:      logger.WithField("component", "alarm_handler"),
	}
}

// Receive dispatches a platform event. Failures are logged and never
// propagate to the platform.
func (h *AlarmHandler) Receive(ctx context.Context, ev alarm.Event) {
	logCtx := h.logger.WithFields(logrus.Fields{"action": ev.Action, "trigger_id": ev.TriggerID})

	var err error
	switch ev.Action {
	case alarm.ActionBoot:
		err = h.HandleBoot(ctx)
	case alarm.ActionFire:
		err = h.HandleFire(ctx, ev.Payload)
	case alarm.ActionSnooze:
		err = h.HandleSnooze(ctx, ev.Payload)
	default:
		logCtx.Warn("Unknown alarm action")
		return
	}
	if err != nil {
		logCtx.WithError(err).Error("Alarm event handling failed")
	}
}

// HandleBoot re-arms the reminders if they were enabled before the restart.
func (h *AlarmHandler) HandleBoot(ctx context.Context) error {
	return h.reminders.Rearm(ctx)
}

// HandleFire shows the reminder notification. Without notification
// permission it does nothing.
func (h *AlarmHandler) HandleFire(ctx context.Context, p alarm.Payload) error {
	permitted, err := h.settings.NotificationsPermitted(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Could not read notification permission, skipping notification")
		return nil
	}
	if !permitted {
		h.logger.Debug("Notifications not permitted, skipping")
		return nil
	}

	title, body := p.Title, p.Body
	if p.ReminderKey != "" {
		key, err := reminder.ParseKey(p.ReminderKey)
		if err != nil {
			h.logger.WithError(err).Warn("Unparsable reminder key, using stored text")
		} else if slot, ok := h.lookup.SlotAt(key.Branch, key.Day, key.Hour, key.Minute); ok {
			title, body = reminderText(key, slot)
		}
	}

	if err := h.notifier.Notify(ctx, telegram.Notification{Title: title, Body: body, Snoozable: true}); err != nil {
		return fmt.Errorf("failed to send reminder notification: %w", err)
	}
	h.logger.WithField("reminder_key", p.ReminderKey).Info("Reminder notification sent")
	return nil
}

// HandleSnooze registers a one-shot trigger snoozeDelay from now that repeats
// the same text.
func (h *AlarmHandler) HandleSnooze(ctx context.Context, p alarm.Payload) error {
	t := alarm.Trigger{
		ID:     "snooze-" + uuid.NewString(),
		FireAt: h.clock().Add(h.snoozeDelay),
		Payload: alarm.Payload{
			Title: p.Title,
			Body:  p.Body,
		},
	}
	logCtx := h.logger.WithFields(logrus.Fields{"trigger_id": t.ID, "fire_at": t.FireAt.Format(time.RFC3339)})
	if err := scheduleWithFallback(ctx, h.platform, t, logCtx); err != nil {
		return fmt.Errorf("failed to register snooze: %w", err)
	}
	logCtx.Info("Reminder snoozed")
	return nil
}

var groupLabels = map[schedule.CanonicalGroup]string{
	schedule.GroupKids:        "ילדים",
	schedule.GroupYouth:       "נוער",
	schedule.GroupAdults:      "בוגרים",
	schedule.GroupYouthAdults: "נוער + בוגרים",
}

// GroupLabel renders a canonical group for display.
func GroupLabel(g schedule.CanonicalGroup) string {
	if label, ok := groupLabels[g]; ok {
		return label
	}
	return string(g)
}

func reminderText(key reminder.Key, slot schedule.Slot) (title, body string) {
	if key.LeadMinutes > 0 {
		title = fmt.Sprintf("תזכורת: אימון בעוד %d דקות", key.LeadMinutes)
	} else {
		title = "תזכורת: האימון מתחיל עכשיו"
	}

	lines := []string{
		fmt.Sprintf("%s · %s", key.Branch, GroupLabel(key.Group)),
		fmt.Sprintf("יום %s %02d:%02d", schedule.DayName(key.Day), key.Hour, key.Minute),
	}
	if slot.Venue != "" {
		lines = append(lines, slot.Venue)
	}
	if slot.Address != "" {
		lines = append(lines, slot.Address)
	}
	return title, strings.Join(lines, "\n")
}
