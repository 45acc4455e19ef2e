// internal/app/reminder_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"training_reminder_bot/internal/domain/alarm"
	"training_reminder_bot/internal/domain/reminder"
	"training_reminder_bot/internal/domain/schedule"
)

const weekly = 7 * 24 * time.Hour

// ReminderService reconciles the user's selection with the live deferred
// triggers. It is the sole writer of both the registry and the platform's
// reminder triggers; every public operation runs under one lock.
type ReminderService struct {
	lookup   *LookupService
	platform alarm.Platform
	registry reminder.Registry
	settings *SettingsRepository
	legacy   reminder.LegacyRange
	clock    func() time.Time
	logger   *logrus.Entry

	mu sync.Mutex
}

func NewReminderService(
	lookup *LookupService,
	platform alarm.Platform,
	registry reminder.Registry,
	settings *SettingsRepository,
	legacy reminder.LegacyRange,
	clock func() time.Time,
	logger *logrus.Entry,
) *ReminderService {
	if clock == nil {
		clock = time.Now
	}
	return &ReminderService{
		lookup:   lookup,
		platform: platform,
		registry: registry,
		settings: settings,
		legacy:   legacy,
		clock:    clock,
		logger:   logger.WithField("component", "reminder_service"),
	}
}

// ApplySettings persists the selection and then rebuilds (enabled) or tears
// down (disabled) the reminder triggers.
func (s *ReminderService) ApplySettings(ctx context.Context, st reminder.Settings) error {
	st.LeadMinutes = reminder.ClampLead(st.LeadMinutes)
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.settings.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to persist reminder settings: %w", err)
	}
	if !st.Enabled {
		return s.CancelAll(ctx)
	}
	_, err := s.ScheduleAll(ctx, st.Branches, st.Groups, st.LeadMinutes)
	return err
}

// Rearm re-runs ScheduleAll from the persisted settings. Deferred triggers do
// not survive a host restart, so this runs at every start.
func (s *ReminderService) Rearm(ctx context.Context) error {
	st, err := s.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminder settings: %w", err)
	}
	if !st.Enabled {
		s.logger.Info("Reminders disabled, nothing to re-arm")
		return nil
	}
	n, err := s.ScheduleAll(ctx, st.Branches, st.Groups, st.LeadMinutes)
	if err != nil {
		return err
	}
	s.logger.WithField("count", n).Info("Reminders re-armed")
	return nil
}

// ScheduleAll tears down every previously registered reminder, registers one
// weekly trigger per (branch, group, slot) of the selection and persists the
// new registry. It returns the number of live reminders.
func (s *ReminderService) ScheduleAll(ctx context.Context, branches, groups []string, leadMinutes int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cancelAllLocked(ctx); err != nil {
		s.logger.WithError(err).Warn("Previous registry could not be cleared, it will be overwritten")
	}

	lead := reminder.ClampLead(leadMinutes)
	now := s.clock()
	registered := make([]string, 0)
	seen := make(map[string]bool)

	for _, branch := range branches {
		branch = strings.TrimSpace(branch)
		if branch == "" {
			continue
		}
		for _, group := range groups {
			if strings.TrimSpace(group) == "" {
				continue
			}
			for _, slot := range s.lookup.SlotsFor(branch, group) {
				key := reminder.NewKey(slot, group, lead)
				id := key.String()
				if seen[id] {
					continue
				}
				seen[id] = true

				trigger := newReminderTrigger(key, slot, now)
				logCtx := s.logger.WithFields(logrus.Fields{
					"reminder_key": id,
					"fire_at":      trigger.FireAt.Format(time.RFC3339),
				})
				if err := scheduleWithFallback(ctx, s.platform, trigger, logCtx); err != nil {
					logCtx.WithError(err).Warn("Failed to register reminder, skipping")
					continue
				}
				logCtx.Debug("Reminder registered")
				registered = append(registered, id)
			}
		}
	}

	if err := s.registry.Save(ctx, registered); err != nil {
		// Untracked triggers would outlive the registry, so take them down again.
		for _, id := range registered {
			if cErr := s.platform.Cancel(ctx, id); cErr != nil {
				s.logger.WithError(cErr).WithField("reminder_key", id).Warn("Failed to cancel untracked reminder")
			}
		}
		return 0, fmt.Errorf("failed to persist reminder registry: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"branches": len(branches),
		"groups":   len(groups),
		"lead":     lead,
		"count":    len(registered),
	}).Info("Reminders scheduled")
	return len(registered), nil
}

// CancelAll cancels every registered reminder by its exact ID and clears the
// registry.
func (s *ReminderService) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAllLocked(ctx)
}

func (s *ReminderService) cancelAllLocked(ctx context.Context) error {
	ids, err := s.registry.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Reminder registry unreadable, treating as empty")
		ids = nil
	}

	if len(ids) == 0 {
		// Degraded mode: the registry cannot tell us what is live, so sweep the
		// numeric IDs of the registry-less format.
		legacy := s.legacy.IDs()
		if len(legacy) > 0 {
			s.logger.WithFields(logrus.Fields{
				"legacy_start": s.legacy.Start,
				"legacy_count": s.legacy.Count,
			}).Info("Empty registry, cancelling legacy trigger range")
		}
		ids = legacy
	}

	for _, id := range ids {
		if err := s.platform.Cancel(ctx, id); err != nil {
			s.logger.WithError(err).WithField("reminder_key", id).Warn("Failed to cancel reminder")
		}
	}

	if err := s.registry.Clear(ctx); err != nil {
		return err
	}
	return nil
}

// Active returns the reminders currently listed in the registry.
func (s *ReminderService) Active(ctx context.Context) ([]reminder.Key, error) {
	ids, err := s.registry.Load(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]reminder.Key, 0, len(ids))
	for _, id := range ids {
		k, err := reminder.ParseKey(id)
		if err != nil {
			s.logger.WithError(err).Debug("Skipping unparsable registry entry")
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// newReminderTrigger builds the weekly trigger of a slot reminder. The first
// fire time is lead minutes before the next occurrence, one week later if
// that moment has already passed.
func newReminderTrigger(key reminder.Key, slot schedule.Slot, now time.Time) alarm.Trigger {
	occ := schedule.NextWeekly(slot.Day, slot.Hour, slot.Minute, slot.Duration, now)
	fireAt := occ.Start.Add(-time.Duration(key.LeadMinutes) * time.Minute)
	if !fireAt.After(now) {
		fireAt = fireAt.AddDate(0, 0, 7)
	}
	title, body := reminderText(key, slot)
	return alarm.Trigger{
		ID:     key.String(),
		FireAt: fireAt,
		Repeat: weekly,
		Payload: alarm.Payload{
			ReminderKey: key.String(),
			Title:       title,
			Body:        body,
		},
	}
}

// scheduleWithFallback requests an exact trigger when the platform allows it
// and falls back to an inexact one otherwise or when the exact request is
// denied.
func scheduleWithFallback(ctx context.Context, p alarm.Platform, t alarm.Trigger, logger *logrus.Entry) error {
	if p.CanScheduleExact() {
		err := p.ScheduleExact(ctx, t)
		if err == nil {
			return nil
		}
		if !errors.Is(err, alarm.ErrExactDenied) {
			return err
		}
		logger.WithError(err).Info("Exact trigger denied, falling back to inexact")
	}
	return p.ScheduleInexact(ctx, t)
}
