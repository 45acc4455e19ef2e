package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	"training_reminder_bot/internal/domain/alarm"
)

const (
	week         = 7 * 24 * time.Hour
	day          = 24 * time.Hour
	inexactBatch = 5 * time.Minute
)

// newTriggerSchedule turns a trigger into a cron.Schedule: a one-shot
// schedule when Repeat is zero, otherwise a recurrence anchored at FireAt.
func newTriggerSchedule(t alarm.Trigger) (cron.Schedule, error) {
	if t.FireAt.IsZero() {
		return nil, fmt.Errorf("trigger %s has no fire time", t.ID)
	}
	if t.Repeat == 0 {
		return onceSchedule{at: t.FireAt}, nil
	}

	opt := rrule.ROption{Dtstart: t.FireAt}
	switch {
	case t.Repeat%week == 0:
		opt.Freq = rrule.WEEKLY
		opt.Interval = int(t.Repeat / week)
	case t.Repeat%day == 0:
		opt.Freq = rrule.DAILY
		opt.Interval = int(t.Repeat / day)
	default:
		return nil, fmt.Errorf("trigger %s: unsupported repeat interval %s", t.ID, t.Repeat)
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("trigger %s: %w", t.ID, err)
	}
	return recurringSchedule{rule: rule}, nil
}

// recurringSchedule keeps wall-clock time across DST changes because the
// recurrence is evaluated in the anchor's location.
type recurringSchedule struct {
	rule *rrule.RRule
}

func (s recurringSchedule) Next(t time.Time) time.Time {
	return s.rule.After(t, false)
}

// onceSchedule fires a single time. The zero time tells cron it never runs again.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

// batchedSchedule defers each fire time to the next batch boundary.
type batchedSchedule struct {
	inner cron.Schedule
	batch time.Duration
}

func (s batchedSchedule) Next(t time.Time) time.Time {
	next := s.inner.Next(t)
	if next.IsZero() {
		return next
	}
	rounded := next.Truncate(s.batch)
	if rounded.Before(next) {
		rounded = rounded.Add(s.batch)
	}
	return rounded
}
