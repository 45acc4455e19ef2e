// Package alarm models deferred wake-ups registered with the host's alarm
// service. The host may run the receiver long after the registering process
// state is gone, so payloads carry everything needed to rebuild context.
package alarm

import (
	"context"
	"errors"
	"time"
)

// ErrExactDenied is returned when the host refuses an exact-time trigger.
var ErrExactDenied = errors.New("exact alarm permission denied")

// Action identifies why the receiver was invoked.
type Action string

const (
	ActionFire   Action = "FIRE"
	ActionSnooze Action = "SNOOZE"
	ActionBoot   Action = "BOOT"
)

// Payload is the data attached to a trigger.
type Payload struct {
	ReminderKey string // empty for one-shot snoozes
	Title       string
	Body        string
}

// Trigger is one deferred wake-up. Repeat is zero for one-shot triggers.
// Registering an ID that is already live replaces the existing trigger.
type Trigger struct {
	ID      string
	FireAt  time.Time
	Repeat  time.Duration
	Payload Payload
}

// Event is delivered to the Receiver at trigger time or at host start.
type Event struct {
	Action    Action
	TriggerID string
	Payload   Payload
}

// Platform is the host's alarm service.
type Platform interface {
	CanScheduleExact() bool
	ScheduleExact(ctx context.Context, t Trigger) error
	ScheduleInexact(ctx context.Context, t Trigger) error
	Cancel(ctx context.Context, id string) error
}

// Receiver handles events raised by the Platform.
type Receiver interface {
	Receive(ctx context.Context, ev Event)
}
