package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"training_reminder_bot/internal/domain/alarm"
)

const defaultJobTimeout = 1 * time.Minute

// CronAlarmPlatform implements alarm.Platform on an in-process cron engine.
// Like an OS alarm service, its triggers live only as long as the process;
// the receiver is sent an ActionBoot event at start so it can re-arm.
type CronAlarmPlatform struct {
	cronEngine   *cron.Cron
	exactAllowed bool
	jobTimeout   time.Duration
	logger       *logrus.Entry

	mu       sync.Mutex
	receiver alarm.Receiver
	entries  map[string]cron.EntryID
}

func NewCronAlarmPlatform(loc *time.Location, exactAllowed bool, logger *logrus.Logger) *CronAlarmPlatform {
	if loc == nil {
		loc = time.Local
	}
	cronLogger := cron.PrintfLogger(logger)
	return &CronAlarmPlatform{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		exactAllowed: exactAllowed,
		jobTimeout:   defaultJobTimeout,
		logger:       logger.WithField("component", "alarm_platform"),
		entries:      make(map[string]cron.EntryID),
	}
}

// SetReceiver wires the event handler. It must be called before Start.
func (p *CronAlarmPlatform) SetReceiver(r alarm.Receiver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receiver = r
}

func (p *CronAlarmPlatform) CanScheduleExact() bool {
	return p.exactAllowed
}

// ScheduleExact registers a trigger firing at its exact instant.
func (p *CronAlarmPlatform) ScheduleExact(_ context.Context, t alarm.Trigger) error {
	if !p.exactAllowed {
		return alarm.ErrExactDenied
	}
	sched, err := newTriggerSchedule(t)
	if err != nil {
		return err
	}
	p.add(t, sched)
	return nil
}

// ScheduleInexact registers a trigger whose delivery may be deferred to the
// next batch boundary.
func (p *CronAlarmPlatform) ScheduleInexact(_ context.Context, t alarm.Trigger) error {
	sched, err := newTriggerSchedule(t)
	if err != nil {
		return err
	}
	p.add(t, batchedSchedule{inner: sched, batch: inexactBatch})
	return nil
}

// Cancel removes the trigger with the given ID. Unknown IDs are ignored.
func (p *CronAlarmPlatform) Cancel(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entryID, ok := p.entries[id]; ok {
		p.cronEngine.Remove(entryID)
		delete(p.entries, id)
	}
	return nil
}

// Live returns the IDs of the registered triggers, sorted.
func (p *CronAlarmPlatform) Live() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// nextFire returns the next scheduled fire time of a live trigger.
func (p *CronAlarmPlatform) nextFire(id string) (time.Time, bool) {
	p.mu.Lock()
	entryID, ok := p.entries[id]
	p.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := p.cronEngine.Entry(entryID)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		// Not started yet: ask the schedule directly.
		return entry.Schedule.Next(time.Now()), true
	}
	return entry.Next, true
}

func (p *CronAlarmPlatform) add(t alarm.Trigger, sched cron.Schedule) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.entries[t.ID]; ok {
		p.cronEngine.Remove(old)
	}
	p.entries[t.ID] = p.cronEngine.Schedule(sched, cron.FuncJob(func() {
		p.fire(t)
	}))
}

func (p *CronAlarmPlatform) fire(t alarm.Trigger) {
	if t.Repeat == 0 {
		p.mu.Lock()
		if entryID, ok := p.entries[t.ID]; ok {
			p.cronEngine.Remove(entryID)
			delete(p.entries, t.ID)
		}
		p.mu.Unlock()
	}
	p.deliver(alarm.Event{Action: alarm.ActionFire, TriggerID: t.ID, Payload: t.Payload})
}

func (p *CronAlarmPlatform) deliver(ev alarm.Event) {
	p.mu.Lock()
	receiver := p.receiver
	p.mu.Unlock()
	if receiver == nil {
		p.logger.WithField("trigger_id", ev.TriggerID).Warn("No receiver registered, dropping alarm event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
	defer cancel()
	receiver.Receive(ctx, ev)
}

// AddRearmJob schedules a periodic ActionBoot event so triggers lost for any
// reason are rebuilt.
func (p *CronAlarmPlatform) AddRearmJob(spec string) error {
	_, err := p.cronEngine.AddFunc(spec, func() {
		p.logger.Info("Periodic re-arm triggered")
		p.deliver(alarm.Event{Action: alarm.ActionBoot})
	})
	if err != nil {
		return fmt.Errorf("could not add re-arm cron job %q: %w", spec, err)
	}
	return nil
}

// Start delivers the boot event and starts the cron engine.
func (p *CronAlarmPlatform) Start() {
	p.logger.Info("Starting alarm platform...")
	p.deliver(alarm.Event{Action: alarm.ActionBoot})
	p.cronEngine.Start()
	p.logger.WithField("triggers", len(p.Live())).Info("Alarm platform started")
}

func (p *CronAlarmPlatform) Stop() {
	p.logger.Info("Stopping alarm platform...")
	ctx := p.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	p.logger.Info("Alarm platform gracefully stopped")
}
