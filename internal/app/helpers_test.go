package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"training_reminder_bot/internal/domain/alarm"
	"training_reminder_bot/internal/domain/reminder"
	"training_reminder_bot/internal/domain/schedule"
	"training_reminder_bot/internal/domain/telegram"
	"training_reminder_bot/internal/infra/kvstore"
)

var israel = time.FixedZone("IDT", 3*60*60)

// mondayMorning is Monday 2026-10-12 10:00.
var mondayMorning = time.Date(2026, 10, 12, 10, 0, 0, 0, israel)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testLogger() (*logrus.Entry, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l), hook
}

func testCatalog(t *testing.T) *schedule.Catalog {
	t.Helper()

	slots := []schedule.Slot{
		{Branch: "North-Center", Groups: []string{"נוער + בוגרים"}, Day: time.Monday, Hour: 19, Duration: 90,
			Venue: "Oranim Hall", Address: "Oranim 12, Nof HaGalil"},
		{Branch: "North-Center", Groups: []string{"כיתות א-ג"}, Day: time.Sunday, Hour: 16, Minute: 30, Duration: 45,
			Venue: "Oranim Hall", Address: "Oranim 12, Nof HaGalil"},
		{Branch: "North-Haifa", Groups: []string{"בוגרים"}, Day: time.Tuesday, Hour: 20, Duration: 90,
			Venue: "Hadar Gym", Address: "Herzl 40, Haifa"},
		{Branch: "North-Haifa", Groups: []string{"נוער"}, Day: time.Thursday, Hour: 17, Duration: 60,
			Venue: "Hadar Gym", Address: "Herzl 40, Haifa"},
		{Branch: "North-Karmiel", Groups: []string{"ילדים"}, Day: time.Wednesday, Hour: 16, Duration: 60},
		{Branch: "South-Beersheba", Groups: []string{"נוער + בוגרים"}, Day: time.Sunday, Hour: 19, Minute: 30, Duration: 90},
	}
	regions := []schedule.Region{
		{ID: "north", Name: "צפון", Branches: []string{"North-Center", "North-Haifa", "North-Karmiel"}},
		{ID: "south", Name: "דרום", Branches: []string{"South-Beersheba"}},
	}
	availability := schedule.Availability{
		InactiveRegions:  map[string]string{"south": "הפעילות בדרום מושהית"},
		InactiveBranches: map[string]bool{"North-Karmiel": true},
	}
	cat, err := schedule.NewCatalog(slots, regions, nil, availability)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return cat
}

// fakePlatform is an in-memory alarm.Platform that records every call.
type fakePlatform struct {
	mu sync.Mutex

	exactAllowed bool
	denyExact    bool
	failIDs      map[string]bool

	live      map[string]alarm.Trigger
	exact     []string
	inexact   []string
	cancelled []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{exactAllowed: true, failIDs: map[string]bool{}, live: map[string]alarm.Trigger{}}
}

func (p *fakePlatform) CanScheduleExact() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exactAllowed
}

func (p *fakePlatform) ScheduleExact(_ context.Context, t alarm.Trigger) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.denyExact {
		return alarm.ErrExactDenied
	}
	if p.failIDs[t.ID] {
		return errors.New("platform rejected trigger")
	}
	p.exact = append(p.exact, t.ID)
	p.live[t.ID] = t
	return nil
}

func (p *fakePlatform) ScheduleInexact(_ context.Context, t alarm.Trigger) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIDs[t.ID] {
		return errors.New("platform rejected trigger")
	}
	p.inexact = append(p.inexact, t.ID)
	p.live[t.ID] = t
	return nil
}

func (p *fakePlatform) Cancel(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, id)
	delete(p.live, id)
	return nil
}

func (p *fakePlatform) liveIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.live))
	for id := range p.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeNotifier struct {
	sent []telegram.Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, msg telegram.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

// failingRegistry wraps a registry and fails every Save.
type failingRegistry struct {
	reminder.Registry
}

func (failingRegistry) Save(context.Context, []string) error {
	return errors.New("disk full")
}

type fixture struct {
	store    *kvstore.MemoryStore
	platform *fakePlatform
	registry reminder.Registry
	settings *SettingsRepository
	lookup   *LookupService
	service  *ReminderService
	notifier *fakeNotifier
	handler  *AlarmHandler
	logs     *logtest.Hook
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store:    kvstore.NewMemoryStore(),
		platform: newFakePlatform(),
		notifier: &fakeNotifier{},
	}
	f.registry = NewPreferenceRegistry(f.store, "")
	f.build(t, now)
	return f
}

// build (re)creates the services over the fixture's store, platform and registry.
func (f *fixture) build(t *testing.T, now time.Time) {
	t.Helper()
	var entry *logrus.Entry
	entry, f.logs = testLogger()
	f.settings = NewSettingsRepository(f.store, "", 30)
	f.lookup = NewLookupService(testCatalog(t))
	f.service = NewReminderService(f.lookup, f.platform, f.registry, f.settings,
		reminder.LegacyRange{Start: 1000, Count: 5}, fixedClock(now), entry)
	f.handler = NewAlarmHandler(f.service, f.lookup, f.settings, f.platform, f.notifier,
		DefaultSnoozeDelay, fixedClock(now), entry)
}

func (f *fixture) registryIDs(t *testing.T) []string {
	t.Helper()
	ids, err := f.registry.Load(context.Background())
	if err != nil {
		t.Fatalf("registry Load: %v", err)
	}
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}
