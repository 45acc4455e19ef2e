package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"training_reminder_bot/internal/domain/alarm"
	"training_reminder_bot/internal/domain/reminder"
)

const (
	centerAdults = "weekly|North-Center|adults|1|19:00|30"
	centerYouth  = "weekly|North-Center|youth|1|19:00|30"
	haifaAdults  = "weekly|North-Haifa|adults|2|20:00|30"
	haifaYouth   = "weekly|North-Haifa|youth|4|17:00|30"
)

func TestScheduleAllRegistersMatchingSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mondayMorning)

	n, err := f.service.ScheduleAll(ctx, []string{"North-Center", "North-Haifa"}, []string{"בוגרים", "youth"}, 30)
	if err != nil {
		t.Fatalf("ScheduleAll: %v", err)
	}
	want := []string{centerAdults, centerYouth, haifaAdults, haifaYouth}
	if n != len(want) {
		t.Errorf("ScheduleAll returned %d, want %d", n, len(want))
	}
	if got := f.platform.liveIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("live triggers = %v, want %v", got, want)
	}
	if got := f.registryIDs(t); !reflect.DeepEqual(got, want) {
		t.Errorf("registry = %v, want %v", got, want)
	}

	trig := f.platform.live[centerAdults]
	if wantFire := time.Date(2026, 10, 12, 18, 30, 0, 0, israel); !trig.FireAt.Equal(wantFire) {
		t.Errorf("FireAt = %v, want %v", trig.FireAt, wantFire)
	}
	if trig.Repeat != 7*24*time.Hour {
		t.Errorf("Repeat = %v, want one week", trig.Repeat)
	}
	if trig.Payload.ReminderKey != centerAdults {
		t.Errorf("payload key = %q", trig.Payload.ReminderKey)
	}
}

func TestScheduleAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mondayMorning)

	for i := 0; i < 3; i++ {
		if _, err := f.service.ScheduleAll(ctx, []string{"North-Center"}, []string{"adults"}, 30); err != nil {
			t.Fatalf("ScheduleAll #%d: %v", i, err)
		}
	}
	want := []string{centerAdults}
	if got := f.platform.liveIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("live triggers = %v, want %v", got, want)
	}
	if got := f.registryIDs(t); !reflect.DeepEqual(got, want) {
		t.Errorf("registry = %v, want %v", got, want)
	}
}

func TestScheduleAllDeduplicatesEquivalentGroups(t *testing.T) {
	f := newFixture(t, mondayMorning)

	n, err := f.service.ScheduleAll(context.Background(), []string{"North-Center", " North-Center ", ""}, []string{"adults", "בוגרים", " "}, 30)
	if err != nil {
		t.Fatalf("ScheduleAll: %v", err)
	}
	if n != 1 {
		t.Errorf("ScheduleAll returned %d, want 1", n)
	}
}

func TestScheduleAllReplacesPreviousSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mondayMorning)

	if _, err := f.service.ScheduleAll(ctx, []string{"North-Center"}, []string{"adults", "youth"}, 30); err != nil {
		t.Fatalf("ScheduleAll A: %v", err)
	}
	if _, err := f.service.ScheduleAll(ctx, []string{"North-Haifa"}, []string{"adults"}, 30); err != nil {
		t.Fatalf("ScheduleAll B: %v", err)
	}

	want := []string{haifaAdults}
	if got := f.platform.liveIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("live triggers after switch = %v, want %v", got, want)
	}
	if got := f.registryIDs(t); !reflect.DeepEqual(got, want) {
		t.Errorf("registry after switch = %v, want %v", got, want)
	}
}

func TestScheduleAllLeadChangeReplacesTriggers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mondayMorning)

	if _, err := f.service.ScheduleAll(ctx, []string{"North-Center"}, []string{"adults"}, 30); err != nil {
		t.Fatal(err)
	}
	if _, err := f.service.ScheduleAll(ctx, []string{"North-Center"}, []string{"adults"}, 500); err != nil {
		t.Fatal(err)
	}

	want := []string{"weekly|North-Center|adults|1|19:00|180"}
	if got := f.platform.liveIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("live triggers = %v, want %v", got, want)
	}
	fire := f.platform.live[want[0]].FireAt
	if wantFire := time.Date(2026, 10, 12, 16, 0, 0, 0, israel); !fire.Equal(wantFire) {
		t.Errorf("FireAt = %v, want %v", fire, wantFire)
	}
}

func TestScheduleAllPushesPassedFireTimeToNextWeek(t *testing.T) {
	// 18:45 is after the 18:30 reminder but before the 19:00 class.
	now := time.Date(2026, 10, 12, 18, 45, 0, 0, israel)
	f := newFixture(t, now)

	if _, err := f.service.ScheduleAll(context.Background(), []string{"North-Center"}, []string{"adults"}, 30); err != nil {
		t.Fatal(err)
	}
	fire := f.platform.live[centerAdults].FireAt
	if want := time.Date(2026, 10, 19, 18, 30, 0, 0, israel); !fire.Equal(want) {
		t.Errorf("FireAt = %v, want %v", fire, want)
	}
}

func TestScheduleAllFallsBackToInexact(t *testing.T) {
	t.Run("exact denied at registration", func(t *testing.T) {
		f := newFixture(t, mondayMorning)
		f.platform.denyExact = true

		n, err := f.service.ScheduleAll(context.Background(), []string{"North-Center"}, []string{"adults"}, 30)
		if err != nil || n != 1 {
			t.Fatalf("ScheduleAll = %d, %v", n, err)
		}
		if !reflect.DeepEqual(f.platform.inexact, []string{centerAdults}) {
			t.Errorf("inexact registrations = %v", f.platform.inexact)
		}
	})

	t.Run("exact not available", func(t *testing.T) {
		f := newFixture(t, mondayMorning)
		f.platform.exactAllowed = false

		if _, err := f.service.ScheduleAll(context.Background(), []string{"North-Center"}, []string{"adults"}, 30); err != nil {
			t.Fatal(err)
		}
		if len(f.platform.exact) != 0 {
			t.Errorf("exact registrations = %v, want none", f.platform.exact)
		}
		if !reflect.DeepEqual(f.platform.inexact, []string{centerAdults}) {
			t.Errorf("inexact registrations = %v", f.platform.inexact)
		}
	})
}

func TestScheduleAllSkipsRejectedTriggers(t *testing.T) {
	f := newFixture(t, mondayMorning)
	f.platform.failIDs[centerYouth] = true

	n, err := f.service.ScheduleAll(context.Background(), []string{"North-Center"}, []string{"adults", "youth"}, 30)
	if err != nil {
		t.Fatalf("ScheduleAll: %v", err)
	}
	if n != 1 {
		t.Errorf("ScheduleAll returned %d, want 1", n)
	}
	if got := f.registryIDs(t); !reflect.DeepEqual(got, []string{centerAdults}) {
		t.Errorf("registry = %v, want only the registered trigger", got)
	}
}

func TestScheduleAllCancelsTriggersWhenRegistryCannotBeSaved(t *testing.T) {
	f := newFixture(t, mondayMorning)
	f.registry = failingRegistry{Registry: f.registry}
	f.build(t, mondayMorning)

	if _, err := f.service.ScheduleAll(context.Background(), []string{"North-Center"}, []string{"adults"}, 30); err == nil {
		t.Fatal("ScheduleAll succeeded with a failing registry")
	}
	if got := f.platform.liveIDs(); len(got) != 0 {
		t.Errorf("untracked triggers left live: %v", got)
	}
}

func TestCancelAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mondayMorning)

	if _, err := f.service.ScheduleAll(ctx, []string{"North-Center", "North-Haifa"}, []string{"adults"}, 30); err != nil {
		t.Fatal(err)
	}
	if err := f.service.CancelAll(ctx); err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if got := f.platform.liveIDs(); len(got) != 0 {
		t.Errorf("live triggers after CancelAll = %v", got)
	}
	if got := f.registryIDs(t); len(got) != 0 {
		t.Errorf("registry after CancelAll = %v", got)
	}
	active, err := f.service.Active(ctx)
	if err != nil || len(active) != 0 {
		t.Errorf("Active after CancelAll = %v, %v", active, err)
	}
}

func TestCorruptRegistrySweepsLegacyRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mondayMorning)

	for _, id := range []string{"1000", "1004", "1005"} {
		f.platform.live[id] = alarm.Trigger{ID: id}
	}
	if err := f.store.Set(ctx, registryKey, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.registry.Load(ctx); !errors.Is(err, reminder.ErrRegistryCorrupt) {
		t.Fatalf("Load on corrupt value = %v, want ErrRegistryCorrupt", err)
	}

	if _, err := f.service.ScheduleAll(ctx, []string{"North-Center"}, []string{"adults"}, 30); err != nil {
		t.Fatalf("ScheduleAll: %v", err)
	}

	// 1005 lies outside the configured legacy range.
	want := []string{"1005", centerAdults}
	if got := f.platform.liveIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("live triggers = %v, want %v", got, want)
	}
	if got := f.registryIDs(t); !reflect.DeepEqual(got, []string{centerAdults}) {
		t.Errorf("registry = %v", got)
	}
}

func TestApplySettings(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid selection is rejected before anything changes", func(t *testing.T) {
		f := newFixture(t, mondayMorning)
		err := f.service.ApplySettings(ctx, reminder.Settings{
			Enabled: true, LeadMinutes: 30,
			Branches: []string{"a", "b", "c", "d"}, Groups: []string{"adults"},
		})
		if !errors.Is(err, reminder.ErrTooManyBranches) {
			t.Fatalf("ApplySettings = %v, want ErrTooManyBranches", err)
		}
		st, _ := f.settings.Load(ctx)
		if st.Enabled {
			t.Error("invalid settings were persisted")
		}
	})

	t.Run("group containing the key separator is rejected", func(t *testing.T) {
		f := newFixture(t, mondayMorning)
		err := f.service.ApplySettings(ctx, reminder.Settings{
			Enabled: true, LeadMinutes: 30,
			Branches: []string{"North-Haifa"}, Groups: []string{"בוגרים|נוער"},
		})
		if !errors.Is(err, reminder.ErrReservedChar) {
			t.Fatalf("ApplySettings = %v, want ErrReservedChar", err)
		}
		if got := f.platform.liveIDs(); len(got) != 0 {
			t.Errorf("live triggers = %v, want none", got)
		}
	})

	t.Run("enable then disable", func(t *testing.T) {
		f := newFixture(t, mondayMorning)
		enabled := reminder.Settings{Enabled: true, LeadMinutes: 30, Branches: []string{"North-Haifa"}, Groups: []string{"adults"}}
		if err := f.service.ApplySettings(ctx, enabled); err != nil {
			t.Fatalf("ApplySettings enabled: %v", err)
		}
		if got := f.platform.liveIDs(); !reflect.DeepEqual(got, []string{haifaAdults}) {
			t.Errorf("live triggers = %v", got)
		}

		if err := f.service.ApplySettings(ctx, reminder.Settings{LeadMinutes: 30}); err != nil {
			t.Fatalf("ApplySettings disabled: %v", err)
		}
		if got := f.platform.liveIDs(); len(got) != 0 {
			t.Errorf("live triggers after disabling = %v", got)
		}
		st, err := f.settings.Load(ctx)
		if err != nil || st.Enabled {
			t.Errorf("settings after disabling = %+v, %v", st, err)
		}
	})
}

func TestRearmAfterRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mondayMorning)

	st := reminder.Settings{Enabled: true, LeadMinutes: 45, Branches: []string{"North-Center"}, Groups: []string{"youth"}}
	if err := f.service.ApplySettings(ctx, st); err != nil {
		t.Fatal(err)
	}

	// A restart loses every live trigger but keeps the store.
	f.platform = newFakePlatform()
	f.build(t, mondayMorning)

	if err := f.service.Rearm(ctx); err != nil {
		t.Fatalf("Rearm: %v", err)
	}
	want := []string{"weekly|North-Center|youth|1|19:00|45"}
	if got := f.platform.liveIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("live triggers after re-arm = %v, want %v", got, want)
	}

	active, err := f.service.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(active) != 1 || active[0].Branch != "North-Center" || active[0].LeadMinutes != 45 {
		t.Errorf("Active = %+v", active)
	}
}

func TestRearmWhenDisabledDoesNothing(t *testing.T) {
	f := newFixture(t, mondayMorning)
	if err := f.service.Rearm(context.Background()); err != nil {
		t.Fatalf("Rearm: %v", err)
	}
	if len(f.platform.exact)+len(f.platform.inexact)+len(f.platform.cancelled) != 0 {
		t.Error("Rearm touched the platform while reminders are disabled")
	}
}
