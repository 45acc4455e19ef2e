package schedule

import (
	"fmt"
	"time"
)

// Occurrence is a concrete, time-resolved instance of a slot relative to a
// reference instant. It is recomputed on demand and never persisted.
type Occurrence struct {
	Start      time.Time
	End        time.Time
	StartText  string
	EndText    string
	Branch     string
	Group      string
	Venue      string
	Address    string
	Instructor string
}

var hebrewDays = [...]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}

// DayName returns the Hebrew weekday name used in display strings.
func DayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return d.String()
	}
	return hebrewDays[d]
}

// NextWeekly computes the next start of a weekly recurring slot strictly after now.
func NextWeekly(day time.Weekday, hour, minute, durationMinutes int, now time.Time) Occurrence {
	return NextWeeklyWithin(day, hour, minute, durationMinutes, now, 0)
}

// NextWeeklyWithin is NextWeekly with a grace window: an occurrence that
// started no more than grace before now is still returned.
//
// The candidate is snapped to the target weekday inside the current
// Sunday-based week; if it is not after now (minus grace) it moves forward by
// exactly seven calendar days.
func NextWeeklyWithin(day time.Weekday, hour, minute, durationMinutes int, now time.Time, grace time.Duration) Occurrence {
	loc := now.Location()
	base := now.Truncate(time.Minute)
	delta := int(day) - int(base.Weekday())
	start := time.Date(base.Year(), base.Month(), base.Day()+delta, hour, minute, 0, 0, loc)

	if !start.After(now) {
		if grace <= 0 || now.Sub(start) > grace {
			start = time.Date(start.Year(), start.Month(), start.Day()+7, hour, minute, 0, 0, loc)
		}
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	return Occurrence{
		Start:     start,
		End:       end,
		StartText: FormatStart(start),
		EndText:   end.Format("15:04"),
	}
}

// OccurrenceOf resolves the next occurrence of slot after now and attaches
// its venue details.
func OccurrenceOf(slot Slot, group string, now time.Time) Occurrence {
	return OccurrenceWithin(slot, group, now, 0)
}

// OccurrenceWithin is OccurrenceOf with the grace window of NextWeeklyWithin.
func OccurrenceWithin(slot Slot, group string, now time.Time, grace time.Duration) Occurrence {
	occ := NextWeeklyWithin(slot.Day, slot.Hour, slot.Minute, slot.Duration, now, grace)
	occ.Branch = slot.Branch
	occ.Group = group
	occ.Venue = slot.Venue
	occ.Address = slot.Address
	occ.Instructor = slot.Instructor
	return occ
}

// FormatStart renders a start timestamp as "יום <day> DD.MM HH:MM".
func FormatStart(t time.Time) string {
	return fmt.Sprintf("יום %s %02d.%02d %s", DayName(t.Weekday()), t.Day(), int(t.Month()), t.Format("15:04"))
}
