// Package calendar renders upcoming occurrences as an iCalendar feed.
package calendar

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"training_reminder_bot/internal/domain/schedule"
)

const productID = "-//training-reminder-bot//schedule export//HE"

var rruleDays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// ExportICS writes one weekly-recurring VEVENT per occurrence. Occurrences
// of the same slot (same weekday and start time) collapse into one event.
func ExportICS(occs []schedule.Occurrence, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	seen := make(map[string]bool)
	for _, occ := range occs {
		uid := eventUID(occ)
		if seen[uid] {
			continue
		}
		seen[uid] = true

		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp)
		setLocalTime(ev, ical.ComponentPropertyDtStart, occ.Start)
		setLocalTime(ev, ical.ComponentPropertyDtEnd, occ.End)
		ev.SetSummary(summary(occ))
		if loc := location(occ); loc != "" {
			ev.SetLocation(loc)
		}
		if occ.Instructor != "" {
			ev.SetDescription("מדריך/ה: " + occ.Instructor)
		}
		ev.AddProperty(ical.ComponentPropertyRrule, weeklyRule(occ.Start))
	}
	return cal.Serialize()
}

const localTimeLayout = "20060102T150405"

// setLocalTime writes t as wall-clock time so the weekly rule recurs at the
// same local hour across DST changes. Named IANA zones are emitted with a
// TZID, UTC keeps its Z suffix and any other location is written as
// floating time.
func setLocalTime(ev *ical.VEvent, prop ical.ComponentProperty, t time.Time) {
	if t.Location() == time.UTC {
		ev.SetProperty(prop, t.Format(localTimeLayout)+"Z")
		return
	}
	value := t.Format(localTimeLayout)
	if tzid, ok := ianaName(t.Location()); ok {
		ev.SetProperty(prop, value, ical.WithTZID(tzid))
		return
	}
	ev.SetProperty(prop, value)
}

func ianaName(loc *time.Location) (string, bool) {
	name := loc.String()
	if name == "" || name == "Local" || name == "UTC" {
		return "", false
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", false
	}
	return name, true
}

// weeklyRule derives BYDAY from the same wall-clock time written to DTSTART.
func weeklyRule(start time.Time) string {
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleDays[start.Weekday()]},
	}
	return opt.RRuleString()
}

func location(occ schedule.Occurrence) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{occ.Venue, occ.Address} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func summary(occ schedule.Occurrence) string {
	if occ.Group == "" {
		return "אימון " + occ.Branch
	}
	return "אימון " + occ.Branch + " · " + occ.Group
}

func eventUID(occ schedule.Occurrence) string {
	h := sha1.New()
	h.Write([]byte(occ.Branch))
	h.Write([]byte{0})
	h.Write([]byte(occ.Group))
	h.Write([]byte{0})
	h.Write([]byte(occ.Start.Weekday().String() + occ.Start.Format("15:04")))
	return hex.EncodeToString(h.Sum(nil))[:20] + "@training-reminder-bot"
}
