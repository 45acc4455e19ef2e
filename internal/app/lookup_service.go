// internal/app/lookup_service.go
package app

import (
	"sort"
	"strings"
	"time"

	"training_reminder_bot/internal/domain/schedule"
)

// LookupService answers "which slots / which upcoming classes" questions
// over the immutable catalog. It is safe for concurrent use.
type LookupService struct {
	catalog *schedule.Catalog
}

func NewLookupService(c *schedule.Catalog) *LookupService {
	return &LookupService{catalog: c}
}

// Catalog exposes the underlying catalog for read-only queries.
func (s *LookupService) Catalog() *schedule.Catalog {
	return s.catalog
}

// SlotsFor returns the slots of branch serving group, in catalog order.
// An empty group returns every slot of the branch.
func (s *LookupService) SlotsFor(branch, group string) []schedule.Slot {
	all := s.catalog.SlotsForBranch(branch)
	if strings.TrimSpace(group) == "" {
		return all
	}
	out := make([]schedule.Slot, 0, len(all))
	for _, slot := range all {
		for _, label := range slot.Groups {
			if schedule.GroupMatches(group, label) {
				out = append(out, slot)
				break
			}
		}
	}
	return out
}

// SlotAt finds the slot of branch starting at the given weekly time.
func (s *LookupService) SlotAt(branch string, day time.Weekday, hour, minute int) (schedule.Slot, bool) {
	for _, slot := range s.catalog.SlotsForBranch(branch) {
		if slot.Day == day && slot.Hour == hour && slot.Minute == minute {
			return slot, true
		}
	}
	return schedule.Slot{}, false
}

// StartedGrace keeps a class that started a few minutes ago in "what's next"
// listings, so someone running late still sees it.
const StartedGrace = 15 * time.Minute

// OccurrencesFor resolves the next occurrence of every matching slot,
// sorted by start time.
func (s *LookupService) OccurrencesFor(branch, group string, now time.Time) []schedule.Occurrence {
	return s.occurrencesWithin(branch, group, now, 0)
}

func (s *LookupService) occurrencesWithin(branch, group string, now time.Time, grace time.Duration) []schedule.Occurrence {
	slots := s.SlotsFor(branch, group)
	out := make([]schedule.Occurrence, 0, len(slots))
	for _, slot := range slots {
		out = append(out, schedule.OccurrenceWithin(slot, strings.Join(slot.Groups, ", "), now, grace))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// UpcomingFor returns the first count occurrences for branch and group,
// continuing into following weeks when the branch has fewer slots than count.
// It is empty when the region is inactive or does not show the branch.
func (s *LookupService) UpcomingFor(region, branch, group string, count int, now time.Time) []schedule.Occurrence {
	return s.UpcomingWithin(region, branch, group, count, now, 0)
}

// UpcomingWithin is UpcomingFor that also keeps classes which started no more
// than grace before now.
func (s *LookupService) UpcomingWithin(region, branch, group string, count int, now time.Time, grace time.Duration) []schedule.Occurrence {
	if count <= 0 || !s.catalog.IsRegionActive(region) {
		return []schedule.Occurrence{}
	}
	visible := false
	for _, b := range s.catalog.BranchesFor(region) {
		if b == branch {
			visible = true
			break
		}
	}
	if !visible {
		return []schedule.Occurrence{}
	}

	week := s.occurrencesWithin(branch, group, now, grace)
	if len(week) == 0 {
		return []schedule.Occurrence{}
	}
	out := make([]schedule.Occurrence, 0, count)
	for n := 0; len(out) < count; n++ {
		for _, occ := range week {
			if len(out) == count {
				break
			}
			out = append(out, shiftWeeks(occ, n))
		}
	}
	return out
}

func shiftWeeks(occ schedule.Occurrence, weeks int) schedule.Occurrence {
	if weeks == 0 {
		return occ
	}
	duration := occ.End.Sub(occ.Start)
	occ.Start = occ.Start.AddDate(0, 0, 7*weeks)
	occ.End = occ.Start.Add(duration)
	occ.StartText = schedule.FormatStart(occ.Start)
	occ.EndText = occ.End.Format("15:04")
	return occ
}
