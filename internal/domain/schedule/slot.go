package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Slot is one weekly recurring class entry of the catalog.
// Slots are built once when the catalog is loaded and never change afterwards.
type Slot struct {
	Branch     string
	Groups     []string // one or more free-text group labels served by the slot
	Day        time.Weekday
	Hour       int
	Minute     int
	Duration   int // minutes
	Venue      string
	Address    string
	Instructor string
}

// Validate checks the authoring-time constraints of a slot.
func (s Slot) Validate() error {
	if s.Branch == "" {
		return fmt.Errorf("slot has no branch")
	}
	if strings.ContainsAny(s.Branch, listDelimiters) {
		return fmt.Errorf("branch %q contains a list delimiter", s.Branch)
	}
	if len(s.Groups) == 0 {
		return fmt.Errorf("slot for branch %q has no groups", s.Branch)
	}
	if s.Day < time.Sunday || s.Day > time.Saturday {
		return fmt.Errorf("slot for branch %q has invalid weekday %d", s.Branch, s.Day)
	}
	if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("slot for branch %q has invalid start time %02d:%02d", s.Branch, s.Hour, s.Minute)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("slot for branch %q has non-positive duration %d", s.Branch, s.Duration)
	}
	return nil
}

// StartClock returns the start time as HH:MM.
func (s Slot) StartClock() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

func (s Slot) clone() Slot {
	c := s
	c.Groups = append([]string(nil), s.Groups...)
	return c
}
