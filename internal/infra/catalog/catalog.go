// Package catalog loads the compiled-in weekly timetable.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"training_reminder_bot/internal/domain/schedule"
)

//go:embed data/schedule.yaml
var embedded []byte

type document struct {
	Regions      []regionDoc       `yaml:"regions"`
	Availability availabilityDoc   `yaml:"availability"`
	Addresses    map[string]string `yaml:"addresses"`
	Slots        []slotDoc         `yaml:"slots"`
}

type regionDoc struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Branches []string `yaml:"branches"`
}

type availabilityDoc struct {
	InactiveRegions  map[string]string `yaml:"inactive_regions"`
	InactiveBranches []string          `yaml:"inactive_branches"`
}

type slotDoc struct {
	Branch     string   `yaml:"branch"`
	Groups     []string `yaml:"groups"`
	Day        string   `yaml:"day"`
	Start      string   `yaml:"start"`
	Duration   int      `yaml:"duration"`
	Venue      string   `yaml:"venue"`
	Address    string   `yaml:"address"`
	Instructor string   `yaml:"instructor"`
}

// Load parses the embedded timetable.
func Load() (*schedule.Catalog, error) {
	return Parse(embedded)
}

// Parse builds a catalog from a YAML document. Every entry is normalized to
// schedule.Slot here so nothing downstream inspects raw shapes.
func Parse(data []byte) (*schedule.Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	slots := make([]schedule.Slot, 0, len(doc.Slots))
	for i, sd := range doc.Slots {
		day, err := parseWeekday(sd.Day)
		if err != nil {
			return nil, fmt.Errorf("catalog slot %d (%s): %w", i, sd.Branch, err)
		}
		hour, minute, err := parseClock(sd.Start)
		if err != nil {
			return nil, fmt.Errorf("catalog slot %d (%s): %w", i, sd.Branch, err)
		}
		slots = append(slots, schedule.Slot{
			Branch:     strings.TrimSpace(sd.Branch),
			Groups:     sd.Groups,
			Day:        day,
			Hour:       hour,
			Minute:     minute,
			Duration:   sd.Duration,
			Venue:      sd.Venue,
			Address:    sd.Address,
			Instructor: sd.Instructor,
		})
	}

	regions := make([]schedule.Region, 0, len(doc.Regions))
	for _, rd := range doc.Regions {
		regions = append(regions, schedule.Region{ID: rd.ID, Name: rd.Name, Branches: rd.Branches})
	}

	held := make(map[string]bool, len(doc.Availability.InactiveBranches))
	for _, b := range doc.Availability.InactiveBranches {
		held[b] = true
	}

	return schedule.NewCatalog(slots, regions, doc.Addresses, schedule.Availability{
		InactiveRegions:  doc.Availability.InactiveRegions,
		InactiveBranches: held,
	})
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return d, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
