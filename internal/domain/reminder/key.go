package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"training_reminder_bot/internal/domain/schedule"
)

const (
	keyPrefix = "weekly"
	// KeySeparator joins the fields of a Key. Branch and group text must not
	// contain it.
	KeySeparator = "|"
)

// Key is the logical identity of a weekly reminder. Two reminders with the
// same parameters always produce the same String(), which is also the ID of
// the deferred trigger backing it.
type Key struct {
	Branch      string
	Group       schedule.CanonicalGroup
	Day         time.Weekday
	Hour        int
	Minute      int
	LeadMinutes int
}

// NewKey derives the key of a slot reminder for the given group selection.
func NewKey(slot schedule.Slot, group string, leadMinutes int) Key {
	return Key{
		Branch:      slot.Branch,
		Group:       schedule.CanonicalizeGroup(group),
		Day:         slot.Day,
		Hour:        slot.Hour,
		Minute:      slot.Minute,
		LeadMinutes: leadMinutes,
	}
}

// String encodes the key as weekly|branch|group|weekday|HH:MM|lead.
func (k Key) String() string {
	return strings.Join([]string{
		keyPrefix,
		k.Branch,
		string(k.Group),
		strconv.Itoa(int(k.Day)),
		fmt.Sprintf("%02d:%02d", k.Hour, k.Minute),
		strconv.Itoa(k.LeadMinutes),
	}, KeySeparator)
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, KeySeparator)
	if len(parts) != 6 || parts[0] != keyPrefix {
		return Key{}, fmt.Errorf("malformed reminder key %q", s)
	}
	day, err := strconv.Atoi(parts[3])
	if err != nil || day < 0 || day > 6 {
		return Key{}, fmt.Errorf("malformed weekday in reminder key %q", s)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(parts[4], "%d:%d", &hour, &minute); err != nil {
		return Key{}, fmt.Errorf("malformed time in reminder key %q: %w", s, err)
	}
	lead, err := strconv.Atoi(parts[5])
	if err != nil {
		return Key{}, fmt.Errorf("malformed lead in reminder key %q: %w", s, err)
	}
	return Key{
		Branch:      parts[1],
		Group:       schedule.CanonicalGroup(parts[2]),
		Day:         time.Weekday(day),
		Hour:        hour,
		Minute:      minute,
		LeadMinutes: lead,
	}, nil
}
