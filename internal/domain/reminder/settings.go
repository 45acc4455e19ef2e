package reminder

import (
	"errors"
	"strings"
)

const (
	MaxBranches    = 3
	MinLeadMinutes = 0
	MaxLeadMinutes = 180
)

var (
	ErrNoBranches      = errors.New("at least one branch must be selected")
	ErrTooManyBranches = errors.New("too many branches selected")
	ErrNoGroups        = errors.New("at least one group must be selected")
	ErrReservedChar    = errors.New("branch and group names must not contain " + KeySeparator)
)

// Settings is the user's reminder selection as supplied by the UI and
// persisted for re-arming after a restart.
type Settings struct {
	Enabled     bool
	LeadMinutes int
	Branches    []string
	Groups      []string
}

// ClampLead bounds a lead time to the supported range.
func ClampLead(minutes int) int {
	if minutes < MinLeadMinutes {
		return MinLeadMinutes
	}
	if minutes > MaxLeadMinutes {
		return MaxLeadMinutes
	}
	return minutes
}

// Validate checks the selection of an enabled Settings value.
func (s Settings) Validate() error {
	if !s.Enabled {
		return nil
	}
	if len(s.Branches) == 0 {
		return ErrNoBranches
	}
	if len(s.Branches) > MaxBranches {
		return ErrTooManyBranches
	}
	if len(s.Groups) == 0 {
		return ErrNoGroups
	}
	for _, v := range append(append([]string{}, s.Branches...), s.Groups...) {
		if strings.Contains(v, KeySeparator) {
			return ErrReservedChar
		}
	}
	return nil
}
