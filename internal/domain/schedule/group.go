package schedule

import (
	"strings"
	"unicode"
)

// CanonicalGroup is the closed classification derived from free-text group labels.
type CanonicalGroup string

const (
	GroupKids        CanonicalGroup = "kids"
	GroupYouth       CanonicalGroup = "youth"
	GroupAdults      CanonicalGroup = "adults"
	GroupYouthAdults CanonicalGroup = "youth+adults"
)

// Keyword tables are matched against lower-cased input. Substring keywords may
// appear inside longer words (Hebrew prefixes such as ה/ל/ו attach directly);
// word keywords must be a whole token.
var (
	youthSubstrings = []string{"נוער", "youth", "teen", "junior"}
	adultSubstrings = []string{"בוגר", "מבוגר", "adult", "senior"}
	kidsSubstrings  = []string{"כיתה", "כיתות", "ילדים", "ילדות", "גן חובה", "טרום חובה", "kindergarten", "grade", "kids", "children"}
	kidsWords       = []string{"גן", "גנים", "א-ב", "ג-ד", "ה-ו"}
)

// CanonicalizeGroup maps arbitrary group text onto a CanonicalGroup.
// Precedence: youth and adult tokens together, adult tokens, youth tokens,
// child indicators. Text matching none of them is returned trimmed.
func CanonicalizeGroup(text string) CanonicalGroup {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	youth := containsAny(lower, youthSubstrings)
	adult := containsAny(lower, adultSubstrings)
	switch {
	case youth && adult:
		return GroupYouthAdults
	case adult:
		return GroupAdults
	case youth:
		return GroupYouth
	case containsAny(lower, kidsSubstrings) || hasWord(lower, kidsWords):
		return GroupKids
	}
	return CanonicalGroup(trimmed)
}

// GroupMatches reports whether a slot label serves the requested group.
// A youth or adults request also matches combined youth+adults sessions; the
// reverse does not hold.
func GroupMatches(request, label string) bool {
	if strings.TrimSpace(request) == strings.TrimSpace(label) {
		return true
	}
	want := CanonicalizeGroup(request)
	have := CanonicalizeGroup(label)
	if want == have {
		return true
	}
	if have == GroupYouthAdults && (want == GroupYouth || want == GroupAdults) {
		return true
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasWord(s string, words []string) bool {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '/' || r == '+' || r == '(' || r == ')'
	})
	for _, tok := range tokens {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}
