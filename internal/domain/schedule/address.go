package schedule

import (
	"strings"
	"unicode"
)

const listDelimiters = "\n;|"

var dashReplacer = strings.NewReplacer("–", "-", "—", "-", "‑", "-", "−", "-")

// ResolveAddress turns a branch name (or a delimited list of them) into a
// postal address. Inputs that already look like an address are returned
// unchanged, and so is anything that cannot be resolved.
func (c *Catalog) ResolveAddress(input string) string {
	if strings.ContainsAny(input, listDelimiters) {
		parts := strings.FieldsFunc(input, func(r rune) bool {
			return strings.ContainsRune(listDelimiters, r)
		})
		resolved := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			resolved = append(resolved, c.resolveOne(p))
		}
		return strings.Join(resolved, "\n")
	}
	return c.resolveOne(input)
}

func (c *Catalog) resolveOne(input string) string {
	if looksLikeAddress(input) {
		return input
	}
	trimmed := strings.TrimSpace(input)
	if addr, ok := c.AddressFor(trimmed); ok {
		return addr
	}
	if addr, ok := c.normAddress[normalizeKey(trimmed)]; ok {
		return addr
	}
	if city, venue, ok := splitCityVenue(trimmed); ok {
		return venue + ", " + city
	}
	return input
}

func looksLikeAddress(s string) bool {
	if strings.Contains(s, ",") {
		return true
	}
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// normalizeKey unifies dash variants and whitespace so that "North – Center",
// "North-Center" and "north  -center" share one key.
func normalizeKey(s string) string {
	s = dashReplacer.Replace(strings.ToLower(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(strings.ReplaceAll(s, " -", "-"), "- ", "-")
}

// splitCityVenue splits "City – Venue" on the first dash.
func splitCityVenue(s string) (city, venue string, ok bool) {
	unified := dashReplacer.Replace(s)
	idx := strings.Index(unified, "-")
	if idx < 0 {
		return "", "", false
	}
	city = strings.TrimSpace(unified[:idx])
	venue = strings.TrimSpace(unified[idx+1:])
	if city == "" || venue == "" {
		return "", "", false
	}
	return city, venue, true
}
