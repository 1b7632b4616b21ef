package profile

import (
	"strings"

	"github.com/kalambet/chefmate/internal/memory"
)

// TagPrefix starts every structured profile entry.
const TagPrefix = "PROFILE."

// ParseTag splits a "PROFILE.<field>: <value>" entry. Text that does not
// start with the prefix, has no colon, or has an empty side is rejected.
func ParseTag(text string) (field, value string, ok bool) {
	if !strings.HasPrefix(text, TagPrefix) {
		return "", "", false
	}
	left, right, found := strings.Cut(text, ":")
	if !found {
		return "", "", false
	}
	field = strings.TrimSpace(strings.TrimPrefix(left, TagPrefix))
	value = strings.TrimSpace(right)
	if field == "" || value == "" {
		return "", "", false
	}
	return field, value, true
}

// TagLine renders the entry text that records field = value.
func TagLine(field, value string) string {
	return TagPrefix + field + ": " + value
}

// ReadEntries projects entries into a structured profile. For each field the
// last tag in insertion order wins.
func ReadEntries(entries []memory.Entry) Profile {
	p := Profile{}
	for _, e := range entries {
		if field, value, ok := ParseTag(e.Text); ok {
			p[field] = value
		}
	}
	return p
}
