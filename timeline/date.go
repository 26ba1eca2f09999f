// Package timeline merges stage changes and activities into one
// state-annotated, newest-first sequence.
package timeline

import (
	"regexp"
	"strings"
	"time"
)

var (
	ordinalSuffix = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)
	septAbbrev    = regexp.MustCompile(`(?i)\bsept\b\.?`)
)

// dateLayouts are tried in order after ordinal suffixes are removed.
var dateLayouts = []string{
	"Jan 2 06",
	"Jan 2 2006",
	"January 2 06",
	"January 2 2006",
	"Jan 2, 06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	time.RFC3339,
}

// ParseDate parses a card timestamp such as "Jan 5th 24" into a calendar
// date at UTC midnight. Timestamps carrying a time of day keep only their
// own date. ok is false when no known layout matches.
func ParseDate(raw string) (time.Time, bool) {
	s := ordinalSuffix.ReplaceAllString(raw, "$1")
	s = septAbbrev.ReplaceAllString(s, "Sep")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
