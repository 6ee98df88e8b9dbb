package domain

import (
	"strings"
	"time"
)

// dateFormats are tried in order when parsing dates from model output.
// Vision models are inconsistent about date formats even when asked for
// ISO 8601.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses s using a set of common receipt date formats. If nothing
// matches, it falls back to the current time so a bad date never blocks an
// otherwise usable extraction; the user reviews the draft anyway.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Now().UTC()
}
