package domain

import (
	"fmt"
	"strings"
	"time"
)

var dueLayouts = []string{
	DateLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	TimestampLayout,
	"2006-01-02 15:04:05",
}

// ParseDue parses user supplied due input in the local time zone.
// Blank input yields nil. Date-only input resolves to midnight.
func ParseDue(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due %q: use YYYY-MM-DD or YYYY-MM-DD HH:MM", raw)
}
