package extract

import (
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing terminal dates.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
}

// ParseDate parses s using the layouts the terminal emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysRemaining returns the calendar-day delta from now to the date in s,
// negative once the date has passed. It returns nil if s does not parse.
func DaysRemaining(s string, now time.Time) *int {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}
	y, m, d := t.Date()
	due := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	y, m, d = now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	days := int(due.Sub(today).Hours() / 24)
	return &days
}
