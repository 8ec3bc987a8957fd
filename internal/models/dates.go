package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date form used in reports and forms.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	DateLayout,
}

// ParseDate parses the ISO-8601 forms the backend emits.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatDate renders s as yyyy-MM-dd, or "" when s is not a date.
func FormatDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return ""
	}
	return t.Format(DateLayout)
}

// DaysUntil returns the number of whole calendar days from now to the date in
// s. Past dates give negative values.
func DaysUntil(s string, now time.Time) (int, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(day.Sub(today).Hours() / 24), nil
}
