// Package calendar holds the date arithmetic shared by the ingestion
// pipeline and the reporting read path. Everything is computed in UTC so
// week boundaries never drift with the host timezone.
package calendar

import (
	"errors"
	"time"
)

// DateLayout is the wire format for every calendar date the system
// accepts or emits.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid_date")

// WeekStart returns the Monday on or before d, truncated to midnight UTC.
// It is idempotent: WeekStart(WeekStart(d)) == WeekStart(d).
func WeekStart(d time.Time) time.Time {
	d = d.UTC()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// ParseDate parses a strict YYYY-MM-DD calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

// FormatDate renders a UTC calendar date in YYYY-MM-DD form.
func FormatDate(d time.Time) string {
	return d.UTC().Format(DateLayout)
}
