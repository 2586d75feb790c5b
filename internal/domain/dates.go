package domain

import (
	"fmt"
	"time"
)

// DayFormat is the calendar-day encoding used throughout the engine.
const DayFormat = "2006-01-02"

// MonthFormat is the baseline-period encoding.
const MonthFormat = "2006-01"

// ParseDay parses a YYYY-MM-DD day string as a UTC midnight instant.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// FormatDay encodes t's UTC calendar day.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// MonthOf returns the YYYY-MM period containing t.
func MonthOf(t time.Time) string {
	return t.UTC().Format(MonthFormat)
}

// WeekKey returns the ISO-8601 year-week bucket key for t, e.g. "2025-W07".
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
