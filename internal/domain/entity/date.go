package entity

import "time"

// DateLayout is the canonical calendar-date format used throughout the
// store. ISO dates compare correctly as strings, which the DND range
// checks and the rest-day ordering rely on.
const DateLayout = "2006-01-02"

// YearMonthLayout is the month key format for habit configuration.
const YearMonthLayout = "200601"

// FormatDate renders t's calendar date in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a canonical calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// YearMonthOf returns the month key for a canonical date string.
func YearMonthOf(date string) string {
	if len(date) < 7 {
		return ""
	}
	return date[:4] + date[5:7]
}
