// Package dateutils provides the date parsing and period arithmetic used by
// the parsers, the budget calculator and the CLI.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Date layouts accepted for user and parser input
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutSlash    = "2006/01/02"
	DateLayoutJapanese = "2006年1月2日"
	DateLayoutFull     = "2006-01-02 15:04:05"
	DateLayoutRFC3339  = time.RFC3339
)

// CommonFormats is the list of layouts tried by ParseDate, in order
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutSlash,
	DateLayoutJapanese,
	DateLayoutFull,
	DateLayoutRFC3339,
	"2006/1/2",
	"2006-1-2",
}

var spaceRun = regexp.MustCompile(`\s+`)

// ParseDate parses dateStr with the first matching layout of CommonFormats,
// interpreting dates without a zone in loc. It returns the detected layout.
func ParseDate(dateStr string, loc *time.Location) (time.Time, string, error) {
	if loc == nil {
		loc = time.Local
	}
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, "", fmt.Errorf("unable to parse date: empty")
	}

	for _, format := range CommonFormats {
		if t, err := time.ParseInLocation(format, dateStr, loc); err == nil {
			return t, format, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// CleanDateString trims and collapses whitespace
func CleanDateString(dateStr string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// ToJapaneseDate formats date as 2024年3月5日.
func ToJapaneseDate(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.Format(DateLayoutJapanese)
}

// StartOfDay returns midnight of date in its location.
func StartOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// EndOfDay returns 23:59:59 of date in its location.
func EndOfDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, date.Location())
}

// StartOfMonth returns the first day of the month at 00:00:00
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}

// EndOfMonth returns the last day of the month at 23:59:59
func EndOfMonth(date time.Time) time.Time {
	return EndOfDay(StartOfMonth(date).AddDate(0, 1, -1))
}

// StartOfWeek returns the Monday of date's week at 00:00:00.
func StartOfWeek(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return StartOfDay(date).AddDate(0, 0, -offset)
}

// EndOfWeek returns the Sunday of date's week at 23:59:59.
func EndOfWeek(date time.Time) time.Time {
	return EndOfDay(StartOfWeek(date).AddDate(0, 0, 6))
}

// CompareDates compares the calendar days of two dates and returns -1, 0 or 1
func CompareDates(date1, date2 time.Time) int {
	date1 = time.Date(date1.Year(), date1.Month(), date1.Day(), 0, 0, 0, 0, time.UTC)
	date2 = time.Date(date2.Year(), date2.Month(), date2.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case date1.Before(date2):
		return -1
	case date1.After(date2):
		return 1
	default:
		return 0
	}
}
