// Package timeutil provides calendar arithmetic for the reporting
// windows: day, Sunday-start week, and calendar month.
package timeutil

import (
	"fmt"
	"time"
)

// DateOnly is the ISO date layout used throughout (journal days,
// CSV export, API parameters).
const DateOnly = "2006-01-02"

// PeriodKind selects the aggregation window granularity.
type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

// ParsePeriodKind validates a period kind string.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch PeriodKind(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return PeriodKind(s), nil
	}
	return "", fmt.Errorf("unknown period kind %q", s)
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Midnight returns the local midnight of t's calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the local midnight of the Sunday on or
// before t (en-US week convention).
func StartOfWeek(t time.Time) time.Time {
	d := Midnight(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// StartOfMonth returns the local midnight of the first day of
// t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// WindowFor computes the period window containing ref.
func WindowFor(ref time.Time, kind PeriodKind) Window {
	switch kind {
	case PeriodWeek:
		start := StartOfWeek(ref)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	case PeriodMonth:
		start := StartOfMonth(ref)
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	default:
		start := Midnight(ref)
		return Window{Start: start, End: start.AddDate(0, 0, 1)}
	}
}

// Previous shifts a window back by exactly one period length.
// Month subtraction operates on the month start, so windows
// derived from dates like March 31 stay normalized (the previous
// window is all of February, never an overflowed date).
func Previous(w Window, kind PeriodKind) Window {
	switch kind {
	case PeriodWeek:
		return Window{Start: w.Start.AddDate(0, 0, -7), End: w.Start}
	case PeriodMonth:
		return Window{Start: w.Start.AddDate(0, -1, 0), End: w.Start}
	default:
		return Window{Start: w.Start.AddDate(0, 0, -1), End: w.Start}
	}
}

// FormatDate renders t as an ISO date, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateOnly)
}

// ParseDate parses an ISO date in the local timezone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
