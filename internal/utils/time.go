package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	LayoutDate    = "2006-01-02"
	layoutClock   = "15:04:05"
	layoutClockHM = "15:04"
)

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseDate parses YYYY-MM-DD as a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(LayoutDate, strings.TrimSpace(s))
}

// FormatDate formats the calendar date part of t.
func FormatDate(t time.Time) string {
	return t.Format(LayoutDate)
}

// DepartureAt combines a calendar date with a wall-clock "HH:MM[:SS]" in loc.
func DepartureAt(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	clock = strings.TrimSpace(clock)
	var (
		tod time.Time
		err error
	)
	if strings.Count(clock, ":") == 2 {
		tod, err = time.Parse(layoutClock, clock)
	} else {
		tod, err = time.Parse(layoutClockHM, clock)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure time %q: %w", clock, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), tod.Second(), 0, loc), nil
}
