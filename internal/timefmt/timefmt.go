// Package timefmt parses user-supplied dates and formats times for display.
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

// ErrBadTime is returned for input no accepted layout matches.
var ErrBadTime = errors.New("unrecognized date/time")

// локальные форматы, без зоны
var localLayouts = []string{
	DateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"02.01.2006 15:04",
}

var dateLayouts = []string{
	DateLayout,
	"02.01.2006",
}

// ParseInstant reads s as RFC3339 or as a wall time in loc. dateOnly is true
// when s named a day without a time; the result is then midnight in loc.
func ParseInstant(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q", ErrBadTime, s)
}

// ParseRange parses an inclusive [from, to] range. An empty to, or a to that
// is a bare date, extends to the end of that day.
func ParseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, _, err := ParseInstant(from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if strings.TrimSpace(to) == "" {
		return start, EndOfDay(start.In(locOrUTC(loc))), nil
	}

	end, dateOnly, err := ParseInstant(to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dateOnly {
		end = EndOfDay(end)
	}
	return start, end, nil
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last instant of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("Mon 02.01.2006 15:04")
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end time.Time) string {
	if start.YearDay() != end.YearDay() || start.Year() != end.Year() {
		return fmt.Sprintf("%s - %s", FormatDateTime(start), FormatDateTime(end))
	}
	return fmt.Sprintf("%s-%s", FormatDateTime(start), end.Format("15:04"))
}

// FormatDuration форматирует длительность
func FormatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
