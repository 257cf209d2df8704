package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/slot_booking/internal/model"
	"github.com/Freeeeeet/slot_booking/internal/timefmt"
)

var errUsage = errors.New("usage")

// parsePublishArgs accepts
//
//	2024-08-01 09:00 10:00
//	2024-08-01 09:00 2024-08-01 10:00
//	2024-08-01T09:00 2024-08-01T10:00
//
// Times without a zone are read in loc.
func parsePublishArgs(args string, loc *time.Location) (time.Time, time.Time, error) {
	f := strings.Fields(args)

	var rawStart, rawEnd string
	switch len(f) {
	case 2:
		rawStart, rawEnd = f[0], f[1]
	case 3:
		rawStart, rawEnd = f[0]+" "+f[1], f[0]+" "+f[2]
	case 4:
		rawStart, rawEnd = f[0]+" "+f[1], f[2]+" "+f[3]
	default:
		return time.Time{}, time.Time{}, errUsage
	}

	start, dateOnly, err := timefmt.ParseInstant(rawStart, loc)
	if err != nil || dateOnly {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", errUsage)
	}
	end, dateOnly, err := timefmt.ParseInstant(rawEnd, loc)
	if err != nil || dateOnly {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", errUsage)
	}
	return start, end, nil
}

type findArgs struct {
	serviceType string
	from, to    time.Time
	preference  model.Preference
}

// parseFindArgs reads "<type|-> [today|tomorrow|date] [preference]".
func parseFindArgs(args string, now time.Time, loc *time.Location) (findArgs, error) {
	f := strings.Fields(strings.ToLower(args))
	if len(f) == 0 || len(f) > 3 {
		return findArgs{}, errUsage
	}

	var fa findArgs
	if f[0] != "-" && f[0] != "any" {
		fa.serviceType = f[0]
	}

	now = now.In(loc)
	day := "today"
	if len(f) > 1 {
		day = f[1]
	}
	switch day {
	case "today", "сегодня":
		fa.from, fa.to = now, timefmt.EndOfDay(now)
	case "tomorrow", "завтра":
		next := timefmt.StartOfDay(now).AddDate(0, 0, 1)
		fa.from, fa.to = next, timefmt.EndOfDay(next)
	default:
		t, dateOnly, err := timefmt.ParseInstant(day, loc)
		if err != nil || !dateOnly {
			return findArgs{}, fmt.Errorf("date: %w", errUsage)
		}
		fa.from, fa.to = t, timefmt.EndOfDay(t)
	}

	if len(f) > 2 {
		p, err := model.ParsePreference(f[2])
		if err != nil {
			return findArgs{}, fmt.Errorf("preference: %w", errUsage)
		}
		fa.preference = p
	}
	return fa, nil
}

// parseBookArgs reads "<slot_id> [urgent|high|normal]".
func parseBookArgs(args string) (int64, model.Urgency, error) {
	f := strings.Fields(args)
	if len(f) == 0 || len(f) > 2 {
		return 0, "", errUsage
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(f[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("slot id: %w", errUsage)
	}

	urgency := model.UrgencyNormal
	if len(f) == 2 {
		if urgency, err = model.ParseUrgency(f[1]); err != nil {
			return 0, "", fmt.Errorf("urgency: %w", errUsage)
		}
	}
	return id, urgency, nil
}

// parseIDFromCallback извлекает ID из callback data, например "book:123" -> 123
func parseIDFromCallback(data, prefix string) (int64, error) {
	raw, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, fmt.Errorf("invalid callback data format")
	}
	return strconv.ParseInt(raw, 10, 64)
}
