package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

var (
	ErrInvalidInterval   = errors.New("slot start must be before its end")
	ErrPastStartTime     = errors.New("slot start is in the past")
	ErrMissingRange      = errors.New("date range is required")
	ErrInvalidRange      = errors.New("range start is after range end")
	ErrInvalidPreference = errors.New("unknown time-of-day preference")
	ErrInvalidUrgency    = errors.New("unknown urgency")

	ErrOverlappingSlot = errors.New("slot overlaps an existing slot")
	ErrAlreadyBooked   = errors.New("slot is already booked")
	ErrProviderExists  = errors.New("party is already registered as a provider")

	ErrSlotNotFound     = errors.New("slot not found")
	ErrProviderNotFound = errors.New("provider not found")
	ErrNotFound         = errors.New("not found")

	ErrBookingFailed = errors.New("booking failed")
)

// OverlapError carries the slot a publish collided with.
type OverlapError struct {
	Conflict *model.Slot
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: slot %d [%s, %s)",
		ErrOverlappingSlot.Error(),
		e.Conflict.ID,
		e.Conflict.Start.Format("2006-01-02T15:04"),
		e.Conflict.End.Format("2006-01-02T15:04"),
	)
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlappingSlot
}

// Kind groups errors the way transports react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInterval),
		errors.Is(err, ErrPastStartTime),
		errors.Is(err, ErrMissingRange),
		errors.Is(err, ErrInvalidRange),
		errors.Is(err, ErrInvalidPreference),
		errors.Is(err, ErrInvalidUrgency):
		return KindValidation
	case errors.Is(err, ErrOverlappingSlot),
		errors.Is(err, ErrAlreadyBooked),
		errors.Is(err, ErrProviderExists):
		return KindConflict
	case errors.Is(err, ErrSlotNotFound),
		errors.Is(err, ErrProviderNotFound),
		errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrBookingFailed):
		return KindTransient
	}
	return KindInternal
}
