package model

import (
	"fmt"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
)

type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency accepts "normal"/"high" as well as the legacy 0/1 levels.
// An empty string means normal.
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "0":
		return UrgencyNormal, nil
	case "high", "urgent", "1":
		return UrgencyHigh, nil
	}
	return "", fmt.Errorf("unknown urgency %q", s)
}

// Valid проверяет что значение входит в перечисление
func (u Urgency) Valid() bool {
	return u == UrgencyNormal || u == UrgencyHigh
}

// Appointment is created exactly once, together with its slot's booked flip.
// Start and End are copied from the slot and never edited afterwards.
type Appointment struct {
	ID          int64             `json:"id"`
	RequesterID int64             `json:"requester_id"`
	ProviderID  int64             `json:"provider_id"`
	SlotID      int64             `json:"slot_id"`
	Start       time.Time         `json:"start_time"`
	End         time.Time         `json:"end_time"`
	Status      AppointmentStatus `json:"status"`
	Urgency     Urgency           `json:"urgency"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewAppointment builds a confirmed appointment from a slot.
func NewAppointment(requesterID int64, slot *Slot, urgency Urgency) *Appointment {
	if urgency == "" {
		urgency = UrgencyNormal
	}
	return &Appointment{
		RequesterID: requesterID,
		ProviderID:  slot.ProviderID,
		SlotID:      slot.ID,
		Start:       slot.Start,
		End:         slot.End,
		Status:      AppointmentStatusConfirmed,
		Urgency:     urgency,
	}
}
