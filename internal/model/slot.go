package model

import "time"

// Slot is a provider-owned availability window [Start, End).
// Booked only ever moves from false to true.
type Slot struct {
	ID         int64     `json:"id"`
	ProviderID int64     `json:"provider_id"`
	Start      time.Time `json:"start_time"`
	End        time.Time `json:"end_time"`
	Booked     bool      `json:"is_booked"`
	CreatedAt  time.Time `json:"created_at"`
}

// Overlaps reports whether the half-open intervals [s.Start, s.End) and [start, end) intersect.
func (s *Slot) Overlaps(start, end time.Time) bool {
	return start.Before(s.End) && end.After(s.Start)
}

// Duration возвращает длительность слота
func (s *Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// AnnotatedSlot is a free slot as returned by availability queries.
type AnnotatedSlot struct {
	Slot              *Slot     `json:"slot"`
	Provider          *Provider `json:"provider,omitempty"`
	MatchedPreference bool      `json:"matched_preference"`
}

// SlotFilter selects free slots whose start lies in [From, To].
// ProviderID wins over ServiceType when both are set.
type SlotFilter struct {
	ProviderID  *int64
	ServiceType string
	From        time.Time
	To          time.Time
}
