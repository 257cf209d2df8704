package model

import "time"

// Provider is a registry record. PartyID is the authenticated identity that owns it.
type Provider struct {
	ID          int64     `json:"id"`
	PartyID     int64     `json:"party_id"`
	ServiceType string    `json:"service_type"`
	Bio         string    `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
}
