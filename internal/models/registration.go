package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusAttended   RegistrationStatus = "attended"
)

// Registration binds one user to one event. Status only moves registered -> attended.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	RegistrationID string             `bun:"registration_id,pk" json:"registration_id"`
	UserID         string             `bun:"user_id,notnull" json:"user_id"`
	EventID        string             `bun:"event_id,notnull" json:"event_id"`
	Status         RegistrationStatus `bun:"status,notnull" json:"status"`
	RegisteredAt   time.Time          `bun:"registered_at,notnull" json:"registered_at"`
	AttendedAt     *time.Time         `bun:"attended_at" json:"attended_at,omitempty"`
}

func (r *Registration) IsAttended() bool {
	return r.Status == StatusAttended
}

// RosterSummary aggregates the registrations of one event for operator screens.
type RosterSummary struct {
	EventID    string `json:"event_id"`
	Registered int    `json:"registered"` // attended registrations included
	Attended   int    `json:"attended"`
	Capacity   *int   `json:"capacity,omitempty"`
	Remaining  *int   `json:"remaining,omitempty"`
}

type Roster struct {
	Summary       RosterSummary  `json:"summary"`
	Registrations []Registration `json:"registrations"`
}
