package models

import "time"

// RegistrationCreatedMessage is published after a new registration is stored.
type RegistrationCreatedMessage struct {
	RegistrationID string    `json:"registration_id"`
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// AttendanceMarkedMessage is published after a scan transitions a registration to attended.
type AttendanceMarkedMessage struct {
	RegistrationID string    `json:"registration_id"`
	UserID         string    `json:"user_id"`
	EventID        string    `json:"event_id"`
	SessionID      string    `json:"session_id,omitempty"`
	AttendedAt     time.Time `json:"attended_at"`
}

// EventUpsertMessage is consumed from the event-management service.
type EventUpsertMessage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Capacity  *int      `json:"capacity,omitempty"`
}

// UserUpsertMessage is consumed from the identity service.
type UserUpsertMessage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
