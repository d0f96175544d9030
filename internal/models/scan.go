package models

import "time"

type ScanOutcome string

const (
	OutcomeAccepted        ScanOutcome = "accepted"
	OutcomeAlreadyAttended ScanOutcome = "already_attended"
	OutcomeWrongEvent      ScanOutcome = "wrong_event"
	OutcomeInvalid         ScanOutcome = "invalid"
)

const (
	ReasonMalformedTicket      = "malformed ticket"
	ReasonRegistrationNotFound = "registration not found"
)

// ScanResult is the single decision produced for one physical scan.
type ScanResult struct {
	Outcome        ScanOutcome   `json:"outcome"`
	Reason         string        `json:"reason,omitempty"`
	CurrentEventID string        `json:"current_event_id"`
	TicketEventID  string        `json:"ticket_event_id,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	Registration   *Registration `json:"registration,omitempty"`
	ScannedAt      time.Time     `json:"scanned_at"`
}

func InvalidScan(currentEventID, reason string) ScanResult {
	return ScanResult{Outcome: OutcomeInvalid, Reason: reason, CurrentEventID: currentEventID, ScannedAt: time.Now().UTC()}
}

func WrongEventScan(currentEventID string, ticket TicketPayload) ScanResult {
	return ScanResult{
		Outcome:        OutcomeWrongEvent,
		CurrentEventID: currentEventID,
		TicketEventID:  ticket.EventID,
		UserID:         ticket.UserID,
		ScannedAt:      time.Now().UTC(),
	}
}

func AlreadyAttendedScan(currentEventID string, reg *Registration) ScanResult {
	return ScanResult{
		Outcome:        OutcomeAlreadyAttended,
		CurrentEventID: currentEventID,
		TicketEventID:  reg.EventID,
		UserID:         reg.UserID,
		Registration:   reg,
		ScannedAt:      time.Now().UTC(),
	}
}

func AcceptedScan(currentEventID string, reg *Registration) ScanResult {
	return ScanResult{
		Outcome:        OutcomeAccepted,
		CurrentEventID: currentEventID,
		TicketEventID:  reg.EventID,
		UserID:         reg.UserID,
		Registration:   reg,
		ScannedAt:      time.Now().UTC(),
	}
}

// ScanEvent is what a check-in session pushes to operator displays.
type ScanEvent struct {
	SessionID string     `json:"session_id"`
	EventID   string     `json:"event_id"`
	Result    ScanResult `json:"result"`
}
