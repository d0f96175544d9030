// Package checkin decides the outcome of ticket scans and sequences them per operator session.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/models"
	"ms-volunteer/internal/registrations/db"
	"ms-volunteer/internal/tickets/codec"
)

type RegistrationStore interface {
	FindByRegistrationID(ctx context.Context, registrationID string) (*models.Registration, error)
	MarkAttended(ctx context.Context, registrationID string, at time.Time) (bool, error)
}

type AttendancePublisher interface {
	PublishAttendanceMarked(ctx context.Context, msg models.AttendanceMarkedMessage) error
}

// Verifier turns one scanned payload into exactly one ScanResult. Only an Accepted result
// changes the store. Errors are returned for infrastructure failures only.
type Verifier struct {
	Store     RegistrationStore
	Publisher AttendancePublisher
	Logger    *logger.Logger

	now func() time.Time
}

func NewVerifier(store RegistrationStore, publisher AttendancePublisher, log *logger.Logger) *Verifier {
	return &Verifier{
		Store:     store,
		Publisher: publisher,
		Logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Verify checks payload against the event being checked in.
func (v *Verifier) Verify(ctx context.Context, payload, currentEventID string) (models.ScanResult, error) {
	return v.verify(ctx, "", payload, currentEventID)
}

func (v *Verifier) verify(ctx context.Context, sessionID, payload, currentEventID string) (models.ScanResult, error) {
	ticket, err := codec.Decode(payload)
	if err != nil {
		v.Logger.LogScan(sessionID, string(models.OutcomeInvalid), err.Error())
		return models.InvalidScan(currentEventID, models.ReasonMalformedTicket), nil
	}

	reg, err := v.Store.FindByRegistrationID(ctx, ticket.RegistrationID)
	if errors.Is(err, db.ErrNotFound) {
		v.Logger.LogScan(sessionID, string(models.OutcomeInvalid), "unknown registration "+ticket.RegistrationID)
		return models.InvalidScan(currentEventID, models.ReasonRegistrationNotFound), nil
	}
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("look up registration %s: %w", ticket.RegistrationID, err)
	}

	// The stored event is authoritative; a ticket edited to claim this event still fails.
	if ticket.EventID != currentEventID || reg.EventID != currentEventID {
		if ticket.EventID == currentEventID {
			ticket.EventID = reg.EventID
		}
		v.Logger.LogScan(sessionID, string(models.OutcomeWrongEvent),
			fmt.Sprintf("registration %s is for %s, checking in %s", reg.RegistrationID, ticket.EventID, currentEventID))
		return models.WrongEventScan(currentEventID, ticket), nil
	}

	if reg.IsAttended() {
		v.Logger.LogScan(sessionID, string(models.OutcomeAlreadyAttended), reg.RegistrationID)
		return models.AlreadyAttendedScan(currentEventID, reg), nil
	}

	at := v.now()
	changed, err := v.Store.MarkAttended(ctx, reg.RegistrationID, at)
	if errors.Is(err, db.ErrNotFound) {
		return models.InvalidScan(currentEventID, models.ReasonRegistrationNotFound), nil
	}
	if err != nil {
		return models.ScanResult{}, fmt.Errorf("mark attended %s: %w", reg.RegistrationID, err)
	}
	if !changed {
		// Another scan of the same ticket won the transition.
		if latest, err := v.Store.FindByRegistrationID(ctx, reg.RegistrationID); err == nil {
			reg = latest
		}
		v.Logger.LogScan(sessionID, string(models.OutcomeAlreadyAttended), reg.RegistrationID)
		return models.AlreadyAttendedScan(currentEventID, reg), nil
	}

	reg.Status = models.StatusAttended
	reg.AttendedAt = &at
	v.Logger.LogScan(sessionID, string(models.OutcomeAccepted), fmt.Sprintf("%s checked in user %s", reg.RegistrationID, reg.UserID))

	if v.Publisher != nil {
		err := v.Publisher.PublishAttendanceMarked(ctx, models.AttendanceMarkedMessage{
			RegistrationID: reg.RegistrationID,
			UserID:         reg.UserID,
			EventID:        reg.EventID,
			SessionID:      sessionID,
			AttendedAt:     at,
		})
		if err != nil {
			v.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish attendance for %s: %v", reg.RegistrationID, err))
		}
	}

	return models.AcceptedScan(currentEventID, reg), nil
}
