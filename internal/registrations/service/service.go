package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-volunteer/internal/directory"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/models"
	"ms-volunteer/internal/registrations/db"
	"ms-volunteer/internal/tickets/codec"
	qr "ms-volunteer/internal/tickets/qr_generator"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRegistered    = errors.New("user is already registered for this event")
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrInvalidInput         = errors.New("user id and event id are required")
)

// AlreadyRegisteredError is the normal outcome of registering twice. It carries the
// registration that already exists.
type AlreadyRegisteredError struct {
	Existing *models.Registration
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("user %s is already registered for event %s (registration %s)",
		e.Existing.UserID, e.Existing.EventID, e.Existing.RegistrationID)
}

func (e *AlreadyRegisteredError) Unwrap() error {
	return ErrAlreadyRegistered
}

type RegistrationDBLayer interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Registration, error)
	FindByRegistrationID(ctx context.Context, registrationID string) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]models.Registration, error)
	Insert(ctx context.Context, reg *models.Registration) error
	CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error)
}

type EventDirectory interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type EventPublisher interface {
	PublishRegistrationCreated(ctx context.Context, msg models.RegistrationCreatedMessage) error
}

// RegistrationService registers volunteers for events. Events and Publisher are optional.
// With RequireKnownEvent set, registering for an event missing from Events fails.
type RegistrationService struct {
	DB                RegistrationDBLayer
	Events            EventDirectory
	Publisher         EventPublisher
	QR                *qr.QRGenerator
	Logger            *logger.Logger
	RequireKnownEvent bool

	newID func() string
	now   func() time.Time
}

func NewRegistrationService(store RegistrationDBLayer, events EventDirectory, publisher EventPublisher, qrGen *qr.QRGenerator, log *logger.Logger) *RegistrationService {
	if qrGen == nil {
		qrGen = qr.NewQRGenerator(qr.DefaultSize)
	}
	return &RegistrationService{
		DB:        store,
		Events:    events,
		Publisher: publisher,
		QR:        qrGen,
		Logger:    log,
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a registration for the pair, or returns *AlreadyRegisteredError
// carrying the existing one.
func (s *RegistrationService) Register(ctx context.Context, userID, eventID string) (*models.Registration, error) {
	if userID == "" || eventID == "" {
		return nil, ErrInvalidInput
	}

	if s.RequireKnownEvent && s.Events != nil {
		if _, err := s.Events.GetEvent(ctx, eventID); err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				return nil, ErrEventNotFound
			}
			return nil, fmt.Errorf("look up event %s: %w", eventID, err)
		}
	}

	existing, err := s.DB.FindByUserAndEvent(ctx, userID, eventID)
	switch {
	case err == nil:
		s.Logger.LogRegistration("DUPLICATE", existing.RegistrationID, fmt.Sprintf("user %s already registered for %s", userID, eventID))
		return nil, &AlreadyRegisteredError{Existing: existing}
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("look up registration: %w", err)
	}

	reg := &models.Registration{
		RegistrationID: s.newID(),
		UserID:         userID,
		EventID:        eventID,
		Status:         models.StatusRegistered,
		RegisteredAt:   s.now(),
	}

	if err := s.DB.Insert(ctx, reg); err != nil {
		if !errors.Is(err, db.ErrDuplicateRegistration) {
			return nil, fmt.Errorf("create registration: %w", err)
		}
		// Lost the race to a concurrent request for the same pair.
		winner, findErr := s.DB.FindByUserAndEvent(ctx, userID, eventID)
		if findErr != nil {
			return nil, fmt.Errorf("look up registration after conflict: %w", findErr)
		}
		s.Logger.LogRegistration("DUPLICATE", winner.RegistrationID, "concurrent registration resolved to existing record")
		return nil, &AlreadyRegisteredError{Existing: winner}
	}

	s.Logger.LogRegistration("CREATE", reg.RegistrationID, fmt.Sprintf("user %s registered for %s", userID, eventID))

	if s.Publisher != nil {
		err := s.Publisher.PublishRegistrationCreated(ctx, models.RegistrationCreatedMessage{
			RegistrationID: reg.RegistrationID,
			UserID:         reg.UserID,
			EventID:        reg.EventID,
			RegisteredAt:   reg.RegisteredAt,
		})
		if err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish registration %s: %v", reg.RegistrationID, err))
		}
	}

	return reg, nil
}

func (s *RegistrationService) GetRegistration(ctx context.Context, registrationID string) (*models.Registration, error) {
	reg, err := s.DB.FindByRegistrationID(ctx, registrationID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up registration %s: %w", registrationID, err)
	}
	return reg, nil
}

func (s *RegistrationService) ListByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	return s.DB.ListByUser(ctx, userID)
}

// Roster lists an event's registrations with their status and a summary.
func (s *RegistrationService) Roster(ctx context.Context, eventID string) (*models.Roster, error) {
	regs, err := s.DB.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for %s: %w", eventID, err)
	}
	summary, err := s.Summary(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &models.Roster{Summary: *summary, Registrations: regs}, nil
}

// Summary counts registrations by status. Capacity and Remaining are set only when the
// event is known to the directory and has a capacity.
func (s *RegistrationService) Summary(ctx context.Context, eventID string) (*models.RosterSummary, error) {
	registered, err := s.DB.CountByStatus(ctx, eventID, models.StatusRegistered)
	if err != nil {
		return nil, fmt.Errorf("count registered for %s: %w", eventID, err)
	}
	attended, err := s.DB.CountByStatus(ctx, eventID, models.StatusAttended)
	if err != nil {
		return nil, fmt.Errorf("count attended for %s: %w", eventID, err)
	}

	summary := &models.RosterSummary{
		EventID:    eventID,
		Registered: registered + attended,
		Attended:   attended,
	}

	if s.Events != nil {
		event, err := s.Events.GetEvent(ctx, eventID)
		switch {
		case err == nil && event.Capacity != nil:
			capacity := *event.Capacity
			remaining := capacity - summary.Registered
			if remaining < 0 {
				remaining = 0
			}
			summary.Capacity = &capacity
			summary.Remaining = &remaining
		case err != nil && !errors.Is(err, directory.ErrNotFound):
			return nil, fmt.Errorf("look up event %s: %w", eventID, err)
		}
	}
	return summary, nil
}

// TicketPayload is the scannable payload for a registration.
func (s *RegistrationService) TicketPayload(reg *models.Registration) (string, error) {
	return codec.Encode(reg)
}

// TicketQR renders the registration's payload as a PNG QR code.
func (s *RegistrationService) TicketQR(reg *models.Registration) ([]byte, error) {
	return s.QR.GenerateTicketQR(reg)
}
