// Package db is the registration store. It is the only code that writes registration status.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-volunteer/internal/models"

	"github.com/uptrace/bun"
)

var (
	ErrNotFound              = errors.New("registration not found")
	ErrDuplicateRegistration = errors.New("registration already exists for user and event")
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) FindByRegistrationID(ctx context.Context, registrationID string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("registration_id = ?", registrationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

func (d *DB) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("user_id = ?", userID).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &reg, nil
}

// ListByEvent returns the event's registrations, oldest first.
func (d *DB) ListByEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	regs := []models.Registration{}
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("event_id = ?", eventID).
		Order("registered_at ASC", "registration_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	regs := []models.Registration{}
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("user_id = ?", userID).
		Order("registered_at ASC", "registration_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return regs, nil
}

// Insert stores a new registration with status registered. The check and the write are a
// single statement, so two concurrent inserts for the same pair cannot both succeed.
func (d *DB) Insert(ctx context.Context, reg *models.Registration) error {
	reg.Status = models.StatusRegistered
	reg.AttendedAt = nil
	if reg.RegisteredAt.IsZero() {
		reg.RegisteredAt = time.Now().UTC()
	}

	res, err := d.Bun.NewInsert().
		Model(reg).
		On("CONFLICT (user_id, event_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	if n == 0 {
		return ErrDuplicateRegistration
	}
	return nil
}

// MarkAttended moves a registration to attended. It reports whether this call performed the
// transition; repeating it leaves the row untouched and returns false.
func (d *DB) MarkAttended(ctx context.Context, registrationID string, at time.Time) (bool, error) {
	at = at.UTC()
	res, err := d.Bun.NewUpdate().
		Model((*models.Registration)(nil)).
		Set("status = ?", models.StatusAttended).
		Set("attended_at = ?", at).
		Where("registration_id = ?", registrationID).
		Where("status = ?", models.StatusRegistered).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("mark attended: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark attended: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	exists, err := d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Where("registration_id = ?", registrationID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("mark attended: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (d *DB) CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Where("event_id = ?", eventID).
		Where("status = ?", status).
		Count(ctx)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
