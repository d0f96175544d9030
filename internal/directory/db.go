// Package directory keeps a local read-only copy of the events and users owned by other services.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-volunteer/internal/models"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("directory entry not found")

type DB struct {
	Bun *bun.DB
}

// UpsertEvent inserts or replaces an event by id.
func (d *DB) UpsertEvent(ctx context.Context, event *models.Event) error {
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().
		Model(event).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("start_time = EXCLUDED.start_time").
		Set("capacity = EXCLUDED.capacity").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", event.ID, err)
	}
	return nil
}

// UpsertUser inserts or replaces a user by id.
func (d *DB) UpsertUser(ctx context.Context, user *models.User) error {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().
		Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("role = EXCLUDED.role").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}
	return nil
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().Model(&event).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
