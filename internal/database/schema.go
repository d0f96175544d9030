package database

import (
	"context"
	"fmt"

	"ms-volunteer/internal/models"

	"github.com/uptrace/bun"
)

// CreateSchema creates the tables and indexes from the bun models. It is used for SQLite
// and tests; Postgres deployments go through the migrations package.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{(*models.User)(nil), (*models.Event)(nil), (*models.Registration)(nil)}
	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	// One registration per (user, event); inserts rely on this index for atomicity.
	_, err := db.NewCreateIndex().
		Model((*models.Registration)(nil)).
		Index("registrations_user_event_uidx").
		Unique().
		Column("user_id", "event_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create registrations unique index: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*models.Registration)(nil)).
		Index("registrations_event_idx").
		Column("event_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create registrations event index: %w", err)
	}
	return nil
}

// DropSchema removes all tables, dependents first.
func DropSchema(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{(*models.Registration)(nil), (*models.Event)(nil), (*models.User)(nil)}
	for _, m := range tables {
		if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", m, err)
		}
	}
	return nil
}
