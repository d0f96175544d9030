package main

import (
	"context"
	"fmt"

	"ms-volunteer/internal/config"
	"ms-volunteer/internal/database"
	"ms-volunteer/internal/database/migrations"
	"ms-volunteer/internal/logger"

	"github.com/uptrace/bun"
)

// prepareSchema brings the database schema up to date: versioned migrations on Postgres,
// model-derived tables on SQLite.
func prepareSchema(ctx context.Context, cfg config.DatabaseConfig, bunDB *bun.DB, log *logger.Logger) error {
	if cfg.Driver == "sqlite" {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			return err
		}
		log.LogDatabase("CREATE", "schema", "SQLite tables ready")
		return nil
	}

	runner := migrations.NewRunner(cfg.DSN, log)
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn("MIGRATE", fmt.Sprintf("Failed to close migrator: %v", err))
		}
	}()
	if err := runner.MigrateUp(); err != nil {
		return err
	}
	log.LogDatabase("MIGRATE", "schema", "PostgreSQL migrations applied")
	return nil
}
