// Command seed loads a few directory users and events into the local database and prints
// development bearer tokens for them.
package main

import (
	"context"
	"fmt"
	"time"

	"ms-volunteer/internal/auth"
	"ms-volunteer/internal/config"
	"ms-volunteer/internal/database"
	"ms-volunteer/internal/database/migrations"
	"ms-volunteer/internal/directory"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/models"

	"github.com/joho/godotenv"
)

const tokenTTL = 24 * time.Hour

func intPtr(v int) *int { return &v }

func main() {
	log := logger.NewLogger("volunteer-seed")
	defer log.Close()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.Driver == "sqlite" {
		err = database.CreateSchema(ctx, bunDB)
	} else {
		runner := migrations.NewRunner(cfg.Database.DSN, log)
		err = runner.MigrateUp()
		runner.Close()
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}

	now := time.Now().UTC()
	users := []models.User{
		{ID: "U1", Name: "Ada Volunteer", Role: models.RoleUser, UpdatedAt: now},
		{ID: "U2", Name: "Grace Volunteer", Role: models.RoleUser, UpdatedAt: now},
		{ID: "M1", Name: "Gate Moderator", Role: models.RoleModerator, UpdatedAt: now},
		{ID: "A1", Name: "Site Admin", Role: models.RoleAdmin, UpdatedAt: now},
	}
	events := []models.Event{
		{ID: "E1", Title: "Beach Cleanup", StartTime: now.Add(72 * time.Hour), Capacity: intPtr(50), UpdatedAt: now},
		{ID: "E2", Title: "Food Bank Shift", StartTime: now.Add(7 * 24 * time.Hour), UpdatedAt: now},
	}

	store := &directory.DB{Bun: bunDB}
	for i := range users {
		if err := store.UpsertUser(ctx, &users[i]); err != nil {
			log.Fatal("SEED", fmt.Sprintf("user %s: %v", users[i].ID, err))
		}
	}
	for i := range events {
		if err := store.UpsertEvent(ctx, &events[i]); err != nil {
			log.Fatal("SEED", fmt.Sprintf("event %s: %v", events[i].ID, err))
		}
	}
	log.Info("SEED", fmt.Sprintf("✅ Seeded %d users and %d events", len(users), len(events)))

	if cfg.Auth.HMACSecret == "" {
		log.Warn("SEED", "JWT_HMAC_SECRET not set, skipping development tokens")
		return
	}
	for _, u := range users {
		token, err := auth.SignHMAC(cfg.Auth.HMACSecret, u.ID, []models.Role{u.Role}, cfg.Auth.RolesClaim, tokenTTL)
		if err != nil {
			log.Fatal("SEED", fmt.Sprintf("sign token for %s: %v", u.ID, err))
		}
		fmt.Printf("%s (%s): %s\n", u.ID, u.Role, token)
	}
}
