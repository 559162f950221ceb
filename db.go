package main

import (
	"context"
	"log/slog"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/config"
	"github.com/MichaelFlanagan/SystemFifty/pkg/logging"
	"github.com/MichaelFlanagan/SystemFifty/pkg/store"

	"gorm.io/gorm"
)

const seedAdminName = "Admin"

// initDB opens DB_DSN and, unless DB_AUTO_MIGRATE is off, migrates the
// schema. Migration failures are logged and the server keeps going.
func initDB(cfg *config.Config, log logging.Logger) (*gorm.DB, error) {
	db, err := store.Open(cfg.DatabaseDSN, logging.ParseLevel(cfg.LogLevel) == slog.LevelDebug)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			log.Warn(context.Background(), "migration warning", "error", err)
		}
	}
	return db, nil
}

// seedAdmin makes sure the canonical admin identity exists. An existing
// identity keeps its password hash.
func seedAdmin(ctx context.Context, users *store.Users, cfg *config.Config) (*models.User, bool, error) {
	return users.SeedAdmin(ctx, cfg.SeedAdminEmail, seedAdminName, cfg.SeedAdminPassword)
}
