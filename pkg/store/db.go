// Package store holds the gorm-backed repositories for picks, site images,
// admin users, sessions, uploads and contact messages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/oapi-codegen/nullable"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Open connects to the database named by dsn. DSNs starting with "sqlite:"
// or "file:" (or ending in ".db") use SQLite; everything else is Postgres.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	level := gormLogger.Silent
	if debug {
		level = gormLogger.Info
	}
	cfg := &gorm.Config{Logger: gormLogger.Default.LogMode(level)}

	dialector, isSQLite := dialectorFor(dsn)
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if isSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// SQLite serialises writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), true
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		return sqlite.Open(dsn), true
	default:
		return postgres.Open(dsn), false
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// Ping checks the database connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return apperr.Storage("database unavailable", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperr.Storage("database unavailable", err)
	}
	return nil
}

// Store bundles the repositories over one connection.
type Store struct {
	DB         *gorm.DB
	Picks      *Picks
	SiteImages *SiteImages
	Users      *Users
	Sessions   *Sessions
	Uploads    *Uploads
	Contacts   *Contacts
}

func New(db *gorm.DB) *Store {
	return &Store{
		DB:         db,
		Picks:      NewPicks(db),
		SiteImages: NewSiteImages(db),
		Users:      NewUsers(db),
		Sessions:   NewSessions(db),
		Uploads:    NewUploads(db),
		Contacts:   NewContacts(db),
	}
}

// translate maps gorm errors onto apperr kinds. Errors that already carry a
// kind pass through unchanged.
func translate(err error, notFound, op string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Storage(op, err)
}

// isUniqueConstraintError matches duplicate key errors from Postgres and SQLite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "UNIQUE constraint")
}

type clock func() time.Time

// valueOrNil returns nil for an explicit null, otherwise a pointer to the value.
func valueOrNil(v nullable.Nullable[string]) *string {
	if v.IsNull() || !v.IsSpecified() {
		return nil
	}
	s := v.MustGet()
	return &s
}
