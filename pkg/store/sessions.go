package store

import (
	"context"
	"errors"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Sessions struct {
	db *gorm.DB
}

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

// Create opens a session for userID that expires at expiresAt.
func (r *Sessions) Create(ctx context.Context, userID string, expiresAt time.Time) (*models.Session, error) {
	s := models.Session{ID: uuid.NewString(), UserID: userID, ExpiresAt: expiresAt.UTC()}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&s).Error; err != nil {
		return nil, apperr.Storage("failed to create session", err)
	}
	return &s, nil
}

// Active returns the session with id and its user if it is neither revoked
// nor expired at now.
func (r *Sessions) Active(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).Preload("User").First(&s, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("Unauthorized")
		}
		return nil, apperr.Storage("failed to load session", err)
	}
	if s.Revoked || !now.Before(s.ExpiresAt) || s.User.ID == "" {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	return &s, nil
}

// Revoke marks the session as ended. Revoking twice is not an error.
func (r *Sessions) Revoke(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Update("revoked", true).Error
	if err != nil {
		return apperr.Storage("failed to revoke session", err)
	}
	return nil
}

// PurgeExpired deletes sessions that expired before now.
func (r *Sessions) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, apperr.Storage("failed to purge sessions", res.Error)
	}
	return res.RowsAffected, nil
}
