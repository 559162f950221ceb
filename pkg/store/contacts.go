package store

import (
	"context"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"gorm.io/gorm"
)

type Contacts struct {
	db *gorm.DB
}

func NewContacts(db *gorm.DB) *Contacts {
	return &Contacts{db: db}
}

func (r *Contacts) Save(ctx context.Context, m *models.ContactMessage) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return apperr.Storage("failed to save message", err)
	}
	return nil
}
