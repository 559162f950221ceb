package store

import (
	"context"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"gorm.io/gorm"
)

type Uploads struct {
	db *gorm.DB
}

func NewUploads(db *gorm.DB) *Uploads {
	return &Uploads{db: db}
}

func (r *Uploads) Record(ctx context.Context, u *models.Upload) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return apperr.Storage("failed to record upload", err)
	}
	return nil
}

// Has reports whether an upload record exists for path.
func (r *Uploads) Has(ctx context.Context, path string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Upload{}).Where("path = ?", path).Count(&n).Error; err != nil {
		return false, apperr.Storage("failed to look up upload", err)
	}
	return n > 0, nil
}

// Referenced reports whether any pick or the site images row still points at path.
func (r *Uploads) Referenced(ctx context.Context, path string) (bool, error) {
	db := r.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Pick{}).Where("image_url = ?", path).Count(&n).Error; err != nil {
		return false, apperr.Storage("failed to check references", err)
	}
	if n > 0 {
		return true, nil
	}
	err := db.Model(&models.SiteImages{}).
		Where("history_url = ? OR line_graph_url = ? OR roi_url = ?", path, path, path).
		Count(&n).Error
	if err != nil {
		return false, apperr.Storage("failed to check references", err)
	}
	return n > 0, nil
}

// Forget deletes the upload record for path.
func (r *Uploads) Forget(ctx context.Context, path string) error {
	if err := r.db.WithContext(ctx).Where("path = ?", path).Delete(&models.Upload{}).Error; err != nil {
		return apperr.Storage("failed to delete upload record", err)
	}
	return nil
}

// List returns the most recent uploads, newest first.
func (r *Uploads) List(ctx context.Context, limit int) ([]models.Upload, error) {
	var out []models.Upload
	if err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, apperr.Storage("failed to list uploads", err)
	}
	return out, nil
}
