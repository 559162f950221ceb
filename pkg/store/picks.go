package store

import (
	"context"
	"strings"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/google/uuid"
	"github.com/oapi-codegen/nullable"
	"gorm.io/gorm"
)

const pickNotFound = "pick not found"

// NewPick is the input for Picks.Create.
type NewPick struct {
	Title    string
	Content  string
	ImageURL *string
}

// PickPatch is a partial update. Omitted fields are left untouched, an empty
// string overwrites, and a null ImageURL clears the image.
type PickPatch struct {
	Title    nullable.Nullable[string] `json:"title"`
	Content  nullable.Nullable[string] `json:"content"`
	ImageURL nullable.Nullable[string] `json:"imageUrl"`
}

func (p PickPatch) columns() (map[string]any, error) {
	cols := map[string]any{}
	if p.Title.IsSpecified() {
		if p.Title.IsNull() {
			return nil, apperr.Validation("title cannot be null")
		}
		cols["title"] = p.Title.MustGet()
	}
	if p.Content.IsSpecified() {
		if p.Content.IsNull() {
			return nil, apperr.Validation("content cannot be null")
		}
		cols["content"] = p.Content.MustGet()
	}
	if p.ImageURL.IsSpecified() {
		cols["image_url"] = valueOrNil(p.ImageURL)
	}
	return cols, nil
}

type Picks struct {
	db  *gorm.DB
	now clock
}

func NewPicks(db *gorm.DB) *Picks {
	return &Picks{db: db, now: time.Now}
}

// WithClock overrides the creation timestamp source.
func (r *Picks) WithClock(now func() time.Time) *Picks {
	r.now = now
	return r
}

// Current returns the most recently created pick, or nil when there is none.
func (r *Picks) Current(ctx context.Context) (*models.Pick, error) {
	var picks []models.Pick
	err := r.db.WithContext(ctx).Order("created_at desc, id desc").Limit(1).Find(&picks).Error
	if err != nil {
		return nil, apperr.Storage("failed to fetch pick", err)
	}
	if len(picks) == 0 {
		return nil, nil
	}
	return &picks[0], nil
}

// Get loads one pick by id.
func (r *Picks) Get(ctx context.Context, id string) (*models.Pick, error) {
	var p models.Pick
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err, pickNotFound, "failed to fetch pick")
	}
	return &p, nil
}

func (r *Picks) Create(ctx context.Context, in NewPick) (*models.Pick, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Validation("title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("content is required")
	}
	imageURL := in.ImageURL
	if imageURL != nil && *imageURL == "" {
		imageURL = nil
	}
	p := models.Pick{
		ID:        uuid.NewString(),
		CreatedAt: r.now().UTC(),
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  imageURL,
	}
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperr.Storage("failed to create pick", err)
	}
	return &p, nil
}

// Update applies p to the pick with the given id. replaced holds the previous
// image URL when the update changed or cleared it.
func (r *Picks) Update(ctx context.Context, id string, p PickPatch) (out *models.Pick, replaced []string, err error) {
	cols, err := p.columns()
	if err != nil {
		return nil, nil, err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Pick
		if err := tx.First(&cur, "id = ?", id).Error; err != nil {
			return err
		}
		if len(cols) > 0 {
			if err := tx.Model(&models.Pick{}).Where("id = ?", id).Updates(cols).Error; err != nil {
				return err
			}
		}
		var next models.Pick
		if err := tx.First(&next, "id = ?", id).Error; err != nil {
			return err
		}
		out = &next
		if cur.ImageURL != nil && (next.ImageURL == nil || *next.ImageURL != *cur.ImageURL) {
			replaced = append(replaced, *cur.ImageURL)
		}
		return nil
	})
	if err != nil {
		return nil, nil, translate(err, pickNotFound, "failed to update pick")
	}
	return out, replaced, nil
}

// Delete removes the pick with the given id. An unknown id is NotFound.
// replaced holds the deleted pick's image URL, if any.
func (r *Picks) Delete(ctx context.Context, id string) (replaced []string, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.Pick
		if err := tx.First(&cur, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Pick{}, "id = ?", id).Error; err != nil {
			return err
		}
		if cur.ImageURL != nil {
			replaced = append(replaced, *cur.ImageURL)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, pickNotFound, "failed to delete pick")
	}
	return replaced, nil
}
