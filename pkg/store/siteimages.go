package store

import (
	"context"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/oapi-codegen/nullable"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SiteImagesPatch is a partial update of the site images row. URL fields
// accept null to clear an image; title fields must be strings when present.
type SiteImagesPatch struct {
	HistoryURL     nullable.Nullable[string] `json:"historyUrl"`
	HistoryTitle   nullable.Nullable[string] `json:"historyTitle"`
	LineGraphURL   nullable.Nullable[string] `json:"lineGraphUrl"`
	LineGraphTitle nullable.Nullable[string] `json:"lineGraphTitle"`
	ROIURL         nullable.Nullable[string] `json:"roiUrl"`
	ROITitle       nullable.Nullable[string] `json:"roiTitle"`
}

func (p SiteImagesPatch) columns() (map[string]any, error) {
	cols := map[string]any{}
	urls := []struct {
		col string
		v   nullable.Nullable[string]
	}{
		{"history_url", p.HistoryURL},
		{"line_graph_url", p.LineGraphURL},
		{"roi_url", p.ROIURL},
	}
	for _, u := range urls {
		if u.v.IsSpecified() {
			cols[u.col] = valueOrNil(u.v)
		}
	}
	titles := []struct {
		col, name string
		v         nullable.Nullable[string]
	}{
		{"history_title", "historyTitle", p.HistoryTitle},
		{"line_graph_title", "lineGraphTitle", p.LineGraphTitle},
		{"roi_title", "roiTitle", p.ROITitle},
	}
	for _, t := range titles {
		if !t.v.IsSpecified() {
			continue
		}
		if t.v.IsNull() {
			return nil, apperr.Validation(t.name + " cannot be null")
		}
		cols[t.col] = t.v.MustGet()
	}
	return cols, nil
}

type SiteImages struct {
	db *gorm.DB
}

func NewSiteImages(db *gorm.DB) *SiteImages {
	return &SiteImages{db: db}
}

// ensure inserts the default row unless it already exists.
func ensureSiteImages(tx *gorm.DB) error {
	def := models.DefaultSiteImages()
	return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).Create(&def).Error
}

// Get returns the singleton row, creating it with default titles on first use.
func (r *SiteImages) Get(ctx context.Context) (*models.SiteImages, error) {
	var out models.SiteImages
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSiteImages(tx); err != nil {
			return err
		}
		return tx.First(&out, models.SiteImagesID).Error
	})
	if err != nil {
		return nil, apperr.Storage("failed to fetch site images", err)
	}
	return &out, nil
}

// Update merges p into the stored row in one transaction. Only the columns
// present in p are written, so concurrent partial updates of different
// fields do not overwrite each other. replaced lists image URLs that were
// changed or cleared.
func (r *SiteImages) Update(ctx context.Context, p SiteImagesPatch) (out *models.SiteImages, replaced []string, err error) {
	cols, err := p.columns()
	if err != nil {
		return nil, nil, err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSiteImages(tx); err != nil {
			return err
		}
		var cur models.SiteImages
		if err := tx.First(&cur, models.SiteImagesID).Error; err != nil {
			return err
		}
		if len(cols) > 0 {
			if err := tx.Model(&models.SiteImages{}).Where("id = ?", models.SiteImagesID).Updates(cols).Error; err != nil {
				return err
			}
		}
		var next models.SiteImages
		if err := tx.First(&next, models.SiteImagesID).Error; err != nil {
			return err
		}
		out = &next
		replaced = supersededURLs(
			[]*string{cur.HistoryURL, cur.LineGraphURL, cur.ROIURL},
			[]*string{next.HistoryURL, next.LineGraphURL, next.ROIURL},
		)
		return nil
	})
	if err != nil {
		return nil, nil, apperr.Storage("failed to update site images", err)
	}
	return out, replaced, nil
}

func supersededURLs(before, after []*string) []string {
	var out []string
	for i := range before {
		if before[i] == nil {
			continue
		}
		if after[i] == nil || *after[i] != *before[i] {
			out = append(out, *before[i])
		}
	}
	return out
}
