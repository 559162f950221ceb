package models

import "time"

// SiteImagesID is the fixed key of the only site_images row.
const SiteImagesID uint = 1

// Default captions used when the row is first materialised.
const (
	DefaultHistoryTitle   = "History"
	DefaultLineGraphTitle = "Line Graph"
	DefaultROITitle       = "ROI"
)

// SiteImages holds the three illustrative images shown on the public site.
type SiteImages struct {
	ID             uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UpdatedAt      time.Time `json:"updatedAt"`
	HistoryURL     *string   `gorm:"column:history_url;size:1024" json:"historyUrl"`
	HistoryTitle   string    `gorm:"column:history_title;size:255;not null" json:"historyTitle"`
	LineGraphURL   *string   `gorm:"column:line_graph_url;size:1024" json:"lineGraphUrl"`
	LineGraphTitle string    `gorm:"column:line_graph_title;size:255;not null" json:"lineGraphTitle"`
	ROIURL         *string   `gorm:"column:roi_url;size:1024" json:"roiUrl"`
	ROITitle       string    `gorm:"column:roi_title;size:255;not null" json:"roiTitle"`
}

// DefaultSiteImages returns the row as it looks before anything was uploaded.
func DefaultSiteImages() SiteImages {
	return SiteImages{
		ID:             SiteImagesID,
		HistoryTitle:   DefaultHistoryTitle,
		LineGraphTitle: DefaultLineGraphTitle,
		ROITitle:       DefaultROITitle,
	}
}

// URLs returns the non-nil image URLs of the row.
func (s *SiteImages) URLs() []string {
	var out []string
	for _, u := range []*string{s.HistoryURL, s.LineGraphURL, s.ROIURL} {
		if u != nil {
			out = append(out, *u)
		}
	}
	return out
}
