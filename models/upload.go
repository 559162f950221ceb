package models

import (
	"time"
)

// Upload records a file written by the upload sink. Path is the public
// retrieval path (/uploads/<Name>) stored in picks and site_images.
type Upload struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	Name         string `gorm:"size:512;not null;uniqueIndex"`
	Path         string `gorm:"size:1024;not null;uniqueIndex"`
	OriginalName string `gorm:"size:255"`
	ContentType  string `gorm:"size:128"`
	Size         int64
	Backend      string `gorm:"size:16"`
	UploadedBy   string `gorm:"size:36;index"`
}
