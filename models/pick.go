package models

import "time"

// Pick is one published betting recommendation. The current pick is the row
// with the latest CreatedAt.
type Pick struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index;not null" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageURL  *string   `gorm:"column:image_url;size:1024" json:"imageUrl"`
}
