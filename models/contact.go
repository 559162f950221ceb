package models

import "time"

// ContactMessage is a public contact form submission.
type ContactMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Email      string    `gorm:"size:320;not null" json:"email"`
	Message    string    `gorm:"type:text;not null" json:"message"`
	RemoteAddr string    `gorm:"size:64" json:"-"`
}
