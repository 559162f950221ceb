package models

import (
	"time"
)

// User is the administrator identity used to log in to the dashboard.
type User struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Email          string    `gorm:"size:320;not null;uniqueIndex" json:"email"`
	Name           string    `gorm:"size:120" json:"name"`
	HashedPassword []byte    `gorm:"not null" json:"-"`
}
