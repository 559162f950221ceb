package models

import "time"

// Session is a server-side login session. The signed token handed to the
// browser carries the session ID, so revoking the row ends the session.
type Session struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    string    `gorm:"size:36;index;not null"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ExpiresAt time.Time `gorm:"index;not null"`
	Revoked   bool      `gorm:"default:false"`
}
