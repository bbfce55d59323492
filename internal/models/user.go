package models

import "time"

// UserProfile is the canonical name a student registered via the /start
// dialog. When present it overrides the name Telegram attached to a poll
// answer.
type UserProfile struct {
	UserID     string    `gorm:"primaryKey;size:32" json:"user_id"`
	Username   string    `gorm:"size:64" json:"username"`
	LastName   string    `gorm:"size:64" json:"last_name"`
	FirstName  string    `gorm:"size:64" json:"first_name"`
	Registered bool      `gorm:"not null;default:false" json:"registered"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
