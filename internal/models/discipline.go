package models

import "time"

// DisciplineSetting holds the admin-managed options for one discipline:
// a short alias for poll questions, the class type that gets the
// "Не моя группа" poll option, and an exclusion flag.
type DisciplineSetting struct {
	ClassName  string    `gorm:"primaryKey;size:255" json:"class_name"`
	Alias      string    `gorm:"size:128" json:"alias"`
	ClassType  string    `gorm:"size:128" json:"class_type"`
	NotMyGroup bool      `gorm:"not null;default:false" json:"not_my_group"`
	Excluded   bool      `gorm:"not null;default:false" json:"excluded"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
