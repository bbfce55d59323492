package services

import (
	"errors"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Get returns the stored profile, or nil when the user never registered.
func (s *UserService) Get(userID string) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := s.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Upsert(profile *models.UserProfile) error {
	return s.db.Save(profile).Error
}
