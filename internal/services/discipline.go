package services

import (
	"errors"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"gorm.io/gorm"
)

// DisciplineSettings is the scheduler-facing view of all discipline options.
type DisciplineSettings struct {
	Excluded   map[string]bool
	NotMyGroup map[string]string // class name -> class type with the НМГ option
	Aliases    map[string]string // class name -> short poll name
}

type DisciplineService struct {
	db *gorm.DB
}

func NewDisciplineService(db *gorm.DB) *DisciplineService {
	return &DisciplineService{db: db}
}

func (s *DisciplineService) Settings() (*DisciplineSettings, error) {
	var rows []models.DisciplineSetting
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}

	settings := &DisciplineSettings{
		Excluded:   make(map[string]bool),
		NotMyGroup: make(map[string]string),
		Aliases:    make(map[string]string),
	}
	for _, row := range rows {
		if row.Excluded {
			settings.Excluded[row.ClassName] = true
		}
		if row.NotMyGroup {
			settings.NotMyGroup[row.ClassName] = row.ClassType
		}
		if row.Alias != "" {
			settings.Aliases[row.ClassName] = row.Alias
		}
	}
	return settings, nil
}

func (s *DisciplineService) SetAlias(className, alias string) error {
	return s.upsert(className, func(d *models.DisciplineSetting) {
		d.Alias = alias
	})
}

func (s *DisciplineService) SetNotMyGroup(className, classType string) error {
	return s.upsert(className, func(d *models.DisciplineSetting) {
		d.ClassType = classType
		d.NotMyGroup = true
	})
}

func (s *DisciplineService) Exclude(className string) error {
	return s.upsert(className, func(d *models.DisciplineSetting) {
		d.Excluded = true
	})
}

func (s *DisciplineService) upsert(className string, apply func(*models.DisciplineSetting)) error {
	var setting models.DisciplineSetting
	err := s.db.Where("class_name = ?", className).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.DisciplineSetting{ClassName: className}
	} else if err != nil {
		return err
	}

	apply(&setting)
	return s.db.Save(&setting).Error
}
