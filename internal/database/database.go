package database

import (
	"log"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/config"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	log.Println("database connected")
	return db
}

func AutoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.UserProfile{},
		&models.ActivePoll{},
		&models.PastPoll{},
		&models.DisciplineSetting{},
	)
	if err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}
	log.Println("database migrated")
}
