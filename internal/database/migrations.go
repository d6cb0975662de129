package database

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Staff{},
		&models.Reminder{},
		&models.SentReminder{},
		&models.AssetTransaction{},
		&models.Notification{},
		&models.PushSubscription{},
		&models.SystemEvent{},
	)
}

// SeedData ensures a default administrator account exists so a fresh
// install can be configured. The password must be changed on first login.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Staff{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.Staff{
		Username:      "admin",
		DisplayName:   "Administrator",
		Password:      string(hash),
		Role:          models.RoleAdmin,
		AccountStatus: models.StaffStatusActive,
	}
	return db.Create(&admin).Error
}
