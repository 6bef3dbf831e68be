package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := backfillNotificationChannel(db); err != nil {
		return fmt.Errorf("backfill notification channel: %w", err)
	}

	return db.AutoMigrate(
		&models.Alert{},
		&models.Contact{},
		&models.NotificationRecord{},
		&models.CacheEntry{},
	)
}
