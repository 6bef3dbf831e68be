package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/models"
)

// LegacyChannel marks notification rows written before the channel column existed.
const LegacyChannel = "unknown"

// backfillNotificationChannel adds the channel column to notification tables created
// without it, so the NOT NULL constraint can be applied to existing rows.
func backfillNotificationChannel(db *gorm.DB) error {
	migrator := db.Migrator()
	if !migrator.HasTable(&models.NotificationRecord{}) {
		return nil
	}
	if migrator.HasColumn(&models.NotificationRecord{}, "channel") {
		return nil
	}

	if err := db.Exec("ALTER TABLE alert_notifications ADD COLUMN channel VARCHAR(16) NOT NULL DEFAULT '" + LegacyChannel + "'").Error; err != nil {
		return err
	}
	return nil
}
