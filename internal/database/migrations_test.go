package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sosrelay/internal/models"
)

type legacyNotification struct {
	ID           string `gorm:"primaryKey"`
	AlertID      string
	ContactName  string
	ContactPhone string
	NotifiedAt   time.Time
}

func (legacyNotification) TableName() string {
	return "alert_notifications"
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	for _, table := range []string{"emergency_alerts", "personal_contacts", "alert_notifications", "cache_entries"} {
		require.True(t, migrator.HasTable(table), "expected table %s", table)
	}
}

func TestAutoMigrateBackfillsLegacyNotificationChannel(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.AutoMigrate(&legacyNotification{}))
	require.NoError(t, db.Create(&legacyNotification{ID: "n1", AlertID: "a1", ContactName: "Ana", NotifiedAt: time.Now()}).Error)

	require.NoError(t, AutoMigrate(db))

	var record models.NotificationRecord
	require.NoError(t, db.First(&record, "id = ?", "n1").Error)
	require.Equal(t, LegacyChannel, record.Channel)
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db))
}
