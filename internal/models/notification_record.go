package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column widths of alert_notifications. Values are clamped to these before insert.
const (
	RecordAlertIDSize      = 255
	RecordContactNameSize  = 255
	RecordContactPhoneSize = 64
)

// NotificationRecord is an append-only row confirming one successful delivery.
type NotificationRecord struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	AlertID      string    `gorm:"type:varchar(255);not null;index" json:"alert_id"`
	ContactName  string    `gorm:"type:varchar(255);not null" json:"contact_name"`
	ContactPhone string    `gorm:"type:varchar(64)" json:"contact_phone"`
	Channel      string    `gorm:"type:varchar(16);not null" json:"channel"`
	NotifiedAt   time.Time `gorm:"not null;index" json:"notified_at"`
}

func (NotificationRecord) TableName() string {
	return "alert_notifications"
}

func (r *NotificationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
