package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AlertStatusDraft    = "draft"
	AlertStatusActive   = "active"
	AlertStatusResolved = "resolved"
)

// Alert is a single emergency report. Only the status and resolution time change after creation.
type Alert struct {
	BaseModel

	UserID        string         `gorm:"type:varchar(64);not null;index" json:"user_id"`
	EmergencyType string         `gorm:"type:varchar(64);not null" json:"emergency_type"`
	Situation     string         `gorm:"type:text;not null" json:"situation"`
	Latitude      float64        `gorm:"not null" json:"latitude"`
	Longitude     float64        `gorm:"not null" json:"longitude"`
	Status        string         `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	ResolvedAt    *time.Time     `json:"resolved_at,omitempty"`
	EvidenceFiles datatypes.JSON `json:"evidence_files,omitempty"`
}

// TableName keeps the table name shared with existing clients.
func (Alert) TableName() string {
	return "emergency_alerts"
}

// IsActive reports whether the alert still awaits resolution.
func (a *Alert) IsActive() bool {
	return a != nil && a.Status == AlertStatusActive
}
