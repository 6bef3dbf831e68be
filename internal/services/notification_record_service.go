package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/models"
)

// RecordStore is the append-only log of successful deliveries.
type RecordStore interface {
	fanout.RecordStore
	ListForAlert(ctx context.Context, alertID string) ([]models.NotificationRecord, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationRecordService stores notification records in the primary database.
type NotificationRecordService struct {
	db *gorm.DB
}

// NewNotificationRecordService constructs a database-backed RecordStore.
func NewNotificationRecordService(db *gorm.DB) (*NotificationRecordService, error) {
	if db == nil {
		return nil, errors.New("notification record service: db is required")
	}
	return &NotificationRecordService{db: db}, nil
}

// RecordAttempt appends one row for a successful delivery.
func (s *NotificationRecordService) RecordAttempt(ctx context.Context, record fanout.Record) error {
	ctx = ensureContext(ctx)
	row, err := recordRow(record)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("notification record service: insert: %w", err)
	}
	return nil
}

// ListForAlert returns the records for an alert, oldest first.
func (s *NotificationRecordService) ListForAlert(ctx context.Context, alertID string) ([]models.NotificationRecord, error) {
	ctx = ensureContext(ctx)
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return nil, errors.New("notification record service: alert id is required")
	}

	var rows []models.NotificationRecord
	if err := s.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("notified_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification record service: list: %w", err)
	}
	return rows, nil
}

// PurgeOlderThan deletes records notified before cutoff. Used only by retention.
func (s *NotificationRecordService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("notified_at < ?", cutoff.UTC()).
		Delete(&models.NotificationRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification record service: purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func recordRow(record fanout.Record) (models.NotificationRecord, error) {
	alertID := strings.TrimSpace(record.AlertID)
	if alertID == "" {
		return models.NotificationRecord{}, errors.New("notification record service: alert id is required")
	}
	notifiedAt := record.NotifiedAt
	if notifiedAt.IsZero() {
		notifiedAt = time.Now()
	}
	return models.NotificationRecord{
		AlertID:      clampRunes(alertID, models.RecordAlertIDSize),
		ContactName:  clampRunes(strings.TrimSpace(record.ContactName), models.RecordContactNameSize),
		ContactPhone: clampRunes(strings.TrimSpace(record.ContactPhone), models.RecordContactPhoneSize),
		Channel:      string(record.Channel),
		NotifiedAt:   notifiedAt.UTC(),
	}, nil
}

// clampRunes truncates value to at most limit runes.
func clampRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	count := 0
	for i := range value {
		if count == limit {
			return value[:i]
		}
		count++
	}
	return value
}
