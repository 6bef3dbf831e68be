package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/models"
	"github.com/charlesng35/sosrelay/internal/realtime"
	apperrors "github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/logger"
	"github.com/charlesng35/sosrelay/pkg/metrics"
)

const (
	// DefaultLatitude and DefaultLongitude locate Manila, used when the device reports no position.
	DefaultLatitude  = 14.5995
	DefaultLongitude = 120.9842

	minSituationLength = 10
	maxSituationLength = 500
	maxEmergencyType   = 64

	defaultActiveLimit  = 50
	defaultHistoryLimit = 25
	maxListLimit        = 200

	activeFeedKey = "alerts:active"
)

// Notifier fans an alert out to contacts.
type Notifier interface {
	Notify(ctx context.Context, req fanout.Request) fanout.Result
}

// ContactSource resolves the contacts notified for a user.
type ContactSource interface {
	Recipients(ctx context.Context, userID string) ([]fanout.Contact, error)
}

// Broadcaster publishes realtime messages to every subscriber of a stream.
type Broadcaster interface {
	BroadcastStream(stream string, message realtime.Message)
}

// FeedCache holds the serialised live map feed between writes.
type FeedCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// AlertDTO is the API view of an alert.
type AlertDTO struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	EmergencyType string                `json:"emergency_type"`
	Situation     string                `json:"situation"`
	Latitude      float64               `json:"latitude"`
	Longitude     float64               `json:"longitude"`
	MapLink       string                `json:"map_link"`
	Status        string                `json:"status"`
	EvidenceFiles []fanout.EvidenceFile `json:"evidence_files"`
	CreatedAt     time.Time             `json:"created_at"`
	ResolvedAt    *time.Time            `json:"resolved_at,omitempty"`
}

// SubmitAlertInput carries an alert raised by a user.
type SubmitAlertInput struct {
	EmergencyType string                `json:"emergency_type"`
	Situation     string                `json:"situation"`
	Location      *fanout.Location      `json:"location"`
	EvidenceFiles []fanout.EvidenceFile `json:"evidence_files"`
}

// SubmitAlertResult is returned once an alert is stored and its contacts were notified.
type SubmitAlertResult struct {
	Alert            AlertDTO      `json:"alert"`
	LocationFallback bool          `json:"location_fallback"`
	Notifications    fanout.Result `json:"notifications"`
}

// AlertService owns the alert lifecycle: submission, notification and resolution.
type AlertService struct {
	db       *gorm.DB
	contacts ContactSource
	notifier Notifier
	records  RecordStore
	hub      Broadcaster
	feed     FeedCache
	feedTTL  time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewAlertService constructs an AlertService. records and hub are optional.
func NewAlertService(db *gorm.DB, contacts ContactSource, notifier Notifier, records RecordStore, hub Broadcaster) (*AlertService, error) {
	if db == nil {
		return nil, errors.New("alert service: db is required")
	}
	if contacts == nil {
		return nil, errors.New("alert service: contact source is required")
	}
	if notifier == nil {
		return nil, errors.New("alert service: notifier is required")
	}
	return &AlertService{
		db:       db,
		contacts: contacts,
		notifier: notifier,
		records:  records,
		hub:      hub,
		log:      logger.WithModule("alerts"),
		now:      time.Now,
	}, nil
}

// WithFeedCache caches the active alert feed for ttl. Submissions and resolutions invalidate it.
func (s *AlertService) WithFeedCache(cache FeedCache, ttl time.Duration) *AlertService {
	if cache != nil && ttl > 0 {
		s.feed = cache
		s.feedTTL = ttl
	}
	return s
}

// Submit validates and stores a new active alert, then notifies the user's contacts.
func (s *AlertService) Submit(ctx context.Context, userID string, input SubmitAlertInput) (*SubmitAlertResult, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	emergencyType := strings.TrimSpace(input.EmergencyType)
	situation := strings.TrimSpace(input.Situation)
	if err := validateSubmission(emergencyType, situation); err != nil {
		return nil, err
	}

	location, fallback := resolveLocation(input.Location)
	if location.Latitude < -90 || location.Latitude > 90 || location.Longitude < -180 || location.Longitude > 180 {
		return nil, apperrors.NewBadRequest("location is out of range")
	}

	evidence := cleanEvidence(input.EvidenceFiles)
	encoded, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("alert service: encode evidence: %w", err)
	}

	alert := models.Alert{
		UserID:        userID,
		EmergencyType: emergencyType,
		Situation:     situation,
		Latitude:      location.Latitude,
		Longitude:     location.Longitude,
		Status:        models.AlertStatusActive,
		EvidenceFiles: datatypes.JSON(encoded),
	}
	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, fmt.Errorf("alert service: create alert: %w", err)
	}
	metrics.AlertTransitions.WithLabelValues(models.AlertStatusActive).Inc()
	s.invalidateFeed(ctx)

	dto := mapAlert(alert)
	s.broadcast(realtime.EventAlertCreated, dto)

	contacts, err := s.contacts.Recipients(ctx, userID)
	if err != nil {
		s.log.Error("failed to load contacts for alert",
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
		contacts = nil
	}

	result := s.notifier.Notify(ctx, fanout.Request{
		AlertID:       alert.ID,
		Contacts:      contacts,
		EmergencyType: emergencyType,
		Situation:     situation,
		Location:      location,
		EvidenceFiles: evidence,
	})

	return &SubmitAlertResult{
		Alert:            dto,
		LocationFallback: fallback,
		Notifications:    result,
	}, nil
}

// Resolve marks an active alert owned by userID as resolved.
func (s *AlertService) Resolve(ctx context.Context, userID, alertID string) (*AlertDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	alertID = strings.TrimSpace(alertID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if alertID == "" {
		return nil, apperrors.NewBadRequest("alert id is required")
	}

	resolvedAt := s.now().UTC()
	var alert models.Alert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("alert service: load alert: %w", err)
		}
		if !alert.IsActive() {
			return apperrors.ErrConflict.WithMessage("alert is already resolved")
		}

		result := tx.Model(&models.Alert{}).
			Where("id = ? AND status = ?", alert.ID, models.AlertStatusActive).
			Updates(map[string]any{
				"status":      models.AlertStatusResolved,
				"resolved_at": resolvedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("alert service: resolve alert: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrConflict.WithMessage("alert is already resolved")
		}
		alert.Status = models.AlertStatusResolved
		alert.ResolvedAt = &resolvedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.AlertTransitions.WithLabelValues(models.AlertStatusResolved).Inc()
	s.invalidateFeed(ctx)

	dto := mapAlert(alert)
	s.broadcast(realtime.EventAlertUpdated, dto)
	return &dto, nil
}

// ListActive returns the most recent active alerts for the live map.
func (s *AlertService) ListActive(ctx context.Context, limit int) ([]AlertDTO, error) {
	ctx = ensureContext(ctx)
	limit = clampLimit(limit, defaultActiveLimit, maxListLimit)

	if s.feed == nil {
		return s.queryActive(ctx, limit)
	}

	if cached, ok := s.cachedFeed(ctx); ok {
		return cached[:min(limit, len(cached))], nil
	}
	// The cached feed always holds the widest page so every limit can be served from it.
	feed, err := s.queryActive(ctx, maxListLimit)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(feed); err == nil {
		if err := s.feed.Set(ctx, activeFeedKey, encoded, s.feedTTL); err != nil {
			s.log.Warn("failed to cache active alert feed", zap.Error(err))
		}
	}
	return feed[:min(limit, len(feed))], nil
}

func (s *AlertService) queryActive(ctx context.Context, limit int) ([]AlertDTO, error) {
	var rows []models.Alert
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.AlertStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("alert service: list active alerts: %w", err)
	}
	return mapAlerts(rows), nil
}

func (s *AlertService) cachedFeed(ctx context.Context) ([]AlertDTO, bool) {
	raw, ok, err := s.feed.Get(ctx, activeFeedKey)
	if err != nil {
		s.log.Warn("active alert feed cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var feed []AlertDTO
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, false
	}
	return feed, true
}

func (s *AlertService) invalidateFeed(ctx context.Context) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Delete(ctx, activeFeedKey); err != nil {
		s.log.Warn("failed to invalidate active alert feed", zap.Error(err))
	}
}

// ListForUser returns the user's alert history, newest first.
func (s *AlertService) ListForUser(ctx context.Context, userID string, limit, offset int) ([]AlertDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var rows []models.Alert
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(clampLimit(limit, defaultHistoryLimit, maxListLimit)).
		Offset(max(0, offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("alert service: list user alerts: %w", err)
	}
	return mapAlerts(rows), nil
}

// Get returns a single alert.
func (s *AlertService) Get(ctx context.Context, alertID string) (*AlertDTO, error) {
	ctx = ensureContext(ctx)
	alert, err := s.find(ctx, strings.TrimSpace(alertID))
	if err != nil {
		return nil, err
	}
	dto := mapAlert(*alert)
	return &dto, nil
}

// CheckOwner returns ErrNotFound unless alertID exists and belongs to userID.
func (s *AlertService) CheckOwner(ctx context.Context, userID, alertID string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.ErrUnauthorized
	}
	alert, err := s.find(ctx, strings.TrimSpace(alertID))
	if err != nil {
		return err
	}
	if alert.UserID != userID {
		return apperrors.ErrNotFound
	}
	return nil
}

// Notifications lists the delivery records of an alert owned by userID.
func (s *AlertService) Notifications(ctx context.Context, userID, alertID string) ([]models.NotificationRecord, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if s.records == nil {
		return nil, apperrors.ErrFeatureDisabled
	}

	alert, err := s.find(ctx, strings.TrimSpace(alertID))
	if err != nil {
		return nil, err
	}
	if alert.UserID != userID {
		return nil, apperrors.ErrNotFound
	}

	rows, err := s.records.ListForAlert(ctx, alert.ID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.NotificationRecord{}
	}
	return rows, nil
}

func (s *AlertService) find(ctx context.Context, alertID string) (*models.Alert, error) {
	if alertID == "" {
		return nil, apperrors.NewBadRequest("alert id is required")
	}
	var alert models.Alert
	if err := s.db.WithContext(ctx).First(&alert, "id = ?", alertID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("alert service: load alert: %w", err)
	}
	return &alert, nil
}

func (s *AlertService) broadcast(event string, alert AlertDTO) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastStream(realtime.StreamEmergencyAlerts, realtime.Message{
		Event: event,
		Data:  alert,
	})
}

func validateSubmission(emergencyType, situation string) error {
	if emergencyType == "" {
		return apperrors.NewBadRequest("emergency type is required")
	}
	if runeLen(emergencyType) > maxEmergencyType {
		return apperrors.NewBadRequest(fmt.Sprintf("emergency type must be at most %d characters", maxEmergencyType))
	}
	length := runeLen(situation)
	if length < minSituationLength {
		return apperrors.NewBadRequest(fmt.Sprintf("situation must be at least %d characters", minSituationLength))
	}
	if length > maxSituationLength {
		return apperrors.NewBadRequest(fmt.Sprintf("situation must be at most %d characters", maxSituationLength))
	}
	return nil
}

func resolveLocation(loc *fanout.Location) (fanout.Location, bool) {
	if loc == nil {
		return fanout.Location{Latitude: DefaultLatitude, Longitude: DefaultLongitude}, true
	}
	return *loc, false
}

func cleanEvidence(files []fanout.EvidenceFile) []fanout.EvidenceFile {
	cleaned := make([]fanout.EvidenceFile, 0, len(files))
	for _, file := range files {
		url := strings.TrimSpace(file.URL)
		if url == "" {
			continue
		}
		cleaned = append(cleaned, fanout.EvidenceFile{
			URL:  url,
			Type: defaultIfEmpty(strings.TrimSpace(file.Type), "file"),
		})
	}
	return cleaned
}

func mapAlerts(rows []models.Alert) []AlertDTO {
	dtos := make([]AlertDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, mapAlert(row))
	}
	return dtos
}

func mapAlert(alert models.Alert) AlertDTO {
	evidence := []fanout.EvidenceFile{}
	if len(alert.EvidenceFiles) > 0 {
		if err := json.Unmarshal(alert.EvidenceFiles, &evidence); err != nil || evidence == nil {
			evidence = []fanout.EvidenceFile{}
		}
	}
	return AlertDTO{
		ID:            alert.ID,
		UserID:        alert.UserID,
		EmergencyType: alert.EmergencyType,
		Situation:     alert.Situation,
		Latitude:      alert.Latitude,
		Longitude:     alert.Longitude,
		MapLink:       fanout.MapLink(fanout.Location{Latitude: alert.Latitude, Longitude: alert.Longitude}),
		Status:        alert.Status,
		EvidenceFiles: evidence,
		CreatedAt:     alert.CreatedAt,
		ResolvedAt:    alert.ResolvedAt,
	}
}
