package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/models"
)

const notificationsPath = "/rest/v1/alert_notifications"

// RestRecordConfig points at a PostgREST-compatible hosted database.
type RestRecordConfig struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// RestRecordStore writes notification records through the hosted database REST interface.
type RestRecordStore struct {
	client *resty.Client
}

type restRecordRow struct {
	AlertID      string    `json:"alert_id"`
	ContactName  string    `json:"contact_name"`
	ContactPhone string    `json:"contact_phone"`
	Channel      string    `json:"channel"`
	NotifiedAt   time.Time `json:"notified_at"`
}

// NewRestRecordStore constructs a RestRecordStore.
func NewRestRecordStore(cfg RestRecordConfig) (*RestRecordStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("rest record store: url is required")
	}
	key := strings.TrimSpace(cfg.ServiceKey)
	if key == "" {
		return nil, errors.New("rest record store: service key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", key).
		SetAuthToken(key).
		SetHeader("Accept", "application/json")

	return &RestRecordStore{client: client}, nil
}

// RecordAttempt inserts one row.
func (s *RestRecordStore) RecordAttempt(ctx context.Context, record fanout.Record) error {
	ctx = ensureContext(ctx)
	row, err := recordRow(record)
	if err != nil {
		return err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=minimal").
		SetBody(restRecordRow{
			AlertID:      row.AlertID,
			ContactName:  row.ContactName,
			ContactPhone: row.ContactPhone,
			Channel:      row.Channel,
			NotifiedAt:   row.NotifiedAt,
		}).
		Post(notificationsPath)
	if err != nil {
		return fmt.Errorf("rest record store: insert: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("rest record store: insert: unexpected status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// ListForAlert fetches the records for an alert ordered by notified_at.
func (s *RestRecordStore) ListForAlert(ctx context.Context, alertID string) ([]models.NotificationRecord, error) {
	ctx = ensureContext(ctx)
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return nil, errors.New("rest record store: alert id is required")
	}

	var rows []models.NotificationRecord
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("alert_id", "eq."+alertID).
		SetQueryParam("order", "notified_at.asc").
		SetResult(&rows).
		Get(notificationsPath)
	if err != nil {
		return nil, fmt.Errorf("rest record store: list: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("rest record store: list: unexpected status %d", resp.StatusCode())
	}
	return rows, nil
}

// PurgeOlderThan deletes records notified before cutoff. The count is unknown to the
// caller since the hosted interface returns no body for minimal deletes.
func (s *RestRecordStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetQueryParamsFromValues(url.Values{
			"notified_at": []string{"lt." + cutoff.UTC().Format(time.RFC3339)},
		}).
		Delete(notificationsPath)
	if err != nil {
		return 0, fmt.Errorf("rest record store: purge: %w", err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("rest record store: purge: unexpected status %d", resp.StatusCode())
	}
	return 0, nil
}
