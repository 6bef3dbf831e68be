// Package sms sends text messages through the Semaphore SMS gateway.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/charlesng35/sosrelay/pkg/delivery"
)

const (
	semaphoreProvider = "semaphore"

	DefaultSemaphoreBaseURL = "https://api.semaphore.co"
	DefaultSenderName       = "EmergencyPH"
)

// Sender delivers a single text message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, number, message string) (string, error)
}

// SemaphoreSettings configure the Semaphore client.
type SemaphoreSettings struct {
	APIKey     string
	BaseURL    string
	SenderName string
	Timeout    time.Duration
}

type semaphoreSender struct {
	cfg    SemaphoreSettings
	client *resty.Client
}

type semaphoreMessage struct {
	MessageID json.RawMessage `json:"message_id"`
	Recipient string          `json:"recipient"`
	Status    string          `json:"status"`
}

// NewSemaphoreSender builds a Sender for the Semaphore v4 messages API.
func NewSemaphoreSender(cfg SemaphoreSettings) (Sender, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("semaphore: api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultSemaphoreBaseURL
	}
	if strings.TrimSpace(cfg.SenderName) == "" {
		cfg.SenderName = DefaultSenderName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &semaphoreSender{cfg: cfg, client: client}, nil
}

func (s *semaphoreSender) Send(ctx context.Context, number, message string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", delivery.Rejected(semaphoreProvider, "destination number is required")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"apikey":     s.cfg.APIKey,
			"number":     number,
			"message":    message,
			"sendername": s.cfg.SenderName,
		}).
		Post("/api/v4/messages")
	if err != nil {
		return "", delivery.Transport(semaphoreProvider, err)
	}
	if !resp.IsSuccess() {
		return "", delivery.Status(semaphoreProvider, resp.StatusCode(), resp.Body())
	}

	return parseMessageID(resp.Body())
}

// parseMessageID accepts the documented array response and treats anything
// without a message id in its first element as undelivered.
func parseMessageID(body []byte) (string, error) {
	var messages []semaphoreMessage
	if err := json.Unmarshal(body, &messages); err != nil {
		return "", delivery.Malformed(semaphoreProvider, "unexpected response payload", body)
	}
	if len(messages) == 0 {
		return "", delivery.Malformed(semaphoreProvider, "empty response payload", body)
	}
	id := strings.Trim(strings.TrimSpace(string(messages[0].MessageID)), `"`)
	if id == "" || id == "0" || id == "null" {
		return "", delivery.Malformed(semaphoreProvider, "response missing message_id", body)
	}
	return id, nil
}
