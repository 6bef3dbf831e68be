package mail

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/charlesng35/sosrelay/pkg/delivery"
)

const (
	resendProvider = "resend"

	// DefaultResendBaseURL is the public Resend API endpoint.
	DefaultResendBaseURL = "https://api.resend.com"
	// DefaultResendFrom is used when neither the message nor the settings name a sender.
	DefaultResendFrom = "Emergency Alert <onboarding@resend.dev>"
)

// ResendSettings configure the Resend transactional email client.
type ResendSettings struct {
	APIKey  string
	BaseURL string
	From    string
	Timeout time.Duration
}

type resendMailer struct {
	cfg    ResendSettings
	client *resty.Client
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// NewResendMailer builds a Mailer backed by the Resend HTTP API. Requests are never retried.
func NewResendMailer(cfg ResendSettings) (Mailer, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("resend: api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultResendBaseURL
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = DefaultResendFrom
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &resendMailer{cfg: cfg, client: client}, nil
}

func (m *resendMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return delivery.Rejected(resendProvider, "at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}

	payload := resendPayload{
		From:    from,
		To:      recipients,
		Subject: singleLine(msg.Subject),
		HTML:    msg.HTML,
	}
	if strings.TrimSpace(msg.HTML) == "" {
		payload.Text = msg.Body
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/emails")
	if err != nil {
		return delivery.Transport(resendProvider, err)
	}
	if !resp.IsSuccess() {
		return delivery.Status(resendProvider, resp.StatusCode(), resp.Body())
	}
	return nil
}
