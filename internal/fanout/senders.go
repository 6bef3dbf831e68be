package fanout

import (
	"context"
	"time"

	"github.com/charlesng35/sosrelay/pkg/delivery"
	"github.com/charlesng35/sosrelay/pkg/mail"
	"github.com/charlesng35/sosrelay/pkg/metrics"
	"github.com/charlesng35/sosrelay/pkg/sms"
)

// EmailSender delivers one HTML email to one address.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

// SMSSender delivers one text message to one number.
type SMSSender interface {
	SendSMS(ctx context.Context, number, body string) error
}

type mailerSender struct {
	provider string
	mailer   mail.Mailer
}

// NewEmailSender adapts a mail.Mailer. provider labels latency metrics.
func NewEmailSender(provider string, mailer mail.Mailer) EmailSender {
	return &mailerSender{provider: provider, mailer: mailer}
}

func (s *mailerSender) SendEmail(ctx context.Context, to, subject, html string) error {
	start := time.Now()
	err := s.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	observeProvider(s.provider, start, err)
	return err
}

type gatewaySender struct {
	provider string
	sender   sms.Sender
}

// NewSMSSender adapts an sms.Sender. The provider message id is discarded.
func NewSMSSender(provider string, sender sms.Sender) SMSSender {
	return &gatewaySender{provider: provider, sender: sender}
}

func (s *gatewaySender) SendSMS(ctx context.Context, number, body string) error {
	start := time.Now()
	_, err := s.sender.Send(ctx, number, body)
	observeProvider(s.provider, start, err)
	return err
}

func observeProvider(provider string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(delivery.KindOf(err))
	}
	metrics.ProviderLatency.WithLabelValues(provider, outcome).Observe(time.Since(start).Seconds())
}
