package fanout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/sosrelay/pkg/delivery"
	"github.com/charlesng35/sosrelay/pkg/logger"
	"github.com/charlesng35/sosrelay/pkg/metrics"
)

// RecordSink accepts records for asynchronous persistence. Enqueue must not block.
type RecordSink interface {
	Enqueue(record Record) bool
}

// Orchestrator issues every eligible (contact, channel) attempt concurrently and waits
// for all of them to settle. Attempts are never retried.
type Orchestrator struct {
	email   EmailSender
	sms     SMSSender
	records RecordSink
	now     func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the timestamp source for notification records.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator wires the channel senders and record sink. records may be nil.
func NewOrchestrator(email EmailSender, sms SMSSender, records RecordSink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		email:   email,
		sms:     sms,
		records: records,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Notify fans the alert out to every contact. A request without an alert id or contacts
// is a no-op. Cancelling ctx does not abort attempts that are already in flight.
func (o *Orchestrator) Notify(ctx context.Context, req Request) Result {
	result := emptyResult()
	if strings.TrimSpace(req.AlertID) == "" || len(req.Contacts) == 0 {
		return result
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)
	log := logger.WithAlert("fanout", req.AlertID)

	var emailTargets, smsTargets []Contact
	for _, contact := range req.Contacts {
		if EmailEligible(contact) {
			emailTargets = append(emailTargets, contact)
		}
		if SMSEligible(contact) {
			smsTargets = append(smsTargets, contact)
		}
	}

	emailResults := make([]AttemptResult, len(emailTargets))
	smsResults := make([]AttemptResult, len(smsTargets))
	smsBody := SMSBody(req)

	var wg sync.WaitGroup
	for i, contact := range emailTargets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emailResults[i] = o.attempt(log, req.AlertID, contact, ChannelEmail, func() error {
				if o.email == nil {
					return delivery.Rejected("email", "no email sender configured")
				}
				html, err := EmailBody(req, contact)
				if err != nil {
					return delivery.Rejected("email", err.Error())
				}
				return o.email.SendEmail(ctx, emailAddress(contact), EmailSubject(req.EmergencyType), html)
			})
		}()
	}
	for i, contact := range smsTargets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			smsResults[i] = o.attempt(log, req.AlertID, contact, ChannelSMS, func() error {
				if o.sms == nil {
					return delivery.Rejected("sms", "no sms sender configured")
				}
				return o.sms.SendSMS(ctx, strings.TrimSpace(contact.Phone), smsBody)
			})
		}()
	}
	wg.Wait()

	for _, r := range emailResults {
		if r.Status {
			result.EmailSent++
		} else {
			result.EmailFailed++
		}
	}
	for _, r := range smsResults {
		if r.Status {
			result.SMSSent++
		} else {
			result.SMSFailed++
		}
	}
	result.EmailResults = emailResults
	result.SMSResults = smsResults

	log.Info("fan-out completed",
		zap.Int("email_sent", result.EmailSent),
		zap.Int("email_failed", result.EmailFailed),
		zap.Int("sms_sent", result.SMSSent),
		zap.Int("sms_failed", result.SMSFailed),
	)
	return result
}

func (o *Orchestrator) attempt(log *zap.Logger, alertID string, contact Contact, channel Channel, send func() error) (res AttemptResult) {
	res = AttemptResult{Contact: contact.Name, Channel: channel}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("notification attempt panicked",
				zap.String("contact", contact.Name),
				zap.String("channel", string(channel)),
				zap.Any("panic", rec),
			)
			res.Status = false
			res.Failure = delivery.KindPermanent
			metrics.FanoutAttempts.WithLabelValues(string(channel), "failed").Inc()
		}
	}()

	if err := send(); err != nil {
		res.Failure = delivery.KindOf(err)
		fields := []zap.Field{
			zap.String("contact", contact.Name),
			zap.String("channel", string(channel)),
			zap.String("failure", string(res.Failure)),
			zap.Error(err),
		}
		var de *delivery.Error
		if errors.As(err, &de) && de.Body != "" {
			fields = append(fields, zap.Int("provider_status", de.StatusCode), zap.String("provider_body", de.Body))
		}
		log.Warn("notification attempt failed", fields...)
		metrics.FanoutAttempts.WithLabelValues(string(channel), "failed").Inc()
		return res
	}

	res.Status = true
	metrics.FanoutAttempts.WithLabelValues(string(channel), "sent").Inc()
	o.record(log, Record{
		AlertID:      alertID,
		ContactName:  contact.Name,
		ContactPhone: strings.TrimSpace(contact.Phone),
		Channel:      channel,
		NotifiedAt:   o.now().UTC(),
	})
	return res
}

func (o *Orchestrator) record(log *zap.Logger, record Record) {
	if o.records == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("notification record enqueue panicked", zap.Any("panic", rec))
		}
	}()
	if !o.records.Enqueue(record) {
		log.Warn("notification record not queued",
			zap.String("contact", record.ContactName),
			zap.String("channel", string(record.Channel)),
		)
	}
}
