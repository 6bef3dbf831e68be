package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/charlesng35/sosrelay/pkg/delivery"
)

const (
	smtpProvider       = "smtp"
	defaultSMTPTimeout = 10 * time.Second
)

// SMTPSettings configure the SMTP relay.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

// smtpSession is an authenticated conversation with the relay.
type smtpSession interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

type smtpDialer func(ctx context.Context, cfg SMTPSettings) (smtpSession, error)

type smtpMailer struct {
	cfg  SMTPSettings
	dial smtpDialer
}

type envelope struct {
	from string
	to   []string
}

// NewSMTPMailer builds a Mailer that delivers through an SMTP relay.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.Port == 0 {
		return nil, errors.New("smtp: port is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &smtpMailer{cfg: cfg, dial: dialSMTP}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	env, err := m.envelope(msg)
	if err != nil {
		return err
	}

	session, err := m.dial(ctx, m.cfg)
	if err != nil {
		return classifySMTP(err)
	}
	defer session.Close()

	if err := session.Mail(env.from); err != nil {
		return classifySMTP(fmt.Errorf("mail from: %w", err))
	}
	for _, rcpt := range env.to {
		if err := session.Rcpt(rcpt); err != nil {
			return classifySMTP(fmt.Errorf("rcpt to %s: %w", rcpt, err))
		}
	}

	w, err := session.Data()
	if err != nil {
		return classifySMTP(fmt.Errorf("data: %w", err))
	}
	if _, err := io.WriteString(w, formatMessage(env.from, env.to, msg)); err != nil {
		_ = w.Close()
		return delivery.Transport(smtpProvider, fmt.Errorf("write body: %w", err))
	}
	if err := w.Close(); err != nil {
		return classifySMTP(fmt.Errorf("end data: %w", err))
	}

	// The message is accepted once DATA completes; QUIT failures do not undo delivery.
	_ = session.Quit()
	return nil
}

func (m *smtpMailer) envelope(msg Message) (envelope, error) {
	to := uniqueAddresses(msg.To)
	if len(to) == 0 {
		return envelope{}, delivery.Rejected(smtpProvider, "at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(m.cfg.From)
	}
	if from == "" {
		return envelope{}, delivery.Rejected(smtpProvider, "sender address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return envelope{}, delivery.Rejected(smtpProvider, fmt.Sprintf("invalid from address: %v", err))
	}
	for _, rcpt := range to {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return envelope{}, delivery.Rejected(smtpProvider, fmt.Sprintf("invalid recipient address %q: %v", rcpt, err))
		}
	}
	return envelope{from: from, to: to}, nil
}

// classifySMTP maps 5xx replies to permanent failures. Other replies and network errors are transient.
func classifySMTP(err error) error {
	var reply *textproto.Error
	if !errors.As(err, &reply) {
		return delivery.Transport(smtpProvider, err)
	}
	kind := delivery.KindTransient
	if reply.Code >= 500 {
		kind = delivery.KindPermanent
	}
	return &delivery.Error{
		Provider:   smtpProvider,
		Kind:       kind,
		StatusCode: reply.Code,
		Reason:     "server rejected command",
		Err:        err,
	}
}

// dialSMTP connects, upgrades to TLS when the relay offers STARTTLS and authenticates when
// a username is configured.
func dialSMTP(ctx context.Context, cfg SMTPSettings) (smtpSession, error) {
	address := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	tlsConfig := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	var conn net.Conn
	var err error
	if cfg.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	deadline := time.Now().Add(cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("greeting: %w", err)
	}

	if !cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if strings.TrimSpace(cfg.Username) != "" {
		if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	return client, nil
}

func formatMessage(from string, to []string, msg Message) string {
	contentType, body := contentOf(msg)

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + encodeSubject(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: " + contentType + "\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
