// Package mail delivers alert emails through Resend or a self-hosted SMTP relay.
package mail

import (
	"context"
	"mime"
	"strings"
)

// Message represents an outbound email. HTML takes precedence over Body when both are set.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	HTML    string
}

// Mailer sends one message. Failures are *delivery.Error values.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var out []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// contentOf picks the HTML part when present.
func contentOf(msg Message) (contentType, body string) {
	if strings.TrimSpace(msg.HTML) != "" {
		return "text/html; charset=UTF-8", msg.HTML
	}
	return "text/plain; charset=UTF-8", msg.Body
}

func singleLine(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// encodeSubject strips line breaks and applies RFC 2047 encoding to non-ASCII subjects.
func encodeSubject(subject string) string {
	subject = singleLine(subject)
	for _, r := range subject {
		if r > 127 {
			return mime.QEncoding.Encode("UTF-8", subject)
		}
	}
	return subject
}
