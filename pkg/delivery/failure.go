// Package delivery classifies outbound provider failures.
//
// Providers collapse every failure into "not delivered"; the classification lets callers and
// operators tell a rejected request (permanent) from one that might succeed later (transient).
// Nothing in the service retries on either kind.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Kind describes whether a failed delivery could plausibly succeed if attempted again.
type Kind string

const (
	KindTransient Kind = "transient"
	KindPermanent Kind = "permanent"
)

const maxBodyExcerpt = 512

// Error is returned by channel senders when a provider call does not result in delivery.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Body       string
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	switch {
	case e.Reason != "":
		b.WriteString(e.Reason)
	case e.StatusCode != 0:
		fmt.Fprintf(&b, "unexpected status %d", e.StatusCode)
	default:
		b.WriteString("delivery failed")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying transport error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify maps an HTTP status code onto a failure kind. 429 and 5xx are transient.
func Classify(status int) Kind {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
		return KindTransient
	}
	return KindPermanent
}

// Transport wraps a network level failure (dial, TLS, timeout, cancellation).
func Transport(provider string, err error) *Error {
	return &Error{
		Provider: provider,
		Kind:     KindTransient,
		Reason:   "request failed",
		Err:      err,
	}
}

// Status builds an error for a non-2xx provider response.
func Status(provider string, status int, body []byte) *Error {
	return &Error{
		Provider:   provider,
		Kind:       Classify(status),
		StatusCode: status,
		Body:       excerpt(body),
	}
}

// Malformed builds an error for a 2xx response whose payload does not confirm delivery.
func Malformed(provider, reason string, body []byte) *Error {
	return &Error{
		Provider: provider,
		Kind:     KindPermanent,
		Reason:   reason,
		Body:     excerpt(body),
	}
}

// Rejected builds a permanent error for requests refused before reaching the provider.
func Rejected(provider, reason string) *Error {
	return &Error{
		Provider: provider,
		Kind:     KindPermanent,
		Reason:   reason,
	}
}

// KindOf extracts the failure kind from any error. Unknown errors are treated as transient,
// except for context cancellation which can never succeed within the same request.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) && de.Kind != "" {
		return de.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindPermanent
	}
	return KindTransient
}

func excerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxBodyExcerpt {
		cut := maxBodyExcerpt
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut] + "..."
	}
	return text
}
