// Package errors defines the application errors rendered by the API.
package errors

import (
	"errors"
	"net/http"
)

// AppError carries a stable client-facing code and message. Internal holds the cause for logs only.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Internal != nil:
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is compares codes, so a sentinel still matches its WithMessage and WithInternal variants.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	return ok && e != nil && other != nil && e.Code == other.Code
}

// WithInternal returns a copy that records the underlying cause.
func (e *AppError) WithInternal(err error) *AppError {
	return e.clone(func(c *AppError) { c.Internal = err })
}

// WithMessage returns a copy with a more specific client message.
func (e *AppError) WithMessage(message string) *AppError {
	return e.clone(func(c *AppError) { c.Message = message })
}

func (e *AppError) clone(edit func(*AppError)) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	edit(&c)
	return &c
}

// New builds an application error.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

var (
	ErrBadRequest      = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrUnauthorized    = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrForbidden       = New("FORBIDDEN", "Permission denied", http.StatusForbidden)
	ErrNotFound        = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrConflict        = New("CONFLICT", "Resource state conflict", http.StatusConflict)
	ErrPayloadTooLarge = New("PAYLOAD_TOO_LARGE", "Request body exceeds the upload limit", http.StatusRequestEntityTooLarge)
	ErrRateLimit       = New("RATE_LIMIT_EXCEEDED", "Too many requests, please slow down", http.StatusTooManyRequests)
	ErrInternalServer  = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrUnavailable     = New("UNAVAILABLE", "Service unavailable", http.StatusServiceUnavailable)

	// ErrFeatureDisabled hides endpoints whose backing service is switched off.
	ErrFeatureDisabled = New("FEATURE_DISABLED", "Feature is not enabled on this deployment", http.StatusNotFound)
)

// NewBadRequest reports invalid client input.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}

// FromError finds the AppError in err's chain. Anything else becomes ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}
