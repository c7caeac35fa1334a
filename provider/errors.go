package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure. Rate-limit, timeout and transient
// server errors are retryable; bad-request and auth errors are not.
type ErrorKind string

const (
	KindRateLimit       ErrorKind = "rate_limit"
	KindTimeout         ErrorKind = "timeout"
	KindTransientServer ErrorKind = "transient_server"
	KindBadRequest      ErrorKind = "bad_request"
	KindAuth            ErrorKind = "auth"
)

// Error is a categorized provider failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a categorized provider error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// IsRetryable reports whether err is a provider error worth retrying.
func IsRetryable(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Kind {
	case KindRateLimit, KindTimeout, KindTransientServer:
		return true
	}
	return false
}
