package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when an insert hits a uniqueness constraint
	ErrAlreadyExists = errors.New("already exists")

	// ErrParseFailure is returned when model output cannot be turned into an EnrichmentResult
	ErrParseFailure = errors.New("parse failure")

	// ErrNoCredential is returned when no usable language model credential is configured
	ErrNoCredential = errors.New("no language model credential configured")

	// ErrRejected is returned when a provider refuses a request in a way a retry cannot fix
	ErrRejected = errors.New("request rejected")

	// ErrTransport wraps queue and gateway connectivity failures
	ErrTransport = errors.New("transport error")

	// ErrInvalidInput is returned when a request is missing required fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a record cannot be removed while others reference it
	ErrConflict = errors.New("conflict")
)

// ParseError keeps the raw model response for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failure: %v", e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParseFailure, e.Err}
}

// NewParseError creates a ParseError for raw.
func NewParseError(raw string, err error) error {
	return &ParseError{Raw: raw, Err: err}
}

// TransportError wraps err so that errors.Is(err, ErrTransport) holds.
func TransportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// Kind classifies an error for task results and HTTP responses.
type Kind string

const (
	KindNone          Kind = ""
	KindNotFound      Kind = "not_found"
	KindTransport     Kind = "transport"
	KindParseFailure  Kind = "parse_failure"
	KindConfiguration Kind = "configuration"
	KindTimeout       Kind = "timeout"
	KindInternal      Kind = "internal"
)

// KindOf maps err onto the error taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrParseFailure):
		return KindParseFailure
	case errors.Is(err, ErrNoCredential), errors.Is(err, ErrRejected):
		return KindConfiguration
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindInternal
	}
}

// Retryable reports whether a redelivery could change the outcome.
func (k Kind) Retryable() bool {
	switch k {
	case KindTransport, KindParseFailure, KindTimeout:
		return true
	default:
		return false
	}
}
