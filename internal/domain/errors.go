package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// ErrInFlight is returned when a visit already has a mutating action running.
	ErrInFlight = errors.New("request already in progress")
	// ErrStepMismatch is returned when an action targets a step that is not displayed.
	ErrStepMismatch = errors.New("step is not currently displayed")

	ErrPushUnsupported    = errors.New("push not supported")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrServerKeyMissing   = errors.New("push server key missing")
	ErrNoSubscription     = errors.New("no push subscription available")
	ErrCaptureUnavailable = errors.New("camera capture unavailable")
)

// ValidationError is a client-side rejection raised before any upstream request is sent.
// Message is meant to be shown to the user as-is.
type ValidationError struct {
	Message string
	Fields  map[string]string // per-field problems keyed by json name, when known
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap lets errors.Is(err, ErrBadRequest) match validation failures.
func (e *ValidationError) Unwrap() error { return ErrBadRequest }

// Invalid builds a ValidationError.
func Invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError is a non-success response (or transport failure, Status 0) from the
// external API. Message carries the server-provided message when there was one.
type UpstreamError struct {
	Op      string
	Status  int
	Message string
	Cause   error // transport or decode failure
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
}

func (e *UpstreamError) Unwrap() []error {
	var errs []error
	switch e.Status {
	case 401:
		errs = append(errs, ErrUnauthorized)
	case 404:
		errs = append(errs, ErrNotFound)
	case 409:
		errs = append(errs, ErrConflict)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// UserMessage returns the text a toast should show for err: the server's message
// or the validation message when present, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}
