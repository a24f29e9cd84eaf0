package domain

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrClassificationUnavailable is returned when the NLU service is unreachable,
// times out, or answers with something that cannot be parsed.
var ErrClassificationUnavailable = errors.New("classification unavailable")

// ErrComponentNotFound is returned when a component id cannot be resolved by the registry.
var ErrComponentNotFound = errors.New("component not found")

// ErrTurnProcessingFailed is returned when the owning component fails to process a turn.
var ErrTurnProcessingFailed = errors.New("turn processing failed")

// ErrMalformedRequest is returned for inbound turns that are missing required fields.
var ErrMalformedRequest = errors.New("malformed request")

// ErrorKind codes exposed at the transport boundary.
const (
	KindClassificationUnavailable = "classification_unavailable"
	KindComponentNotFound         = "component_not_found"
	KindTurnProcessingFailed      = "turn_processing_failed"
	KindMalformedRequest          = "malformed_request"
	KindInternal                  = "internal"
)

// ErrorKind maps an error to a stable code. Unknown errors map to KindInternal.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedRequest):
		return KindMalformedRequest
	case errors.Is(err, ErrClassificationUnavailable):
		return KindClassificationUnavailable
	case errors.Is(err, ErrComponentNotFound):
		return KindComponentNotFound
	case errors.Is(err, ErrTurnProcessingFailed):
		return KindTurnProcessingFailed
	default:
		return KindInternal
	}
}

// IsTimeout reports whether err came from an expired or canceled context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
