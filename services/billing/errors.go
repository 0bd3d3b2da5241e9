package billing

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the engine.
var (
	// ErrCredentialNotConfigured means the tenant has no enabled processor
	// credential set. Fatal, surfaced to the admin, never retried.
	ErrCredentialNotConfigured = errors.New("payment processor credentials not configured for tenant")

	// ErrReferenceNotFound means a refund was requested but no upstream
	// charge reference could be resolved. Flagged for manual handling in the
	// processor console.
	ErrReferenceNotFound = errors.New("no processor reference found, refund may require manual handling")

	// ErrScheduleNotFound means the referenced schedule row does not exist.
	ErrScheduleNotFound = errors.New("payment schedule row not found")
)

// ValidationError rejects bad plan parameters or refund arguments. Never
// retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProcessorErrorKind classifies failures coming back from the payment
// processor so callers can decide between retrying and surfacing.
type ProcessorErrorKind string

const (
	// ProcessorTransient covers network, rate-limit and processor-side
	// errors. Eligible for the next sweep's automatic retry.
	ProcessorTransient ProcessorErrorKind = "transient"
	// ProcessorDeclined covers card and charge declines. Recorded as failed,
	// retried only by user action or the next cycle.
	ProcessorDeclined ProcessorErrorKind = "declined"
	// ProcessorInvalid covers requests the processor rejected as malformed.
	ProcessorInvalid ProcessorErrorKind = "invalid"
)

// ProcessorError wraps an upstream processor failure with its classification.
// The human-readable upstream message is preserved; the raw processor error
// never crosses the adapter boundary unwrapped.
type ProcessorError struct {
	Kind ProcessorErrorKind
	Msg  string
	Err  error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor error (%s): %s", e.Kind, e.Msg)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable processor failure.
func IsTransient(err error) bool {
	var pe *ProcessorError
	return errors.As(err, &pe) && pe.Kind == ProcessorTransient
}

// IsDeclined reports whether err is a charge decline.
func IsDeclined(err error) bool {
	var pe *ProcessorError
	return errors.As(err, &pe) && pe.Kind == ProcessorDeclined
}
