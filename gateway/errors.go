package gateway

import (
	"errors"
	"fmt"
)

// Kind is the machine classification attached to error envelopes and used by
// the HTTP layer for status mapping.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransient  Kind = "transient"
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindConflict   Kind = "conflict"
	KindPermanent  Kind = "permanent"
	KindExhausted  Kind = "exhausted_retries"
)

// ValidationError reports a request rejected before any external call was
// made. It is never retried: the request cannot succeed unmodified.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation failure, e.g.
// NewValidationError("project_key", "is required").
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransientError marks a failure expected to resolve on retry: throttling,
// rate limiting, 5xx responses, momentary network faults.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a terminal failure that would recur unchanged. Kind
// refines it for status mapping (not_found, permission, conflict, or the
// generic permanent).
type PermanentError struct {
	Kind Kind
	Err  error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// ExhaustedRetriesError wraps the last transient cause once the retry budget
// is spent. Attempts counts every call made, the first included.
type ExhaustedRetriesError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Permanent wraps err as terminal with the given kind. Returns nil for a nil
// err.
func Permanent(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Kind: kind, Err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsValidation reports whether err is a pre-call validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// KindOf extracts the machine kind from a classified error chain.
// Unclassified errors map to the generic permanent kind so that nothing
// escapes unlabeled.
func KindOf(err error) Kind {
	var v *ValidationError
	if errors.As(err, &v) {
		return KindValidation
	}
	var ex *ExhaustedRetriesError
	if errors.As(err, &ex) {
		return KindExhausted
	}
	var p *PermanentError
	if errors.As(err, &p) {
		if p.Kind != "" {
			return p.Kind
		}
		return KindPermanent
	}
	var t *TransientError
	if errors.As(err, &t) {
		return KindTransient
	}
	return KindPermanent
}
