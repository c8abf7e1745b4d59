package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers: it decides the HTTP status at the
// delivery layer and whether the pipeline may retry.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error is the structured error type used across the service.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Retryable is meaningful only for KindUpstream: transient provider or
	// index failures may be retried within the attempt budget, permanent
	// ones are counted as failures immediately.
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so errors.Is(err, &Error{Kind: KindNotFound}) style
// sentinels work across wrapping.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Upstream wraps a failed external call (embedding, vector index, LLM).
func Upstream(message string, cause error, retryable bool) *Error {
	return &Error{Kind: KindUpstream, Message: message, Cause: cause, Retryable: retryable}
}

// KindOf returns the Kind of err, or KindUpstream with retryable semantics
// unknown for plain errors (an unclassified failure is treated as upstream).
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindUpstream, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable reports whether err is an upstream failure worth retrying.
// Validation, NotFound, Forbidden and Conflict are never retried.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindUpstream && e.Retryable
	}
	// unclassified errors (raw client errors, timeouts) default to retryable
	return err != nil
}
