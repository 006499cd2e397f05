// Package errs defines the structured error taxonomy shared by every
// pipeline component. Errors carry a machine-readable kind so callers can
// branch without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is the zero value; errors from outside the taxonomy.
	KindUnknown Kind = iota
	// KindProviderUnavailable means an upstream exhausted its retry budget.
	KindProviderUnavailable
	// KindNotFound means no matching identity, game, or line exists.
	KindNotFound
	// KindInsufficientData means fewer than the minimum usable games.
	KindInsufficientData
	// KindAlreadyEvaluated means a ledger entry already has an outcome.
	KindAlreadyEvaluated
	// KindInvalidInput means a caller-supplied payload was malformed.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindNotFound:
		return "not_found"
	case KindInsufficientData:
		return "insufficient_data"
	case KindAlreadyEvaluated:
		return "already_evaluated"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error without a cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the kind from err, unwrapping as needed.
// Returns KindUnknown for nil or unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
