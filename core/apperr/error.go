// Package apperr implements the discriminated-outcome error taxonomy
// used at every operation boundary: a machine-readable Kind
// plus a human-readable message, wrapping an optional underlying cause.
package apperr

import (
	"errors"
	"fmt"
)

// Kind tags the failure category. It is not a type hierarchy —
// just a tag the dispatcher uses to pick a JSON-RPC error code.
type Kind string

const (
	KindTransport  Kind = "transport"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindStore      Kind = "store"
	KindCapacity   Kind = "capacity"
	KindEmbedder   Kind = "embedder"
	KindInternal   Kind = "internal"
)

// Error is the typed failure every operation function returns instead of
// a bare error, so the dispatcher can translate it into a JSON-RPC error
// code without string-matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// needed.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// KindInternal otherwise — any error escaping without a typed kind is
// treated as an internal failure at the dispatcher boundary.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
