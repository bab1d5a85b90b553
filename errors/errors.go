// Package errors provides error handling for redpen.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for operators
//   - Marker-based classification (see the taxonomy below)
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Classify for callers
//	return errors.Validationf("text must not be empty")
//
//	// Check errors
//	if errors.Is(err, errors.ErrConflict) {
//	    // re-fetch and retry
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error taxonomy. Every error that leaves a component is marked with exactly
// one of these so the HTTP layer and the orchestrator can classify it with Is().
var (
	// ErrValidation indicates bad client input the caller can correct
	ErrValidation = New("validation failed")

	// ErrConflict indicates the caller's version token is stale
	ErrConflict = New("version conflict")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrIO indicates the storage layer could not be read or written
	ErrIO = New("storage unavailable")

	// ErrUnauthenticated indicates a webhook failed signature verification
	ErrUnauthenticated = New("unauthenticated")

	// ErrSync indicates a repository fetch/clone/reset failure
	ErrSync = New("repository sync failed")

	// ErrPublish indicates a staging or swap failure
	ErrPublish = New("publish failed")
)

// Validationf creates a validation error with a formatted message
func Validationf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrValidation)
}

// Conflictf creates a conflict error with a formatted message
func Conflictf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConflict)
}

// NotFoundf creates a not-found error with a formatted message
func NotFoundf(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}

// WrapIO marks err as a storage failure. Returns nil for a nil err.
func WrapIO(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, msg), ErrIO)
}

// WrapSync marks err as a repository sync failure. Returns nil for a nil err.
func WrapSync(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, msg), ErrSync)
}

// WrapPublish marks err as a publish failure. Returns nil for a nil err.
func WrapPublish(err error, msg string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, msg), ErrPublish)
}

// IsValidation checks if an error is or wraps ErrValidation
func IsValidation(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// IsConflict checks if an error is or wraps ErrConflict
func IsConflict(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}
