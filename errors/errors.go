// Package errors provides error handling for hmis.
//
// This package re-exports github.com/cockroachdb/errors so every error carries a
// stack trace, and defines the sentinel kinds that the store surfaces to callers.
//
// Usage:
//
//	// Wrap a driver error and tag it with a kind
//	if _, err := db.Exec(q); err != nil {
//	    return errors.Markf(err, errors.ErrQuery, "delete encounter %d", id)
//	}
//
//	// Check the kind anywhere up the stack
//	if errors.Is(err, errors.ErrConstraintViolation) {
//	    // duplicate patient for the period
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New                = crdb.New
	Newf               = crdb.Newf
	Wrap               = crdb.Wrap
	Wrapf              = crdb.Wrapf
	WithStack          = crdb.WithStack
	WithMessage        = crdb.WithMessage
	WithMessagef       = crdb.WithMessagef
	WithSecondaryError = crdb.WithSecondaryError
	CombineErrors      = crdb.CombineErrors
	Mark               = crdb.Mark
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

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Error kinds surfaced by the store and configuration layers.
// Every error returned by those layers is marked with exactly one of these,
// so callers can switch on errors.Is without parsing driver messages.
var (
	// ErrConfiguration indicates an invalid or unsupported backend configuration
	ErrConfiguration = New("configuration error")

	// ErrConnection indicates the backend could not be opened or reached
	ErrConnection = New("connection error")

	// ErrSchema indicates schema creation or migration failed
	ErrSchema = New("schema error")

	// ErrConstraintViolation indicates a duplicate encounter or diagnosis name
	ErrConstraintViolation = New("constraint violation")

	// ErrNotFound indicates the requested row does not exist
	ErrNotFound = New("not found")

	// ErrQuery indicates any other statement execution failure
	ErrQuery = New("query error")

	// ErrTransaction indicates a failed begin or commit
	ErrTransaction = New("transaction error")

	// ErrInvalidEncounter indicates an encounter outside the fixed enumerations
	ErrInvalidEncounter = New("invalid encounter")
)

// Markf wraps err with a formatted message and tags it with kind.
// The result satisfies errors.Is(result, kind) and errors.Is(result, err).
func Markf(err error, kind error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), kind)
}

// Newk creates a new error tagged with kind.
func Newk(kind error, format string, args ...interface{}) error {
	return Mark(Newf(format, args...), kind)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsConstraintViolation checks if an error is or wraps ErrConstraintViolation
func IsConstraintViolation(err error) bool {
	return err != nil && Is(err, ErrConstraintViolation)
}

// IsConfigurationError checks if an error is or wraps ErrConfiguration
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// Kind returns the sentinel kind err is marked with, or nil when it carries none.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{
		ErrConfiguration,
		ErrConnection,
		ErrSchema,
		ErrConstraintViolation,
		ErrNotFound,
		ErrTransaction,
		ErrQuery,
		ErrInvalidEncounter,
	} {
		if Is(err, kind) {
			return kind
		}
	}
	return nil
}
