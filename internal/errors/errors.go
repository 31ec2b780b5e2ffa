// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Process exit codes, one per failure kind
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ExitCode mapping
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Exit codes - reported by cmd/rrdb, distinct per failure kind
// ============================================================================

const (
	CodeOK              = 0
	CodeInternal        = 1
	CodeInvalidConfig   = 2
	CodeArityMismatch   = 3
	CodeUnknownXform    = 4
	CodeCorruptState    = 5
	CodeNotFound        = 6
	CodeLockTimeout     = 7
	CodeInvalidArgument = 8
)

// CodeName returns a human-readable name for an exit code.
func CodeName(code int) string {
	switch code {
	case CodeOK:
		return "OK"
	case CodeInternal:
		return "Internal"
	case CodeInvalidConfig:
		return "ConfigurationError"
	case CodeArityMismatch:
		return "ArityMismatch"
	case CodeUnknownXform:
		return "UnknownTransform"
	case CodeCorruptState:
		return "CorruptState"
	case CodeNotFound:
		return "NotFound"
	case CodeLockTimeout:
		return "LockTimeout"
	case CodeInvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("Code(%d)", code)
	}
}

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Configuration errors (create parameters, config file)
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidToken  = errors.New("invalid transform token")

	// Request errors
	ErrArityMismatch    = errors.New("value count does not match dataset count")
	ErrInvalidValue     = errors.New("invalid value")
	ErrUnknownTransform = errors.New("unknown transform")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrCommandTooLong   = errors.New("command too long")

	// State errors
	ErrNotFound     = errors.New("not found")
	ErrCorruptState = errors.New("corrupt state")
	ErrLockTimeout  = errors.New("timed out waiting for lock")
	ErrWriterClosed = errors.New("writer is closed")
	ErrInternal     = errors.New("internal error")

	// ErrDivisionUndefined is returned when a mean is asked of an empty
	// accumulator. Evaluators recover it; it never reaches a caller.
	ErrDivisionUndefined = errors.New("division undefined: zero count")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsConfiguration returns true if err is a create-time configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidToken)
}

// IsRequest returns true if err rejects a single request without touching
// persisted state.
func IsRequest(err error) bool {
	return errors.Is(err, ErrArityMismatch) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrUnknownTransform) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrCommandTooLong)
}

// ============================================================================
// Error to exit code mapping
// ============================================================================

// ExitCode maps an error to the process exit status for it.
func ExitCode(err error) int {
	if err == nil {
		return CodeOK
	}

	switch {
	case IsConfiguration(err):
		return CodeInvalidConfig
	case Is(err, ErrArityMismatch):
		return CodeArityMismatch
	case Is(err, ErrUnknownTransform):
		return CodeUnknownXform
	case Is(err, ErrCorruptState):
		return CodeCorruptState
	case Is(err, ErrNotFound):
		return CodeNotFound
	case Is(err, ErrLockTimeout):
		return CodeLockTimeout
	case Is(err, ErrInvalidValue), Is(err, ErrUnknownCommand), Is(err, ErrCommandTooLong):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error for a request argument.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidValue)
}

// NewCorrupt creates a corrupt-state error with context.
func NewCorrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrCorruptState)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
