package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached (connection refused, timeout, closed pool). Callers surface it
	// as a temporary failure rather than retrying silently.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidRecord is returned when a record fails validation before
	// being stored, or when a persisted record cannot be decoded. Check the
	// wrapped error for specific validation details.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrConflict is returned when an optimistic update lost every retry
	// against concurrent writers.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInvalidNamespace is returned for namespaces that cannot be used as
	// a storage key.
	ErrInvalidNamespace = errors.New("invalid namespace")
)

// IsUnavailableError reports whether err means the store could not be reached.
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "review_record")
	Operation string // The operation that failed (e.g., "get", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Unavailable wraps a connectivity failure so that it matches
// ErrStoreUnavailable while keeping the driver error in the chain.
func Unavailable(entity, operation string, err error) *StoreError {
	return NewStoreError(entity, operation, "backend unreachable", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
}

// InvalidRecord wraps a validation or decoding failure so that it matches
// ErrInvalidRecord as well as the domain validation error it carries.
func InvalidRecord(entity, operation string, err error) *StoreError {
	return NewStoreError(entity, operation, "record rejected", fmt.Errorf("%w: %w", ErrInvalidRecord, err))
}
