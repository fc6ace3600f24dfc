// Package review applies review outcomes and overrides to stored records.
// Every write goes through store.RecordStore.Update so that concurrent
// reviews of the same item are serialized by the backend.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// Service records review progress for one namespace at a time.
type Service interface {
	// SubmitReview schedules the next review of itemID after an answer of
	// the given quality. The quality is validated before anything is read
	// or written. category may be empty when the catalog knows the item.
	SubmitReview(
		ctx context.Context,
		namespace, itemID string,
		category domain.ItemCategory,
		quality domain.ReviewOutcome,
	) (*domain.ReviewRecord, error)

	// MarkAsMastered retires itemID from rotation ("I already know this").
	MarkAsMastered(
		ctx context.Context,
		namespace, itemID string,
		category domain.ItemCategory,
	) (*domain.ReviewRecord, error)

	// Reset deletes the progress of itemID. Resetting an item without
	// progress succeeds.
	Reset(ctx context.Context, namespace, itemID string) error

	// Get returns the stored record, or the implicit New record when the
	// item has never been reviewed.
	Get(ctx context.Context, namespace, itemID string) (*domain.ReviewRecord, error)

	// Import stores every record of a canonical or legacy progress
	// document. A stored record reviewed after the imported one is kept.
	Import(ctx context.Context, namespace string, data []byte) (*ImportResult, error)
}

// ImportResult counts the outcome of an Import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

var (
	// ErrUnknownItem indicates the catalog has no item with the given ID.
	ErrUnknownItem = fmt.Errorf("%w: unknown item", domain.ErrValidation)

	// ErrCategoryMismatch indicates the request names a category other than
	// the item's.
	ErrCategoryMismatch = fmt.Errorf("%w: category does not match item", domain.ErrValidation)
)

// ServiceError wraps errors from the review service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_review", "import")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError for operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// IsValidationError reports whether err was caused by bad input rather than
// by the store.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrInvalidFormat)
}
