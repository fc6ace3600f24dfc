package store

import (
	"context"
	"strings"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// EntityReviewRecord is the entity name used in StoreError values.
const EntityReviewRecord = "review_record"

// UpdateFn computes the new state of a record from its current state.
// current is nil when the item has no record yet. Returning a nil record
// leaves the store unchanged; returning an error aborts the update and is
// passed back to the caller unchanged.
type UpdateFn func(current *domain.ReviewRecord) (*domain.ReviewRecord, error)

// RecordStore defines the interface for review record persistence.
// A RecordStore is scoped to a single namespace (one user, or the device
// for anonymous use); see WithNamespace.
//
// Missing records are not errors: Get returns (nil, nil) and Delete is a
// no-op. All records are validated before they are written and after they
// are read, so callers only ever see well formed values. Returned records
// are copies owned by the caller.
type RecordStore interface {
	// Get retrieves the record for itemID, or nil when the item has never
	// been reviewed.
	Get(ctx context.Context, itemID string) (*domain.ReviewRecord, error)

	// GetAll returns a snapshot of every record in the namespace, keyed by
	// item ID. Each record is read atomically, but the snapshot as a whole
	// is not a transaction across items.
	GetAll(ctx context.Context) (map[string]domain.ReviewRecord, error)

	// Put inserts or replaces the record keyed by rec.ItemID.
	// Returns ErrInvalidRecord if rec fails domain validation.
	Put(ctx context.Context, rec *domain.ReviewRecord) error

	// Delete removes the record for itemID. Deleting an absent record
	// succeeds.
	Delete(ctx context.Context, itemID string) error

	// Update performs an atomic read-modify-write of a single record. fn may
	// be invoked more than once by optimistic implementations, so it must be
	// free of side effects. Concurrent updates of the same item are
	// serialized; updates of different items are independent.
	Update(ctx context.Context, itemID string, fn UpdateFn) (*domain.ReviewRecord, error)

	// WithNamespace returns a store sharing the same backend but scoped to
	// namespace ns. The empty namespace is the anonymous, device-global one.
	WithNamespace(ns string) RecordStore
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateNamespace checks that ns can be embedded in storage keys.
func ValidateNamespace(ns string) error {
	if len(ns) > 128 || strings.ContainsAny(ns, ":{}\x00") {
		return ErrInvalidNamespace
	}
	return nil
}
