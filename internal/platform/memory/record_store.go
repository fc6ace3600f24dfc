// Package memory provides an in-process store.RecordStore used for local
// mode and tests. Data does not survive a restart.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
	"github.com/phrazzld/verbdrill/internal/store"
)

// backend is shared by every namespace view of one store.
type backend struct {
	mu      sync.RWMutex
	records map[string]map[string]domain.ReviewRecord // namespace -> item -> record
}

// RecordStore implements store.RecordStore on a map guarded by a RWMutex.
// Records are stored and returned by value so callers never share state
// with the store.
type RecordStore struct {
	b         *backend
	namespace string
	logger    *slog.Logger
}

// NewRecordStore creates an empty in-memory store scoped to the anonymous
// namespace. If logger is nil, a default logger will be used.
func NewRecordStore(logger *slog.Logger) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{
		b:      &backend{records: make(map[string]map[string]domain.ReviewRecord)},
		logger: logger.With(slog.String("component", "memory_record_store")),
	}
}

// Ensure RecordStore implements store.RecordStore interface
var _ store.RecordStore = (*RecordStore)(nil)

// WithNamespace implements store.RecordStore.WithNamespace.
func (s *RecordStore) WithNamespace(ns string) store.RecordStore {
	return &RecordStore{b: s.b, namespace: ns, logger: s.logger}
}

// Get implements store.RecordStore.Get.
func (s *RecordStore) Get(ctx context.Context, itemID string) (*domain.ReviewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.b.mu.RLock()
	defer s.b.mu.RUnlock()

	rec, ok := s.b.records[s.namespace][itemID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetAll implements store.RecordStore.GetAll.
func (s *RecordStore) GetAll(ctx context.Context) (map[string]domain.ReviewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.b.mu.RLock()
	defer s.b.mu.RUnlock()

	ns := s.b.records[s.namespace]
	out := make(map[string]domain.ReviewRecord, len(ns))
	for id, rec := range ns {
		out[id] = rec
	}
	return out, nil
}

// Put implements store.RecordStore.Put.
func (s *RecordStore) Put(ctx context.Context, rec *domain.ReviewRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(rec); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("rejected invalid record",
			slog.String("error", err.Error()))
		return store.InvalidRecord(store.EntityReviewRecord, "put", err)
	}

	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.putLocked(*rec)
	return nil
}

// Delete implements store.RecordStore.Delete.
func (s *RecordStore) Delete(ctx context.Context, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	delete(s.b.records[s.namespace], itemID)
	return nil
}

// Update implements store.RecordStore.Update. The write lock is held for
// the whole read-modify-write, so fn runs exactly once.
func (s *RecordStore) Update(
	ctx context.Context,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	var current *domain.ReviewRecord
	if rec, ok := s.b.records[s.namespace][itemID]; ok {
		current = &rec
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}
	if err := validate(next); err != nil {
		return nil, store.InvalidRecord(store.EntityReviewRecord, "update", err)
	}

	s.putLocked(*next)
	out := *next
	return &out, nil
}

func (s *RecordStore) putLocked(rec domain.ReviewRecord) {
	ns, ok := s.b.records[s.namespace]
	if !ok {
		ns = make(map[string]domain.ReviewRecord)
		s.b.records[s.namespace] = ns
	}
	ns[rec.ItemID] = rec
}

func validate(rec *domain.ReviewRecord) error {
	if rec == nil {
		return store.ErrInvalidRecord
	}
	return rec.Validate()
}
