// Package storetest provides a conformance suite that every
// store.RecordStore implementation runs against its own backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. It is called once per subtest; the
// returned store must not share records with stores from earlier calls.
type Factory func(t *testing.T) store.RecordStore

// baseTime has no sub-microsecond part so every backend can represent it.
var baseTime = time.Date(2024, 4, 2, 9, 15, 30, 250000000, time.UTC)

// NewRecord returns a valid, reviewed record for itemID.
func NewRecord(itemID string, category domain.ItemCategory) domain.ReviewRecord {
	return domain.ReviewRecord{
		ItemID:         itemID,
		ItemCategory:   category,
		Status:         domain.StatusLearning,
		CorrectCount:   2,
		IncorrectCount: 1,
		IntervalDays:   6,
		EaseFactor:     2.36,
		Repetitions:    2,
		LastReviewedAt: baseTime,
		NextReviewAt:   baseTime.AddDate(0, 0, 6),
	}
}

// AssertRecordEqual compares records field by field, using time.Equal for
// timestamps so location and monotonic differences are ignored.
func AssertRecordEqual(t *testing.T, want, got domain.ReviewRecord) {
	t.Helper()

	assert.Equal(t, want.ItemID, got.ItemID)
	assert.Equal(t, want.ItemCategory, got.ItemCategory)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.CorrectCount, got.CorrectCount)
	assert.Equal(t, want.IncorrectCount, got.IncorrectCount)
	assert.Equal(t, want.IntervalDays, got.IntervalDays)
	assert.InDelta(t, want.EaseFactor, got.EaseFactor, 1e-9)
	assert.Equal(t, want.Repetitions, got.Repetitions)
	assert.True(t, want.LastReviewedAt.Equal(got.LastReviewedAt),
		"lastReviewedAt: want %s, got %s", want.LastReviewedAt, got.LastReviewedAt)
	assert.True(t, want.NextReviewAt.Equal(got.NextReviewAt),
		"nextReviewAt: want %s, got %s", want.NextReviewAt, got.NextReviewAt)
}

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("get missing returns nil", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get(context.Background(), "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get round trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)

		require.NoError(t, s.Put(ctx, &rec))

		got, err := s.Get(ctx, "go")
		require.NoError(t, err)
		require.NotNil(t, got)
		AssertRecordEqual(t, rec, *got)
	})

	t.Run("put replaces existing record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)
		require.NoError(t, s.Put(ctx, &rec))

		rec.Status = domain.StatusMastered
		rec.IntervalDays = 30
		rec.NextReviewAt = baseTime.AddDate(0, 0, 30)
		require.NoError(t, s.Put(ctx, &rec))

		got, err := s.Get(ctx, "go")
		require.NoError(t, err)
		AssertRecordEqual(t, rec, *got)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("put rejects invalid record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)
		rec.EaseFactor = 1.0

		err := s.Put(ctx, &rec)
		assert.ErrorIs(t, err, store.ErrInvalidRecord)
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Nil(t, got, "rejected record must not be written")
	})

	t.Run("returned records are copies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)
		require.NoError(t, s.Put(ctx, &rec))

		rec.CorrectCount = 99
		got, err := s.Get(ctx, "go")
		require.NoError(t, err)
		got.CorrectCount = 42

		again, err := s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Equal(t, 2, again.CorrectCount)
	})

	t.Run("get all", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		empty, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		for i, cat := range domain.Categories() {
			rec := NewRecord(fmt.Sprintf("item-%d", i), cat)
			require.NoError(t, s.Put(ctx, &rec))
		}

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, domain.CategoryPhrasal, all["item-1"].ItemCategory)
		assert.Equal(t, "item-2", all["item-2"].ItemID)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)
		require.NoError(t, s.Put(ctx, &rec))

		require.NoError(t, s.Delete(ctx, "go"))
		require.NoError(t, s.Delete(ctx, "go"))
		require.NoError(t, s.Delete(ctx, "never-existed"))

		got, err := s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		alice := s.WithNamespace("alice")
		bob := s.WithNamespace("bob")

		rec := NewRecord("go", domain.CategoryIrregular)
		require.NoError(t, alice.Put(ctx, &rec))

		got, err := bob.Get(ctx, "go")
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Nil(t, got, "anonymous namespace is separate")

		all, err := alice.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		require.NoError(t, bob.Delete(ctx, "go"))
		got, err = alice.Get(ctx, "go")
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("update creates missing record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var sawNil bool
		got, err := s.Update(ctx, "go", func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
			sawNil = cur == nil
			rec := NewRecord("go", domain.CategoryIrregular)
			return &rec, nil
		})
		require.NoError(t, err)
		assert.True(t, sawNil)
		require.NotNil(t, got)

		stored, err := s.Get(ctx, "go")
		require.NoError(t, err)
		AssertRecordEqual(t, *got, *stored)
	})

	t.Run("update modifies existing record", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)
		require.NoError(t, s.Put(ctx, &rec))

		got, err := s.Update(ctx, "go", func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
			require.NotNil(t, cur)
			next := *cur
			next.CorrectCount++
			return &next, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, got.CorrectCount)

		stored, err := s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Equal(t, 3, stored.CorrectCount)
	})

	t.Run("update error aborts without writing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)
		require.NoError(t, s.Put(ctx, &rec))

		boom := errors.New("boom")
		_, err := s.Update(ctx, "go", func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
			next := *cur
			next.CorrectCount = 50
			return &next, boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Equal(t, 2, stored.CorrectCount)
	})

	t.Run("update with nil result leaves store unchanged", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.Update(ctx, "go", func(*domain.ReviewRecord) (*domain.ReviewRecord, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, got)

		stored, err := s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("update rejects invalid result", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Update(ctx, "go", func(*domain.ReviewRecord) (*domain.ReviewRecord, error) {
			rec := NewRecord("go", domain.CategoryIrregular)
			rec.IntervalDays = 0
			return &rec, nil
		})
		assert.ErrorIs(t, err, store.ErrInvalidRecord)
	})

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord("go", domain.CategoryIrregular)
		rec.CorrectCount = 0
		require.NoError(t, s.Put(ctx, &rec))

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			failures  []error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, "go", func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
					next := *cur
					next.CorrectCount++
					return &next, nil
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				} else if !errors.Is(err, store.ErrConflict) {
					failures = append(failures, err)
				}
			}()
		}
		wg.Wait()

		require.Empty(t, failures)
		stored, err := s.Get(ctx, "go")
		require.NoError(t, err)
		assert.Equal(t, succeeded, stored.CorrectCount, "no update may be lost")
		assert.Positive(t, succeeded)
	})

	t.Run("concurrent updates of distinct items are independent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const workers = 48
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			calls = make(map[string]int, workers)
			errs  []error
		)
		for i := 0; i < workers; i++ {
			itemID := fmt.Sprintf("item-%02d", i)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Update(ctx, itemID, func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
					mu.Lock()
					calls[itemID]++
					mu.Unlock()
					if cur != nil {
						return nil, fmt.Errorf("%s already exists", itemID)
					}
					next := NewRecord(itemID, domain.CategoryIrregular)
					return &next, nil
				})
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Empty(t, errs, "a write to one item must not fail an update of another")
		for id, n := range calls {
			assert.Equal(t, 1, n, "update of %s was retried", id)
		}

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, workers)
	})
}
