package queue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/verbdrill/internal/catalog"
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/platform/memory"
	"github.com/phrazzld/verbdrill/internal/service/queue"
	"github.com/phrazzld/verbdrill/internal/store"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// record returns a reviewed record whose next review is offsetDays from now.
func record(id string, cat domain.ItemCategory, status domain.Status, offsetDays, correct, incorrect int) domain.ReviewRecord {
	next := now.AddDate(0, 0, offsetDays)
	return domain.ReviewRecord{
		ItemID:         id,
		ItemCategory:   cat,
		Status:         status,
		CorrectCount:   correct,
		IncorrectCount: incorrect,
		IntervalDays:   3,
		EaseFactor:     2.5,
		Repetitions:    1,
		LastReviewedAt: next.AddDate(0, 0, -3),
		NextReviewAt:   next,
	}
}

func seed(t *testing.T, s store.RecordStore, recs ...domain.ReviewRecord) {
	t.Helper()
	for i := range recs {
		require.NoError(t, s.Put(context.Background(), &recs[i]))
	}
}

func testCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c, err := catalog.NewStatic([]domain.Item{
		{ID: "go", Category: domain.CategoryIrregular, Fields: map[string]string{"simple_past": "went"}},
		{ID: "see", Category: domain.CategoryIrregular},
		{ID: "take", Category: domain.CategoryIrregular},
		{ID: "give-up", Category: domain.CategoryPhrasal},
		{ID: "look-after", Category: domain.CategoryPhrasal},
		{ID: "know", Category: domain.CategoryStative},
	})
	require.NoError(t, err)
	return c
}

func TestDueForReview(t *testing.T) {
	t.Parallel()
	s := memory.NewRecordStore(testLogger())
	seed(t, s,
		record("b", domain.CategoryIrregular, domain.StatusLearning, -1, 1, 0),
		record("a", domain.CategoryIrregular, domain.StatusLearning, -1, 1, 0),
		record("c", domain.CategoryPhrasal, domain.StatusLearning, -5, 1, 0),
		record("now", domain.CategoryPhrasal, domain.StatusLearning, 0, 1, 0),
		record("later", domain.CategoryPhrasal, domain.StatusLearning, 2, 1, 0),
		record("done", domain.CategoryStative, domain.StatusMastered, -10, 5, 0),
	)
	a := queue.NewAggregator(s, nil, testLogger())

	due, err := a.DueForReview(context.Background(), "", now)
	require.NoError(t, err)

	ids := make([]string, len(due))
	for i, r := range due {
		ids[i] = r.ItemID
	}
	assert.Equal(t, []string{"c", "a", "b", "now"}, ids)
}

func TestDueForReview_Empty(t *testing.T) {
	t.Parallel()
	a := queue.NewAggregator(memory.NewRecordStore(testLogger()), nil, testLogger())

	due, err := a.DueForReview(context.Background(), "", now)
	require.NoError(t, err)
	assert.NotNil(t, due)
	assert.Empty(t, due)
}

func TestStatistics(t *testing.T) {
	t.Parallel()
	s := memory.NewRecordStore(testLogger())
	seed(t, s,
		record("go", domain.CategoryIrregular, domain.StatusLearning, -1, 4, 2),
		record("see", domain.CategoryIrregular, domain.StatusMastered, 20, 6, 0),
		record("give-up", domain.CategoryPhrasal, domain.StatusLearning, 3, 4, 4),
		record("know", domain.CategoryStative, domain.StatusNew, -1, 0, 0),
	)
	a := queue.NewAggregator(s, nil, testLogger())

	stats, err := a.Statistics(context.Background(), "", now)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalItems)
	assert.Equal(t, 1, stats.NewCount)
	assert.Equal(t, 2, stats.LearningCount)
	assert.Equal(t, 1, stats.MasteredCount)
	assert.Equal(t, 2, stats.DueForReview)
	assert.Equal(t, 14, stats.TotalCorrect)
	assert.Equal(t, 6, stats.TotalIncorrect)
	assert.Equal(t, 70, stats.Accuracy)
	assert.Equal(t, 25, stats.MasteredPercent)
	assert.Equal(t, domain.CategoryStats{Studied: 2, Mastered: 1}, stats.ByCategory[domain.CategoryIrregular])
	assert.Equal(t, domain.CategoryStats{Studied: 1}, stats.ByCategory[domain.CategoryStative])
}

func TestStatistics_NoAttempts(t *testing.T) {
	t.Parallel()
	a := queue.NewAggregator(memory.NewRecordStore(testLogger()), nil, testLogger())

	stats, err := a.Statistics(context.Background(), "", now)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Accuracy)
	assert.Equal(t, 0, stats.MasteredPercent)
	assert.Len(t, stats.ByCategory, len(domain.Categories()))
}

func sessionIDs(s *queue.Session) map[string]bool {
	out := make(map[string]bool, len(s.Items))
	for _, it := range s.Items {
		out[it.Item.ID] = true
	}
	return out
}

func TestBuildSession_Modes(t *testing.T) {
	t.Parallel()

	s := memory.NewRecordStore(testLogger())
	seed(t, s,
		record("go", domain.CategoryIrregular, domain.StatusLearning, -1, 1, 0),
		record("see", domain.CategoryIrregular, domain.StatusLearning, 4, 1, 0),
		record("know", domain.CategoryStative, domain.StatusMastered, -3, 5, 0),
		record("orphan", domain.CategoryPhrasal, domain.StatusLearning, -2, 1, 1),
	)
	a := queue.NewAggregator(s, testCatalog(t), testLogger(),
		queue.WithRandSource(rand.NewPCG(1, 2)))

	tests := []struct {
		name     string
		req      queue.SessionRequest
		want     []string
		wantMode queue.Mode
	}{
		{
			name:     "mixed takes due and unseen",
			req:      queue.SessionRequest{Now: now},
			want:     []string{"go", "orphan", "take", "give-up", "look-after"},
			wantMode: queue.ModeMixed,
		},
		{
			name:     "review takes due only",
			req:      queue.SessionRequest{Now: now, Mode: queue.ModeReview},
			want:     []string{"go", "orphan"},
			wantMode: queue.ModeReview,
		},
		{
			name:     "mode is case insensitive",
			req:      queue.SessionRequest{Now: now, Mode: " Review"},
			want:     []string{"go", "orphan"},
			wantMode: queue.ModeReview,
		},
		{
			name:     "new takes unseen only",
			req:      queue.SessionRequest{Now: now, Mode: queue.ModeNew},
			want:     []string{"take", "give-up", "look-after"},
			wantMode: queue.ModeNew,
		},
		{
			name:     "category filter",
			req:      queue.SessionRequest{Now: now, Categories: []domain.ItemCategory{domain.CategoryIrregular}},
			want:     []string{"go", "take"},
			wantMode: queue.ModeMixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := a.BuildSession(context.Background(), "", tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, session.Mode)
			assert.Len(t, session.Items, len(tt.want))

			got := sessionIDs(session)
			for _, id := range tt.want {
				assert.True(t, got[id], "missing %s", id)
			}
		})
	}
}

func TestBuildSession_ItemsCarryRecordsAndFields(t *testing.T) {
	t.Parallel()

	s := memory.NewRecordStore(testLogger())
	seed(t, s, record("go", domain.CategoryIrregular, domain.StatusLearning, -1, 1, 0))
	a := queue.NewAggregator(s, testCatalog(t), testLogger())

	session, err := a.BuildSession(context.Background(), "", queue.SessionRequest{Now: now})
	require.NoError(t, err)

	for _, it := range session.Items {
		if it.Item.ID == "go" {
			require.NotNil(t, it.Record)
			assert.Equal(t, "went", it.Item.Fields["simple_past"])
		} else {
			assert.Nil(t, it.Record, "%s has never been reviewed", it.Item.ID)
		}
	}
}

func TestBuildSession_Limit(t *testing.T) {
	t.Parallel()

	a := queue.NewAggregator(memory.NewRecordStore(testLogger()), testCatalog(t), testLogger(),
		queue.WithSessionSizes(4, 5))
	ctx := context.Background()

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default size", limit: 0, want: 4},
		{name: "explicit", limit: 2, want: 2},
		{name: "clamped to max", limit: 50, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := a.BuildSession(ctx, "", queue.SessionRequest{Now: now, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, session.Items, tt.want)
			assert.Len(t, sessionIDs(session), tt.want, "items must be distinct")
		})
	}

	_, err := a.BuildSession(ctx, "", queue.SessionRequest{Now: now, Limit: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBuildSession_EmptyIsNotAnError(t *testing.T) {
	t.Parallel()

	a := queue.NewAggregator(memory.NewRecordStore(testLogger()), nil, testLogger())
	session, err := a.BuildSession(context.Background(), "", queue.SessionRequest{Now: now})
	require.NoError(t, err)
	assert.NotNil(t, session.Items)
	assert.Empty(t, session.Items)
}

func TestBuildSession_InvalidRequest(t *testing.T) {
	t.Parallel()
	a := queue.NewAggregator(memory.NewRecordStore(testLogger()), nil, testLogger())
	ctx := context.Background()

	_, err := a.BuildSession(ctx, "", queue.SessionRequest{Now: now, Mode: "cram"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = a.BuildSession(ctx, "", queue.SessionRequest{Now: now, Categories: []domain.ItemCategory{"modal"}})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = a.BuildSession(ctx, "bad:ns", queue.SessionRequest{Now: now})
	assert.ErrorIs(t, err, store.ErrInvalidNamespace)
}

func TestBuildSession_Canceled(t *testing.T) {
	t.Parallel()
	a := queue.NewAggregator(memory.NewRecordStore(testLogger()), testCatalog(t), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.BuildSession(ctx, "", queue.SessionRequest{Now: now})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingStore struct {
	store.RecordStore
	err error
}

func (f failingStore) WithNamespace(string) store.RecordStore { return f }

func (f failingStore) GetAll(context.Context) (map[string]domain.ReviewRecord, error) {
	return nil, f.err
}

func TestAggregator_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()

	unavailable := store.Unavailable(store.EntityReviewRecord, "get_all", errors.New("dial tcp: refused"))
	a := queue.NewAggregator(failingStore{err: unavailable}, nil, testLogger())
	ctx := context.Background()

	_, err := a.DueForReview(ctx, "", now)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, err = a.Statistics(ctx, "", now)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, err = a.BuildSession(ctx, "", queue.SessionRequest{Now: now})
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]queue.Mode{
		"":        queue.ModeMixed,
		"mixed":   queue.ModeMixed,
		" Review": queue.ModeReview,
		"NEW":     queue.ModeNew,
	} {
		got, err := queue.ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := queue.ParseMode("cram")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
