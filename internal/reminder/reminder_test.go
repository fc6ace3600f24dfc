package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/events"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

type fakeLister struct {
	mu    sync.Mutex
	due   map[string]int
	fail  map[string]error
	calls int
}

func (f *fakeLister) DueForReview(_ context.Context, ns string, _ time.Time) ([]domain.ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[ns]; err != nil {
		return nil, err
	}
	return make([]domain.ReviewRecord, f.due[ns]), nil
}

func (f *fakeLister) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type collector struct {
	mu     sync.Mutex
	events []*events.Event
}

func (c *collector) HandleEvent(_ context.Context, e *events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(lister DueLister, namespaces []string) (*Scheduler, *collector) {
	c := &collector{}
	emitter := events.NewInMemoryEventEmitter(discardLogger())
	emitter.RegisterHandler(c)
	s := New(lister, emitter, time.Hour, namespaces, discardLogger())
	s.now = func() time.Time { return fixedNow }
	return s, c
}

func TestNew_DefaultsToAnonymousNamespace(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(&fakeLister{}, nil)
	assert.Equal(t, []string{""}, s.Namespaces())
}

func TestCheck(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{due: map[string]int{"alice": 3, "bob": 0}}
	s, c := newTestScheduler(lister, []string{"alice", "bob"})

	counts, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"alice": 3, "bob": 0}, counts)

	require.Len(t, c.events, 1)
	assert.Equal(t, events.TypeReviewsDue, c.events[0].Type)
	assert.Equal(t, "alice", c.events[0].Namespace)
	assert.Equal(t, fixedNow, c.events[0].OccurredAt)

	var payload DuePayload
	require.NoError(t, c.events[0].UnmarshalPayload(&payload))
	assert.Equal(t, 3, payload.Due)
}

func TestCheck_FailingNamespaceDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	boom := errors.New("store unavailable")
	lister := &fakeLister{
		due:  map[string]int{"b": 2},
		fail: map[string]error{"a": boom},
	}
	s, c := newTestScheduler(lister, []string{"a", "b"})

	counts, err := s.Check(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, map[string]int{"b": 2}, counts)
	assert.Len(t, c.events, 1)
}

func TestHandleEvent_TracksNamespaces(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(&fakeLister{}, []string{"alice"})

	reviewed, err := events.NewEvent(events.TypeReviewSubmitted, "carol", "go", nil, fixedNow)
	require.NoError(t, err)
	require.NoError(t, s.HandleEvent(context.Background(), reviewed))

	due, err := events.NewEvent(events.TypeReviewsDue, "ignored", "", nil, fixedNow)
	require.NoError(t, err)
	require.NoError(t, s.HandleEvent(context.Background(), due))

	assert.Equal(t, []string{"alice", "carol"}, s.Namespaces())
}

func TestStart(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{}
	s := New(lister, nil, 10*time.Millisecond, nil, discardLogger())

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	assert.Eventually(t, func() bool { return lister.Calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestStart_RejectsZeroInterval(t *testing.T) {
	t.Parallel()

	s := New(&fakeLister{}, nil, 0, nil, discardLogger())
	assert.Error(t, s.Start(context.Background()))
}
