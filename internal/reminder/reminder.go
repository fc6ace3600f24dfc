// Package reminder periodically counts the reviews due in every known
// namespace and announces non-zero counts as events.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/events"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
)

// DueLister returns the records due in a namespace.
type DueLister interface {
	DueForReview(ctx context.Context, namespace string, now time.Time) ([]domain.ReviewRecord, error)
}

// DuePayload is the payload of a events.TypeReviewsDue event.
type DuePayload struct {
	Due int `json:"due"`
}

// Scheduler runs the due check on a fixed interval. It also implements
// events.EventHandler so namespaces that record progress are picked up
// without configuration.
type Scheduler struct {
	cron     *gocron.Scheduler
	lister   DueLister
	emitter  events.EventEmitter
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu         sync.Mutex
	namespaces map[string]struct{}
}

var _ events.EventHandler = (*Scheduler)(nil)

// New creates a Scheduler checking namespaces every interval. With no
// namespaces the anonymous one is checked.
func New(
	lister DueLister,
	emitter events.EventEmitter,
	interval time.Duration,
	namespaces []string,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if emitter == nil {
		emitter = events.Discard
	}

	tracked := make(map[string]struct{}, len(namespaces)+1)
	for _, ns := range namespaces {
		tracked[ns] = struct{}{}
	}
	if len(tracked) == 0 {
		tracked[""] = struct{}{}
	}

	return &Scheduler{
		cron:       gocron.NewScheduler(time.UTC),
		lister:     lister,
		emitter:    emitter,
		interval:   interval,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "reminder")),
		namespaces: tracked,
	}
}

// Start schedules the check and runs it in the background until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("reminder interval must be positive")
	}
	if _, err := s.cron.Every(s.interval).Do(s.run, ctx); err != nil {
		return err
	}
	s.cron.StartAsync()
	s.logger.Info("reminder job started", slog.Duration("interval", s.interval))
	return nil
}

// Stop terminates the scheduled check.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// HandleEvent implements events.EventHandler by remembering the namespace of
// every progress event.
func (s *Scheduler) HandleEvent(_ context.Context, event *events.Event) error {
	if event.Type == events.TypeReviewsDue {
		return nil
	}
	s.mu.Lock()
	s.namespaces[event.Namespace] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Namespaces returns the tracked namespaces in sorted order.
func (s *Scheduler) Namespaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.namespaces))
	for ns := range s.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.Check(ctx); err != nil {
		s.logger.Error("reminder check failed", slog.String("error", err.Error()))
	}
}

// Check counts due reviews in every tracked namespace and emits a
// events.TypeReviewsDue event for each namespace with at least one. A
// failing namespace does not stop the others; the first error is returned.
func (s *Scheduler) Check(ctx context.Context) (map[string]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now().UTC()
	counts := make(map[string]int)

	var firstErr error
	for _, ns := range s.Namespaces() {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		due, err := s.lister.DueForReview(ctx, ns, now)
		if err != nil {
			log.Error("failed to count due reviews", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		counts[ns] = len(due)
		if len(due) == 0 {
			continue
		}

		event, err := events.NewEvent(events.TypeReviewsDue, ns, "", DuePayload{Due: len(due)}, now)
		if err != nil {
			return counts, err
		}
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			log.Warn("reminder event handler failed", slog.String("error", err.Error()))
		}
	}

	log.Debug("reminder check finished", slog.Int("namespaces", len(counts)))
	return counts, firstErr
}
