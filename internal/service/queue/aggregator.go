package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/verbdrill/internal/catalog"
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
	"github.com/phrazzld/verbdrill/internal/store"
)

// Session size bounds used when none are configured.
const (
	DefaultSessionSize = 20
	MaxSessionSize     = 100
)

// Aggregator computes due lists, statistics and sessions from one GetAll
// snapshot per call.
type Aggregator struct {
	store       store.RecordStore
	catalog     catalog.Catalog
	defaultSize int
	maxSize     int
	logger      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRandSource sets the source used to shuffle sessions.
func WithRandSource(src rand.Source) Option {
	return func(a *Aggregator) { a.rng = rand.New(src) }
}

// WithSessionSizes overrides the default and maximum session sizes.
func WithSessionSizes(defaultSize, maxSize int) Option {
	return func(a *Aggregator) {
		if defaultSize > 0 {
			a.defaultSize = defaultSize
		}
		if maxSize > 0 {
			a.maxSize = maxSize
		}
	}
}

// NewAggregator creates an Aggregator. cat may be nil, in which case
// sessions contain due records only.
func NewAggregator(
	recordStore store.RecordStore,
	cat catalog.Catalog,
	logger *slog.Logger,
	opts ...Option,
) *Aggregator {
	if recordStore == nil {
		panic("recordStore cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Aggregator{
		store:       recordStore,
		catalog:     cat,
		defaultSize: DefaultSessionSize,
		maxSize:     MaxSessionSize,
		logger:      logger.With(slog.String("component", "queue_aggregator")),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if a.maxSize < a.defaultSize {
		a.maxSize = a.defaultSize
	}
	return a
}

func (a *Aggregator) snapshot(ctx context.Context, namespace string) (map[string]domain.ReviewRecord, error) {
	if err := store.ValidateNamespace(namespace); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	records, err := a.store.WithNamespace(namespace).GetAll(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, a.logger).Error("failed to load records",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return records, nil
}

// DueForReview returns the records due at now, excluding mastered ones,
// ordered by next review time and then item ID. An empty result is an
// empty slice, not an error.
func (a *Aggregator) DueForReview(ctx context.Context, namespace string, now time.Time) ([]domain.ReviewRecord, error) {
	records, err := a.snapshot(ctx, namespace)
	if err != nil {
		return nil, err
	}

	due := make([]domain.ReviewRecord, 0)
	for _, rec := range records {
		if rec.IsDue(now) {
			due = append(due, rec)
		}
	}
	sortByDue(due)
	return due, nil
}

// Statistics summarizes every record of the namespace in a single pass.
func (a *Aggregator) Statistics(ctx context.Context, namespace string, now time.Time) (domain.Statistics, error) {
	records, err := a.snapshot(ctx, namespace)
	if err != nil {
		return domain.Statistics{}, err
	}

	stats := domain.NewStatistics()
	for _, rec := range records {
		stats.Observe(rec, now)
	}
	stats.Finalize()
	return stats, nil
}

// BuildSession assembles a shuffled session from due records and catalog
// items without a record, deduplicated by item ID and truncated to the
// request limit.
func (a *Aggregator) BuildSession(ctx context.Context, namespace string, req SessionRequest) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	limit, err := a.resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	wanted, err := categorySet(req.Categories)
	if err != nil {
		return nil, err
	}

	records, err := a.snapshot(ctx, namespace)
	if err != nil {
		return nil, err
	}

	items := make([]SessionItem, 0)
	seen := make(map[string]struct{})

	if mode != ModeNew {
		due := make([]domain.ReviewRecord, 0)
		for _, rec := range records {
			if rec.IsDue(req.Now) && wanted(rec.ItemCategory) {
				due = append(due, rec)
			}
		}
		sortByDue(due)

		for i := range due {
			rec := due[i]
			item, err := a.itemFor(ctx, rec)
			if err != nil {
				return nil, err
			}
			seen[rec.ItemID] = struct{}{}
			items = append(items, SessionItem{Item: item, Record: &rec})
		}
	}

	if mode != ModeReview && a.catalog != nil {
		for _, cat := range domain.Categories() {
			if !wanted(cat) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			catalogItems, err := a.catalog.ListItems(ctx, cat)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s items: %w", cat, err)
			}
			for _, item := range catalogItems {
				if _, ok := records[item.ID]; ok {
					continue
				}
				if _, ok := seen[item.ID]; ok {
					continue
				}
				seen[item.ID] = struct{}{}
				items = append(items, SessionItem{Item: item})
			}
		}
	}

	a.shuffle(items)
	if len(items) > limit {
		items = items[:limit]
	}

	session := &Session{ID: uuid.New(), Mode: mode, Items: items}
	log.Debug("session built",
		slog.String("session_id", session.ID.String()),
		slog.String("mode", string(mode)),
		slog.Int("items", len(items)),
		slog.Int("limit", limit))
	return session, nil
}

func (a *Aggregator) resolveLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("%w: session limit must not be negative", domain.ErrValidation)
	case limit == 0:
		return a.defaultSize, nil
	case limit > a.maxSize:
		return a.maxSize, nil
	default:
		return limit, nil
	}
}

// itemFor returns the catalog entry of rec, or a bare item when the
// catalog no longer lists it.
func (a *Aggregator) itemFor(ctx context.Context, rec domain.ReviewRecord) (domain.Item, error) {
	bare := domain.Item{ID: rec.ItemID, Category: rec.ItemCategory}
	if a.catalog == nil {
		return bare, nil
	}
	item, err := a.catalog.GetItem(ctx, rec.ItemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("failed to look up item %q: %w", rec.ItemID, err)
	}
	if item == nil {
		return bare, nil
	}
	return *item, nil
}

func (a *Aggregator) shuffle(items []SessionItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

func categorySet(categories []domain.ItemCategory) (func(domain.ItemCategory) bool, error) {
	if len(categories) == 0 {
		return func(domain.ItemCategory) bool { return true }, nil
	}
	set := make(map[domain.ItemCategory]struct{}, len(categories))
	for _, c := range categories {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %w: %q", domain.ErrValidation, domain.ErrInvalidCategory, c)
		}
		set[c] = struct{}{}
	}
	return func(c domain.ItemCategory) bool {
		_, ok := set[c]
		return ok
	}, nil
}

func sortByDue(records []domain.ReviewRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].NextReviewAt.Equal(records[j].NextReviewAt) {
			return records[i].NextReviewAt.Before(records[j].NextReviewAt)
		}
		return records[i].ItemID < records[j].ItemID
	})
}
