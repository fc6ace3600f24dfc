package review

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/phrazzld/verbdrill/internal/catalog"
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/domain/srs"
	"github.com/phrazzld/verbdrill/internal/events"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
	"github.com/phrazzld/verbdrill/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*reviewServiceImpl)(nil)

type reviewServiceImpl struct {
	store   store.RecordStore
	srs     srs.Service
	catalog catalog.Catalog
	emitter events.EventEmitter
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the service.
type Option func(*reviewServiceImpl)

// WithCatalog makes the service check item IDs and categories against c.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *reviewServiceImpl) { s.catalog = c }
}

// WithEmitter publishes progress events to e.
func WithEmitter(e events.EventEmitter) Option {
	return func(s *reviewServiceImpl) { s.emitter = e }
}

// WithClock overrides the clock used to timestamp reviews.
func WithClock(now func() time.Time) Option {
	return func(s *reviewServiceImpl) { s.now = now }
}

// NewService creates a review Service.
func NewService(
	recordStore store.RecordStore,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...Option,
) Service {
	if recordStore == nil {
		panic("recordStore cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &reviewServiceImpl{
		store:   recordStore,
		srs:     srsService,
		emitter: events.Discard,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "review_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitReview implements Service.SubmitReview.
func (s *reviewServiceImpl) SubmitReview(
	ctx context.Context,
	namespace, itemID string,
	category domain.ItemCategory,
	quality domain.ReviewOutcome,
) (*domain.ReviewRecord, error) {
	const op = "submit_review"
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !quality.Valid() {
		log.Warn("invalid review quality",
			slog.String("item_id", itemID),
			slog.Int("quality", int(quality)))
		return nil, NewServiceError(op, "invalid quality",
			fmt.Errorf("%w: got %d", srs.ErrInvalidQuality, quality))
	}

	records, category, err := s.prepare(ctx, namespace, itemID, category)
	if err != nil {
		return nil, NewServiceError(op, "invalid request", err)
	}

	now := s.now().UTC()
	updated, err := records.Update(ctx, itemID, func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
		base := s.srs.NewRecord(itemID, category)
		if cur != nil {
			if cur.ItemCategory != category {
				return nil, fmt.Errorf("%w: stored %q, got %q", ErrCategoryMismatch, cur.ItemCategory, category)
			}
			base = *cur
		}
		return s.srs.CalculateNextReview(&base, quality, now)
	})
	if err != nil {
		log.Error("failed to record review",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID))
		return nil, NewServiceError(op, "failed to record review", err)
	}

	log.Debug("review recorded",
		slog.String("item_id", itemID),
		slog.Int("quality", int(quality)),
		slog.String("status", string(updated.Status)),
		slog.Int("interval_days", updated.IntervalDays))

	s.emit(ctx, events.TypeReviewSubmitted, namespace, itemID, reviewPayload{
		Quality:      int(quality),
		Status:       updated.Status,
		IntervalDays: updated.IntervalDays,
		NextReviewAt: updated.NextReviewAt,
	}, now)
	return updated, nil
}

// MarkAsMastered implements Service.MarkAsMastered.
func (s *reviewServiceImpl) MarkAsMastered(
	ctx context.Context,
	namespace, itemID string,
	category domain.ItemCategory,
) (*domain.ReviewRecord, error) {
	const op = "mark_mastered"
	log := logger.FromContextOrDefault(ctx, s.logger)

	records, category, err := s.prepare(ctx, namespace, itemID, category)
	if err != nil {
		return nil, NewServiceError(op, "invalid request", err)
	}

	now := s.now().UTC()
	updated, err := records.Update(ctx, itemID, func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
		if cur != nil && cur.ItemCategory != category {
			return nil, fmt.Errorf("%w: stored %q, got %q", ErrCategoryMismatch, cur.ItemCategory, category)
		}
		return s.srs.MarkAsMastered(cur, itemID, category, now)
	})
	if err != nil {
		log.Error("failed to mark item as mastered",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID))
		return nil, NewServiceError(op, "failed to mark item as mastered", err)
	}

	s.emit(ctx, events.TypeItemMastered, namespace, itemID, nil, now)
	return updated, nil
}

// Reset implements Service.Reset.
func (s *reviewServiceImpl) Reset(ctx context.Context, namespace, itemID string) error {
	const op = "reset"

	records, err := s.scoped(namespace)
	if err != nil {
		return NewServiceError(op, "invalid namespace", err)
	}
	if itemID == "" {
		return NewServiceError(op, "invalid request",
			fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyItemID))
	}

	if err := records.Delete(ctx, itemID); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to reset progress",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID))
		return NewServiceError(op, "failed to reset progress", err)
	}

	s.emit(ctx, events.TypeProgressReset, namespace, itemID, nil, s.now().UTC())
	return nil
}

// Get implements Service.Get.
func (s *reviewServiceImpl) Get(ctx context.Context, namespace, itemID string) (*domain.ReviewRecord, error) {
	const op = "get"

	records, err := s.scoped(namespace)
	if err != nil {
		return nil, NewServiceError(op, "invalid namespace", err)
	}
	if itemID == "" {
		return nil, NewServiceError(op, "invalid request",
			fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyItemID))
	}

	rec, err := records.Get(ctx, itemID)
	if err != nil {
		return nil, NewServiceError(op, "failed to load record", err)
	}
	if rec != nil {
		return rec, nil
	}

	var category domain.ItemCategory
	if s.catalog != nil {
		item, err := s.catalog.GetItem(ctx, itemID)
		if err != nil {
			return nil, NewServiceError(op, "failed to look up item", err)
		}
		if item != nil {
			category = item.Category
		}
	}
	fresh := s.srs.NewRecord(itemID, category)
	return &fresh, nil
}

// Import implements Service.Import.
func (s *reviewServiceImpl) Import(ctx context.Context, namespace string, data []byte) (*ImportResult, error) {
	const op = "import"
	log := logger.FromContextOrDefault(ctx, s.logger)

	records, err := s.scoped(namespace)
	if err != nil {
		return nil, NewServiceError(op, "invalid namespace", err)
	}

	set, err := domain.DecodeRecordSet(data)
	if err != nil {
		return nil, NewServiceError(op, "invalid progress document", err)
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// The whole document is checked against the catalog before anything is
	// written.
	for _, id := range ids {
		if _, err := s.resolveCategory(ctx, id, set[id].ItemCategory); err != nil {
			return nil, NewServiceError(op, fmt.Sprintf("record %q rejected", id), err)
		}
	}

	result := &ImportResult{}
	for _, id := range ids {
		incoming := set[id]
		written := false
		_, err := records.Update(ctx, id, func(cur *domain.ReviewRecord) (*domain.ReviewRecord, error) {
			written = false
			if cur != nil && cur.ItemCategory != incoming.ItemCategory {
				return nil, fmt.Errorf("%w: stored %q, got %q", ErrCategoryMismatch, cur.ItemCategory, incoming.ItemCategory)
			}
			if cur != nil && cur.LastReviewedAt.After(incoming.LastReviewedAt) {
				return nil, nil
			}
			written = true
			rec := incoming
			return &rec, nil
		})
		if err != nil {
			log.Error("import aborted",
				slog.String("error", err.Error()),
				slog.String("item_id", id),
				slog.Int("imported", result.Imported))
			return result, NewServiceError(op, fmt.Sprintf("failed to import record %q", id), err)
		}
		if written {
			result.Imported++
		} else {
			result.Skipped++
		}
	}

	log.Info("progress imported",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped))
	s.emit(ctx, events.TypeRecordsImported, namespace, "", result, s.now().UTC())
	return result, nil
}

// prepare scopes the store to namespace and resolves the item category.
func (s *reviewServiceImpl) prepare(
	ctx context.Context,
	namespace, itemID string,
	category domain.ItemCategory,
) (store.RecordStore, domain.ItemCategory, error) {
	records, err := s.scoped(namespace)
	if err != nil {
		return nil, "", err
	}
	if itemID == "" {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyItemID)
	}

	resolved, err := s.resolveCategory(ctx, itemID, category)
	if err != nil {
		return nil, "", err
	}
	return records, resolved, nil
}

// resolveCategory checks itemID against the catalog, when one is set, and
// returns its category. An empty category defers to the catalog.
func (s *reviewServiceImpl) resolveCategory(
	ctx context.Context,
	itemID string,
	category domain.ItemCategory,
) (domain.ItemCategory, error) {
	if s.catalog == nil {
		if !category.Valid() {
			return "", fmt.Errorf("%w: %w: %q", domain.ErrValidation, domain.ErrInvalidCategory, category)
		}
		return category, nil
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}
	if category != "" && category != item.Category {
		return "", fmt.Errorf("%w: item %q is %q", ErrCategoryMismatch, itemID, item.Category)
	}
	return item.Category, nil
}

func (s *reviewServiceImpl) scoped(namespace string) (store.RecordStore, error) {
	if err := store.ValidateNamespace(namespace); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return s.store.WithNamespace(namespace), nil
}

type reviewPayload struct {
	Quality      int           `json:"quality"`
	Status       domain.Status `json:"status"`
	IntervalDays int           `json:"intervalDays"`
	NextReviewAt time.Time     `json:"nextReviewAt"`
}

// emit publishes an event after a committed write. Handler failures are
// logged and never undo the write.
func (s *reviewServiceImpl) emit(
	ctx context.Context,
	eventType, namespace, itemID string,
	payload interface{},
	at time.Time,
) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(eventType, namespace, itemID, payload, at)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
