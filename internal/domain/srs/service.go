package srs

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// Service defines the interface for scheduler operations. Implementations are
// pure: they perform no I/O and never retain the records they are given.
type Service interface {
	// CalculateNextReview computes the record state after a review of the given quality
	CalculateNextReview(
		rec *domain.ReviewRecord,
		quality domain.ReviewOutcome,
		now time.Time,
	) (*domain.ReviewRecord, error)

	// MarkAsMastered applies the "I already know this" override. rec may be
	// nil when the item has never been reviewed.
	MarkAsMastered(
		rec *domain.ReviewRecord,
		itemID string,
		category domain.ItemCategory,
		now time.Time,
	) (*domain.ReviewRecord, error)

	// NewRecord returns the implicit state of an unreviewed item
	NewRecord(itemID string, category domain.ItemCategory) domain.ReviewRecord

	// Params returns a copy of the active parameters
	Params() Params
}

// Option configures a service created by NewServiceWithParams.
type Option func(*defaultService)

// WithRandSource sets the random source used for fuzzing.
func WithRandSource(src rand.Source) Option {
	return func(s *defaultService) {
		s.fuzz = newFuzzer(src)
	}
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
	fuzz   *fuzzer
}

// NewDefaultService creates a new scheduler with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
		fuzz:   newFuzzer(nil),
	}
}

// NewServiceWithParams creates a new scheduler with custom parameters
func NewServiceWithParams(params *Params, opts ...Option) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	p := *params
	s := &defaultService{params: &p}
	for _, opt := range opts {
		opt(s)
	}
	if s.fuzz == nil {
		s.fuzz = newFuzzer(nil)
	}
	return s, nil
}

// CalculateNextReview implements the Service interface
func (s *defaultService) CalculateNextReview(
	rec *domain.ReviewRecord,
	quality domain.ReviewOutcome,
	now time.Time,
) (*domain.ReviewRecord, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	if !quality.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	next := calculateNextRecord(*rec, quality, now, s.params)
	if s.params.FuzzEnabled {
		next.NextReviewAt = s.fuzz.fuzzNextReview(next.IntervalDays, s.params.MaxIntervalDays, now)
	}
	return &next, nil
}

// MarkAsMastered implements the Service interface
func (s *defaultService) MarkAsMastered(
	rec *domain.ReviewRecord,
	itemID string,
	category domain.ItemCategory,
	now time.Time,
) (*domain.ReviewRecord, error) {
	base := s.NewRecord(itemID, category)
	if rec != nil {
		base = *rec
	}
	if base.ItemID == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyItemID)
	}

	next := calculateKnownRecord(base, now, s.params)
	return &next, nil
}

// NewRecord implements the Service interface
func (s *defaultService) NewRecord(itemID string, category domain.ItemCategory) domain.ReviewRecord {
	rec := domain.NewReviewRecord(itemID, category)
	rec.EaseFactor = s.params.InitialEaseFactor
	rec.IntervalDays = s.params.FirstIntervalDays
	return rec
}

// Params implements the Service interface
func (s *defaultService) Params() Params {
	return *s.params
}
