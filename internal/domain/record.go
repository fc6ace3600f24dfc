package domain

import (
	"fmt"
	"time"
)

// Default SM-2 parameters for an item that has never been reviewed.
const (
	DefaultEaseFactor   = 2.5
	MinEaseFactor       = 1.3
	DefaultIntervalDays = 1
)

// Status is the mastery state of a review record.
type Status string

// Possible record statuses. The persisted spelling is part of the storage
// contract and must not change.
const (
	StatusNew      Status = "new"
	StatusLearning Status = "learning"
	StatusMastered Status = "mastered"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusLearning, StatusMastered:
		return true
	default:
		return false
	}
}

// ReviewRecord tracks one user's spaced repetition state for one catalog item.
// Records are values: stores hand out copies and callers never share them.
type ReviewRecord struct {
	ItemID         string       // Catalog identifier, immutable
	ItemCategory   ItemCategory // Catalog partition, immutable
	Status         Status       // Derived mastery state
	CorrectCount   int          // Reviews answered with quality >= 3
	IncorrectCount int          // Reviews answered with quality < 3
	IntervalDays   int          // Gap until the next review
	EaseFactor     float64      // Interval growth multiplier, >= 1.3
	Repetitions    int          // Consecutive successful reviews
	LastReviewedAt time.Time
	NextReviewAt   time.Time
}

// NewReviewRecord returns the implicit state of an item that has no record yet.
func NewReviewRecord(itemID string, category ItemCategory) ReviewRecord {
	return ReviewRecord{
		ItemID:       itemID,
		ItemCategory: category,
		Status:       StatusNew,
		IntervalDays: DefaultIntervalDays,
		EaseFactor:   DefaultEaseFactor,
	}
}

// Reviewed reports whether the record has been through at least one review
// or override.
func (r ReviewRecord) Reviewed() bool {
	return !r.LastReviewedAt.IsZero()
}

// Attempts returns the total number of completed reviews.
func (r ReviewRecord) Attempts() int {
	return r.CorrectCount + r.IncorrectCount
}

// IsDue reports whether the record must be shown again at now.
// Mastered records are retired from rotation and are never due.
func (r ReviewRecord) IsDue(now time.Time) bool {
	return r.Status != StatusMastered && !r.NextReviewAt.After(now)
}

// Validate checks the record invariants. Stores call it before every write
// and after every load so malformed records never reach the scheduler.
func (r ReviewRecord) Validate() error {
	if r.ItemID == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyItemID)
	}
	if !r.ItemCategory.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidCategory, r.ItemCategory)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidStatus, r.Status)
	}
	if r.CorrectCount < 0 || r.IncorrectCount < 0 {
		return fmt.Errorf("%w: review counters cannot be negative", ErrValidation)
	}
	if r.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions cannot be negative", ErrValidation)
	}
	if r.IntervalDays < 1 {
		return fmt.Errorf("%w: interval must be at least 1 day, got %d", ErrValidation, r.IntervalDays)
	}
	if r.EaseFactor < MinEaseFactor {
		return fmt.Errorf("%w: ease factor %.2f below floor %.2f", ErrValidation, r.EaseFactor, MinEaseFactor)
	}
	if r.Reviewed() && !r.NextReviewAt.After(r.LastReviewedAt) {
		return fmt.Errorf("%w: next review must be after last review", ErrValidation)
	}
	return nil
}
