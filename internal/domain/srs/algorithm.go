package srs

import (
	"math"
	"time"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// calculateNewEaseFactor applies the SM-2 ease update for a review of quality q.
//
// The adjustment is 0.1 - (5-q)*(0.08 + (5-q)*0.02): +0.10 for a perfect
// answer, 0 for quality 4, and increasingly negative below that. The result
// never drops below params.MinEaseFactor. There is no ceiling, so ease keeps
// growing for items that are always answered perfectly.
func calculateNewEaseFactor(currentEF float64, q domain.ReviewOutcome, params *Params) float64 {
	miss := float64(domain.OutcomePerfect - q)
	newEF := currentEF + (0.1 - miss*(0.08+miss*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	return newEF
}

// calculateNewInterval determines the interval in days until the next review.
//
// Parameters:
//   - currentInterval: the interval produced by the previous review
//   - repetitions: consecutive successful reviews before this one
//   - easeFactor: the ease factor before this review updates it
//   - q: the review quality
//   - params: scheduler configuration
//
// Algorithm behavior:
//   - Failure (q < 3) always restarts at params.FirstIntervalDays
//   - First success uses params.FirstIntervalDays
//   - Second success uses params.SecondIntervalDays
//   - Later successes grow to round(currentInterval * easeFactor)
//   - The result is capped at params.MaxIntervalDays when that is set
func calculateNewInterval(
	currentInterval int,
	repetitions int,
	easeFactor float64,
	q domain.ReviewOutcome,
	params *Params,
) int {
	var interval int
	switch {
	case !q.IsSuccess():
		interval = params.FirstIntervalDays
	case repetitions == 0:
		interval = params.FirstIntervalDays
	case repetitions == 1:
		interval = params.SecondIntervalDays
	default:
		interval = int(math.Round(float64(currentInterval) * easeFactor))
	}

	if interval < 1 {
		interval = 1
	}
	if params.MaxIntervalDays > 0 && interval > params.MaxIntervalDays {
		interval = params.MaxIntervalDays
	}
	return interval
}

// calculateNextReviewDate converts an interval into the next due time.
// Calendar days are added, so the wall clock time of day is preserved.
func calculateNextReviewDate(interval int, now time.Time) time.Time {
	return now.AddDate(0, 0, interval)
}

// deriveStatus applies the mastery policy to a freshly scheduled record.
func deriveStatus(correctCount, intervalDays int, params *Params) domain.Status {
	if correctCount >= params.MasteryMinCorrect && intervalDays >= params.MasteryMinIntervalDays {
		return domain.StatusMastered
	}
	return domain.StatusLearning
}

// calculateNextRecord returns the state of rec after a review of quality q at now.
//
// The input record is never modified; a new value is returned. The growth step
// uses the ease factor from before this review, as SM-2 prescribes, and the
// status is derived again on every review so a failed mastered item drops
// back to learning.
func calculateNextRecord(
	rec domain.ReviewRecord,
	q domain.ReviewOutcome,
	now time.Time,
	params *Params,
) domain.ReviewRecord {
	next := rec

	next.IntervalDays = calculateNewInterval(rec.IntervalDays, rec.Repetitions, rec.EaseFactor, q, params)
	next.EaseFactor = calculateNewEaseFactor(rec.EaseFactor, q, params)

	if q.IsSuccess() {
		next.Repetitions++
		next.CorrectCount++
	} else {
		next.Repetitions = 0
		next.IncorrectCount++
	}

	next.LastReviewedAt = now
	next.NextReviewAt = calculateNextReviewDate(next.IntervalDays, now)
	next.Status = deriveStatus(next.CorrectCount, next.IntervalDays, params)

	return next
}

// calculateKnownRecord applies the mark-as-mastered override. Ease and
// repetitions carry over from rec; counters and interval are forced.
func calculateKnownRecord(rec domain.ReviewRecord, now time.Time, params *Params) domain.ReviewRecord {
	next := rec

	next.Status = domain.StatusMastered
	next.IntervalDays = params.KnownIntervalDays
	next.CorrectCount = max(rec.CorrectCount, params.KnownCorrectCount)
	next.IncorrectCount = 0
	next.LastReviewedAt = now
	next.NextReviewAt = calculateNextReviewDate(params.KnownIntervalDays, now)

	return next
}
