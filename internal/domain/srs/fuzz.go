package srs

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

type fuzzBand struct {
	start, end float64
	factor     float64
}

// Bands widen the jitter window as the interval grows, but by a shrinking
// share of it.
var fuzzBands = []fuzzBand{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

// fuzzDelta computes the half-width of the jitter window for an interval.
// delta = 1.0 + Σ(factor * max(min(interval, end) - start, 0))
func fuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, b := range fuzzBands {
		delta += b.factor * math.Max(math.Min(interval, b.end)-b.start, 0)
	}
	return delta
}

// fuzzer draws jittered day counts. rand.Rand is not safe for concurrent
// use, so draws are serialized.
type fuzzer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newFuzzer(src rand.Source) *fuzzer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &fuzzer{rng: rand.New(src)}
}

// fuzzDays returns a day count near interval. Intervals shorter than three
// days are returned unchanged; the result never exceeds maxDays when that
// is positive.
func (f *fuzzer) fuzzDays(interval, maxDays int) int {
	if float64(interval) < 2.5 {
		return interval
	}
	if maxDays <= 0 {
		maxDays = math.MaxInt32
	}

	ivl := float64(interval)
	delta := fuzzDelta(ivl)

	upper := min(int(math.Round(ivl+delta)), maxDays)
	lower := min(max(2, int(math.Round(ivl-delta))), upper)

	f.mu.Lock()
	r := f.rng.Float64()
	f.mu.Unlock()

	fuzzed := int(r*float64(upper-lower+1)) + lower
	return min(fuzzed, upper)
}

// fuzzNextReview moves the due date of an already scheduled interval by a
// few days. The stored interval is left untouched.
func (f *fuzzer) fuzzNextReview(interval, maxDays int, now time.Time) time.Time {
	return calculateNextReviewDate(f.fuzzDays(interval, maxDays), now)
}
