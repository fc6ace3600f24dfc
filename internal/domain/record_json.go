package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// recordJSON is the persisted layout of a ReviewRecord. Field names are a
// stable contract shared by every store backend and the import endpoint.
type recordJSON struct {
	ItemID         string  `json:"itemId"`
	ItemCategory   string  `json:"itemCategory"`
	Status         string  `json:"status"`
	CorrectCount   int     `json:"correctCount"`
	IncorrectCount int     `json:"incorrectCount"`
	IntervalDays   int     `json:"intervalDays"`
	EaseFactor     float64 `json:"easeFactor"`
	Repetitions    int     `json:"repetitions"`
	LastReviewedAt string  `json:"lastReviewedAt,omitempty"`
	NextReviewAt   string  `json:"nextReviewAt,omitempty"`
}

// recordDecodeJSON accepts the current layout as well as the legacy browser
// layout (verbId, verbType, lastReviewed, nextReview, reviewInterval).
// Optional fields are pointers so that absence can be told apart from zero.
type recordDecodeJSON struct {
	ItemID         string   `json:"itemId"`
	ItemCategory   string   `json:"itemCategory"`
	Status         string   `json:"status"`
	CorrectCount   *int     `json:"correctCount"`
	IncorrectCount *int     `json:"incorrectCount"`
	IntervalDays   *int     `json:"intervalDays"`
	EaseFactor     *float64 `json:"easeFactor"`
	Repetitions    *int     `json:"repetitions"`
	LastReviewedAt string   `json:"lastReviewedAt"`
	NextReviewAt   string   `json:"nextReviewAt"`

	VerbID         string `json:"verbId"`
	VerbType       string `json:"verbType"`
	LastReviewed   string `json:"lastReviewed"`
	NextReview     string `json:"nextReview"`
	ReviewInterval *int   `json:"reviewInterval"`
}

// MarshalJSON implements json.Marshaler using the persisted layout.
func (r ReviewRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ItemID:         r.ItemID,
		ItemCategory:   string(r.ItemCategory),
		Status:         string(r.Status),
		CorrectCount:   r.CorrectCount,
		IncorrectCount: r.IncorrectCount,
		IntervalDays:   r.IntervalDays,
		EaseFactor:     r.EaseFactor,
		Repetitions:    r.Repetitions,
		LastReviewedAt: formatTime(r.LastReviewedAt),
		NextReviewAt:   formatTime(r.NextReviewAt),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Missing optional fields take
// their defaults; it does not validate, see DecodeRecord.
func (r *ReviewRecord) UnmarshalJSON(data []byte) error {
	var raw recordDecodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	rec := ReviewRecord{
		ItemID:       firstNonEmpty(raw.ItemID, raw.VerbID),
		ItemCategory: ItemCategory(firstNonEmpty(raw.ItemCategory, raw.VerbType)),
		Status:       Status(raw.Status),
		IntervalDays: DefaultIntervalDays,
		EaseFactor:   DefaultEaseFactor,
	}
	if rec.Status == "" {
		rec.Status = StatusNew
	}
	if raw.CorrectCount != nil {
		rec.CorrectCount = *raw.CorrectCount
	}
	if raw.IncorrectCount != nil {
		rec.IncorrectCount = *raw.IncorrectCount
	}
	switch {
	case raw.IntervalDays != nil:
		rec.IntervalDays = *raw.IntervalDays
	case raw.ReviewInterval != nil:
		rec.IntervalDays = *raw.ReviewInterval
	}
	if raw.EaseFactor != nil {
		rec.EaseFactor = *raw.EaseFactor
	}
	if raw.Repetitions != nil {
		rec.Repetitions = *raw.Repetitions
	}

	var err error
	if rec.LastReviewedAt, err = parseTime(firstNonEmpty(raw.LastReviewedAt, raw.LastReviewed)); err != nil {
		return err
	}
	if rec.NextReviewAt, err = parseTime(firstNonEmpty(raw.NextReviewAt, raw.NextReview)); err != nil {
		return err
	}

	// The legacy tracker stored a failed first attempt as "new".
	if rec.Status == StatusNew && rec.Attempts() > 0 {
		rec.Status = StatusLearning
	}

	*r = rec
	return nil
}

// DecodeRecord decodes and validates a single persisted record.
func DecodeRecord(data []byte) (ReviewRecord, error) {
	var rec ReviewRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		if errors.Is(err, ErrInvalidFormat) {
			return ReviewRecord{}, err
		}
		return ReviewRecord{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := rec.Validate(); err != nil {
		return ReviewRecord{}, err
	}
	return rec, nil
}

// DecodeRecordSet decodes a full progress export. Both a JSON object keyed by
// item ID (the browser storage layout) and a JSON array of records are
// accepted. Records without an item ID inherit their map key.
func DecodeRecordSet(data []byte) (map[string]ReviewRecord, error) {
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(data, &keyed); err == nil {
		out := make(map[string]ReviewRecord, len(keyed))
		for key, raw := range keyed {
			var rec ReviewRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, fmt.Errorf("record %q: %w", key, err)
			}
			if rec.ItemID == "" {
				rec.ItemID = key
			}
			if err := rec.Validate(); err != nil {
				return nil, fmt.Errorf("record %q: %w", key, err)
			}
			out[rec.ItemID] = rec
		}
		return out, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: expected an object or array of records", ErrInvalidFormat)
	}
	out := make(map[string]ReviewRecord, len(list))
	for i, raw := range list {
		rec, err := DecodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[rec.ItemID] = rec
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", ErrInvalidFormat, s, err)
	}
	return t.UTC(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
