package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewRecordJSON_RoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 2, 1, 10, 0, 0, 123000000, time.UTC)
	rec := validRecord(now)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{
		"itemId", "itemCategory", "status", "correctCount", "incorrectCount",
		"intervalDays", "easeFactor", "repetitions", "lastReviewedAt", "nextReviewAt",
	} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "learning", fields["status"])
	assert.Equal(t, "2024-02-01T10:00:00.123Z", fields["lastReviewedAt"])

	got, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeRecord_Defaults(t *testing.T) {
	t.Parallel()

	got, err := DecodeRecord([]byte(`{
		"itemId": "run",
		"itemCategory": "irregular",
		"status": "learning",
		"correctCount": 1,
		"incorrectCount": 0,
		"lastReviewedAt": "2024-01-01T00:00:00Z",
		"nextReviewAt": "2024-01-02T00:00:00Z"
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2.5, got.EaseFactor)
	assert.Equal(t, 0, got.Repetitions)
	assert.Equal(t, 1, got.IntervalDays)
}

func TestDecodeRecord_LegacyLayout(t *testing.T) {
	t.Parallel()

	got, err := DecodeRecord([]byte(`{
		"verbId": "begin",
		"verbType": "irregular",
		"status": "new",
		"correctCount": 0,
		"incorrectCount": 1,
		"lastReviewed": "2024-03-05T14:22:10.511Z",
		"nextReview": "2024-03-06T14:22:10.511Z",
		"reviewInterval": 1,
		"easeFactor": 2.3
	}`))
	require.NoError(t, err)

	assert.Equal(t, "begin", got.ItemID)
	assert.Equal(t, CategoryIrregular, got.ItemCategory)
	assert.Equal(t, StatusLearning, got.Status, "attempted legacy records are learning")
	assert.Equal(t, 1, got.IntervalDays)
	assert.Equal(t, 2.3, got.EaseFactor)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 22, 10, 511000000, time.UTC), got.LastReviewedAt)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"itemId":"begin"`)
	assert.NotContains(t, string(data), "verbId")
}

func TestDecodeRecord_Invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "not json", input: `{"itemId":`, wantErr: ErrInvalidFormat},
		{name: "bad timestamp", input: `{"itemId":"go","itemCategory":"irregular","lastReviewedAt":"yesterday"}`, wantErr: ErrInvalidFormat},
		{name: "unknown status", input: `{"itemId":"go","itemCategory":"irregular","status":"known"}`, wantErr: ErrInvalidStatus},
		{name: "ease below floor", input: `{"itemId":"go","itemCategory":"irregular","easeFactor":1.1}`, wantErr: ErrValidation},
		{name: "missing category", input: `{"itemId":"go"}`, wantErr: ErrInvalidCategory},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeRecord([]byte(tc.input))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDecodeRecordSet(t *testing.T) {
	t.Parallel()

	t.Run("keyed object", func(t *testing.T) {
		t.Parallel()
		set, err := DecodeRecordSet([]byte(`{
			"go": {"verbType":"irregular","status":"learning","correctCount":1,"incorrectCount":0,
			       "lastReviewed":"2024-01-01T00:00:00Z","nextReview":"2024-01-02T00:00:00Z","reviewInterval":1},
			"look after": {"itemId":"look after","itemCategory":"phrasal","status":"mastered","correctCount":5,
			       "incorrectCount":0,"intervalDays":30,"lastReviewedAt":"2024-01-01T00:00:00Z",
			       "nextReviewAt":"2024-01-31T00:00:00Z"}
		}`))
		require.NoError(t, err)
		require.Len(t, set, 2)
		assert.Equal(t, "go", set["go"].ItemID, "id inherited from key")
		assert.Equal(t, StatusMastered, set["look after"].Status)
	})

	t.Run("array", func(t *testing.T) {
		t.Parallel()
		set, err := DecodeRecordSet([]byte(`[{"itemId":"know","itemCategory":"stative"}]`))
		require.NoError(t, err)
		assert.Equal(t, StatusNew, set["know"].Status)
	})

	t.Run("invalid member names the record", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeRecordSet([]byte(`{"go":{"verbType":"modal"}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"go"`)
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("scalar", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeRecordSet([]byte(`42`))
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
}
