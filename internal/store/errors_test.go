package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestIsUnavailableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "generic error", err: errors.New("some error"), expected: false},
		{name: "ErrStoreUnavailable", err: ErrStoreUnavailable, expected: true},
		{
			name:     "wrapped ErrStoreUnavailable",
			err:      fmt.Errorf("failed to load records: %w", ErrStoreUnavailable),
			expected: true,
		},
		{
			name:     "Unavailable helper",
			err:      Unavailable(EntityReviewRecord, "get", errors.New("dial tcp: connection refused")),
			expected: true,
		},
		{name: "conflict", err: ErrConflict, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsUnavailableError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	originalErr := errors.New("database connection failed")
	storeErr := NewStoreError(EntityReviewRecord, "put", "database error", originalErr)

	assert.Equal(t,
		"put operation on review_record failed: database error: database connection failed",
		storeErr.Error())
	assert.True(t, errors.Is(storeErr, originalErr))

	var target *StoreError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", storeErr), &target))
	assert.Equal(t, "put", target.Operation)

	bare := &StoreError{Entity: "review_record", Operation: "get", Message: "not decodable"}
	assert.Equal(t, "get operation on review_record failed: not decodable", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestInvalidRecord(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyItemID)
	err := InvalidRecord(EntityReviewRecord, "put", cause)

	assert.ErrorIs(t, err, ErrInvalidRecord)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrEmptyItemID)
	assert.False(t, IsUnavailableError(err))
}

func TestValidateNamespace(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateNamespace(""))
	assert.NoError(t, ValidateNamespace("3f2a9c"))
	assert.ErrorIs(t, ValidateNamespace("a:b"), ErrInvalidNamespace)
	assert.ErrorIs(t, ValidateNamespace("{tag}"), ErrInvalidNamespace)
}
