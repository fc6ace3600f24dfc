package srs

import (
	"errors"
	"testing"

	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultParams(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	assert.Equal(t, 1.3, params.MinEaseFactor)
	assert.Equal(t, 2.5, params.InitialEaseFactor)
	assert.Equal(t, 1, params.FirstIntervalDays)
	assert.Equal(t, 6, params.SecondIntervalDays)
	assert.Equal(t, 5, params.MasteryMinCorrect)
	assert.Equal(t, 7, params.MasteryMinIntervalDays)
	assert.Equal(t, 30, params.KnownIntervalDays)
	assert.Equal(t, 5, params.KnownCorrectCount)
	assert.Zero(t, params.MaxIntervalDays)
	assert.False(t, params.FuzzEnabled)
	require.NoError(t, params.Validate())
}

func TestNewParams(t *testing.T) {
	t.Parallel()

	params := NewParams(ParamsConfig{
		MasteryMinCorrect:      3,
		MasteryMinIntervalDays: 14,
		MaxIntervalDays:        365,
		FuzzEnabled:            true,
	})

	assert.Equal(t, 3, params.MasteryMinCorrect)
	assert.Equal(t, 14, params.MasteryMinIntervalDays)
	assert.Equal(t, 365, params.MaxIntervalDays)
	assert.True(t, params.FuzzEnabled)

	// Untouched fields keep their defaults
	assert.Equal(t, 1.3, params.MinEaseFactor)
	assert.Equal(t, 30, params.KnownIntervalDays)
	require.NoError(t, params.Validate())
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(*Params)
	}{
		{name: "non-positive min ease", mutate: func(p *Params) { p.MinEaseFactor = 0 }},
		{name: "initial ease below floor", mutate: func(p *Params) { p.InitialEaseFactor = 1.0 }},
		{name: "zero first interval", mutate: func(p *Params) { p.FirstIntervalDays = 0 }},
		{name: "second interval shorter than first", mutate: func(p *Params) { p.SecondIntervalDays = 0 }},
		{name: "zero mastery correct", mutate: func(p *Params) { p.MasteryMinCorrect = 0 }},
		{name: "negative max interval", mutate: func(p *Params) { p.MaxIntervalDays = -1 }},
		{name: "cap below known interval", mutate: func(p *Params) { p.MaxIntervalDays = 10 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			params := NewDefaultParams()
			tc.mutate(params)

			err := params.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParams))
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}
