package srs

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/verbdrill/internal/domain"
)

// Params defines all configurable parameters for the SM-2 scheduler
type Params struct {
	// Core limits
	MinEaseFactor     float64 `validate:"gt=0"`
	InitialEaseFactor float64 `validate:"gtefield=MinEaseFactor"`

	// Fixed intervals for the first two successful reviews
	FirstIntervalDays  int `validate:"gte=1"`
	SecondIntervalDays int `validate:"gtefield=FirstIntervalDays"`

	// Mastery policy: a record is mastered once both thresholds are met
	MasteryMinCorrect      int `validate:"gte=1"`
	MasteryMinIntervalDays int `validate:"gte=1"`

	// Values applied by the mark-as-mastered override
	KnownIntervalDays int `validate:"gte=1"`
	KnownCorrectCount int `validate:"gte=0"`

	// MaxIntervalDays caps interval growth; 0 means uncapped
	MaxIntervalDays int `validate:"gte=0"`

	// FuzzEnabled jitters the next review date of longer intervals
	FuzzEnabled bool
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	MinEaseFactor          float64
	InitialEaseFactor      float64
	MasteryMinCorrect      int
	MasteryMinIntervalDays int
	KnownIntervalDays      int
	KnownCorrectCount      int
	MaxIntervalDays        int
	FuzzEnabled            bool
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:     domain.MinEaseFactor,
		InitialEaseFactor: domain.DefaultEaseFactor,

		FirstIntervalDays:  1,
		SecondIntervalDays: 6,

		MasteryMinCorrect:      5,
		MasteryMinIntervalDays: 7,

		KnownIntervalDays: 30,
		KnownCorrectCount: 5,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	if config.MasteryMinCorrect > 0 {
		params.MasteryMinCorrect = config.MasteryMinCorrect
	}
	if config.MasteryMinIntervalDays > 0 {
		params.MasteryMinIntervalDays = config.MasteryMinIntervalDays
	}
	if config.KnownIntervalDays > 0 {
		params.KnownIntervalDays = config.KnownIntervalDays
	}
	if config.KnownCorrectCount > 0 {
		params.KnownCorrectCount = config.KnownCorrectCount
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}
	params.FuzzEnabled = config.FuzzEnabled

	return params
}

var paramsValidator = validator.New()

// Validate checks that the parameters describe a usable scheduler.
func (p *Params) Validate() error {
	if err := paramsValidator.Struct(p); err != nil {
		return fmt.Errorf("%w: %w: %v", domain.ErrValidation, ErrInvalidParams, err)
	}
	if p.MaxIntervalDays > 0 && p.MaxIntervalDays < p.KnownIntervalDays {
		return fmt.Errorf("%w: %w: max interval %d below known interval %d",
			domain.ErrValidation, ErrInvalidParams, p.MaxIntervalDays, p.KnownIntervalDays)
	}
	return nil
}
