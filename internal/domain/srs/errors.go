package srs

import (
	"errors"
	"fmt"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// Common errors
var (
	ErrNilRecord = errors.New("review record cannot be nil")

	// ErrInvalidQuality wraps domain.ErrValidation so API layers can map it
	// like any other validation failure.
	ErrInvalidQuality = fmt.Errorf("%w: quality must be between 0 and 5", domain.ErrValidation)

	ErrInvalidParams = errors.New("invalid scheduler parameters")
)
