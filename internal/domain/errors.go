package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is usually wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when persisted data cannot be decoded.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrEmptyItemID is returned when a record or item has no identifier.
	ErrEmptyItemID = errors.New("item ID cannot be empty")

	// ErrInvalidCategory is returned when an item category is not one of
	// the known catalog partitions.
	ErrInvalidCategory = errors.New("invalid item category")

	// ErrInvalidStatus is returned when a record status is unknown.
	ErrInvalidStatus = errors.New("invalid record status")
)
