package domain

import (
	"fmt"
	"strings"
)

// ItemCategory identifies the catalog partition an item belongs to.
type ItemCategory string

// Known catalog partitions.
const (
	CategoryIrregular ItemCategory = "irregular"
	CategoryPhrasal   ItemCategory = "phrasal"
	CategoryStative   ItemCategory = "stative"
)

// Categories lists every known category in a stable order.
func Categories() []ItemCategory {
	return []ItemCategory{CategoryIrregular, CategoryPhrasal, CategoryStative}
}

// Valid reports whether c is a known category.
func (c ItemCategory) Valid() bool {
	switch c {
	case CategoryIrregular, CategoryPhrasal, CategoryStative:
		return true
	default:
		return false
	}
}

// ParseCategory converts a string into an ItemCategory, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (ItemCategory, error) {
	c := ItemCategory(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidCategory, s)
	}
	return c, nil
}
