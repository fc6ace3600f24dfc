package domain

import "fmt"

// Item is a learnable entry of the content catalog. Fields carries the
// display data (base form, particle, example sentence...), which the
// scheduling engine never interprets.
type Item struct {
	ID       string            `json:"id" yaml:"id"`
	Category ItemCategory      `json:"category" yaml:"category"`
	Fields   map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Validate checks that the item can be referenced by a review record.
func (i Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyItemID)
	}
	if !i.Category.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrInvalidCategory, i.Category)
	}
	return nil
}
