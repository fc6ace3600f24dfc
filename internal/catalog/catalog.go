// Package catalog provides the read-only content catalog the queue draws
// unseen items from. Catalogs load from YAML, from Excel workbooks, or from
// the default catalog compiled into the binary.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// ErrDuplicateItem is returned when two catalog entries share an ID.
var ErrDuplicateItem = errors.New("duplicate catalog item")

// Catalog lists learnable items.
type Catalog interface {
	// ListItems returns the items of category, or every item when category
	// is empty. Items keep catalog order.
	ListItems(ctx context.Context, category domain.ItemCategory) ([]domain.Item, error)

	// GetItem returns the item with id, or nil when the catalog has no
	// such item.
	GetItem(ctx context.Context, id string) (*domain.Item, error)
}

// Static is an immutable in-memory Catalog.
type Static struct {
	items []domain.Item
	byID  map[string]int
}

var _ Catalog = (*Static)(nil)

// NewStatic builds a catalog from items. Every item must be valid and IDs
// must be unique across categories.
func NewStatic(items []domain.Item) (*Static, error) {
	s := &Static{
		items: make([]domain.Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("catalog item %d: %w", i, err)
		}
		if _, exists := s.byID[item.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateItem, item.ID)
		}
		s.byID[item.ID] = len(s.items)
		s.items = append(s.items, cloneItem(item))
	}
	return s, nil
}

// Len returns the number of items in the catalog.
func (s *Static) Len() int {
	return len(s.items)
}

// ListItems implements Catalog.ListItems.
func (s *Static) ListItems(ctx context.Context, category domain.ItemCategory) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: %w: %q", domain.ErrValidation, domain.ErrInvalidCategory, category)
	}

	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if category == "" || item.Category == category {
			out = append(out, cloneItem(item))
		}
	}
	return out, nil
}

// GetItem implements Catalog.GetItem.
func (s *Static) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	item := cloneItem(s.items[idx])
	return &item, nil
}

func cloneItem(item domain.Item) domain.Item {
	if item.Fields == nil {
		return item
	}
	fields := make(map[string]string, len(item.Fields))
	for k, v := range item.Fields {
		fields[k] = v
	}
	item.Fields = fields
	return item
}
