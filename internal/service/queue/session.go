package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/verbdrill/internal/domain"
)

// Mode selects which items a session draws from.
type Mode string

const (
	// ModeMixed draws from due records and unseen items.
	ModeMixed Mode = "mixed"
	// ModeReview draws from due records only.
	ModeReview Mode = "review"
	// ModeNew draws from unseen items only.
	ModeNew Mode = "new"
)

// ParseMode converts s into a Mode. The empty string selects ModeMixed.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMixed, nil
	case ModeMixed, ModeReview, ModeNew:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown session mode %q", domain.ErrValidation, s)
	}
}

// SessionRequest describes the session a caller wants.
type SessionRequest struct {
	Now time.Time
	// Categories restricts the session; empty means every category.
	Categories []domain.ItemCategory
	// Limit is the maximum number of items; zero selects the default size.
	Limit int
	Mode  Mode
}

// SessionItem is one entry of a session. Record is nil for items that have
// never been reviewed.
type SessionItem struct {
	Item   domain.Item          `json:"item"`
	Record *domain.ReviewRecord `json:"record,omitempty"`
}

// Session is a bounded, shuffled set of items for one learning pass.
type Session struct {
	ID    uuid.UUID     `json:"id"`
	Mode  Mode          `json:"mode"`
	Items []SessionItem `json:"items"`
}
