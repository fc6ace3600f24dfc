package api

import (
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/service/queue"
)

// SubmitReviewRequest is the payload of POST /v1/items/{itemID}/reviews.
type SubmitReviewRequest struct {
	// Category may be omitted when the catalog knows the item.
	Category string `json:"category" validate:"omitempty,oneof=irregular phrasal stative"`
	// Quality is the SM-2 grade, 0 (blackout) to 5 (perfect).
	Quality *int `json:"quality"  validate:"required,min=0,max=5"`
}

// MarkMasteredRequest is the payload of POST /v1/items/{itemID}/mastered.
type MarkMasteredRequest struct {
	Category string `json:"category" validate:"omitempty,oneof=irregular phrasal stative"`
}

// DueResponse lists the records due for review.
type DueResponse struct {
	Items []domain.ReviewRecord `json:"items"`
}

// SessionResponse is the body of GET /v1/session.
type SessionResponse = queue.Session

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}
