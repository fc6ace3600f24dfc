package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the review service and the reminder job.
const (
	TypeReviewSubmitted = "review.submitted"
	TypeItemMastered    = "item.mastered"
	TypeProgressReset   = "progress.reset"
	TypeRecordsImported = "records.imported"
	TypeReviewsDue      = "reviews.due"
)

// Event describes a change to a namespace's review progress.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Namespace is the record store partition the change happened in
	Namespace string `json:"namespace"`

	// ItemID is empty for events that span several items
	ItemID string `json:"itemId,omitempty"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// OccurredAt is the logical time of the change
	OccurredAt time.Time `json:"occurredAt"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event with a fresh ID. A nil payload leaves Payload
// empty.
func NewEvent(
	eventType, namespace, itemID string,
	payload interface{},
	at time.Time,
) (*Event, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Namespace:  namespace,
		ItemID:     itemID,
		Payload:    raw,
		OccurredAt: at,
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}

// Discard is an EventEmitter that drops every event.
var Discard EventEmitter = discard{}

type discard struct{}

func (discard) EmitEvent(context.Context, *Event) error { return nil }
