package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter dispatches events synchronously to the handlers
// registered with it, in registration order.
type InMemoryEventEmitter struct {
	mu            sync.RWMutex
	subscriptions []subscription
	logger        *slog.Logger
}

type subscription struct {
	handler EventHandler
	// types is nil for handlers that receive every event.
	types map[string]struct{}
}

func (s subscription) wants(eventType string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// NewInMemoryEventEmitter creates an emitter without handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes handler to the given event types, or to every
// event when no type is given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	sub := subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions = append(e.subscriptions, sub)
	e.logger.Debug("registered event handler",
		"handler_count", len(e.subscriptions),
		"event_types", types)
}

// EmitEvent delivers event to every subscribed handler. A failing handler
// does not stop delivery; the failures are joined into the returned error.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	subs := make([]subscription, len(e.subscriptions))
	copy(subs, e.subscriptions)
	e.mu.RUnlock()

	var errs []error
	delivered := 0
	for _, sub := range subs {
		if !sub.wants(event.Type) {
			continue
		}
		delivered++
		if err := sub.handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("event handler failed",
				"error", err,
				"event_id", event.ID,
				"event_type", event.Type)
			errs = append(errs, err)
		}
	}

	e.logger.Debug("event emitted",
		"event_id", event.ID,
		"event_type", event.Type,
		"delivered", delivered)
	return errors.Join(errs...)
}

// LogHandler writes every event to a logger at info level.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger.With("component", "event_log")}
}

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.logger.InfoContext(ctx, "progress event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("namespace", event.Namespace),
		slog.String("item_id", event.ItemID),
		slog.Time("occurred_at", event.OccurredAt))
	return nil
}
