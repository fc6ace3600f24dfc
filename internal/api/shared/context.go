package shared

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the key type for request context values.
type ContextKey string

// TraceIDKey is the context key of the request trace ID.
const TraceIDKey ContextKey = "traceID"

// TraceIDHeader carries the trace ID on requests and responses.
const TraceIDHeader = "X-Trace-ID"

// NewTraceID returns 32 lowercase hex characters.
func NewTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// ValidTraceID reports whether s has the shape NewTraceID produces. Inbound
// IDs are only reused when they do, so clients cannot inject log content.
func ValidTraceID(s string) bool {
	if len(s) != 32 || strings.ToLower(s) != s {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// WithTraceID stores id in ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// GetTraceID returns the trace ID stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}
