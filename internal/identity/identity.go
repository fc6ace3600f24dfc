// Package identity resolves the caller of an HTTP request into a storage
// namespace. Anonymous callers share the empty namespace; authenticated
// callers get a namespace derived from their token subject.
package identity

import (
	"context"
	"encoding/hex"
	"net/http"

	"golang.org/x/crypto/blake2b"
)

// Identity is the resolved caller of a request.
type Identity struct {
	// Subject is the token subject, empty for anonymous callers.
	Subject string
	// Namespace partitions the record store.
	Namespace string
}

// Anonymous reports whether the identity carries no subject.
func (i Identity) Anonymous() bool {
	return i.Subject == ""
}

// Resolver extracts the caller identity from a request.
type Resolver interface {
	Resolve(r *http.Request) (Identity, error)
}

// AnonymousResolver resolves every request to the shared empty namespace.
type AnonymousResolver struct{}

var _ Resolver = AnonymousResolver{}

// Resolve implements Resolver.
func (AnonymousResolver) Resolve(*http.Request) (Identity, error) {
	return Identity{}, nil
}

// NamespaceFor digests subject into a fixed-length namespace so raw user
// identifiers never appear in storage keys.
func NamespaceFor(subject string) string {
	if subject == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx. Contexts without one
// resolve to the anonymous identity.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(contextKey{}).(Identity)
	return id
}
