package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/verbdrill/internal/api/shared"
	"github.com/phrazzld/verbdrill/internal/identity"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
)

// IdentityMiddleware resolves the caller of every request and stores the
// identity in the request context.
type IdentityMiddleware struct {
	resolver identity.Resolver
}

// NewIdentityMiddleware creates a new IdentityMiddleware.
func NewIdentityMiddleware(resolver identity.Resolver) *IdentityMiddleware {
	if resolver == nil {
		resolver = identity.AnonymousResolver{}
	}
	return &IdentityMiddleware{resolver: resolver}
}

// Resolve rejects requests whose credentials are present but invalid and
// passes everything else on with the resolved identity.
func (m *IdentityMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.resolver.Resolve(r)
		if err != nil {
			switch {
			case identity.IsAuthError(err):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid or missing token", err)
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
			}
			return
		}

		ctx := identity.WithIdentity(r.Context(), id)
		if !id.Anonymous() {
			log := logger.FromContext(ctx).With(slog.Bool("authenticated", true))
			ctx = logger.WithLogger(ctx, log)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
