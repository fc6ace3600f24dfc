package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/verbdrill/internal/api/middleware"
	"github.com/phrazzld/verbdrill/internal/identity"
)

// RouterConfig carries the dependencies of NewRouter.
type RouterConfig struct {
	Handler  *Handler
	Resolver identity.Resolver
	Logger   *slog.Logger
	// RequestTimeout bounds every request; zero disables the limit.
	RequestTimeout time.Duration
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewTraceMiddleware(cfg.Logger))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	h := cfg.Handler
	identityMiddleware := middleware.NewIdentityMiddleware(cfg.Resolver)

	r.Route("/v1", func(r chi.Router) {
		r.Use(identityMiddleware.Resolve)

		r.Post("/items/{itemID}/reviews", h.SubmitReview)
		r.Post("/items/{itemID}/mastered", h.MarkMastered)
		r.Get("/items/{itemID}/progress", h.GetProgress)
		r.Delete("/items/{itemID}/progress", h.ResetProgress)

		r.Get("/reviews/due", h.DueReviews)
		r.Get("/stats", h.Stats)
		r.Get("/session", h.Session)
		r.Post("/import", h.Import)
	})

	r.Get("/healthz", h.Health)

	return r
}
