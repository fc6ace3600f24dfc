package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/verbdrill/internal/api/shared"
	"github.com/phrazzld/verbdrill/internal/domain"
	"github.com/phrazzld/verbdrill/internal/identity"
	"github.com/phrazzld/verbdrill/internal/platform/logger"
	"github.com/phrazzld/verbdrill/internal/service/queue"
	"github.com/phrazzld/verbdrill/internal/service/review"
	"github.com/phrazzld/verbdrill/internal/store"
)

// Handler serves the progress endpoints. The caller's namespace comes from
// the identity stored in the request context.
type Handler struct {
	review review.Service
	queue  *queue.Aggregator
	pinger store.Pinger
	now    func() time.Time
	logger *slog.Logger
}

// NewHandler creates a new Handler. pinger may be nil for stores without a
// remote backend.
func NewHandler(
	reviewService review.Service,
	aggregator *queue.Aggregator,
	pinger store.Pinger,
	logger *slog.Logger,
) *Handler {
	if reviewService == nil || aggregator == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("review service and aggregator are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		review: reviewService,
		queue:  aggregator,
		pinger: pinger,
		now:    time.Now,
		logger: logger.With(slog.String("component", "progress_handler")),
	}
}

func namespaceOf(r *http.Request) string {
	return identity.FromContext(r.Context()).Namespace
}

// SubmitReview handles POST /v1/items/{itemID}/reviews.
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	rec, err := h.review.SubmitReview(r.Context(), namespaceOf(r), chi.URLParam(r, "itemID"),
		domain.ItemCategory(req.Category), domain.ReviewOutcome(*req.Quality))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// MarkMastered handles POST /v1/items/{itemID}/mastered. An empty body is
// accepted when the catalog knows the item.
func (h *Handler) MarkMastered(w http.ResponseWriter, r *http.Request) {
	var req MarkMasteredRequest
	if r.ContentLength != 0 {
		if err := shared.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
			return
		}
	}
	if err := shared.ValidateRequest(&req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	rec, err := h.review.MarkAsMastered(r.Context(), namespaceOf(r), chi.URLParam(r, "itemID"),
		domain.ItemCategory(req.Category))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// ResetProgress handles DELETE /v1/items/{itemID}/progress.
func (h *Handler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	if err := h.review.Reset(r.Context(), namespaceOf(r), chi.URLParam(r, "itemID")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProgress handles GET /v1/items/{itemID}/progress. Items never reviewed
// are answered with their implicit New record rather than 404.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := h.review.Get(r.Context(), namespaceOf(r), chi.URLParam(r, "itemID"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// DueReviews handles GET /v1/reviews/due.
func (h *Handler) DueReviews(w http.ResponseWriter, r *http.Request) {
	due, err := h.queue.DueForReview(r.Context(), namespaceOf(r), h.now().UTC())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DueResponse{Items: due})
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Statistics(r.Context(), namespaceOf(r), h.now().UTC())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// Session handles GET /v1/session?limit=&category=&mode=. category may be
// repeated or comma separated.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	q := r.URL.Query()

	req := queue.SessionRequest{Now: h.now().UTC()}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit: must be a non-negative integer")
			return
		}
		req.Limit = limit
	}

	mode, err := queue.ParseMode(q.Get("mode"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid mode: expected mixed, review or new")
		return
	}
	req.Mode = mode

	for _, value := range q["category"] {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			cat, err := domain.ParseCategory(part)
			if err != nil {
				respondWithServiceError(w, r, err)
				return
			}
			req.Categories = append(req.Categories, cat)
		}
	}

	session, err := h.queue.BuildSession(r.Context(), namespaceOf(r), req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	log.Debug("session served",
		slog.String("session_id", session.ID.String()),
		slog.Int("items", len(session.Items)))
	shared.RespondWithJSON(w, r, http.StatusOK, session)
}

// Import handles POST /v1/import with a canonical or legacy progress
// document as the body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := shared.ReadBody(w, r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := h.review.Import(r.Context(), namespaceOf(r), data)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
}
