package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"commune/internal/confirmation/models"
	"commune/internal/transport/http/shared"
	"commune/pkg/platform/middleware/request"
	"commune/pkg/requestcontext"
)

// Service resolves presented confirmation identifiers.
type Service interface {
	Confirm(ctx context.Context, id string, locale language.Tag) models.Result
}

// Handler serves the link target mailed to recipients. The endpoint is
// anonymous, so every outcome is a 200 with a displayable result.
type Handler struct {
	logger        *slog.Logger
	confirmations Service
	middleware    []func(http.Handler) http.Handler
}

// Option configures the Handler.
type Option func(*Handler)

// WithMiddleware adds route-level middleware, e.g. a rate limiter.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.middleware = append(h.middleware, mw...)
	}
}

// New creates a confirmation Handler.
func New(confirmations Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:        logger,
		confirmations: confirmations,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the confirmation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.middleware...).Get("/confirm", h.handleConfirm)
}

// handleConfirm resolves ?id= into a result rendered in the request locale.
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")

	result := h.confirmations.Confirm(ctx, id, requestcontext.Locale(ctx))
	if result.Type == models.ResultError {
		h.logger.InfoContext(ctx, "confirmation not completed",
			"request_id", request.GetRequestID(ctx),
			"has_id", id != "",
		)
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
