package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"commune/internal/community/models"
	"commune/internal/transport/http/shared"
	dErrors "commune/pkg/domain-errors"
	"commune/pkg/platform/middleware/request"
	"commune/pkg/requestcontext"
)

// Service runs the member-facing flows.
type Service interface {
	Register(ctx context.Context, email, password string, locale language.Tag) error
	JoinEvent(ctx context.Context, eventID uuid.UUID, email string, locale language.Tag) error
	RequestPasswordReset(ctx context.Context, email, password string, locale language.Tag) error
	CreateEvent(ctx context.Context, title string, startsAt time.Time) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
}

// Handler exposes the community flows. Flow endpoints answer 202 once a link
// is on its way, whether or not the address is already known.
type Handler struct {
	logger      *slog.Logger
	community   Service
	flowLimiter []func(http.Handler) http.Handler
	adminGuard  []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithFlowMiddleware wraps the endpoints that mail confirmation links.
func WithFlowMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.flowLimiter = append(h.flowLimiter, mw...)
	}
}

// WithAdminMiddleware guards event management.
func WithAdminMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.adminGuard = append(h.adminGuard, mw...)
	}
}

func New(community Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:    logger,
		community: community,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the community routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.handleListEvents)
	r.With(h.adminGuard...).Post("/events", h.handleCreateEvent)

	r.Group(func(flows chi.Router) {
		flows.Use(h.flowLimiter...)
		flows.Post("/members/register", h.handleRegister)
		flows.Post("/members/password-reset", h.handlePasswordReset)
		flows.Post("/events/{eventID}/join", h.handleJoinEvent)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.community.Register(ctx, req.Email, req.Password, requestcontext.Locale(ctx))
	h.respondAccepted(w, r, "registration", err)
}

func (h *Handler) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.PasswordResetRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.community.RequestPasswordReset(ctx, req.Email, req.Password, requestcontext.Locale(ctx))
	h.respondAccepted(w, r, "password reset", err)
}

func (h *Handler) handleJoinEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return
	}
	var req models.JoinEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	err = h.community.JoinEvent(ctx, eventID, req.Email, requestcontext.Locale(ctx))
	h.respondAccepted(w, r, "event join", err)
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	event, err := h.community.CreateEvent(ctx, req.Title, req.StartsAt)
	if err != nil {
		h.logFailure(ctx, "failed to create event", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toEventResponse(event))
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.community.ListEvents(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to list events", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]models.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", request.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) respondAccepted(w http.ResponseWriter, r *http.Request, flow string, err error) {
	if err != nil {
		h.logFailure(r.Context(), "failed to start "+flow, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, models.AcceptedResponse{Status: "pending_confirmation"})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", request.GetRequestID(ctx),
		"error", err.Error(),
	)
}

func toEventResponse(e *models.Event) models.EventResponse {
	return models.EventResponse{
		ID:        e.ID.String(),
		Title:     e.Title,
		StartsAt:  e.StartsAt,
		Attendees: len(e.Attendees),
	}
}
