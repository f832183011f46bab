package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"commune/internal/configuration"
	"commune/internal/transport/http/shared"
	dErrors "commune/pkg/domain-errors"
	"commune/pkg/platform/middleware/request"
)

// Service reads and writes instance settings.
type Service interface {
	Get(ctx context.Context, setting configuration.Setting, locale language.Tag) string
	Set(ctx context.Context, setting configuration.Setting, locale language.Tag, value string) error
	Reset(ctx context.Context, setting configuration.Setting, locale language.Tag) error
}

// SettingRequest updates one setting. An empty Language writes the
// language-neutral value.
type SettingRequest struct {
	Value    string `json:"value"`
	Language string `json:"language,omitempty"`
}

type SettingResponse struct {
	Key      string `json:"key"`
	Language string `json:"language,omitempty"`
	Value    string `json:"value"`
}

// Handler exposes settings to operators. Routes are mounted under /admin and
// guarded by the given middleware.
type Handler struct {
	logger   *slog.Logger
	settings Service
	guard    []func(http.Handler) http.Handler
}

func New(settings Service, logger *slog.Logger, guard ...func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, settings: settings, guard: guard}
}

// Register registers the settings routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin/settings", func(admin chi.Router) {
		admin.Use(h.guard...)
		admin.Get("/", h.handleList)
		admin.Get("/{key}", h.handleGet)
		admin.Put("/{key}", h.handlePut)
		admin.Delete("/{key}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale, ok := parseLanguage(w, r.URL.Query().Get("lang"))
	if !ok {
		return
	}
	out := make([]SettingResponse, 0, len(configuration.Settings))
	for _, setting := range configuration.Settings {
		out = append(out, SettingResponse{
			Key:      setting.Key,
			Language: languageString(locale),
			Value:    h.settings.Get(ctx, setting, locale),
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	setting, ok := lookup(w, r)
	if !ok {
		return
	}
	locale, ok := parseLanguage(w, r.URL.Query().Get("lang"))
	if !ok {
		return
	}
	shared.WriteJSON(w, http.StatusOK, SettingResponse{
		Key:      setting.Key,
		Language: languageString(locale),
		Value:    h.settings.Get(r.Context(), setting, locale),
	})
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	setting, ok := lookup(w, r)
	if !ok {
		return
	}
	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid setting request",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	locale, ok := parseLanguage(w, req.Language)
	if !ok {
		return
	}

	if err := h.settings.Set(ctx, setting, locale, req.Value); err != nil {
		h.logger.ErrorContext(ctx, "failed to store setting",
			"request_id", request.GetRequestID(ctx),
			"setting", setting.Key,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "setting updated",
		"request_id", request.GetRequestID(ctx),
		"setting", setting.Key,
		"language", languageString(locale),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	setting, ok := lookup(w, r)
	if !ok {
		return
	}
	locale, ok := parseLanguage(w, r.URL.Query().Get("lang"))
	if !ok {
		return
	}
	if err := h.settings.Reset(ctx, setting, locale); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset setting",
			"request_id", request.GetRequestID(ctx),
			"setting", setting.Key,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func lookup(w http.ResponseWriter, r *http.Request) (configuration.Setting, bool) {
	setting, ok := configuration.Lookup(chi.URLParam(r, "key"))
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown setting"))
	}
	return setting, ok
}

// parseLanguage accepts an empty string as the language-neutral value.
func parseLanguage(w http.ResponseWriter, raw string) (language.Tag, bool) {
	if raw == "" {
		return language.Und, true
	}
	tag, err := language.Parse(raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid language"))
		return language.Und, false
	}
	return tag, true
}

func languageString(tag language.Tag) string {
	if tag == language.Und {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
