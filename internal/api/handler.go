package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/eugenenazirov/vangers-settings/internal/document"
	"github.com/eugenenazirov/vangers-settings/internal/metrics"
	"github.com/eugenenazirov/vangers-settings/internal/reload"
	"github.com/eugenenazirov/vangers-settings/internal/settings"
	"github.com/eugenenazirov/vangers-settings/internal/store"
)

type contextKey string

const requestStateKey contextKey = "requestState"

// Reloader replaces the current settings from disk.
type Reloader interface {
	Reload(ctx context.Context) (*settings.Settings, error)
	Focus(ctx context.Context) (*settings.Settings, error)
}

// Handler exposes the settings store and reloader over HTTP.
type Handler struct {
	store    store.Store
	reloader Reloader

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(st store.Store, reloader Reloader, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:    st,
		reloader: reloader,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(settingsVersionHeader, formatVersion(h.store.Version()))
	resp := healthResponse{
		Status:    "ok",
		Version:   h.store.Version(),
		UpdatedAt: h.store.UpdatedAt(),
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

var contentTypes = map[document.Format]string{
	document.JSON: "application/json",
	document.YAML: "application/yaml",
	document.HCL:  "text/plain; charset=utf-8",
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	format := document.JSON
	if name := r.URL.Query().Get("format"); name != "" {
		parsed, err := document.ParseFormat(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid format", err.Error())
			return
		}
		format = parsed
	}

	body, err := document.Encode(settings.Encode(h.store.Current()), format)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set(settingsVersionHeader, formatVersion(h.store.Version()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	_, err := h.reloader.Reload(r.Context())
	h.writeReloadResult(w, r, reload.TriggerManual, err, "Settings reloaded")
}

func (h *Handler) handleFocus(w http.ResponseWriter, r *http.Request) {
	_, err := h.reloader.Focus(r.Context())
	if errors.Is(err, reload.ErrReloadDisabled) {
		noteReload(r.Context(), reload.TriggerFocus, metrics.ResultDisabled, "")
		writeError(w, http.StatusConflict, "Reload on focus disabled", err.Error())
		return
	}
	h.writeReloadResult(w, r, reload.TriggerFocus, err, "Settings reloaded on focus")
}

func (h *Handler) writeReloadResult(w http.ResponseWriter, r *http.Request, trigger string, err error, message string) {
	var settingsErr *settings.Error
	switch {
	case err == nil:
		noteReload(r.Context(), trigger, metrics.ResultOK, "")
		w.Header().Set(settingsVersionHeader, formatVersion(h.store.Version()))
		writeJSON(w, http.StatusOK, reloadResponse{
			Message:   message,
			Version:   h.store.Version(),
			UpdatedAt: h.store.UpdatedAt(),
		})
	case errors.Is(err, reload.ErrThrottled):
		noteReload(r.Context(), trigger, metrics.ResultThrottled, "")
		writeTooManyRequests(w, "reload throttled, please retry shortly")
	case errors.As(err, &settingsErr):
		kind := settingsErr.Kind.String()
		noteReload(r.Context(), trigger, metrics.ResultRejected, kind)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "Settings rejected",
			Details: settingsErr.Error(),
			Kind:    kind,
			Path:    settingsErr.Path,
			Line:    settingsErr.Line,
		})
	default:
		noteReload(r.Context(), trigger, metrics.ResultRejected, "")
		writeInternalError(w, err)
	}
}

func formatVersion(v uint64) string {
	return strconv.FormatUint(v, 10)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Timestamp time.Time `json:"timestamp"`
}

type reloadResponse struct {
	Message   string    `json:"message"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
