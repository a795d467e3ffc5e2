// Package httptransport is the thin HTTP layer over the key state machine.
// Handlers delegate to the service and translate errors; no business logic
// lives here.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chaveiro/internal/keys/models"
	"chaveiro/internal/keys/service"
	"chaveiro/internal/platform/middleware"
)

// Handler handles key lifecycle endpoints.
type Handler struct {
	logger  *slog.Logger
	machine *service.Service
	health  func(ctx context.Context) error
}

// New creates a key Handler. health reports readiness of the backing
// stores for /healthz.
func New(machine *service.Service, logger *slog.Logger, health func(ctx context.Context) error) *Handler {
	return &Handler{logger: logger, machine: machine, health: health}
}

// Register mounts the key routes with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	keyRouter := chi.NewRouter()
	keyRouter.Use(middleware.Recovery(h.logger))
	keyRouter.Use(middleware.RequestID)
	keyRouter.Use(middleware.Logger(h.logger))
	keyRouter.Use(middleware.Timeout(30 * time.Second))

	keyRouter.Post("/keys", h.handleRegister)
	keyRouter.Get("/keys", h.handleGetByValue)
	keyRouter.Get("/keys/{id}", h.handleGet)
	keyRouter.Delete("/keys/{id}", h.handleDelete)

	keyRouter.Post("/keys/{id}/ownership", h.handleStartOwnership)
	keyRouter.Post("/keys/{id}/ownership/confirm", h.handleConfirmOwnership)
	keyRouter.Post("/keys/{id}/ownership/cancel", h.handleCancelOwnership)

	keyRouter.Post("/keys/{id}/portability", h.handleStartPortability)
	keyRouter.Post("/keys/{id}/portability/confirm", h.handleConfirmPortability)
	keyRouter.Post("/keys/{id}/portability/cancel", h.handleCancelPortability)

	keyRouter.Post("/keys/{id}/claim/close", h.handleCloseClaim)

	keyRouter.Get("/healthz", h.handleHealth)

	r.Mount("/", keyRouter)
}

type registerRequest struct {
	KeyValue  string `json:"key_value"`
	KeyType   string `json:"key_type"`
	AccountID string `json:"account_id"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// handleRegister creates the key locally, then walks it through directory
// confirmation inline. A directory outage leaves the key PENDING with a
// retry scheduled; the caller sees 202 and polls.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	ctx := r.Context()

	key, err := h.machine.RegisterKey(ctx, req.KeyValue, models.KeyType(req.KeyType), req.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	key, err = h.machine.ConfirmKey(ctx, key.ID)
	if errors.Is(err, service.ErrRetryScheduled) {
		writeJSON(w, http.StatusAccepted, toKeyResponse(key))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if key.State == models.KeyStateError {
		// The directory rejected the entry; return the record so the
		// caller sees the recorded reason.
		writeJSON(w, http.StatusUnprocessableEntity, toKeyResponse(key))
		return
	}
	key, err = h.machine.ActivateKey(ctx, key.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toKeyResponse(key))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.GetKey(r.Context(), chi.URLParam(r, "id"))
	writeKey(w, key, err)
}

func (h *Handler) handleGetByValue(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.GetKeyByValue(r.Context(), r.URL.Query().Get("value"))
	writeKey(w, key, err)
}

// handleDelete starts removal and attempts the directory deletion inline.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := h.machine.DeleteKey(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	key, err = h.machine.ConfirmDeletion(ctx, key.ID)
	writeKey(w, key, err)
}

func (h *Handler) handleStartOwnership(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.StartOwnershipClaim(r.Context(), chi.URLParam(r, "id"))
	writeKey(w, key, err)
}

func (h *Handler) handleConfirmOwnership(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.ConfirmOwnership(r.Context(), chi.URLParam(r, "id"))
	writeKey(w, key, err)
}

func (h *Handler) handleCancelOwnership(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.CancelOwnership(r.Context(), chi.URLParam(r, "id"), h.reason(r))
	writeKey(w, key, err)
}

func (h *Handler) handleStartPortability(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.StartPortability(r.Context(), chi.URLParam(r, "id"))
	writeKey(w, key, err)
}

func (h *Handler) handleConfirmPortability(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.ConfirmPortability(r.Context(), chi.URLParam(r, "id"))
	writeKey(w, key, err)
}

func (h *Handler) handleCancelPortability(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.CancelPortability(r.Context(), chi.URLParam(r, "id"), h.reason(r))
	writeKey(w, key, err)
}

func (h *Handler) handleCloseClaim(w http.ResponseWriter, r *http.Request) {
	key, err := h.machine.CloseClaim(r.Context(), chi.URLParam(r, "id"), h.reason(r))
	writeKey(w, key, err)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reason reads an optional cancellation reason body, defaulting to
// USER_REQUESTED for user-initiated cancels.
func (h *Handler) reason(r *http.Request) models.ClaimReason {
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		return models.ReasonUserRequested
	}
	return models.ClaimReason(req.Reason)
}
