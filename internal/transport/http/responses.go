package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chaveiro/internal/keys/models"
	"chaveiro/internal/keys/service"
	"chaveiro/pkg/platform/sentinel"
)

type keyResponse struct {
	ID        string    `json:"id"`
	KeyValue  string    `json:"key_value"`
	KeyType   string    `json:"key_type"`
	AccountID string    `json:"account_id"`
	State     string    `json:"state"`
	ClaimID   string    `json:"claim_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toKeyResponse(key *models.Key) keyResponse {
	out := keyResponse{
		ID:        key.ID,
		KeyValue:  key.KeyValue,
		KeyType:   string(key.KeyType),
		AccountID: key.AccountID,
		State:     string(key.State),
		CreatedAt: key.CreatedAt,
		UpdatedAt: key.UpdatedAt,
	}
	if key.ClaimID != nil {
		out.ClaimID = *key.ClaimID
	}
	if key.LastError != nil {
		out.LastError = *key.LastError
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeKey translates a state machine result. A scheduled retry is not a
// failure for the caller: the transition is accepted and will converge, so
// the current record comes back with 202.
func writeKey(w http.ResponseWriter, key *models.Key, err error) {
	if errors.Is(err, service.ErrRetryScheduled) {
		writeJSON(w, http.StatusAccepted, toKeyResponse(key))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toKeyResponse(key))
}

// writeError centralizes domain error translation to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, sentinel.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sentinel.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, sentinel.ErrConflict):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
