package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rvegajr/blessbox-server/internal/api/dto"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/onboarding"
)

type OnboardingHandler struct {
	store onboarding.SessionStore
}

func NewOnboardingHandler(store onboarding.SessionStore) *OnboardingHandler {
	return &OnboardingHandler{store: store}
}

// GetSession handles GET /api/v1/onboarding/session.
func (h *OnboardingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	state, err := h.store.Get(r.Context(), userID.String())
	if err != nil {
		if errors.Is(err, onboarding.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("No onboarding session"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to load session"))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool                      `json:"success"`
		Session *onboarding.SessionState `json:"session"`
	}{Success: true, Session: state})
}

// PutSession handles PUT /api/v1/onboarding/session.
func (h *OnboardingHandler) PutSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var state onboarding.SessionState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if state.Step == "" {
		writeJSON(w, http.StatusBadRequest, dto.Error("Step is required"))
		return
	}

	state.UpdatedAt = time.Now()

	if err := h.store.Put(r.Context(), userID.String(), &state, onboarding.DefaultTTL); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to save session"))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool                      `json:"success"`
		Session *onboarding.SessionState `json:"session"`
	}{Success: true, Session: &state})
}

// DeleteSession handles DELETE /api/v1/onboarding/session.
func (h *OnboardingHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.store.Delete(r.Context(), userID.String()); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to delete session"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Session cleared"})
}
