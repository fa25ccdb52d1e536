package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rvegajr/blessbox-server/internal/api/dto"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/checkin"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/registration"
)

type CheckInHandler struct {
	svc    *checkin.Service
	regSvc *registration.Service
}

func NewCheckInHandler(svc *checkin.Service, regSvc *registration.Service) *CheckInHandler {
	return &CheckInHandler{svc: svc, regSvc: regSvc}
}

type CheckInRequest struct {
	Token   string `json:"token"`
	StaffID string `json:"staff_id,omitempty"`
}

type UndoCheckInRequest struct {
	Token string `json:"token"`
}

type checkInResponse struct {
	Success      bool                 `json:"success"`
	Registration RegistrationResponse `json:"registration"`
}

func (h *CheckInHandler) toResponse(reg *models.Registration) checkInResponse {
	rh := &RegistrationHandler{svc: h.regSvc}
	return checkInResponse{
		Success:      true,
		Registration: rh.toResponse(reg, true),
	}
}

// Process handles POST /api/v1/checkin. The staff member defaults to the
// authenticated caller when staff_id is absent.
func (h *CheckInHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, dto.Error("Token is required"))
		return
	}

	staffID := middleware.GetUserID(r.Context())
	if req.StaffID != "" {
		parsed, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.Error("Invalid staff ID"))
			return
		}
		staffID = parsed
	}

	reg, err := h.svc.ProcessCheckIn(r.Context(), req.Token, staffID)
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrInvalidToken):
			writeJSON(w, http.StatusNotFound, dto.Error("Check-in token not found"))
		case errors.Is(err, checkin.ErrAlreadyCheckedIn):
			writeJSON(w, http.StatusConflict, dto.Error("Registration already checked in"))
		default:
			writeJSON(w, http.StatusInternalServerError, dto.Error("Check-in failed"))
		}
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(reg))
}

// Undo handles POST /api/v1/checkin/undo.
func (h *CheckInHandler) Undo(w http.ResponseWriter, r *http.Request) {
	var req UndoCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, dto.Error("Token is required"))
		return
	}

	reg, err := h.svc.UndoCheckIn(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrInvalidToken):
			writeJSON(w, http.StatusNotFound, dto.Error("Check-in token not found"))
		case errors.Is(err, checkin.ErrNotCheckedIn):
			writeJSON(w, http.StatusConflict, dto.Error("Registration is not checked in"))
		default:
			writeJSON(w, http.StatusInternalServerError, dto.Error("Undo failed"))
		}
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(reg))
}

// Lookup handles GET /api/v1/checkin/{token}. Read-only: renders the
// confirmation screen without consuming the token.
func (h *CheckInHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	reg, err := h.svc.GetByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, checkin.ErrInvalidToken) {
			writeJSON(w, http.StatusNotFound, dto.Error("Check-in token not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Lookup failed"))
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(reg))
}
