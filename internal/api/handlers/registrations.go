package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rvegajr/blessbox-server/internal/api/dto"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/forms"
	"github.com/rvegajr/blessbox-server/internal/odata"
	"github.com/rvegajr/blessbox-server/internal/registration"
)

type RegistrationHandler struct {
	svc *registration.Service
}

func NewRegistrationHandler(svc *registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// SubmitRequest is the public registration submission body.
type SubmitRequest struct {
	OrgSlug  string                 `json:"org_slug"`
	QRLabel  string                 `json:"qr_label"`
	FormData map[string]interface{} `json:"form_data"`
}

func (r SubmitRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.OrgSlug == "" {
		errors["org_slug"] = "Organization slug is required"
	}
	if r.QRLabel == "" {
		errors["qr_label"] = "QR code label is required"
	}
	if r.FormData == nil {
		errors["form_data"] = "Form data is required"
	}
	return errors
}

// RegistrationResponse is a registration in API responses, with the stored
// form answers decrypted.
type RegistrationResponse struct {
	ID             string                 `json:"id"`
	OrganizationID string                 `json:"organization_id"`
	QRCodeSetID    string                 `json:"qr_code_set_id"`
	QRCodeID       string                 `json:"qr_code_id"`
	Data           map[string]interface{} `json:"data,omitempty"`
	DeliveryStatus string                 `json:"delivery_status"`
	DeliveredAt    *string                `json:"delivered_at,omitempty"`
	CheckInToken   string                 `json:"check_in_token"`
	TokenStatus    string                 `json:"token_status"`
	CheckedInAt    *string                `json:"checked_in_at,omitempty"`
	CheckedInBy    *string                `json:"checked_in_by,omitempty"`
	RegisteredAt   string                 `json:"registered_at"`
}

func (h *RegistrationHandler) toResponse(reg *models.Registration, includeData bool) RegistrationResponse {
	resp := RegistrationResponse{
		ID:             reg.ID.String(),
		OrganizationID: reg.OrganizationID.String(),
		QRCodeSetID:    reg.QRCodeSetID.String(),
		QRCodeID:       reg.QRCodeID,
		DeliveryStatus: string(reg.DeliveryStatus),
		CheckInToken:   reg.CheckInToken,
		TokenStatus:    string(reg.TokenStatus),
		RegisteredAt:   reg.RegisteredAt.Format(time.RFC3339),
	}
	if reg.DeliveredAt != nil {
		s := reg.DeliveredAt.Format(time.RFC3339)
		resp.DeliveredAt = &s
	}
	if reg.CheckedInAt != nil {
		s := reg.CheckedInAt.Format(time.RFC3339)
		resp.CheckedInAt = &s
	}
	if reg.CheckedInBy != nil {
		s := reg.CheckedInBy.String()
		resp.CheckedInBy = &s
	}
	if includeData {
		if data, err := h.svc.DecryptData(reg); err == nil {
			resp.Data = data
		}
	}
	return resp
}

// Submit handles POST /api/v1/registrations (public).
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorWithDetails("Validation failed", errs))
		return
	}

	reg, err := h.svc.Submit(r.Context(), registration.SubmitInput{
		OrgSlug:  req.OrgSlug,
		QRLabel:  req.QRLabel,
		FormData: req.FormData,
		Meta: registration.Metadata{
			IPAddress: middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
			Referrer:  r.Referer(),
		},
	})
	if err != nil {
		var vErr *forms.ValidationError
		var limitErr *registration.LimitExceededError
		switch {
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusBadRequest, dto.ErrorWithDetails("Validation failed",
				map[string]string{vErr.Field: vErr.Reason}))
		case errors.As(err, &limitErr):
			writeJSON(w, http.StatusForbidden, dto.LimitExceededResponse{
				Success:      false,
				Error:        "Registration limit exceeded",
				CurrentCount: limitErr.CurrentCount,
				Limit:        limitErr.Limit,
				UpgradeURL:   limitErr.UpgradeURL,
			})
		case errors.Is(err, registration.ErrOrganizationNotFound):
			writeJSON(w, http.StatusNotFound, dto.Error("Organization not found"))
		case errors.Is(err, registration.ErrFormNotFound):
			writeJSON(w, http.StatusNotFound, dto.Error("Registration form not found"))
		default:
			writeJSON(w, http.StatusInternalServerError, dto.Error("Registration failed"))
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success      bool                 `json:"success"`
		Registration RegistrationResponse `json:"registration"`
	}{
		Success:      true,
		Registration: h.toResponse(reg, true),
	})
}

// List handles GET /api/v1/registrations with the OData query descriptor.
func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	orgParam := r.URL.Query().Get("organizationId")
	if orgParam == "" {
		writeJSON(w, http.StatusBadRequest, dto.Error("organizationId is required"))
		return
	}
	requested, err := uuid.Parse(orgParam)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid organizationId"))
		return
	}
	if requested != orgID {
		writeJSON(w, http.StatusForbidden, dto.Error("Access denied"))
		return
	}

	q := odata.Parse(r.URL.Query())

	regs, total, err := h.svc.List(r.Context(), orgID, q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list registrations"))
		return
	}

	response := make([]RegistrationResponse, len(regs))
	for i := range regs {
		response[i] = h.toResponse(&regs[i], true)
	}

	writeJSON(w, http.StatusOK, dto.ListResponse{
		Success:    true,
		Data:       response,
		Count:      len(response),
		TotalCount: total,
	})
}

type UpdateDeliveryRequest struct {
	Status string `json:"status"`
}

// UpdateDelivery handles PUT /api/v1/registrations/{id}/delivery.
func (h *RegistrationHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	regID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid registration ID"))
		return
	}

	var req UpdateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	reg, err := h.svc.UpdateDelivery(r.Context(), orgID, regID, models.DeliveryStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, registration.ErrInvalidDeliveryState):
			writeJSON(w, http.StatusBadRequest, dto.Error("Invalid delivery status"))
		case errors.Is(err, registration.ErrRegistrationNotFound):
			writeJSON(w, http.StatusNotFound, dto.Error("Registration not found"))
		default:
			writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update delivery status"))
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success      bool                 `json:"success"`
		Registration RegistrationResponse `json:"registration"`
	}{
		Success:      true,
		Registration: h.toResponse(reg, false),
	})
}
