package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rvegajr/blessbox-server/internal/api/dto"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/api/validation"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/registration"
	"gorm.io/gorm"
)

type OrganizationHandler struct {
	db     *gorm.DB
	regSvc *registration.Service
}

func NewOrganizationHandler(db *gorm.DB, regSvc *registration.Service) *OrganizationHandler {
	return &OrganizationHandler{db: db, regSvc: regSvc}
}

type OrganizationResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ContactEmail string `json:"contact_email"`
	Plan         string `json:"plan"`
	IsActive     bool   `json:"is_active"`
}

func orgToResponse(org *models.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:           org.ID.String(),
		Name:         org.Name,
		Slug:         org.Slug,
		ContactEmail: org.ContactEmail,
		Plan:         org.Plan,
		IsActive:     org.IsActive,
	}
}

// Get handles GET /api/v1/organization.
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.Error("Organization not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get organization"))
		return
	}

	writeJSON(w, http.StatusOK, orgToResponse(&org))
}

type UpdateOrganizationRequest struct {
	Name         *string `json:"name,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
}

// Update handles PUT /api/v1/organization.
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	var req UpdateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	var org models.Organization
	if err := h.db.First(&org, orgID).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.Error("Organization not found"))
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeJSON(w, http.StatusBadRequest, dto.Error("Name cannot be empty"))
			return
		}
		org.Name = *req.Name
	}
	if req.ContactEmail != nil {
		if !validation.IsValidEmail(*req.ContactEmail) {
			writeJSON(w, http.StatusBadRequest, dto.Error("Invalid contact email"))
			return
		}
		org.ContactEmail = *req.ContactEmail
	}

	if err := h.db.Save(&org).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update organization"))
		return
	}

	writeJSON(w, http.StatusOK, orgToResponse(&org))
}

// Usage handles GET /api/v1/organization/usage: the quota counters for the
// dashboard.
func (h *OrganizationHandler) Usage(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	sub, err := h.regSvc.Usage(r.Context(), orgID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.Error("Subscription not found"))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success      bool   `json:"success"`
		Plan         string `json:"plan"`
		CurrentCount int    `json:"currentCount"`
		Limit        int    `json:"limit"`
		UpgradeURL   string `json:"upgradeUrl"`
	}{
		Success:      true,
		Plan:         sub.Plan,
		CurrentCount: sub.RegistrationCount,
		Limit:        sub.RegistrationLimit,
		UpgradeURL:   sub.UpgradeURL,
	})
}
