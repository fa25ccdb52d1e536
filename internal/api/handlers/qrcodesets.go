package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rvegajr/blessbox-server/internal/api/dto"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/api/validation"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/forms"
	"github.com/rvegajr/blessbox-server/internal/tasks"
	"gorm.io/gorm"
)

type QRCodeSetHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
}

func NewQRCodeSetHandler(db *gorm.DB, asynqClient *asynq.Client) *QRCodeSetHandler {
	return &QRCodeSetHandler{db: db, asynqClient: asynqClient}
}

type QREntryRequest struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type CreateQRCodeSetRequest struct {
	Name     string           `json:"name"`
	Language string           `json:"language,omitempty"`
	Fields   []forms.Field    `json:"fields"`
	QRCodes  []QREntryRequest `json:"qr_codes"`
}

func (r CreateQRCodeSetRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if len(r.Fields) == 0 {
		errs["fields"] = "At least one form field is required"
	} else if err := forms.ValidateSchema(r.Fields); err != nil {
		errs["fields"] = err.Error()
	}
	if len(r.QRCodes) == 0 {
		errs["qr_codes"] = "At least one QR code is required"
	} else if err := validateEntryRequests(r.QRCodes); err != "" {
		errs["qr_codes"] = err
	}
	return errs
}

// validateEntryRequests enforces unique labels and slugs within one set.
func validateEntryRequests(entries []QREntryRequest) string {
	labels := make(map[string]bool)
	slugs := make(map[string]bool)
	for _, e := range entries {
		if e.Label == "" {
			return "QR code label is required"
		}
		if e.Slug == "" || !validation.IsValidSlug(e.Slug) {
			return fmt.Sprintf("Invalid QR code slug %q", e.Slug)
		}
		if labels[e.Label] {
			return fmt.Sprintf("Duplicate QR code label %q", e.Label)
		}
		if slugs[e.Slug] {
			return fmt.Sprintf("Duplicate QR code slug %q", e.Slug)
		}
		labels[e.Label] = true
		slugs[e.Slug] = true
	}
	return ""
}

func buildEntries(reqs []QREntryRequest) []models.QRCodeEntry {
	entries := make([]models.QRCodeEntry, len(reqs))
	for i, e := range reqs {
		entries[i] = models.QRCodeEntry{
			ID:     uuid.New().String()[:8],
			Label:  e.Label,
			Slug:   e.Slug,
			Active: true,
		}
	}
	return entries
}

type QRCodeSetResponse struct {
	ID             string               `json:"id"`
	OrganizationID string               `json:"organization_id"`
	Name           string               `json:"name"`
	Language       string               `json:"language"`
	Fields         []forms.Field        `json:"fields"`
	QRCodes        []models.QRCodeEntry `json:"qr_codes"`
	IsActive       bool                 `json:"is_active"`
	ScanCount      int                  `json:"scan_count"`
	CreatedAt      string               `json:"created_at"`
}

func setToResponse(set *models.QRCodeSet) QRCodeSetResponse {
	fields, _ := forms.DecodeFields(set.FormFields)
	entries, _ := set.Entries()
	return QRCodeSetResponse{
		ID:             set.ID.String(),
		OrganizationID: set.OrganizationID.String(),
		Name:           set.Name,
		Language:       set.Language,
		Fields:         fields,
		QRCodes:        entries,
		IsActive:       set.IsActive,
		ScanCount:      set.ScanCount,
		CreatedAt:      set.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/qr-code-sets.
func (h *QRCodeSetHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	var req CreateQRCodeSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorWithDetails("Validation failed", errs))
		return
	}

	fieldsJSON, err := forms.EncodeFields(req.Fields)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to encode fields"))
		return
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	set := models.QRCodeSet{
		OrganizationID: orgID,
		Name:           req.Name,
		Language:       language,
		FormFields:     fieldsJSON,
		IsActive:       true,
	}
	if err := set.SetEntries(buildEntries(req.QRCodes)); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to encode QR codes"))
		return
	}

	if err := h.db.Create(&set).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create QR code set"))
		return
	}

	writeJSON(w, http.StatusCreated, setToResponse(&set))
}

// List handles GET /api/v1/qr-code-sets.
func (h *QRCodeSetHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	var sets []models.QRCodeSet
	if err := h.db.
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&sets).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list QR code sets"))
		return
	}

	response := make([]QRCodeSetResponse, len(sets))
	for i := range sets {
		response[i] = setToResponse(&sets[i])
	}

	writeJSON(w, http.StatusOK, dto.ListResponse{
		Success: true,
		Data:    response,
		Count:   len(response),
	})
}

func (h *QRCodeSetHandler) findSet(w http.ResponseWriter, r *http.Request) (*models.QRCodeSet, bool) {
	orgID := middleware.GetOrganizationID(r.Context())

	setID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid QR code set ID"))
		return nil, false
	}

	var set models.QRCodeSet
	if err := h.db.Where("id = ? AND organization_id = ?", setID, orgID).First(&set).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.Error("QR code set not found"))
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get QR code set"))
		return nil, false
	}
	return &set, true
}

// Get handles GET /api/v1/qr-code-sets/{id}.
func (h *QRCodeSetHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, ok := h.findSet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, setToResponse(set))
}

type UpdateQRCodeSetRequest struct {
	Name     *string       `json:"name,omitempty"`
	Language *string       `json:"language,omitempty"`
	Fields   []forms.Field `json:"fields,omitempty"`
}

// Update handles PUT /api/v1/qr-code-sets/{id}.
func (h *QRCodeSetHandler) Update(w http.ResponseWriter, r *http.Request) {
	set, ok := h.findSet(w, r)
	if !ok {
		return
	}

	var req UpdateQRCodeSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			writeJSON(w, http.StatusBadRequest, dto.Error("Name cannot be empty"))
			return
		}
		set.Name = *req.Name
	}
	if req.Language != nil {
		set.Language = *req.Language
	}
	if req.Fields != nil {
		if err := forms.ValidateSchema(req.Fields); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorWithDetails("Validation failed",
				map[string]string{"fields": err.Error()}))
			return
		}
		fieldsJSON, err := forms.EncodeFields(req.Fields)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to encode fields"))
			return
		}
		set.FormFields = fieldsJSON
	}

	if err := h.db.Save(set).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update QR code set"))
		return
	}

	writeJSON(w, http.StatusOK, setToResponse(set))
}

// Deactivate handles POST /api/v1/qr-code-sets/{id}/deactivate. Sets are
// never deleted; existing registrations keep pointing at them.
func (h *QRCodeSetHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	setID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid QR code set ID"))
		return
	}

	result := h.db.Model(&models.QRCodeSet{}).
		Where("id = ? AND organization_id = ?", setID, orgID).
		Update("is_active", false)
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to deactivate QR code set"))
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.Error("QR code set not found"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "QR code set deactivated"})
}

// AddEntry handles POST /api/v1/qr-code-sets/{id}/qr-codes.
func (h *QRCodeSetHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	set, ok := h.findSet(w, r)
	if !ok {
		return
	}

	var req QREntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	entries, err := set.Entries()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to decode QR codes"))
		return
	}

	all := make([]QREntryRequest, 0, len(entries)+1)
	for _, e := range entries {
		all = append(all, QREntryRequest{Label: e.Label, Slug: e.Slug})
	}
	all = append(all, req)
	if msg := validateEntryRequests(all); msg != "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorWithDetails("Validation failed",
			map[string]string{"qr_codes": msg}))
		return
	}

	entries = append(entries, models.QRCodeEntry{
		ID:     uuid.New().String()[:8],
		Label:  req.Label,
		Slug:   req.Slug,
		Active: true,
	})
	if err := set.SetEntries(entries); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to encode QR codes"))
		return
	}

	if err := h.db.Save(set).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update QR code set"))
		return
	}

	writeJSON(w, http.StatusOK, setToResponse(set))
}

// Export handles POST /api/v1/qr-code-sets/{id}/export. Rendering and upload
// run in the background worker.
func (h *QRCodeSetHandler) Export(w http.ResponseWriter, r *http.Request) {
	set, ok := h.findSet(w, r)
	if !ok {
		return
	}

	if h.asynqClient == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.Error("Export is not available"))
		return
	}

	task, err := tasks.NewQRExportTask(tasks.QRExportPayload{
		OrganizationID: set.OrganizationID,
		QRCodeSetID:    set.ID,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create export task"))
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to enqueue export"))
		return
	}

	writeJSON(w, http.StatusAccepted, struct {
		Success bool   `json:"success"`
		TaskID  string `json:"task_id"`
	}{Success: true, TaskID: info.ID})
}
