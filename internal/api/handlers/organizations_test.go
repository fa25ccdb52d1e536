package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/registration"
	"github.com/rvegajr/blessbox-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupOrganizationRouter(tc *testutil.TestContext) http.Handler {
	regSvc := registration.NewService(tc.DB, tc.Encryptor, nil, testutil.NewTestLogger())
	h := NewOrganizationHandler(tc.DB, regSvc)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Route("/api/v1/organization", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Get("/usage", h.Usage)
		})
	})
	return r
}

func TestGetOrganization(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupOrganizationRouter(tc)

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/organization", nil, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrganizationResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, tc.Org.ID.String(), resp.ID)
	assert.Equal(t, tc.Org.Slug, resp.Slug)
	assert.Equal(t, models.PlanFree, resp.Plan)
}

func TestUpdateOrganization(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupOrganizationRouter(tc)

	body := map[string]string{
		"name":          "New Hope Center",
		"contact_email": "hello@newhope.example.com",
	}

	req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/organization", body, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.Organization
	require.NoError(t, tc.DB.First(&stored, tc.Org.ID).Error)
	assert.Equal(t, "New Hope Center", stored.Name)
	assert.Equal(t, "hello@newhope.example.com", stored.ContactEmail)
}

func TestUpdateOrganizationInvalidEmail(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupOrganizationRouter(tc)

	req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/organization",
		map[string]string{"contact_email": "not-an-email"}, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrganizationUsage(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupOrganizationRouter(tc)

	require.NoError(t, tc.DB.Model(&models.Subscription{}).
		Where("organization_id = ?", tc.Org.ID).
		Update("registration_count", 42).Error)

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/organization/usage", nil, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success      bool   `json:"success"`
		Plan         string `json:"plan"`
		CurrentCount int    `json:"currentCount"`
		Limit        int    `json:"limit"`
		UpgradeURL   string `json:"upgradeUrl"`
	}
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 42, resp.CurrentCount)
	assert.Equal(t, 100, resp.Limit)
	assert.Equal(t, "/billing/upgrade?from=free", resp.UpgradeURL)
}
