package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rvegajr/blessbox-server/internal/api/middleware"
	"github.com/rvegajr/blessbox-server/internal/checkin"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/registration"
	"github.com/rvegajr/blessbox-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCheckInRouter(tc *testutil.TestContext) http.Handler {
	logger := testutil.NewTestLogger()
	regSvc := registration.NewService(tc.DB, tc.Encryptor, nil, logger)
	svc := checkin.NewService(tc.DB, logger)
	h := NewCheckInHandler(svc, regSvc)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Post("/api/v1/checkin", h.Process)
		r.Post("/api/v1/checkin/undo", h.Undo)
		r.Get("/api/v1/checkin/{token}", h.Lookup)
	})
	return r
}

func TestCheckInEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
	router := setupCheckInRouter(tc)

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin",
		map[string]string{"token": reg.CheckInToken}, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp submitResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, "used", resp.Registration.TokenStatus)
	assert.NotNil(t, resp.Registration.CheckedInAt)
	// Staff defaults to the authenticated caller
	require.NotNil(t, resp.Registration.CheckedInBy)
	assert.Equal(t, tc.User.ID.String(), *resp.Registration.CheckedInBy)
}

func TestCheckInEndpointExplicitStaff(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
	router := setupCheckInRouter(tc)

	other := testutil.CreateTestUser(t, tc.DB, tc.Org)

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin",
		map[string]string{"token": reg.CheckInToken, "staff_id": other.ID.String()}, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp submitResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	require.NotNil(t, resp.Registration.CheckedInBy)
	assert.Equal(t, other.ID.String(), *resp.Registration.CheckedInBy)
}

func TestCheckInEndpointUnknownToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupCheckInRouter(tc)

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin",
		map[string]string{"token": uuid.New().String()}, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckInEndpointAlreadyUsed(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
	router := setupCheckInRouter(tc)

	body := map[string]string{"token": reg.CheckInToken}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin", body, tc.Token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin", body, tc.Token))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckInEndpointMissingToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupCheckInRouter(tc)

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin",
		map[string]string{}, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUndoEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
	router := setupCheckInRouter(tc)

	body := map[string]string{"token": reg.CheckInToken}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin", body, tc.Token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin/undo", body, tc.Token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp submitResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, "active", resp.Registration.TokenStatus)
	assert.Nil(t, resp.Registration.CheckedInAt)
	assert.Nil(t, resp.Registration.CheckedInBy)
}

func TestUndoEndpointNotCheckedIn(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
	router := setupCheckInRouter(tc)

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin/undo",
		map[string]string{"token": reg.CheckInToken}, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUndoEndpointUnknownToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupCheckInRouter(tc)

	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/checkin/undo",
		map[string]string{"token": uuid.New().String()}, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLookupEndpoint(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
	router := setupCheckInRouter(tc)

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/checkin/"+reg.CheckInToken, nil, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp submitResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, "active", resp.Registration.TokenStatus)

	// Lookup never consumes the token
	var stored models.Registration
	require.NoError(t, tc.DB.First(&stored, reg.ID).Error)
	assert.Equal(t, models.TokenActive, stored.TokenStatus)
}

func TestLookupEndpointUnknownToken(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	router := setupCheckInRouter(tc)

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/checkin/"+uuid.New().String(), nil, tc.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
