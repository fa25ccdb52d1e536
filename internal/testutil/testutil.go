package testutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rvegajr/blessbox-server/internal/auth"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/forms"
	"github.com/rvegajr/blessbox-server/pkg/crypto"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Organization{},
		&models.Subscription{},
		&models.User{},
		&models.QRCodeSet{},
		&models.Registration{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// NewTestLogger returns a logger that discards nothing but stays quiet in -v runs
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// NewTestEncryptor returns a PII encryptor with a throwaway key
func NewTestEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()
	enc, err := crypto.NewEncryptor("")
	if err != nil {
		t.Fatalf("failed to create test encryptor: %v", err)
	}
	return enc
}

// CreateTestOrg creates an organization with a subscription on the given limits
func CreateTestOrg(t *testing.T, db *gorm.DB, limit int) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Base:         models.Base{ID: uuid.New()},
		Name:         "Test Organization",
		Slug:         "test-org-" + uuid.New().String()[:8],
		ContactEmail: "org-" + uuid.New().String()[:8] + "@example.com",
		Plan:         models.PlanFree,
		IsActive:     true,
	}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	sub := &models.Subscription{
		OrganizationID:    org.ID,
		Plan:              models.PlanFree,
		RegistrationLimit: limit,
		UpgradeURL:        "/billing/upgrade?from=free",
	}
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("failed to create test subscription: %v", err)
	}

	org.Subscription = sub
	return org
}

// CreateTestUser creates a staff user within the given organization
func CreateTestUser(t *testing.T, db *gorm.DB, org *models.Organization) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base:           models.Base{ID: uuid.New()},
		Email:          "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash:   hash,
		Name:           "Test User",
		OrganizationID: org.ID,
		Role:           "owner",
		IsActive:       true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	user.Organization = org
	return user
}

// DefaultSchema is the form schema test QR code sets are created with
func DefaultSchema() []forms.Field {
	return []forms.Field{
		{ID: "name", Type: forms.TypeText, Label: "Full name", Required: true},
		{ID: "email", Type: forms.TypeEmail, Label: "Email", Required: true},
	}
}

// CreateTestQRCodeSet creates an active set with one active entry labeled "main"
func CreateTestQRCodeSet(t *testing.T, db *gorm.DB, orgID uuid.UUID) *models.QRCodeSet {
	t.Helper()
	return CreateTestQRCodeSetWithSchema(t, db, orgID, DefaultSchema())
}

// CreateTestQRCodeSetWithSchema creates an active set with the given schema
func CreateTestQRCodeSetWithSchema(t *testing.T, db *gorm.DB, orgID uuid.UUID, schema []forms.Field) *models.QRCodeSet {
	t.Helper()

	fieldsJSON, err := forms.EncodeFields(schema)
	if err != nil {
		t.Fatalf("failed to encode form fields: %v", err)
	}

	set := &models.QRCodeSet{
		Base:           models.Base{ID: uuid.New()},
		OrganizationID: orgID,
		Name:           "Main Event",
		Language:       "en",
		FormFields:     datatypes.JSON(fieldsJSON),
		IsActive:       true,
	}
	entries := []models.QRCodeEntry{
		{ID: uuid.New().String()[:8], Label: "main", Slug: "main-entrance", Active: true},
		{ID: uuid.New().String()[:8], Label: "side", Slug: "side-door", Active: false},
	}
	if err := set.SetEntries(entries); err != nil {
		t.Fatalf("failed to encode qr entries: %v", err)
	}

	if err := db.Create(set).Error; err != nil {
		t.Fatalf("failed to create test qr code set: %v", err)
	}
	return set
}

// CreateTestRegistration inserts a registration with an active token
func CreateTestRegistration(t *testing.T, db *gorm.DB, org *models.Organization, set *models.QRCodeSet) *models.Registration {
	t.Helper()

	reg := &models.Registration{
		Base:           models.Base{ID: uuid.New()},
		OrganizationID: org.ID,
		QRCodeSetID:    set.ID,
		QRCodeID:       "entry",
		DeliveryStatus: models.DeliveryPending,
		CheckInToken:   uuid.New().String(),
		TokenStatus:    models.TokenActive,
		RegisteredAt:   time.Now().UTC(),
	}
	if err := db.Create(reg).Error; err != nil {
		t.Fatalf("failed to create test registration: %v", err)
	}
	return reg
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// TestContext bundles the pieces most handler tests need
type TestContext struct {
	DB         *gorm.DB
	Org        *models.Organization
	User       *models.User
	JWTService *auth.JWTService
	Token      string
	Encryptor  *crypto.Encryptor
	t          *testing.T
}

// NewTestContext sets up a database, org (limit 100), user, and auth token
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	db := SetupTestDB(t)
	org := CreateTestOrg(t, db, 100)
	user := CreateTestUser(t, db, org)
	jwtService := CreateTestJWTService()
	token := GenerateTestToken(t, jwtService, user)

	return &TestContext{
		DB:         db,
		Org:        org,
		User:       user,
		JWTService: jwtService,
		Token:      token,
		Encryptor:  NewTestEncryptor(t),
		t:          t,
	}
}

// Cleanup closes the test database
func (tc *TestContext) Cleanup() {
	CleanupTestDB(tc.t, tc.DB)
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}
