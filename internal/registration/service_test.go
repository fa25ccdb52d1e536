package registration_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/forms"
	"github.com/rvegajr/blessbox-server/internal/odata"
	"github.com/rvegajr/blessbox-server/internal/registration"
	"github.com/rvegajr/blessbox-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(tc *testutil.TestContext) *registration.Service {
	return registration.NewService(tc.DB, tc.Encryptor, nil, testutil.NewTestLogger())
}

func validInput(orgSlug string) registration.SubmitInput {
	return registration.SubmitInput{
		OrgSlug: orgSlug,
		QRLabel: "main",
		FormData: map[string]interface{}{
			"name":  "Ada Lovelace",
			"email": "ada@example.com",
		},
		Meta: registration.Metadata{
			IPAddress: "203.0.113.9",
			UserAgent: "test-agent",
		},
	}
}

func TestSubmit(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	reg, err := svc.Submit(context.Background(), validInput(tc.Org.Slug))
	require.NoError(t, err)

	assert.Equal(t, tc.Org.ID, reg.OrganizationID)
	assert.Equal(t, models.DeliveryPending, reg.DeliveryStatus)
	assert.Equal(t, models.TokenActive, reg.TokenStatus)
	assert.Len(t, reg.CheckInToken, 32) // 128 bits, hex encoded
	assert.Nil(t, reg.CheckedInAt)
	assert.False(t, reg.RegisteredAt.IsZero())
	assert.Equal(t, "203.0.113.9", reg.IPAddress)

	// Form data is stored encrypted and decrypts back to the cleaned record
	assert.NotContains(t, reg.RegistrationData, "Ada Lovelace")
	data, err := svc.DecryptData(reg)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", data["name"])
	assert.Equal(t, "ada@example.com", data["email"])

	// Quota counter moved with the insert
	sub, err := svc.Usage(context.Background(), tc.Org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.RegistrationCount)
}

func TestSubmitResolvesEntryBySlug(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	input := validInput(tc.Org.Slug)
	input.QRLabel = "main-entrance"

	reg, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.QRCodeID)
}

func TestSubmitUnknownOrg(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	svc := newService(tc)

	_, err := svc.Submit(context.Background(), validInput("no-such-org"))
	assert.ErrorIs(t, err, registration.ErrOrganizationNotFound)
}

func TestSubmitUnknownQRLabel(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	input := validInput(tc.Org.Slug)
	input.QRLabel = "nonexistent"

	_, err := svc.Submit(context.Background(), input)
	assert.ErrorIs(t, err, registration.ErrFormNotFound)
}

func TestSubmitInactiveEntryRejected(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	// "side" exists in the set but is deactivated
	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	input := validInput(tc.Org.Slug)
	input.QRLabel = "side"

	_, err := svc.Submit(context.Background(), input)
	assert.ErrorIs(t, err, registration.ErrFormNotFound)
}

func TestSubmitMissingRequiredField(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	input := validInput(tc.Org.Slug)
	input.FormData = map[string]interface{}{"email": "a@b.com"}

	_, err := svc.Submit(context.Background(), input)

	var verr *forms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	// No row was created and the counter did not move
	var count int64
	tc.DB.Model(&models.Registration{}).Count(&count)
	assert.Zero(t, count)

	sub, err := svc.Usage(context.Background(), tc.Org.ID)
	require.NoError(t, err)
	assert.Zero(t, sub.RegistrationCount)
}

func TestSubmitLimitBoundary(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	require.NoError(t, tc.DB.Model(&models.Subscription{}).
		Where("organization_id = ?", tc.Org.ID).
		Updates(map[string]interface{}{
			"registration_limit": 5,
			"registration_count": 4,
		}).Error)

	// One seat left: this submission succeeds and fills the plan
	_, err := svc.Submit(context.Background(), validInput(tc.Org.Slug))
	require.NoError(t, err)

	sub, err := svc.Usage(context.Background(), tc.Org.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.RegistrationCount)

	// At the limit: distinguished error with counters and upgrade link
	_, err = svc.Submit(context.Background(), validInput(tc.Org.Slug))

	var lerr *registration.LimitExceededError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 5, lerr.CurrentCount)
	assert.Equal(t, 5, lerr.Limit)
	assert.NotEmpty(t, lerr.UpgradeURL)

	// The failed submission inserted nothing
	var count int64
	tc.DB.Model(&models.Registration{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTokenUniqueness(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		reg, err := svc.Submit(context.Background(), validInput(tc.Org.Slug))
		require.NoError(t, err)
		assert.False(t, seen[reg.CheckInToken], "duplicate token issued")
		seen[reg.CheckInToken] = true
	}
}

func TestRepeatSubmissionsCreateIndependentRows(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	first, err := svc.Submit(context.Background(), validInput(tc.Org.Slug))
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), validInput(tc.Org.Slug))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.CheckInToken, second.CheckInToken)
}

func TestListWithODataDescriptor(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	svc := newService(tc)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
		status := models.DeliveryPending
		if i >= 5 {
			status = models.DeliveryDelivered
		}
		require.NoError(t, tc.DB.Model(reg).Updates(map[string]interface{}{
			"delivery_status": status,
			"registered_at":   base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	q := odata.Parse(url.Values{
		"$filter":  {"deliveryStatus eq pending"},
		"$orderby": {"registeredAt desc"},
		"$top":     {"2"},
		"$skip":    {"1"},
		"$count":   {"true"},
	})

	regs, total, err := svc.List(context.Background(), tc.Org.ID, q)
	require.NoError(t, err)

	// 5 pending total; page is a slice of the sorted filtered set
	require.NotNil(t, total)
	assert.Equal(t, int64(5), *total)
	require.Len(t, regs, 2)
	assert.True(t, regs[0].RegisteredAt.After(regs[1].RegisteredAt))
	// skip=1 dropped the newest pending row (offset 4h), leaving 3h and 2h
	assert.Equal(t, base.Add(3*time.Hour).Unix(), regs[0].RegisteredAt.Unix())
	assert.Equal(t, base.Add(2*time.Hour).Unix(), regs[1].RegisteredAt.Unix())
}

func TestListScopedToOrganization(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)

	other := testutil.CreateTestOrg(t, tc.DB, 100)
	otherSet := testutil.CreateTestQRCodeSet(t, tc.DB, other.ID)
	testutil.CreateTestRegistration(t, tc.DB, other, otherSet)

	svc := newService(tc)

	regs, _, err := svc.List(context.Background(), tc.Org.ID, odata.Query{})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, tc.Org.ID, regs[0].OrganizationID)
}

func TestUpdateDelivery(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()

	set := testutil.CreateTestQRCodeSet(t, tc.DB, tc.Org.ID)
	reg := testutil.CreateTestRegistration(t, tc.DB, tc.Org, set)
	svc := newService(tc)

	updated, err := svc.UpdateDelivery(context.Background(), tc.Org.ID, reg.ID, models.DeliveryDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, updated.DeliveryStatus)
	assert.NotNil(t, updated.DeliveredAt)

	// Check-in axis untouched
	assert.Equal(t, models.TokenActive, updated.TokenStatus)

	// Moving back to pending clears the delivery timestamp
	updated, err = svc.UpdateDelivery(context.Background(), tc.Org.ID, reg.ID, models.DeliveryPending)
	require.NoError(t, err)
	assert.Nil(t, updated.DeliveredAt)

	_, err = svc.UpdateDelivery(context.Background(), tc.Org.ID, reg.ID, "shipped")
	assert.ErrorIs(t, err, registration.ErrInvalidDeliveryState)
}

func TestNewCheckInToken(t *testing.T) {
	token, err := registration.NewCheckInToken()
	require.NoError(t, err)
	assert.Len(t, token, 32)
	assert.Regexp(t, "^[0-9a-f]+$", token)
}
