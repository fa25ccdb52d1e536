package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/onboarding"
	"github.com/rvegajr/blessbox-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleScanCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	org := testutil.CreateTestOrg(t, db, 100)
	set := testutil.CreateTestQRCodeSet(t, db, org.ID)

	h := NewHandler(db, testutil.NewTestLogger(), nil, onboarding.NewMemoryStore())

	task, err := NewScanCountTask(ScanCountPayload{QRCodeSetID: set.ID})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.HandleScanCount(context.Background(), task))
	}

	var stored models.QRCodeSet
	require.NoError(t, db.First(&stored, set.ID).Error)
	assert.Equal(t, 3, stored.ScanCount)
}

func TestHandleSessionCleanup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	store := onboarding.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user-1", &onboarding.SessionState{Step: "org"}, time.Millisecond))
	require.NoError(t, store.Put(ctx, "user-2", &onboarding.SessionState{Step: "org"}, time.Hour))
	time.Sleep(5 * time.Millisecond)

	h := NewHandler(db, testutil.NewTestLogger(), nil, store)

	require.NoError(t, h.HandleSessionCleanup(ctx, NewSessionCleanupTask()))

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, onboarding.ErrSessionNotFound)

	_, err = store.Get(ctx, "user-2")
	assert.NoError(t, err)
}
