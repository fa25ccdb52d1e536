package onboarding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state := &SessionState{
		Step: "org-details",
		OrgDraft: OrgDraft{
			Name: "Grace Church",
			Slug: "grace-church",
			Plan: "free",
		},
		UpdatedAt: time.Now(),
	}

	require.NoError(t, store.Put(ctx, "user-1", state, time.Minute))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "org-details", got.Step)
	assert.Equal(t, "grace-church", got.OrgDraft.Slug)

	// Returned state is a copy; mutating it must not affect the store
	got.Step = "mutated"
	again, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "org-details", again.Step)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user-1", &SessionState{Step: "start"}, time.Minute))
	require.NoError(t, store.Delete(ctx, "user-1"))

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, "user-1", &SessionState{Step: "start"}, time.Minute))
	require.NoError(t, store.Put(ctx, "user-2", &SessionState{Step: "start"}, time.Hour))

	current = current.Add(5 * time.Minute)

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Get(ctx, "user-2")
	assert.NoError(t, err)

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
