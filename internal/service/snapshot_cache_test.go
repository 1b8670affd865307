package service

import (
	"context"
	"testing"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, mem *store.Memory, vaultID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, mem.CreateContent(context.Background(), &domain.Content{
			ID:      uuid.New(),
			VaultID: vaultID,
			Type:    domain.ContentTypeMessage,
			Order:   i,
			Body:    "hello",
		}))
	}
}

func TestSnapshotCache_ColdKeyComputesSynchronously(t *testing.T) {
	mem := store.NewMemory()
	cache := NewSnapshotCache(mem, testLogger())
	vaultID := uuid.New()
	seedMessages(t, mem, vaultID, 3)

	snapshot, err := cache.Get(context.Background(), vaultID)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.Messages)
}

func TestSnapshotCache_WarmKeyServesLastKnown(t *testing.T) {
	mem := store.NewMemory()
	cache := NewSnapshotCache(mem, testLogger())
	vaultID := uuid.New()
	seedMessages(t, mem, vaultID, 2)

	_, err := cache.Get(context.Background(), vaultID)
	require.NoError(t, err)

	// A write the cache has not seen yet.
	seedMessages(t, mem, vaultID, 1)

	snapshot, err := cache.Get(context.Background(), vaultID)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Messages, "warm read returns the last-known value")

	// The warm read kicked off a background refresh; the new count
	// becomes visible shortly after.
	assert.Eventually(t, func() bool {
		s, err := cache.Get(context.Background(), vaultID)
		return err == nil && s.Messages == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSnapshotCache_InvalidateForcesRecompute(t *testing.T) {
	mem := store.NewMemory()
	cache := NewSnapshotCache(mem, testLogger())
	vaultID := uuid.New()
	seedMessages(t, mem, vaultID, 1)

	_, err := cache.Get(context.Background(), vaultID)
	require.NoError(t, err)

	seedMessages(t, mem, vaultID, 4)
	cache.Invalidate(vaultID)

	snapshot, err := cache.Get(context.Background(), vaultID)
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.Messages, "invalidated key recomputes on the next read")
}

func TestSnapshotCache_UnknownVaultIsEmpty(t *testing.T) {
	mem := store.NewMemory()
	cache := NewSnapshotCache(mem, testLogger())

	snapshot, err := cache.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.QuotaSnapshot{}, snapshot)
}
