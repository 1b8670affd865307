package store

import (
	"context"
	"testing"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CountsSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	vaultID := uuid.New()
	otherVault := uuid.New()

	add := func(vault uuid.UUID, contentType domain.ContentType, album int) {
		t.Helper()
		require.NoError(t, m.CreateContent(ctx, &domain.Content{
			ID:          uuid.New(),
			VaultID:     vault,
			Type:        contentType,
			AlbumNumber: album,
		}))
	}

	add(vaultID, domain.ContentTypePhoto, 1)
	add(vaultID, domain.ContentTypePhoto, 1)
	add(vaultID, domain.ContentTypePhoto, 3)
	add(vaultID, domain.ContentTypeVideo, 0)
	add(vaultID, domain.ContentTypeMessage, 0)
	add(otherVault, domain.ContentTypePhoto, 1) // must not leak across vaults

	snapshot, err := m.CountsSnapshot(ctx, vaultID)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.PhotosTotal)
	assert.Equal(t, 2, snapshot.InAlbum(1))
	assert.Equal(t, 0, snapshot.InAlbum(2))
	assert.Equal(t, 1, snapshot.InAlbum(3))
	assert.Equal(t, 1, snapshot.Videos)
	assert.Equal(t, 1, snapshot.Messages)
	assert.Equal(t, 5, snapshot.ContentTotal())
}

func TestMemory_DeleteContent_NoDoubleFree(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	vaultID := uuid.New()
	content := &domain.Content{ID: uuid.New(), VaultID: vaultID, Type: domain.ContentTypeMessage}
	require.NoError(t, m.CreateContent(ctx, content))

	require.NoError(t, m.DeleteContent(ctx, content.ID, vaultID))

	err := m.DeleteContent(ctx, content.ID, vaultID)
	assert.ErrorIs(t, err, ErrNotFound)

	snapshot, err := m.CountsSnapshot(ctx, vaultID)
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.ContentTotal())
}

func TestMemory_DeleteContent_WrongVault(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	content := &domain.Content{ID: uuid.New(), VaultID: uuid.New(), Type: domain.ContentTypeMessage}
	require.NoError(t, m.CreateContent(ctx, content))

	err := m.DeleteContent(ctx, content.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateVaultStatus_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	vault := &domain.Vault{ID: uuid.New(), AccountID: uuid.New()}
	require.NoError(t, m.CreateVault(ctx, vault))
	assert.Equal(t, domain.VaultStatusDraft, vault.Status)

	require.NoError(t, m.UpdateVaultStatus(ctx, vault.ID, domain.VaultStatusDraft, domain.VaultStatusFinalizing))

	err := m.UpdateVaultStatus(ctx, vault.ID, domain.VaultStatusDraft, domain.VaultStatusFinalizing)
	assert.ErrorIs(t, err, ErrStaleStatus)

	err = m.UpdateVaultStatus(ctx, uuid.New(), domain.VaultStatusDraft, domain.VaultStatusFinalizing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListDueVaults(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := &domain.Vault{ID: uuid.New(), AccountID: uuid.New(), Status: domain.VaultStatusFinalized, DeliverAt: &past}
	notYet := &domain.Vault{ID: uuid.New(), AccountID: uuid.New(), Status: domain.VaultStatusFinalized, DeliverAt: &future}
	draft := &domain.Vault{ID: uuid.New(), AccountID: uuid.New(), Status: domain.VaultStatusDraft, DeliverAt: &past}
	require.NoError(t, m.CreateVault(ctx, due))
	require.NoError(t, m.CreateVault(ctx, notYet))
	require.NoError(t, m.CreateVault(ctx, draft))

	vaults, err := m.ListDueVaults(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	assert.Equal(t, due.ID, vaults[0].ID)
}

func TestMemory_CountRecipients(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	accountID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.CreateRecipient(ctx, &domain.Recipient{
			ID:        uuid.New(),
			AccountID: accountID,
			Name:      "r",
			Email:     "r@example.com",
		}))
	}
	require.NoError(t, m.CreateRecipient(ctx, &domain.Recipient{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Name:      "other",
		Email:     "o@example.com",
	}))

	count, err := m.CountRecipients(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
