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

type vaultFixture struct {
	mem     *store.Memory
	service VaultService
	account *domain.Account
	vault   *domain.Vault
}

func newVaultFixture(t *testing.T, status domain.SubscriptionStatus) *vaultFixture {
	t.Helper()

	logger := testLogger()
	mem := store.NewMemory()

	account := &domain.Account{
		ID:                 uuid.New(),
		Email:              "owner@example.com",
		PlanID:             "family",
		SubscriptionStatus: status,
	}
	require.NoError(t, mem.CreateAccount(context.Background(), account))

	service := NewVaultService(mem, logger)
	vault, err := service.Create(context.Background(), CreateVaultParams{
		AccountID: account.ID,
		Title:     "Letters for later",
	})
	require.NoError(t, err)

	return &vaultFixture{mem: mem, service: service, account: account, vault: vault}
}

func (fx *vaultFixture) addMessage(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.mem.CreateContent(context.Background(), &domain.Content{
		ID:      uuid.New(),
		VaultID: fx.vault.ID,
		Type:    domain.ContentTypeMessage,
		Body:    "a letter",
	}))
}

func TestFinalize_NoSubscriptionRejectedFirst(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusInactive)
	fx.addMessage(t)

	_, err := fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))

	vault, getErr := fx.mem.GetVault(context.Background(), fx.vault.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.VaultStatusDraft, vault.Status, "rejected finalize must not move the vault")
}

func TestFinalize_ExpiredSubscriptionRejected(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusExpired)
	fx.addMessage(t)

	_, err := fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
}

func TestFinalize_EmptyVaultRejected(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusActive)

	_, err := fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.Error(t, err)
	assert.Equal(t, domain.EEMPTY, domain.ErrorCode(err))
}

func TestFinalize_NoSubscriptionWinsOverEmpty(t *testing.T) {
	// Both gates would reject; the subscription gate is checked first.
	fx := newVaultFixture(t, domain.SubscriptionStatusInactive)

	_, err := fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
}

func TestFinalize_Succeeds(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusActive)
	fx.addMessage(t)

	vault, err := fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.VaultStatusFinalized, vault.Status)

	stored, err := fx.mem.GetVault(context.Background(), fx.vault.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VaultStatusFinalized, stored.Status)
}

func TestFinalize_SchedulesDelivery(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusActive)
	fx.addMessage(t)

	deliverAt := time.Now().Add(24 * time.Hour).UTC()
	vault, err := fx.service.Finalize(context.Background(), fx.vault.ID, &deliverAt)
	require.NoError(t, err)

	require.NotNil(t, vault.DeliverAt)
	assert.True(t, vault.DeliverAt.Equal(deliverAt))

	stored, err := fx.mem.GetVault(context.Background(), fx.vault.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DeliverAt)
	assert.True(t, stored.DeliverAt.Equal(deliverAt))
}

func TestFinalize_SecondCallConflicts(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusActive)
	fx.addMessage(t)

	_, err := fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.NoError(t, err)

	_, err = fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestFinalize_DeliveredVaultIsFrozen(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusActive)
	fx.addMessage(t)

	_, err := fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.NoError(t, err)
	require.NoError(t, fx.service.Deliver(context.Background(), fx.vault.ID))

	_, err = fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.Error(t, err)
	assert.Equal(t, domain.EFROZEN, domain.ErrorCode(err))
}

func TestDeliver_RequiresFinalized(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusActive)

	err := fx.service.Deliver(context.Background(), fx.vault.ID)
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestArchive_RequiresDelivered(t *testing.T) {
	fx := newVaultFixture(t, domain.SubscriptionStatusActive)
	fx.addMessage(t)

	err := fx.service.Archive(context.Background(), fx.vault.ID)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

	_, err = fx.service.Finalize(context.Background(), fx.vault.ID, nil)
	require.NoError(t, err)
	require.NoError(t, fx.service.Deliver(context.Background(), fx.vault.ID))
	require.NoError(t, fx.service.Archive(context.Background(), fx.vault.ID))

	stored, err := fx.mem.GetVault(context.Background(), fx.vault.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VaultStatusArchived, stored.Status)
}

func TestCreate_RequiresTitleAndAccount(t *testing.T) {
	logger := testLogger()
	mem := store.NewMemory()
	service := NewVaultService(mem, logger)

	_, err := service.Create(context.Background(), CreateVaultParams{AccountID: uuid.New()})
	require.Error(t, err)

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = service.Create(context.Background(), CreateVaultParams{
		AccountID: uuid.New(),
		Title:     "Orphan",
	})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
