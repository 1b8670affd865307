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

func newAccountFixture(t *testing.T) (*store.Memory, AccountService) {
	t.Helper()
	mem := store.NewMemory()
	mem.SeedPlans(
		domain.Plan{ID: "essentials", Title: "Essentials", PriceCents: 900, RecipientsLimit: 2},
		domain.Plan{ID: "family", Title: "Family", PriceCents: 1900, RecipientsLimit: 10},
	)
	plans := NewPlanService(mem, testLogger())
	return mem, NewAccountService(mem, plans, testLogger())
}

func TestAccountCreate_StartsInactive(t *testing.T) {
	_, accounts := newAccountFixture(t)

	account, err := accounts.Create(context.Background(), "a@example.com", "Ada", "essentials")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusInactive, account.SubscriptionStatus)
	assert.Equal(t, "essentials", account.PlanID)
}

func TestAccountCreate_UnknownPlan(t *testing.T) {
	_, accounts := newAccountFixture(t)

	_, err := accounts.Create(context.Background(), "a@example.com", "Ada", "platinum")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestSwitchPlan_UnknownPlanRejected(t *testing.T) {
	_, accounts := newAccountFixture(t)

	account, err := accounts.Create(context.Background(), "a@example.com", "Ada", "essentials")
	require.NoError(t, err)

	err = accounts.SwitchPlan(context.Background(), account.ID, "platinum")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	got, err := accounts.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "essentials", got.PlanID)
}

func TestSyncSubscription_UpdatesByCustomerID(t *testing.T) {
	mem, accounts := newAccountFixture(t)

	account, err := accounts.Create(context.Background(), "a@example.com", "Ada", "family")
	require.NoError(t, err)

	account.StripeCustomerID = "cus_123"
	require.NoError(t, mem.UpdateAccount(context.Background(), account))

	expires := time.Now().Add(30 * 24 * time.Hour).UTC()
	err = accounts.SyncSubscription(context.Background(), "cus_123", "sub_456", domain.SubscriptionStatusActive, &expires)
	require.NoError(t, err)

	got, err := accounts.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, got.SubscriptionStatus)
	assert.Equal(t, "sub_456", got.SubscriptionID)
	require.NotNil(t, got.SubscriptionExpiresAt)
	assert.True(t, got.SubscriptionExpiresAt.Equal(expires))
}

func TestSyncSubscription_UnknownCustomer(t *testing.T) {
	_, accounts := newAccountFixture(t)

	err := accounts.SyncSubscription(context.Background(), "cus_ghost", "", domain.SubscriptionStatusInactive, nil)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestSyncSubscription_RejectsBadStatus(t *testing.T) {
	_, accounts := newAccountFixture(t)

	err := accounts.SyncSubscription(context.Background(), "cus_123", "", domain.SubscriptionStatus("meh"), nil)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestAccountGet_UnknownID(t *testing.T) {
	_, accounts := newAccountFixture(t)

	_, err := accounts.Get(context.Background(), uuid.New())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
