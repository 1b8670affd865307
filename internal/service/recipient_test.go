package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recipientFixture struct {
	mem      *store.Memory
	accounts AccountService
	service  RecipientService
	account  *domain.Account
}

func newRecipientFixture(t *testing.T, planID string) *recipientFixture {
	t.Helper()

	logger := testLogger()
	mem := store.NewMemory()
	mem.SeedPlans(
		domain.Plan{ID: "essentials", Title: "Essentials", PriceCents: 900, RecipientsLimit: 2},
		domain.Plan{ID: "family", Title: "Family", PriceCents: 1900, RecipientsLimit: 10, MostPopular: true},
		domain.Plan{ID: "legacy", Title: "Legacy", PriceCents: 3900, RecipientsLimit: domain.UnlimitedRecipients},
	)

	plans := NewPlanService(mem, logger)
	accounts := NewAccountService(mem, plans, logger)

	account, err := accounts.Create(context.Background(), "owner@example.com", "Owner", planID)
	require.NoError(t, err)

	return &recipientFixture{
		mem:      mem,
		accounts: accounts,
		service:  NewRecipientService(mem, plans, logger),
		account:  account,
	}
}

func (fx *recipientFixture) admit(t *testing.T, name string) *domain.Recipient {
	t.Helper()
	rec, err := fx.service.Admit(context.Background(), domain.CreateRecipientParams{
		AccountID: fx.account.ID,
		Name:      name,
		Email:     name + "@example.com",
	})
	require.NoError(t, err)
	return rec
}

func TestAdmit_UnderCeiling(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	rec := fx.admit(t, "alice")
	assert.Equal(t, fx.account.ID, rec.AccountID)
	assert.NotEqual(t, uuid.Nil, rec.ID)
}

func TestAdmit_AtCeilingRejectsWithDetail(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	fx.admit(t, "alice")
	fx.admit(t, "bob")

	_, err := fx.service.Admit(context.Background(), domain.CreateRecipientParams{
		AccountID: fx.account.ID,
		Name:      "carol",
		Email:     "carol@example.com",
	})
	require.Error(t, err)
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))

	var detail *domain.QuotaExceededError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, domain.ScopeRecipients, detail.Scope)
	assert.Equal(t, 2, detail.Limit)
	assert.Equal(t, 2, detail.Current)
}

func TestAdmit_PlanSwitchReopensAdmission(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	fx.admit(t, "alice")
	fx.admit(t, "bob")

	params := domain.CreateRecipientParams{
		AccountID: fx.account.ID,
		Name:      "carol",
		Email:     "carol@example.com",
	}
	_, err := fx.service.Admit(context.Background(), params)
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))

	require.NoError(t, fx.accounts.SwitchPlan(context.Background(), fx.account.ID, "family"))

	// The identical call now passes: the count never moved, only the ceiling.
	_, err = fx.service.Admit(context.Background(), params)
	require.NoError(t, err)
}

func TestAdmit_UnlimitedPlanNeverRejects(t *testing.T) {
	fx := newRecipientFixture(t, "legacy")

	for i := 0; i < 50; i++ {
		fx.admit(t, fmt.Sprintf("person%d", i))
	}
}

func TestAdmit_ValidationRejectsBadParams(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	_, err := fx.service.Admit(context.Background(), domain.CreateRecipientParams{
		AccountID: fx.account.ID,
		Name:      "",
		Email:     "not-an-email",
	})
	require.Error(t, err)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "email")
}

func TestAdmit_ConcurrentRespectsCeiling(t *testing.T) {
	fx := newRecipientFixture(t, "family")

	const attempts = 30
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.service.Admit(context.Background(), domain.CreateRecipientParams{
				AccountID: fx.account.ID,
				Name:      fmt.Sprintf("person%d", i),
				Email:     fmt.Sprintf("person%d@example.com", i),
			})
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		if err == nil {
			admitted++
		}
	}
	assert.Equal(t, 10, admitted)

	count, err := fx.mem.CountRecipients(context.Background(), fx.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestRelease_FreesExactlyOneUnit(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	alice := fx.admit(t, "alice")
	fx.admit(t, "bob")

	require.NoError(t, fx.service.Release(context.Background(), alice.ID, fx.account.ID))

	// One slot came back.
	fx.admit(t, "carol")
	_, err := fx.service.Admit(context.Background(), domain.CreateRecipientParams{
		AccountID: fx.account.ID,
		Name:      "dave",
		Email:     "dave@example.com",
	})
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))
}

func TestRecipientRelease_SecondDeleteIsNotFound(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	alice := fx.admit(t, "alice")

	require.NoError(t, fx.service.Release(context.Background(), alice.ID, fx.account.ID))

	err := fx.service.Release(context.Background(), alice.ID, fx.account.ID)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestUpdate_NeverTouchesTheCount(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	alice := fx.admit(t, "alice")
	fx.admit(t, "bob")

	// At the ceiling; edits must still go through.
	err := fx.service.Update(context.Background(), domain.UpdateRecipientParams{
		ID:        alice.ID,
		AccountID: fx.account.ID,
		Name:      "Alice Cooper",
		Email:     "alice@example.com",
	})
	require.NoError(t, err)

	count, err := fx.mem.CountRecipients(context.Background(), fx.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestList_CarriesPlanProjection(t *testing.T) {
	fx := newRecipientFixture(t, "essentials")

	fx.admit(t, "alice")

	list, err := fx.service.List(context.Background(), fx.account.ID)
	require.NoError(t, err)

	assert.Len(t, list.Recipients, 1)
	assert.Equal(t, "essentials", list.PlanInfo.CurrentPlan)
	assert.Equal(t, domain.RecipientLimit(2), list.PlanInfo.RecipientsLimit)
	assert.Equal(t, 1, list.PlanInfo.RemainingRecipients)
	assert.True(t, list.PlanInfo.CanAddRecipient)

	fx.admit(t, "bob")
	list, err = fx.service.List(context.Background(), fx.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, list.PlanInfo.RemainingRecipients)
	assert.False(t, list.PlanInfo.CanAddRecipient)
}

func TestList_UnlimitedPlanReportsMinusOne(t *testing.T) {
	fx := newRecipientFixture(t, "legacy")

	fx.admit(t, "alice")

	list, err := fx.service.List(context.Background(), fx.account.ID)
	require.NoError(t, err)

	assert.Equal(t, -1, list.PlanInfo.RemainingRecipients)
	assert.True(t, list.PlanInfo.CanAddRecipient)
}
