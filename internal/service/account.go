// Package service contains the business logic layer.
//
// This file implements account operations: registration, plan switching,
// and the subscription sync the Stripe webhook drives. The subscription
// gate reads what this file writes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// AccountService defines account lifecycle operations.
type AccountService interface {
	// Create registers an account on the given plan with an inactive
	// subscription. Returns domain.ENOTFOUND for an unknown plan.
	Create(ctx context.Context, email, name, planID string) (*domain.Account, error)

	// Get retrieves an account by ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// SwitchPlan moves the account to another plan. A recipient count above
	// the new ceiling is kept as-is; admission simply stays closed until the
	// count drops below the ceiling again.
	SwitchPlan(ctx context.Context, id uuid.UUID, planID string) error

	// SyncSubscription applies a subscription state reported by billing to
	// the account owning the Stripe customer.
	SyncSubscription(ctx context.Context, customerID, subscriptionID string, status domain.SubscriptionStatus, expiresAt *time.Time) error
}

// =============================================================================
// Implementation
// =============================================================================

type accountService struct {
	store  store.Store
	plans  PlanService
	logger *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(st store.Store, plans PlanService, logger *slog.Logger) AccountService {
	return &accountService{store: st, plans: plans, logger: logger}
}

func (s *accountService) Create(ctx context.Context, email, name, planID string) (*domain.Account, error) {
	const op = "account.create"

	if _, err := s.plans.Get(ctx, planID); err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:                 uuid.New(),
		Email:              email,
		Name:               name,
		PlanID:             planID,
		SubscriptionStatus: domain.SubscriptionStatusInactive,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, domain.Internal(err, op, "failed to create account")
	}

	s.logger.Info("account created", "account_id", account.ID, "plan", planID)
	return account, nil
}

func (s *accountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	const op = "account.get"

	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "account", id.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch account")
	}
	return account, nil
}

func (s *accountService) SwitchPlan(ctx context.Context, id uuid.UUID, planID string) error {
	const op = "account.switch_plan"

	if _, err := s.plans.Get(ctx, planID); err != nil {
		return err
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	account.PlanID = planID
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return domain.Internal(err, op, "failed to update account")
	}

	s.logger.Info("account switched plan", "account_id", id, "plan", planID)
	return nil
}

func (s *accountService) SyncSubscription(ctx context.Context, customerID, subscriptionID string, status domain.SubscriptionStatus, expiresAt *time.Time) error {
	const op = "account.sync_subscription"

	if !status.IsValid() {
		return domain.Invalid(op, "unknown subscription status")
	}

	account, err := s.store.GetAccountByStripeCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound(op, "account for customer", customerID)
		}
		return domain.Internal(err, op, "failed to resolve customer")
	}

	account.SubscriptionID = subscriptionID
	account.SubscriptionStatus = status
	account.SubscriptionExpiresAt = expiresAt
	if err := s.store.UpdateAccount(ctx, account); err != nil {
		return domain.Internal(err, op, "failed to update subscription state")
	}

	s.logger.Info("subscription synced",
		"account_id", account.ID,
		"status", status,
		"subscription_id", subscriptionID,
	)
	return nil
}
