// Package service contains the business logic layer.
//
// This file implements the plan catalog: a pure lookup over registered
// subscription plans and the recipient ceiling each one grants.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/store"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PlanService defines the plan catalog operations.
type PlanService interface {
	// List returns all registered plans, cheapest first.
	List(ctx context.Context) ([]domain.Plan, error)

	// Get retrieves a single plan.
	// Returns domain.ENOTFOUND for an unknown plan ID.
	Get(ctx context.Context, planID string) (*domain.Plan, error)

	// LimitFor returns the recipient ceiling of a plan. Pure lookup with no
	// side effects. Returns domain.ENOTFOUND for an unknown plan ID.
	LimitFor(ctx context.Context, planID string) (domain.RecipientLimit, error)
}

// =============================================================================
// Implementation
// =============================================================================

type planService struct {
	plans  store.PlanStore
	logger *slog.Logger
}

// NewPlanService creates a new PlanService.
func NewPlanService(plans store.PlanStore, logger *slog.Logger) PlanService {
	return &planService{plans: plans, logger: logger}
}

func (s *planService) List(ctx context.Context) ([]domain.Plan, error) {
	const op = "plan.list"

	plans, err := s.plans.ListPlans(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list plans")
	}
	return plans, nil
}

func (s *planService) Get(ctx context.Context, planID string) (*domain.Plan, error) {
	const op = "plan.get"

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "plan", planID)
		}
		return nil, domain.Internal(err, op, "failed to fetch plan")
	}
	return plan, nil
}

func (s *planService) LimitFor(ctx context.Context, planID string) (domain.RecipientLimit, error) {
	const op = "plan.limit_for"

	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, domain.NotFound(op, "plan", planID)
		}
		return 0, domain.Internal(err, op, "failed to fetch plan")
	}
	return plan.RecipientsLimit, nil
}
