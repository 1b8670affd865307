// Package service contains the business logic layer.
//
// This file implements recipient admission against the owning account's
// plan ceiling. The count check and the row write run as one atomic unit
// under the account's scope lock, and the count is always recomputed from
// storage rather than kept as a separate mutable integer.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/metrics"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PlanInfo summarizes what the account's plan still allows.
type PlanInfo struct {
	CurrentPlan         string
	RecipientsLimit     domain.RecipientLimit
	RemainingRecipients int // -1 when unlimited
	CanAddRecipient     bool
}

// RecipientList is the projection the recipients endpoint serves.
type RecipientList struct {
	Recipients []domain.Recipient
	PlanInfo   PlanInfo
}

// RecipientService defines recipient admission and lifecycle operations.
type RecipientService interface {
	// Admit registers a new recipient if the account's plan ceiling allows
	// one more. Returns domain.EQUOTA with a QuotaExceededError detail when
	// the ceiling is reached, domain.EINVALID for bad params.
	Admit(ctx context.Context, params domain.CreateRecipientParams) (*domain.Recipient, error)

	// Update edits a recipient's contact fields. Never touches any counter.
	// Returns domain.ENOTFOUND if the recipient doesn't belong to the account.
	Update(ctx context.Context, params domain.UpdateRecipientParams) error

	// Release deletes a recipient, freeing one unit of the account's
	// recipient quota. Returns domain.ENOTFOUND on a second delete of the
	// same ID; it never double-frees.
	Release(ctx context.Context, id, accountID uuid.UUID) error

	// List returns the account's recipients plus the plan projection the
	// recipients page renders.
	List(ctx context.Context, accountID uuid.UUID) (*RecipientList, error)
}

// =============================================================================
// Implementation
// =============================================================================

type recipientService struct {
	store  store.Store
	plans  PlanService
	locks  *scopeLocks
	logger *slog.Logger
}

// NewRecipientService creates a new RecipientService.
func NewRecipientService(st store.Store, plans PlanService, logger *slog.Logger) RecipientService {
	return &recipientService{
		store:  st,
		plans:  plans,
		locks:  newScopeLocks(),
		logger: logger,
	}
}

// Admit registers a new recipient under the account scope lock.
func (s *recipientService) Admit(ctx context.Context, params domain.CreateRecipientParams) (*domain.Recipient, error) {
	const op = "recipient.admit"

	if err := params.Validate(op); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, params.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "account", params.AccountID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch account")
	}

	limit, err := s.plans.LimitFor(ctx, account.PlanID)
	if err != nil {
		return nil, err
	}

	// The count check and the insert form one atomic unit per account.
	unlock := s.locks.acquire(recipientScopeKey(account.ID))
	defer unlock()

	current, err := s.store.CountRecipients(ctx, account.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count recipients")
	}

	if err := domain.AdmitRecipient(op, limit, current); err != nil {
		s.logger.Info("recipient admission rejected",
			"account_id", account.ID,
			"plan", account.PlanID,
			"current", current,
			"limit", int(limit),
		)
		metrics.AdmissionsTotal.WithLabelValues(string(domain.ScopeRecipients), metrics.OutcomeRejected).Inc()
		return nil, err
	}

	recipient := &domain.Recipient{
		ID:        uuid.New(),
		AccountID: account.ID,
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		Relation:  params.Relation,
	}
	if err := s.store.CreateRecipient(ctx, recipient); err != nil {
		return nil, domain.Internal(err, op, "failed to create recipient")
	}

	metrics.AdmissionsTotal.WithLabelValues(string(domain.ScopeRecipients), metrics.OutcomeAdmitted).Inc()
	s.logger.Info("recipient admitted",
		"recipient_id", recipient.ID,
		"account_id", account.ID,
		"count", current+1,
	)
	return recipient, nil
}

// Update edits contact fields in place.
func (s *recipientService) Update(ctx context.Context, params domain.UpdateRecipientParams) error {
	const op = "recipient.update"

	recipient := &domain.Recipient{
		ID:        params.ID,
		AccountID: params.AccountID,
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		Relation:  params.Relation,
	}
	if err := s.store.UpdateRecipient(ctx, recipient); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound(op, "recipient", params.ID.String())
		}
		return domain.Internal(err, op, "failed to update recipient")
	}
	return nil
}

// Release deletes a recipient under the account scope lock so the freed
// unit becomes visible atomically with the row's removal.
func (s *recipientService) Release(ctx context.Context, id, accountID uuid.UUID) error {
	const op = "recipient.release"

	unlock := s.locks.acquire(recipientScopeKey(accountID))
	defer unlock()

	if err := s.store.DeleteRecipient(ctx, id, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound(op, "recipient", id.String())
		}
		return domain.Internal(err, op, "failed to delete recipient")
	}

	s.logger.Info("recipient released", "recipient_id", id, "account_id", accountID)
	return nil
}

// List returns the account's recipients along with the plan projection.
func (s *recipientService) List(ctx context.Context, accountID uuid.UUID) (*RecipientList, error) {
	const op = "recipient.list"

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "account", accountID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch account")
	}

	limit, err := s.plans.LimitFor(ctx, account.PlanID)
	if err != nil {
		return nil, err
	}

	recipients, err := s.store.ListRecipients(ctx, accountID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list recipients")
	}

	current := len(recipients)
	return &RecipientList{
		Recipients: recipients,
		PlanInfo: PlanInfo{
			CurrentPlan:         account.PlanID,
			RecipientsLimit:     limit,
			RemainingRecipients: limit.Remaining(current),
			CanAddRecipient:     limit.Allows(current),
		},
	}, nil
}
