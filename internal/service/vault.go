// Package service contains the business logic layer.
//
// This file implements the vault lifecycle and the subscription gate: a
// vault may move past draft only while the owning account's subscription
// is active and the vault holds at least one content item.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/metrics"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// CreateVaultParams holds the fields needed to open a vault.
type CreateVaultParams struct {
	AccountID       uuid.UUID
	Title           string
	Password        string // opaque to this core
	DeliveryMessage string
}

// VaultService defines vault lifecycle operations.
type VaultService interface {
	// Create opens a draft vault for the account.
	Create(ctx context.Context, params CreateVaultParams) (*domain.Vault, error)

	// Get retrieves a vault by ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Vault, error)

	// Finalize runs the subscription gate and, on success, moves the vault
	// draft -> finalizing -> finalized. deliverAt, when set, schedules the
	// delivery sweep. Returns domain.EPAYMENT when the subscription is not
	// active, domain.EEMPTY when the vault holds no content, domain.EFROZEN
	// when the vault is already past delivery.
	Finalize(ctx context.Context, id uuid.UUID, deliverAt *time.Time) (*domain.Vault, error)

	// Deliver moves a finalized vault to delivered, freezing all content
	// mutation from that point on. Used by the delivery worker.
	Deliver(ctx context.Context, id uuid.UUID) error

	// Archive moves a delivered vault to archived.
	Archive(ctx context.Context, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type vaultService struct {
	store  store.Store
	logger *slog.Logger
}

// NewVaultService creates a new VaultService.
func NewVaultService(st store.Store, logger *slog.Logger) VaultService {
	return &vaultService{store: st, logger: logger}
}

func (s *vaultService) Create(ctx context.Context, params CreateVaultParams) (*domain.Vault, error) {
	const op = "vault.create"

	if params.Title == "" {
		return nil, domain.NewValidationError(op, "title", "Title is required")
	}
	if _, err := s.store.GetAccount(ctx, params.AccountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "account", params.AccountID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch account")
	}

	vault := &domain.Vault{
		ID:              uuid.New(),
		AccountID:       params.AccountID,
		Title:           params.Title,
		Status:          domain.VaultStatusDraft,
		Password:        params.Password,
		DeliveryMessage: params.DeliveryMessage,
	}
	if err := s.store.CreateVault(ctx, vault); err != nil {
		return nil, domain.Internal(err, op, "failed to create vault")
	}

	s.logger.Info("vault created", "vault_id", vault.ID, "account_id", params.AccountID)
	return vault, nil
}

func (s *vaultService) Get(ctx context.Context, id uuid.UUID) (*domain.Vault, error) {
	const op = "vault.get"

	vault, err := s.store.GetVault(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "vault", id.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch vault")
	}
	return vault, nil
}

// Finalize runs the subscription gate.
func (s *vaultService) Finalize(ctx context.Context, id uuid.UUID, deliverAt *time.Time) (*domain.Vault, error) {
	const op = "vault.finalize"

	vault, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, vault.AccountID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to fetch account")
	}

	snapshot, err := s.store.CountsSnapshot(ctx, vault.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to compute quota snapshot")
	}

	if err := domain.GateFinalize(op, vault.Status, account, snapshot); err != nil {
		s.logger.Info("finalize rejected",
			"vault_id", vault.ID,
			"account_id", account.ID,
			"reason", domain.ErrorCode(err),
		)
		metrics.FinalizeTotal.WithLabelValues(domain.ErrorCode(err)).Inc()
		return nil, err
	}

	// The transient finalizing status is persisted so a crash in the gap is
	// observable; a concurrent finalize loses the compare-and-set.
	if err := s.store.UpdateVaultStatus(ctx, vault.ID, domain.VaultStatusDraft, domain.VaultStatusFinalizing); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, domain.Conflict(op, "vault is no longer in draft")
		}
		return nil, domain.Internal(err, op, "failed to mark vault finalizing")
	}

	if deliverAt != nil {
		vault.DeliverAt = deliverAt
		vault.Status = domain.VaultStatusFinalizing
		if err := s.store.UpdateVault(ctx, vault); err != nil {
			return nil, domain.Internal(err, op, "failed to schedule delivery")
		}
	}

	if err := s.store.UpdateVaultStatus(ctx, vault.ID, domain.VaultStatusFinalizing, domain.VaultStatusFinalized); err != nil {
		return nil, domain.Internal(err, op, "failed to finalize vault")
	}
	vault.Status = domain.VaultStatusFinalized

	metrics.FinalizeTotal.WithLabelValues(metrics.OutcomeFinalized).Inc()
	s.logger.Info("vault finalized", "vault_id", vault.ID, "account_id", account.ID)
	return vault, nil
}

func (s *vaultService) Deliver(ctx context.Context, id uuid.UUID) error {
	const op = "vault.deliver"

	if err := s.store.UpdateVaultStatus(ctx, id, domain.VaultStatusFinalized, domain.VaultStatusDelivered); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.NotFound(op, "vault", id.String())
		case errors.Is(err, store.ErrStaleStatus):
			return domain.Conflict(op, "vault is not finalized")
		default:
			return domain.Internal(err, op, "failed to deliver vault")
		}
	}

	metrics.DeliveriesTotal.Inc()
	s.logger.Info("vault delivered", "vault_id", id)
	return nil
}

func (s *vaultService) Archive(ctx context.Context, id uuid.UUID) error {
	const op = "vault.archive"

	if err := s.store.UpdateVaultStatus(ctx, id, domain.VaultStatusDelivered, domain.VaultStatusArchived); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.NotFound(op, "vault", id.String())
		case errors.Is(err, store.ErrStaleStatus):
			return domain.Conflict(op, "only delivered vaults can be archived")
		default:
			return domain.Internal(err, op, "failed to archive vault")
		}
	}

	s.logger.Info("vault archived", "vault_id", id)
	return nil
}
