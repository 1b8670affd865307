// Package store provides persistence for the Heirloom quota core.
//
// This package defines the Store interface with implementations for:
//   - Memory: in-process storage for tests and development
//   - Postgres: pgx-backed storage for production
//
// The store is the authoritative source of truth for every count the
// admission layer checks: counts are always recomputed from rows, never
// cached as independently mutable integers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNotFound is returned when a requested row doesn't exist. Deleting
	// an already deleted row returns it too; a delete never double-frees.
	ErrNotFound = errors.New("row not found")

	// ErrDuplicate is returned when inserting a row whose ID already exists.
	ErrDuplicate = errors.New("row already exists")

	// ErrStaleStatus is returned by compare-and-set status updates when the
	// row's current status no longer matches the expected one.
	ErrStaleStatus = errors.New("vault status changed concurrently")
)

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// Interface Definition
// =============================================================================

// PlanStore is the read-only plan catalog backing store.
type PlanStore interface {
	// GetPlan retrieves a plan by ID. Returns ErrNotFound for unknown plans.
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)

	// ListPlans returns all registered plans, cheapest first.
	ListPlans(ctx context.Context) ([]domain.Plan, error)
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateAccount(ctx context.Context, account *domain.Account) error

	// GetAccountByStripeCustomer resolves the account a Stripe webhook event
	// refers to. Returns ErrNotFound if the customer is unknown.
	GetAccountByStripeCustomer(ctx context.Context, customerID string) (*domain.Account, error)
}

// RecipientStore persists recipients. CountRecipients recomputes from rows
// on every call.
type RecipientStore interface {
	CreateRecipient(ctx context.Context, recipient *domain.Recipient) error
	GetRecipient(ctx context.Context, id, accountID uuid.UUID) (*domain.Recipient, error)
	ListRecipients(ctx context.Context, accountID uuid.UUID) ([]domain.Recipient, error)
	CountRecipients(ctx context.Context, accountID uuid.UUID) (int, error)
	UpdateRecipient(ctx context.Context, recipient *domain.Recipient) error

	// DeleteRecipient removes the row. Returns ErrNotFound if it is absent
	// or was already deleted.
	DeleteRecipient(ctx context.Context, id, accountID uuid.UUID) error
}

// VaultStore persists vaults.
type VaultStore interface {
	CreateVault(ctx context.Context, vault *domain.Vault) error
	GetVault(ctx context.Context, id uuid.UUID) (*domain.Vault, error)
	UpdateVault(ctx context.Context, vault *domain.Vault) error

	// UpdateVaultStatus transitions a vault's status with compare-and-set
	// semantics: it fails with ErrStaleStatus if the stored status is no
	// longer `from`.
	UpdateVaultStatus(ctx context.Context, id uuid.UUID, from, to domain.VaultStatus) error

	// ListDueVaults returns finalized vaults whose DeliverAt has passed,
	// oldest first, capped at limit.
	ListDueVaults(ctx context.Context, now time.Time, limit int) ([]domain.Vault, error)
}

// ContentStore persists content rows scoped by vault.
type ContentStore interface {
	CreateContent(ctx context.Context, content *domain.Content) error
	GetContent(ctx context.Context, id, vaultID uuid.UUID) (*domain.Content, error)
	ListContents(ctx context.Context, vaultID uuid.UUID) ([]domain.Content, error)
	UpdateContent(ctx context.Context, content *domain.Content) error

	// DeleteContent removes the row, freeing exactly one unit of its scope.
	// Returns ErrNotFound if it is absent or was already deleted.
	DeleteContent(ctx context.Context, id, vaultID uuid.UUID) error

	// CountsSnapshot recomputes the vault's content counters from rows.
	// Pending reservations count: that is what makes a reserved slot
	// visible to concurrent admission checks.
	CountsSnapshot(ctx context.Context, vaultID uuid.UUID) (domain.QuotaSnapshot, error)
}

// Store is the full persistence surface the service layer wires against.
type Store interface {
	PlanStore
	AccountStore
	RecipientStore
	VaultStore
	ContentStore
}
