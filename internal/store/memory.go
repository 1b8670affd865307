package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and local development.
//
// A single RWMutex guards all maps. Snapshot reads recompute counters by
// walking rows, mirroring what the Postgres implementation does with
// COUNT(*) queries, so both backends expose identical staleness behavior.
type Memory struct {
	mu         sync.RWMutex
	plans      map[string]domain.Plan
	accounts   map[uuid.UUID]domain.Account
	recipients map[uuid.UUID]domain.Recipient
	vaults     map[uuid.UUID]domain.Vault
	contents   map[uuid.UUID]domain.Content
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		plans:      make(map[string]domain.Plan),
		accounts:   make(map[uuid.UUID]domain.Account),
		recipients: make(map[uuid.UUID]domain.Recipient),
		vaults:     make(map[uuid.UUID]domain.Vault),
		contents:   make(map[uuid.UUID]domain.Content),
	}
}

var _ Store = (*Memory)(nil)

// =============================================================================
// Plans
// =============================================================================

// SeedPlans registers plans. Intended for tests and development startup;
// the Postgres store seeds plans via migration instead.
func (m *Memory) SeedPlans(plans ...domain.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range plans {
		m.plans[p.ID] = p
	}
}

func (m *Memory) GetPlan(_ context.Context, id string) (*domain.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plan, ok := m.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &plan, nil
}

func (m *Memory) ListPlans(_ context.Context) ([]domain.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plans := make([]domain.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].PriceCents < plans[j].PriceCents })
	return plans, nil
}

// =============================================================================
// Accounts
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	m.accounts[account.ID] = *account
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (m *Memory) UpdateAccount(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[account.ID]
	if !ok {
		return ErrNotFound
	}
	account.CreatedAt = stored.CreatedAt
	account.UpdatedAt = time.Now().UTC()
	m.accounts[account.ID] = *account
	return nil
}

func (m *Memory) GetAccountByStripeCustomer(_ context.Context, customerID string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, account := range m.accounts {
		if account.StripeCustomerID == customerID {
			a := account
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

// =============================================================================
// Recipients
// =============================================================================

func (m *Memory) CreateRecipient(_ context.Context, recipient *domain.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.recipients[recipient.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	recipient.CreatedAt = now
	recipient.UpdatedAt = now
	m.recipients[recipient.ID] = *recipient
	return nil
}

func (m *Memory) GetRecipient(_ context.Context, id, accountID uuid.UUID) (*domain.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recipient, ok := m.recipients[id]
	if !ok || recipient.AccountID != accountID {
		return nil, ErrNotFound
	}
	return &recipient, nil
}

func (m *Memory) ListRecipients(_ context.Context, accountID uuid.UUID) ([]domain.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recipients []domain.Recipient
	for _, r := range m.recipients {
		if r.AccountID == accountID {
			recipients = append(recipients, r)
		}
	}
	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].CreatedAt.Before(recipients[j].CreatedAt)
	})
	return recipients, nil
}

func (m *Memory) CountRecipients(_ context.Context, accountID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.recipients {
		if r.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) UpdateRecipient(_ context.Context, recipient *domain.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.recipients[recipient.ID]
	if !ok || stored.AccountID != recipient.AccountID {
		return ErrNotFound
	}
	recipient.CreatedAt = stored.CreatedAt
	recipient.UpdatedAt = time.Now().UTC()
	m.recipients[recipient.ID] = *recipient
	return nil
}

func (m *Memory) DeleteRecipient(_ context.Context, id, accountID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.recipients[id]
	if !ok || stored.AccountID != accountID {
		return ErrNotFound
	}
	delete(m.recipients, id)
	return nil
}

// =============================================================================
// Vaults
// =============================================================================

func (m *Memory) CreateVault(_ context.Context, vault *domain.Vault) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.vaults[vault.ID]; exists {
		return ErrDuplicate
	}
	if vault.Status == "" {
		vault.Status = domain.VaultStatusDraft
	}
	now := time.Now().UTC()
	vault.CreatedAt = now
	vault.UpdatedAt = now
	m.vaults[vault.ID] = *vault
	return nil
}

func (m *Memory) GetVault(_ context.Context, id uuid.UUID) (*domain.Vault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vault, ok := m.vaults[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &vault, nil
}

func (m *Memory) UpdateVault(_ context.Context, vault *domain.Vault) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.vaults[vault.ID]
	if !ok {
		return ErrNotFound
	}
	vault.CreatedAt = stored.CreatedAt
	vault.UpdatedAt = time.Now().UTC()
	m.vaults[vault.ID] = *vault
	return nil
}

func (m *Memory) UpdateVaultStatus(_ context.Context, id uuid.UUID, from, to domain.VaultStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.vaults[id]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != from {
		return ErrStaleStatus
	}
	stored.Status = to
	stored.UpdatedAt = time.Now().UTC()
	m.vaults[id] = stored
	return nil
}

func (m *Memory) ListDueVaults(_ context.Context, now time.Time, limit int) ([]domain.Vault, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []domain.Vault
	for _, v := range m.vaults {
		if v.Status == domain.VaultStatusFinalized && v.DeliverAt != nil && !v.DeliverAt.After(now) {
			due = append(due, v)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DeliverAt.Before(*due[j].DeliverAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// =============================================================================
// Contents
// =============================================================================

func (m *Memory) CreateContent(_ context.Context, content *domain.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.contents[content.ID]; exists {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	content.CreatedAt = now
	content.UpdatedAt = now
	m.contents[content.ID] = *content
	return nil
}

func (m *Memory) GetContent(_ context.Context, id, vaultID uuid.UUID) (*domain.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.contents[id]
	if !ok || content.VaultID != vaultID {
		return nil, ErrNotFound
	}
	return &content, nil
}

func (m *Memory) ListContents(_ context.Context, vaultID uuid.UUID) ([]domain.Content, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var contents []domain.Content
	for _, c := range m.contents {
		if c.VaultID == vaultID {
			contents = append(contents, c)
		}
	}
	sort.Slice(contents, func(i, j int) bool {
		if contents[i].Type != contents[j].Type {
			return contents[i].Type < contents[j].Type
		}
		if contents[i].AlbumNumber != contents[j].AlbumNumber {
			return contents[i].AlbumNumber < contents[j].AlbumNumber
		}
		return contents[i].Order < contents[j].Order
	})
	return contents, nil
}

func (m *Memory) UpdateContent(_ context.Context, content *domain.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.contents[content.ID]
	if !ok || stored.VaultID != content.VaultID {
		return ErrNotFound
	}
	content.CreatedAt = stored.CreatedAt
	content.UpdatedAt = time.Now().UTC()
	m.contents[content.ID] = *content
	return nil
}

func (m *Memory) DeleteContent(_ context.Context, id, vaultID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.contents[id]
	if !ok || stored.VaultID != vaultID {
		return ErrNotFound
	}
	delete(m.contents, id)
	return nil
}

func (m *Memory) CountsSnapshot(_ context.Context, vaultID uuid.UUID) (domain.QuotaSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snapshot domain.QuotaSnapshot
	for _, c := range m.contents {
		if c.VaultID != vaultID {
			continue
		}
		switch c.Type {
		case domain.ContentTypePhoto:
			snapshot.PhotosTotal++
			if domain.ValidAlbum(c.AlbumNumber) {
				snapshot.PhotosPerAlbum[c.AlbumNumber-1]++
			}
		case domain.ContentTypeVideo:
			snapshot.Videos++
		case domain.ContentTypeMessage:
			snapshot.Messages++
		}
	}
	return snapshot, nil
}
