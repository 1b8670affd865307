package store

import (
	"context"
	"errors"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store backed by a pgx connection pool.
//
// Queries are written by hand. Counting queries recompute from rows on
// every call; nothing here maintains a separate counter column.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store on an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// =============================================================================
// Plans
// =============================================================================

func (p *Postgres) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, title, price_cents, recipients_limit, most_popular
		 FROM plans WHERE id = $1`, id)

	var plan domain.Plan
	var limit int
	err := row.Scan(&plan.ID, &plan.Title, &plan.PriceCents, &limit, &plan.MostPopular)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plan.RecipientsLimit = domain.RecipientLimit(limit)
	return &plan, nil
}

func (p *Postgres) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, title, price_cents, recipients_limit, most_popular
		 FROM plans ORDER BY price_cents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var plan domain.Plan
		var limit int
		if err := rows.Scan(&plan.ID, &plan.Title, &plan.PriceCents, &limit, &plan.MostPopular); err != nil {
			return nil, err
		}
		plan.RecipientsLimit = domain.RecipientLimit(limit)
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// =============================================================================
// Accounts
// =============================================================================

func (p *Postgres) CreateAccount(ctx context.Context, a *domain.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := p.pool.Exec(ctx,
		`INSERT INTO accounts (id, email, name, plan_id, stripe_customer_id, subscription_id,
		                       subscription_status, subscription_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Email, a.Name, a.PlanID, a.StripeCustomerID, a.SubscriptionID,
		string(a.SubscriptionStatus), a.SubscriptionExpiresAt, a.CreatedAt, a.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (p *Postgres) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return p.scanAccount(p.pool.QueryRow(ctx,
		`SELECT id, email, name, plan_id, stripe_customer_id, subscription_id,
		        subscription_status, subscription_expires_at, created_at, updated_at
		 FROM accounts WHERE id = $1`, id))
}

func (p *Postgres) GetAccountByStripeCustomer(ctx context.Context, customerID string) (*domain.Account, error) {
	return p.scanAccount(p.pool.QueryRow(ctx,
		`SELECT id, email, name, plan_id, stripe_customer_id, subscription_id,
		        subscription_status, subscription_expires_at, created_at, updated_at
		 FROM accounts WHERE stripe_customer_id = $1`, customerID))
}

func (p *Postgres) scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var status string
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PlanID, &a.StripeCustomerID, &a.SubscriptionID,
		&status, &a.SubscriptionExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.SubscriptionStatus = domain.SubscriptionStatus(status)
	return &a, nil
}

func (p *Postgres) UpdateAccount(ctx context.Context, a *domain.Account) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts
		 SET email = $2, name = $3, plan_id = $4, stripe_customer_id = $5, subscription_id = $6,
		     subscription_status = $7, subscription_expires_at = $8, updated_at = $9
		 WHERE id = $1`,
		a.ID, a.Email, a.Name, a.PlanID, a.StripeCustomerID, a.SubscriptionID,
		string(a.SubscriptionStatus), a.SubscriptionExpiresAt, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Recipients
// =============================================================================

func (p *Postgres) CreateRecipient(ctx context.Context, r *domain.Recipient) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := p.pool.Exec(ctx,
		`INSERT INTO recipients (id, account_id, name, email, phone, relation, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.AccountID, r.Name, r.Email, r.Phone, r.Relation, r.CreatedAt, r.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (p *Postgres) GetRecipient(ctx context.Context, id, accountID uuid.UUID) (*domain.Recipient, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, account_id, name, email, phone, relation, created_at, updated_at
		 FROM recipients WHERE id = $1 AND account_id = $2`, id, accountID)

	var r domain.Recipient
	err := row.Scan(&r.ID, &r.AccountID, &r.Name, &r.Email, &r.Phone, &r.Relation, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *Postgres) ListRecipients(ctx context.Context, accountID uuid.UUID) ([]domain.Recipient, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, account_id, name, email, phone, relation, created_at, updated_at
		 FROM recipients WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.AccountID, &r.Name, &r.Email, &r.Phone, &r.Relation, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (p *Postgres) CountRecipients(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM recipients WHERE account_id = $1`, accountID).Scan(&count)
	return count, err
}

func (p *Postgres) UpdateRecipient(ctx context.Context, r *domain.Recipient) error {
	r.UpdatedAt = time.Now().UTC()
	tag, err := p.pool.Exec(ctx,
		`UPDATE recipients SET name = $3, email = $4, phone = $5, relation = $6, updated_at = $7
		 WHERE id = $1 AND account_id = $2`,
		r.ID, r.AccountID, r.Name, r.Email, r.Phone, r.Relation, r.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteRecipient(ctx context.Context, id, accountID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM recipients WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Vaults
// =============================================================================

func (p *Postgres) CreateVault(ctx context.Context, v *domain.Vault) error {
	if v.Status == "" {
		v.Status = domain.VaultStatusDraft
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	_, err := p.pool.Exec(ctx,
		`INSERT INTO vaults (id, account_id, title, status, password, delivery_message, deliver_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.AccountID, v.Title, string(v.Status), v.Password, v.DeliveryMessage, v.DeliverAt, v.CreatedAt, v.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (p *Postgres) GetVault(ctx context.Context, id uuid.UUID) (*domain.Vault, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, account_id, title, status, password, delivery_message, deliver_at, created_at, updated_at
		 FROM vaults WHERE id = $1`, id)
	return scanVault(row)
}

func scanVault(row pgx.Row) (*domain.Vault, error) {
	var v domain.Vault
	var status string
	err := row.Scan(&v.ID, &v.AccountID, &v.Title, &status, &v.Password, &v.DeliveryMessage, &v.DeliverAt, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Status = domain.VaultStatus(status)
	return &v, nil
}

func (p *Postgres) UpdateVault(ctx context.Context, v *domain.Vault) error {
	v.UpdatedAt = time.Now().UTC()
	tag, err := p.pool.Exec(ctx,
		`UPDATE vaults
		 SET title = $2, status = $3, password = $4, delivery_message = $5, deliver_at = $6, updated_at = $7
		 WHERE id = $1`,
		v.ID, v.Title, string(v.Status), v.Password, v.DeliveryMessage, v.DeliverAt, v.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateVaultStatus(ctx context.Context, id uuid.UUID, from, to domain.VaultStatus) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE vaults SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing vault from a concurrent status change.
		if _, getErr := p.GetVault(ctx, id); IsNotFound(getErr) {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

func (p *Postgres) ListDueVaults(ctx context.Context, now time.Time, limit int) ([]domain.Vault, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, account_id, title, status, password, delivery_message, deliver_at, created_at, updated_at
		 FROM vaults
		 WHERE status = $1 AND deliver_at IS NOT NULL AND deliver_at <= $2
		 ORDER BY deliver_at
		 LIMIT $3`,
		string(domain.VaultStatusFinalized), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []domain.Vault
	for rows.Next() {
		var v domain.Vault
		var status string
		if err := rows.Scan(&v.ID, &v.AccountID, &v.Title, &status, &v.Password, &v.DeliveryMessage, &v.DeliverAt, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.Status = domain.VaultStatus(status)
		vaults = append(vaults, v)
	}
	return vaults, rows.Err()
}

// =============================================================================
// Contents
// =============================================================================

func (p *Postgres) CreateContent(ctx context.Context, c *domain.Content) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := p.pool.Exec(ctx,
		`INSERT INTO contents (id, vault_id, type, album_number, item_order, title, body,
		                       file_key, size_bytes, pending, deliver_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.VaultID, string(c.Type), c.AlbumNumber, c.Order, c.Title, c.Body,
		c.FileKey, c.SizeBytes, c.Pending, c.DeliverAt, c.CreatedAt, c.UpdatedAt)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (p *Postgres) GetContent(ctx context.Context, id, vaultID uuid.UUID) (*domain.Content, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, vault_id, type, album_number, item_order, title, body,
		        file_key, size_bytes, pending, deliver_at, created_at, updated_at
		 FROM contents WHERE id = $1 AND vault_id = $2`, id, vaultID)
	return scanContent(row)
}

func scanContent(row pgx.Row) (*domain.Content, error) {
	var c domain.Content
	var contentType string
	err := row.Scan(&c.ID, &c.VaultID, &contentType, &c.AlbumNumber, &c.Order, &c.Title, &c.Body,
		&c.FileKey, &c.SizeBytes, &c.Pending, &c.DeliverAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Type = domain.ContentType(contentType)
	return &c, nil
}

func (p *Postgres) ListContents(ctx context.Context, vaultID uuid.UUID) ([]domain.Content, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, vault_id, type, album_number, item_order, title, body,
		        file_key, size_bytes, pending, deliver_at, created_at, updated_at
		 FROM contents WHERE vault_id = $1
		 ORDER BY type, album_number, item_order`, vaultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []domain.Content
	for rows.Next() {
		var c domain.Content
		var contentType string
		if err := rows.Scan(&c.ID, &c.VaultID, &contentType, &c.AlbumNumber, &c.Order, &c.Title, &c.Body,
			&c.FileKey, &c.SizeBytes, &c.Pending, &c.DeliverAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Type = domain.ContentType(contentType)
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

func (p *Postgres) UpdateContent(ctx context.Context, c *domain.Content) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := p.pool.Exec(ctx,
		`UPDATE contents
		 SET title = $3, body = $4, file_key = $5, size_bytes = $6, pending = $7, deliver_at = $8, updated_at = $9
		 WHERE id = $1 AND vault_id = $2`,
		c.ID, c.VaultID, c.Title, c.Body, c.FileKey, c.SizeBytes, c.Pending, c.DeliverAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteContent(ctx context.Context, id, vaultID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM contents WHERE id = $1 AND vault_id = $2`, id, vaultID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CountsSnapshot(ctx context.Context, vaultID uuid.UUID) (domain.QuotaSnapshot, error) {
	var snapshot domain.QuotaSnapshot

	rows, err := p.pool.Query(ctx,
		`SELECT type, album_number, COUNT(*)
		 FROM contents WHERE vault_id = $1
		 GROUP BY type, album_number`, vaultID)
	if err != nil {
		return snapshot, err
	}
	defer rows.Close()

	for rows.Next() {
		var contentType string
		var albumNumber, count int
		if err := rows.Scan(&contentType, &albumNumber, &count); err != nil {
			return snapshot, err
		}
		switch domain.ContentType(contentType) {
		case domain.ContentTypePhoto:
			snapshot.PhotosTotal += count
			if domain.ValidAlbum(albumNumber) {
				snapshot.PhotosPerAlbum[albumNumber-1] += count
			}
		case domain.ContentTypeVideo:
			snapshot.Videos += count
		case domain.ContentTypeMessage:
			snapshot.Messages += count
		}
	}
	return snapshot, rows.Err()
}
