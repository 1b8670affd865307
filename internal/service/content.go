// Package service contains the business logic layer.
//
// This file implements content admission into a vault. Quota checks and the
// row write run as one atomic unit under the item's scope lock. File-backed
// items use a two-phase flow: the slot is reserved (row inserted pending)
// before the byte transfer starts, then committed on success or released
// exactly once on failure or cancellation. A slow failing upload therefore
// never reports success to concurrent admission checks, and an upload that
// never completes never consumes quota for good.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DukeRupert/heirloom/internal/blob"
	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/metrics"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// Upload retry policy for the retryable (transient) category only.
const (
	uploadMaxRetries   = 3
	uploadRetryBackoff = 250 * time.Millisecond
)

// =============================================================================
// Interface Definition
// =============================================================================

// AddContentParams holds a candidate content item.
type AddContentParams struct {
	VaultID     uuid.UUID
	Type        domain.ContentType
	AlbumNumber int // photos only
	Title       string
	Body        string // messages only
	File        io.Reader
	SizeBytes   int64
	MIMEType    string
	DeliverAt   *time.Time
}

// ReplaceContentParams holds an in-place edit. Nil fields are left as-is.
// Type and album membership are immutable after creation.
type ReplaceContentParams struct {
	VaultID   uuid.UUID
	ContentID uuid.UUID
	Title     *string
	Body      *string
	File      io.Reader
	SizeBytes int64
	MIMEType  string
}

// VaultContents is the grouped projection the vault contents endpoint serves.
type VaultContents struct {
	Counts   domain.QuotaSnapshot
	Photos   [domain.AlbumCount][]domain.Content
	Videos   []domain.Content
	Messages []domain.Content
}

// ContentService defines content admission and lifecycle operations.
type ContentService interface {
	// Add admits a candidate item into its vault. Validation order: file
	// size, type ceiling, album validity and ceiling (photos), vault state.
	// On admit, order is the count within the admitted scope before insert.
	// Returns domain.ETOOLARGE, EQUOTA, EINVALID, or EFROZEN on rejection.
	Add(ctx context.Context, params AddContentParams) (*domain.Content, error)

	// Release deletes an item, freeing exactly one unit of its scope.
	// Returns domain.ENOTFOUND on a second delete of the same ID and
	// domain.EFROZEN once the vault is delivered or archived.
	Release(ctx context.Context, id, vaultID uuid.UUID) error

	// Replace edits an item in place. A replacement file is re-validated
	// against the type's size ceiling; on rejection the old file is left
	// untouched. Counters are never affected.
	Replace(ctx context.Context, params ReplaceContentParams) (*domain.Content, error)

	// List returns the vault's items grouped by type and album, with counts
	// served from the read-through cache.
	List(ctx context.Context, vaultID uuid.UUID) (*VaultContents, error)

	// ContentFileURL returns an access URL for a stored file, signed when
	// the backing store requires it.
	ContentFileURL(ctx context.Context, id, vaultID uuid.UUID, expires time.Duration) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type contentService struct {
	store  store.Store
	blobs  blob.Storage
	cache  *SnapshotCache
	locks  *scopeLocks
	logger *slog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(st store.Store, blobs blob.Storage, cache *SnapshotCache, logger *slog.Logger) ContentService {
	return &contentService{
		store:  st,
		blobs:  blobs,
		cache:  cache,
		locks:  newScopeLocks(),
		logger: logger,
	}
}

// =============================================================================
// Add
// =============================================================================

func (s *contentService) Add(ctx context.Context, params AddContentParams) (*domain.Content, error) {
	const op = "content.admit"

	if params.Type.HasFile() && params.File == nil {
		return nil, domain.Invalid(op, fmt.Sprintf("a file is required for %s content", params.Type))
	}

	vault, err := s.store.GetVault(ctx, params.VaultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "vault", params.VaultID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch vault")
	}

	content, err := s.reserve(ctx, op, vault, params)
	if err != nil {
		metrics.AdmissionsTotal.WithLabelValues(params.Type.String(), metrics.OutcomeRejected).Inc()
		return nil, err
	}
	metrics.AdmissionsTotal.WithLabelValues(params.Type.String(), metrics.OutcomeAdmitted).Inc()

	if !content.Pending {
		// Messages carry no file; the reservation is already the final row.
		s.cache.Invalidate(vault.ID)
		return content, nil
	}

	// Phase two: transfer the bytes, then commit or release the reservation.
	if err := s.commitUpload(ctx, op, content, params); err != nil {
		s.releaseReservation(content)
		return nil, err
	}

	s.cache.Invalidate(vault.ID)
	s.logger.Info("content admitted",
		"content_id", content.ID,
		"vault_id", vault.ID,
		"type", content.Type,
		"order", content.Order,
	)
	return content, nil
}

// reserve runs the admission decision and inserts the row as one atomic
// unit under the item's scope lock.
func (s *contentService) reserve(ctx context.Context, op string, vault *domain.Vault, params AddContentParams) (*domain.Content, error) {
	unlock := s.locks.acquire(contentScopeKey(vault.ID, params.Type, params.AlbumNumber))
	defer unlock()

	snapshot, err := s.store.CountsSnapshot(ctx, vault.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to compute quota snapshot")
	}

	order, err := domain.AdmitContent(op, snapshot, params.Type, params.AlbumNumber, params.SizeBytes, vault.Status)
	if err != nil {
		s.logger.Info("content admission rejected",
			"vault_id", vault.ID,
			"type", params.Type,
			"album", params.AlbumNumber,
			"reason", domain.ErrorCode(err),
		)
		return nil, err
	}

	albumNumber := 0
	if params.Type == domain.ContentTypePhoto {
		albumNumber = params.AlbumNumber
	}
	content := &domain.Content{
		ID:          uuid.New(),
		VaultID:     vault.ID,
		Type:        params.Type,
		AlbumNumber: albumNumber,
		Order:       order,
		Title:       params.Title,
		Body:        params.Body,
		SizeBytes:   params.SizeBytes,
		Pending:     params.Type.HasFile(),
		DeliverAt:   params.DeliverAt,
	}
	if err := s.store.CreateContent(ctx, content); err != nil {
		return nil, domain.Internal(err, op, "failed to create content")
	}
	return content, nil
}

// commitUpload transfers the file bytes and marks the reservation stored.
// Only transient transfer failures are retried; each attempt re-reads the
// buffered payload from the start.
func (s *contentService) commitUpload(ctx context.Context, op string, content *domain.Content, params AddContentParams) error {
	data, err := io.ReadAll(params.File)
	if err != nil {
		return domain.Internal(err, op, "failed to read file data")
	}
	if int64(len(data)) != params.SizeBytes {
		return domain.Invalid(op, "file size does not match the declared size")
	}

	key := blob.ContentKey(content.VaultID, content.Type, content.ID)
	if err := s.putWithRetry(ctx, op, key, data, params.MIMEType, content.Type.MaxFileBytes()); err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return err
	}

	content.FileKey = key
	content.Pending = false
	if err := s.store.UpdateContent(ctx, content); err != nil {
		// Commit failed after the bytes landed; drop the orphaned object.
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Error("failed to delete orphaned blob", "key", key, "error", delErr)
		}
		return domain.Internal(err, op, "failed to commit upload")
	}

	metrics.UploadsTotal.WithLabelValues(metrics.OutcomeStored).Inc()
	return nil
}

// putWithRetry stores the payload, retrying only the transient category.
// Cancellation aborts immediately and surfaces to the release path.
func (s *contentService) putWithRetry(ctx context.Context, op, key string, data []byte, mimeType string, maxBytes int64) error {
	backoff := retry.WithMaxRetries(uploadMaxRetries, retry.NewExponential(uploadRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		putErr := s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
			ContentType: mimeType,
			MaxSize:     maxBytes,
			Overwrite:   true,
		})
		if putErr == nil {
			return nil
		}
		if errors.Is(putErr, context.Canceled) || errors.Is(putErr, context.DeadlineExceeded) {
			return putErr
		}
		return retry.RetryableError(domain.Transient(putErr, op, "file transfer failed"))
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(err, domain.EINTERNAL, op, "upload cancelled")
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr
	}
	return domain.Transient(err, op, "file transfer failed")
}

// releaseReservation frees the reserved slot after a failed or cancelled
// transfer. The row is the reservation, so deleting it releases exactly
// once; a second call would hit ErrNotFound and change nothing.
func (s *contentService) releaseReservation(content *domain.Content) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	unlock := s.locks.acquire(contentScopeKey(content.VaultID, content.Type, content.AlbumNumber))
	defer unlock()

	if err := s.store.DeleteContent(ctx, content.ID, content.VaultID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to release reservation",
			"content_id", content.ID,
			"vault_id", content.VaultID,
			"error", err,
		)
		return
	}
	s.logger.Info("reservation released", "content_id", content.ID, "vault_id", content.VaultID)
}

// =============================================================================
// Release
// =============================================================================

func (s *contentService) Release(ctx context.Context, id, vaultID uuid.UUID) error {
	const op = "content.release"

	vault, err := s.store.GetVault(ctx, vaultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound(op, "vault", vaultID.String())
		}
		return domain.Internal(err, op, "failed to fetch vault")
	}
	if vault.IsFrozen() {
		return domain.Frozen(op)
	}

	content, err := s.store.GetContent(ctx, id, vaultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound(op, "content", id.String())
		}
		return domain.Internal(err, op, "failed to fetch content")
	}

	unlock := s.locks.acquire(contentScopeKey(vaultID, content.Type, content.AlbumNumber))
	err = s.store.DeleteContent(ctx, id, vaultID)
	unlock()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race with a concurrent delete; the unit was freed once.
			return domain.NotFound(op, "content", id.String())
		}
		return domain.Internal(err, op, "failed to delete content")
	}

	if content.FileKey != "" {
		if err := s.blobs.Delete(context.WithoutCancel(ctx), content.FileKey); err != nil {
			s.logger.Error("failed to delete blob", "key", content.FileKey, "error", err)
		}
	}

	s.cache.Invalidate(vaultID)
	s.logger.Info("content released", "content_id", id, "vault_id", vaultID, "type", content.Type)
	return nil
}

// =============================================================================
// Replace
// =============================================================================

func (s *contentService) Replace(ctx context.Context, params ReplaceContentParams) (*domain.Content, error) {
	const op = "content.replace"

	vault, err := s.store.GetVault(ctx, params.VaultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "vault", params.VaultID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch vault")
	}
	if vault.IsFrozen() {
		return nil, domain.Frozen(op)
	}

	content, err := s.store.GetContent(ctx, params.ContentID, params.VaultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "content", params.ContentID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch content")
	}

	// Replacement is all-or-nothing: validate the new file before touching
	// anything so a rejection leaves the old file in place.
	replacingFile := params.File != nil
	if replacingFile {
		if !content.Type.HasFile() {
			return nil, domain.Invalid(op, "messages do not carry a file")
		}
		if max := content.Type.MaxFileBytes(); params.SizeBytes > max {
			return nil, domain.FileTooLarge(op, content.Type, params.SizeBytes, max)
		}
	}

	if params.Title != nil {
		content.Title = *params.Title
	}
	if params.Body != nil {
		content.Body = *params.Body
	}

	oldKey := content.FileKey
	if replacingFile {
		data, err := io.ReadAll(params.File)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to read file data")
		}
		if int64(len(data)) != params.SizeBytes {
			return nil, domain.Invalid(op, "file size does not match the declared size")
		}

		// Fresh key so the old object survives until the swap commits.
		newKey := blob.ContentKey(content.VaultID, content.Type, uuid.New())
		if err := s.putWithRetry(ctx, op, newKey, data, params.MIMEType, content.Type.MaxFileBytes()); err != nil {
			metrics.UploadsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			return nil, err
		}
		content.FileKey = newKey
		content.SizeBytes = params.SizeBytes
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeStored).Inc()
	}

	// Type and album membership are immutable, so no counter moves here.
	if err := s.store.UpdateContent(ctx, content); err != nil {
		if replacingFile {
			if delErr := s.blobs.Delete(context.WithoutCancel(ctx), content.FileKey); delErr != nil {
				s.logger.Error("failed to delete orphaned blob", "key", content.FileKey, "error", delErr)
			}
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "content", params.ContentID.String())
		}
		return nil, domain.Internal(err, op, "failed to update content")
	}

	if replacingFile && oldKey != "" {
		if err := s.blobs.Delete(context.WithoutCancel(ctx), oldKey); err != nil {
			s.logger.Error("failed to delete replaced blob", "key", oldKey, "error", err)
		}
	}

	s.logger.Info("content replaced", "content_id", content.ID, "vault_id", content.VaultID, "file", replacingFile)
	return content, nil
}

// =============================================================================
// List
// =============================================================================

func (s *contentService) List(ctx context.Context, vaultID uuid.UUID) (*VaultContents, error) {
	const op = "content.list"

	if _, err := s.store.GetVault(ctx, vaultID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "vault", vaultID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch vault")
	}

	counts, err := s.cache.Get(ctx, vaultID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to compute quota snapshot")
	}

	contents, err := s.store.ListContents(ctx, vaultID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list contents")
	}

	result := &VaultContents{Counts: counts}
	for _, c := range contents {
		switch c.Type {
		case domain.ContentTypePhoto:
			if domain.ValidAlbum(c.AlbumNumber) {
				result.Photos[c.AlbumNumber-1] = append(result.Photos[c.AlbumNumber-1], c)
			}
		case domain.ContentTypeVideo:
			result.Videos = append(result.Videos, c)
		case domain.ContentTypeMessage:
			result.Messages = append(result.Messages, c)
		}
	}
	return result, nil
}

// ContentFileURL returns an access URL for a stored file, signed when the
// backing store requires it.
func (s *contentService) ContentFileURL(ctx context.Context, id, vaultID uuid.UUID, expires time.Duration) (string, error) {
	const op = "content.file_url"

	content, err := s.store.GetContent(ctx, id, vaultID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.NotFound(op, "content", id.String())
		}
		return "", domain.Internal(err, op, "failed to fetch content")
	}
	if content.FileKey == "" {
		return "", domain.Invalid(op, fmt.Sprintf("content %s has no stored file", id))
	}

	url, err := s.blobs.URL(ctx, content.FileKey, expires)
	if err != nil {
		return "", domain.Internal(err, op, "failed to build file URL")
	}
	return url, nil
}
