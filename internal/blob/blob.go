// Package blob stores the file bytes behind photo and video content.
//
// The quota core treats a stored file as an opaque key; this package is the
// upload collaborator behind that key. Two implementations exist:
//   - Local: filesystem storage for development
//   - S3: S3-compatible object storage (Cloudflare R2) for production
//
// All methods are context-aware so a cancelled upload aborts the transfer
// without corrupting quota state; the service layer owns the reservation
// that tracks the slot.
package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the byte-transfer operations for vault media.
type Storage interface {
	// Put stores data at the specified key. Returns ErrTooLarge when the
	// data exceeds opts.MaxSize, ErrKeyExists when the key is taken and
	// overwrite is disabled.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must close
	// the reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns an access URL for the object: permanent when the backend
	// serves public objects, presigned for the given duration otherwise.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type; detected from the key's extension when
	// empty.
	ContentType string

	// MaxSize caps the payload in bytes; 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	BasePath string // root directory, e.g. "./storage"
	BaseURL  string // public URL prefix, e.g. "http://localhost:8080/files"
}

// S3Config holds configuration for S3-compatible (Cloudflare R2) storage.
type S3Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string // defaults to "auto" for R2
	PublicURL       string // optional custom domain
}

// =============================================================================
// Keys
// =============================================================================

// ContentKey builds the storage key for a content item's file. Keys are
// namespaced by vault so a vault's media can be swept in one prefix.
func ContentKey(vaultID uuid.UUID, contentType domain.ContentType, contentID uuid.UUID) string {
	return fmt.Sprintf("vaults/%s/%ss/%s", vaultID, contentType, contentID)
}

// detectContentType resolves a MIME type from the key's extension, falling
// back to application/octet-stream.
func detectContentType(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
