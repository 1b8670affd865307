// Package service contains the business logic layer.
//
// This file implements the read-through snapshot cache used by read paths
// (content listings, dashboards). Staleness is explicit: Get returns the
// last-known value immediately and refreshes in the background, and every
// successful mutation calls Invalidate. Admission decisions never consult
// this cache; they recompute counts from the store under the scope lock.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
)

// refreshTimeout bounds a single background recomputation.
const refreshTimeout = 5 * time.Second

type snapshotEntry struct {
	snapshot  domain.QuotaSnapshot
	fetchedAt time.Time
}

// SnapshotCache is an explicit read-through cache of per-vault quota
// snapshots.
type SnapshotCache struct {
	contents store.ContentStore
	logger   *slog.Logger

	mu         sync.Mutex
	entries    map[uuid.UUID]snapshotEntry
	refreshing map[uuid.UUID]bool
}

// NewSnapshotCache creates an empty cache over the given content store.
func NewSnapshotCache(contents store.ContentStore, logger *slog.Logger) *SnapshotCache {
	return &SnapshotCache{
		contents:   contents,
		logger:     logger,
		entries:    make(map[uuid.UUID]snapshotEntry),
		refreshing: make(map[uuid.UUID]bool),
	}
}

// Get returns the vault's counts. A cached value is returned immediately
// and refreshed in the background; a cold key is computed synchronously.
// The returned value is possibly stale until the next write completes.
func (c *SnapshotCache) Get(ctx context.Context, vaultID uuid.UUID) (domain.QuotaSnapshot, error) {
	c.mu.Lock()
	entry, ok := c.entries[vaultID]
	if ok {
		c.beginRefreshLocked(vaultID)
		c.mu.Unlock()
		return entry.snapshot, nil
	}
	c.mu.Unlock()

	snapshot, err := c.contents.CountsSnapshot(ctx, vaultID)
	if err != nil {
		return domain.QuotaSnapshot{}, err
	}
	c.put(vaultID, snapshot)
	return snapshot, nil
}

// Invalidate drops the cached value for a vault. Call after every
// successful mutating operation; the next Get recomputes synchronously.
func (c *SnapshotCache) Invalidate(vaultID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, vaultID)
	c.mu.Unlock()
}

func (c *SnapshotCache) put(vaultID uuid.UUID, snapshot domain.QuotaSnapshot) {
	c.mu.Lock()
	c.entries[vaultID] = snapshotEntry{snapshot: snapshot, fetchedAt: time.Now()}
	c.mu.Unlock()
}

// beginRefreshLocked starts one background refresh per vault at a time.
// Callers must hold c.mu.
func (c *SnapshotCache) beginRefreshLocked(vaultID uuid.UUID) {
	if c.refreshing[vaultID] {
		return
	}
	c.refreshing[vaultID] = true

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.refreshing, vaultID)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		snapshot, err := c.contents.CountsSnapshot(ctx, vaultID)
		if err != nil {
			c.logger.Warn("snapshot refresh failed", "vault_id", vaultID, "error", err)
			return
		}
		c.put(vaultID, snapshot)
	}()
}
