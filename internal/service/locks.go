// Package service contains the business logic layer.
//
// This file implements the scope-keyed lock registry that makes every
// check-then-write admission unit atomic. Scope keys follow the ceilings:
// one per account for recipients, one per (vault, type) for videos and
// messages, one per (vault, album) for photos. Operations on different
// scopes never contend.
package service

import (
	"fmt"
	"sync"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/google/uuid"
)

// scopeLocks hands out one mutex per scope key. Mutexes are created lazily
// and kept for the life of the process; the registry map itself is guarded
// by its own mutex.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its unlock func.
func (l *scopeLocks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// recipientScopeKey is the admission scope for an account's recipients.
func recipientScopeKey(accountID uuid.UUID) string {
	return fmt.Sprintf("account/%s/recipients", accountID)
}

// contentScopeKey is the admission scope for a content item: the album for
// photos, the vault-wide type bucket otherwise. Per-album photo locks are
// sufficient for the vault-wide photo ceiling too, because four albums of
// ten can never sum past forty.
func contentScopeKey(vaultID uuid.UUID, contentType domain.ContentType, albumNumber int) string {
	if contentType == domain.ContentTypePhoto {
		return fmt.Sprintf("vault/%s/album/%d", vaultID, albumNumber)
	}
	return fmt.Sprintf("vault/%s/%s", vaultID, contentType)
}
