// Package domain contains core business types and interfaces.
//
// This file defines the Vault domain type and its status machine. A vault
// is a container of content assembled for delivery to recipients.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// VaultStatus represents the lifecycle state of a vault.
type VaultStatus string

const (
	// VaultStatusDraft is the initial, freely editable state.
	VaultStatusDraft VaultStatus = "draft"

	// VaultStatusFinalizing is the transient state persisted while the
	// subscription gate runs, so a crash mid-finalize is observable.
	VaultStatusFinalizing VaultStatus = "finalizing"

	// VaultStatusFinalized means the vault passed the subscription gate and
	// awaits delivery.
	VaultStatusFinalized VaultStatus = "finalized"

	// VaultStatusDelivered means recipients have received the vault. All
	// content mutation is rejected from this point on, so what a recipient
	// received always matches what the sender sees.
	VaultStatusDelivered VaultStatus = "delivered"

	// VaultStatusArchived is a terminal, frozen state.
	VaultStatusArchived VaultStatus = "archived"
)

// String returns the string representation of the status.
func (s VaultStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s VaultStatus) IsValid() bool {
	switch s {
	case VaultStatusDraft, VaultStatusFinalizing, VaultStatusFinalized,
		VaultStatusDelivered, VaultStatusArchived:
		return true
	}
	return false
}

// IsFrozen reports whether the vault is past the point where content
// mutation is permitted.
func (s VaultStatus) IsFrozen() bool {
	return s == VaultStatusDelivered || s == VaultStatusArchived
}

// CanTransitionTo checks if the vault can move to the target status.
//
// Valid transitions:
//   - draft -> finalizing (subscription gate in progress)
//   - finalizing -> finalized (gate passed)
//   - finalizing -> draft (gate rejected, rolled back)
//   - finalized -> delivered (delivery step completed)
//   - delivered -> archived
func (s VaultStatus) CanTransitionTo(target VaultStatus) bool {
	switch s {
	case VaultStatusDraft:
		return target == VaultStatusFinalizing
	case VaultStatusFinalizing:
		return target == VaultStatusFinalized || target == VaultStatusDraft
	case VaultStatusFinalized:
		return target == VaultStatusDelivered
	case VaultStatusDelivered:
		return target == VaultStatusArchived
	}
	return false
}

// Vault represents a container of content assembled for recipients.
//
// Password is opaque to this core; hashing and display formatting happen
// elsewhere.
type Vault struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Title           string
	Status          VaultStatus
	Password        string
	DeliveryMessage string
	DeliverAt       *time.Time // when set on a finalized vault, the delivery worker picks it up
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsFrozen reports whether content mutation on this vault is rejected.
func (v *Vault) IsFrozen() bool {
	return v.Status.IsFrozen()
}
