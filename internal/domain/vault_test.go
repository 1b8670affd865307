package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVaultStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from VaultStatus
		to   VaultStatus
		want bool
	}{
		{"draft to finalizing", VaultStatusDraft, VaultStatusFinalizing, true},
		{"draft skips to finalized", VaultStatusDraft, VaultStatusFinalized, false},
		{"finalizing to finalized", VaultStatusFinalizing, VaultStatusFinalized, true},
		{"finalizing rolls back to draft", VaultStatusFinalizing, VaultStatusDraft, true},
		{"finalized to delivered", VaultStatusFinalized, VaultStatusDelivered, true},
		{"finalized back to draft", VaultStatusFinalized, VaultStatusDraft, false},
		{"delivered to archived", VaultStatusDelivered, VaultStatusArchived, true},
		{"delivered back to draft", VaultStatusDelivered, VaultStatusDraft, false},
		{"archived is terminal", VaultStatusArchived, VaultStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestVaultStatus_IsFrozen(t *testing.T) {
	assert.False(t, VaultStatusDraft.IsFrozen())
	assert.False(t, VaultStatusFinalizing.IsFrozen())
	assert.False(t, VaultStatusFinalized.IsFrozen())
	assert.True(t, VaultStatusDelivered.IsFrozen())
	assert.True(t, VaultStatusArchived.IsFrozen())
}
