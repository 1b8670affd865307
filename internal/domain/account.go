// Package domain contains core business types and interfaces.
//
// This file defines the Account domain type. Accounts own recipients and
// vaults; their subscription state gates vault finalization.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of an account's subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// IsValid returns true if the status is a recognized value.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusInactive, SubscriptionStatusExpired:
		return true
	}
	return false
}

// Account represents a registered account of the Heirloom platform.
type Account struct {
	ID                    uuid.UUID
	Email                 string
	Name                  string
	PlanID                string
	StripeCustomerID      string
	SubscriptionID        string
	SubscriptionStatus    SubscriptionStatus
	SubscriptionExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// HasActiveSubscription reports whether the account may pass the
// subscription gate. Only "active" counts; expired and inactive do not.
func (a *Account) HasActiveSubscription() bool {
	return a.SubscriptionStatus == SubscriptionStatusActive
}

// DisplayName returns the account's name or email if name is empty.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
