// Package domain contains core business types and interfaces.
//
// This file defines subscription plans and the recipient ceiling each plan
// grants an account.
package domain

// UnlimitedRecipients is the sentinel for plans with no recipient ceiling.
const UnlimitedRecipients RecipientLimit = -1

// RecipientLimit is a plan's recipient ceiling. Negative means unlimited;
// zero is a valid (degenerate) limit.
type RecipientLimit int

// IsUnlimited reports whether the limit is the unlimited sentinel.
func (l RecipientLimit) IsUnlimited() bool {
	return l < 0
}

// Allows reports whether one more recipient may be admitted given the
// current count.
func (l RecipientLimit) Allows(current int) bool {
	return l.IsUnlimited() || current < int(l)
}

// Remaining returns how many recipients may still be admitted. Unlimited
// plans report -1; the result is never below zero otherwise.
func (l RecipientLimit) Remaining(current int) int {
	if l.IsUnlimited() {
		return -1
	}
	if remaining := int(l) - current; remaining > 0 {
		return remaining
	}
	return 0
}

// Plan represents a subscription plan. Plans are immutable and looked up
// by ID through the plan catalog.
type Plan struct {
	ID              string
	Title           string
	PriceCents      int64
	RecipientsLimit RecipientLimit
	MostPopular     bool
}
