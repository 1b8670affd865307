// Package domain contains core business types and interfaces.
//
// This file defines the Recipient domain type: a person a vault will be
// delivered to. The number of recipients an account may register is capped
// by its plan's recipient ceiling.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recipient represents a person registered to receive vault deliveries.
type Recipient struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	Email     string
	Phone     string
	Relation  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateRecipientParams holds the fields needed to register a recipient.
type CreateRecipientParams struct {
	AccountID uuid.UUID
	Name      string
	Email     string
	Phone     string
	Relation  string
}

// Validate checks required fields, returning a field-level ValidationError.
func (p CreateRecipientParams) Validate(op string) error {
	var err error
	if strings.TrimSpace(p.Name) == "" {
		err = AddFieldError(err, "name", "Name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		err = AddFieldError(err, "email", "Email is required")
	} else if !strings.Contains(p.Email, "@") {
		err = AddFieldError(err, "email", "Email is not valid")
	}
	if ve, ok := err.(*ValidationError); ok {
		ve.Op = op
		return ve
	}
	return nil
}

// UpdateRecipientParams holds the editable contact fields of a recipient.
// Updating contact fields never touches any counter.
type UpdateRecipientParams struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Name      string
	Email     string
	Phone     string
	Relation  string
}
