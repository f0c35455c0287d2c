// Package directory holds the recipient and sender records that dispatch
// jobs resolve addresses from.
package directory

import (
	"context"
	"errors"
)

var (
	// ErrRecipientNotFound is returned when a recipient does not exist.
	ErrRecipientNotFound = errors.New("directory: recipient not found")
	// ErrSenderNotFound is returned when a sender identity does not exist.
	ErrSenderNotFound = errors.New("directory: sender not found")
)

// Recipient is a company contact that bulk mailings are addressed to.
type Recipient struct {
	ID           int64  `json:"id"`
	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email"`
	Active       bool   `json:"active"`
}

// SenderIdentity is a from-address a mailing can be sent as.
type SenderIdentity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repository provides access to recipients and sender identities.
type Repository interface {
	// ListActiveRecipients resolves the given IDs to active recipients.
	// IDs that are unknown or inactive are silently dropped; the result
	// preserves the order of ids.
	ListActiveRecipients(ctx context.Context, ids []int64) ([]Recipient, error)

	// GetRecipient retrieves a recipient by ID regardless of active state.
	GetRecipient(ctx context.Context, id int64) (*Recipient, error)

	// CreateRecipient stores a new recipient.
	CreateRecipient(ctx context.Context, rec *Recipient) error

	// GetSender retrieves a sender identity by ID.
	GetSender(ctx context.Context, id int64) (*SenderIdentity, error)

	// CreateSender stores a new sender identity.
	CreateSender(ctx context.Context, s *SenderIdentity) error
}
