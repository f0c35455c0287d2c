// Package ledger records the terminal outcome of every per-recipient
// delivery attempt. Entries are append-only: once written they are never
// updated or deleted, so the ledger is a trustworthy audit trail of what
// was actually sent.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Delivery statuses. Both are terminal; an entry is only written once the
// outcome is known, so there is no pending state to transition from.
const (
	StatusSent   = "SENT"
	StatusFailed = "FAILED"
)

var (
	// ErrEntryNotFound is returned when a ledger entry does not exist.
	ErrEntryNotFound = errors.New("ledger: entry not found")
	// ErrInvalidStatus is returned when an entry carries a status other
	// than SENT or FAILED.
	ErrInvalidStatus = errors.New("ledger: invalid status")
)

// Entry is one per-recipient delivery outcome.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	MailTypeID  int64     `json:"mail_type_id"`
	TemplateID  int64     `json:"template_id"`
	SenderID    int64     `json:"sender_id"`
	SubmitterID int64     `json:"submitter_id"`
	TaskID      string    `json:"task_id"`
	Campaign    string    `json:"campaign,omitempty"`
	Status      string    `json:"status"`
	Subject     string    `json:"subject"`
	Error       string    `json:"error,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Filter narrows a ledger listing. Zero-valued fields are ignored.
type Filter struct {
	RecipientID int64
	MailTypeID  int64
	TaskID      string
	Campaign    string
	Status      string
	Limit       int
	Offset      int
}

// Repository stores delivery outcomes. There is deliberately no update or
// delete operation.
type Repository interface {
	// Append writes a new entry. The entry's ID and SentAt are assigned
	// if unset.
	Append(ctx context.Context, e *Entry) error

	// GetEntry retrieves one entry by ID.
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListEntries returns entries matching the filter, newest first.
	ListEntries(ctx context.Context, f Filter) ([]Entry, error)
}

func validStatus(s string) bool {
	return s == StatusSent || s == StatusFailed
}
