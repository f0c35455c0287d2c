package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/corpola/bulkmail/internal/database"
)

// SQLRepository implements Repository using a SQL database.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a new SQL-based directory repository.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Schema returns the DDL for the directory tables.
func Schema(driver string) []string {
	pk := database.SerialPK(driver)
	return []string{
		`CREATE TABLE IF NOT EXISTS recipients (
	id ` + pk + `,
	company_name TEXT NOT NULL,
	contact_email TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE
)`,
		`CREATE TABLE IF NOT EXISTS senders (
	id ` + pk + `,
	name TEXT NOT NULL,
	email TEXT NOT NULL
)`,
	}
}

// ListActiveRecipients resolves the given IDs to active recipients.
func (r *SQLRepository) ListActiveRecipients(ctx context.Context, ids []int64) ([]Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, company_name, contact_email, active
		 FROM recipients WHERE active AND id IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]Recipient, len(ids))
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.ID, &rec.CompanyName, &rec.ContactEmail, &rec.Active); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		byID[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve request order.
	var out []Recipient
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetRecipient retrieves a recipient by ID.
func (r *SQLRepository) GetRecipient(ctx context.Context, id int64) (*Recipient, error) {
	rec := &Recipient{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, company_name, contact_email, active FROM recipients WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CompanyName, &rec.ContactEmail, &rec.Active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrRecipientNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query recipient: %w", err)
	}
	return rec, nil
}

// CreateRecipient stores a new recipient.
func (r *SQLRepository) CreateRecipient(ctx context.Context, rec *Recipient) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO recipients (company_name, contact_email, active)
		 VALUES ($1, $2, $3) RETURNING id`,
		rec.CompanyName, rec.ContactEmail, rec.Active,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

// GetSender retrieves a sender identity by ID.
func (r *SQLRepository) GetSender(ctx context.Context, id int64) (*SenderIdentity, error) {
	s := &SenderIdentity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM senders WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrSenderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query sender: %w", err)
	}
	return s, nil
}

// CreateSender stores a new sender identity.
func (r *SQLRepository) CreateSender(ctx context.Context, s *SenderIdentity) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO senders (name, email) VALUES ($1, $2) RETURNING id`,
		s.Name, s.Email,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert sender: %w", err)
	}
	return nil
}
