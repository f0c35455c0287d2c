package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLRepository implements Repository using a SQL database.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a new SQL-based ledger repository.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Schema returns the DDL for the ledger table.
func Schema(driver string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS delivery_ledger (
	id UUID PRIMARY KEY,
	recipient_id BIGINT NOT NULL,
	mail_type_id BIGINT NOT NULL,
	template_id BIGINT NOT NULL,
	sender_id BIGINT NOT NULL,
	submitter_id BIGINT NOT NULL,
	task_id TEXT NOT NULL,
	campaign TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK (status IN ('SENT', 'FAILED')),
	subject TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	sent_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS delivery_ledger_task_id ON delivery_ledger (task_id)`,
		`CREATE INDEX IF NOT EXISTS delivery_ledger_recipient_id ON delivery_ledger (recipient_id)`,
	}
}

const entryColumns = `id, recipient_id, mail_type_id, template_id, sender_id, submitter_id, task_id, campaign, status, subject, error, sent_at`

// Append writes a new entry.
func (r *SQLRepository) Append(ctx context.Context, e *Entry) error {
	if !validStatus(e.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO delivery_ledger (`+entryColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.RecipientID, e.MailTypeID, e.TemplateID, e.SenderID, e.SubmitterID,
		e.TaskID, e.Campaign, e.Status, e.Subject, e.Error, e.SentAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetEntry retrieves one entry by ID.
func (r *SQLRepository) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e := &Entry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM delivery_ledger WHERE id = $1`, id,
	).Scan(&e.ID, &e.RecipientID, &e.MailTypeID, &e.TemplateID, &e.SenderID, &e.SubmitterID,
		&e.TaskID, &e.Campaign, &e.Status, &e.Subject, &e.Error, &e.SentAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger entry: %w", err)
	}
	return e, nil
}

// ListEntries returns entries matching the filter, newest first.
func (r *SQLRepository) ListEntries(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.RecipientID != 0 {
		add("recipient_id = $%d", f.RecipientID)
	}
	if f.MailTypeID != 0 {
		add("mail_type_id = $%d", f.MailTypeID)
	}
	if f.TaskID != "" {
		add("task_id = $%d", f.TaskID)
	}
	if f.Campaign != "" {
		add("campaign = $%d", f.Campaign)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}

	query := `SELECT ` + entryColumns + ` FROM delivery_ledger`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY sent_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RecipientID, &e.MailTypeID, &e.TemplateID, &e.SenderID, &e.SubmitterID,
			&e.TaskID, &e.Campaign, &e.Status, &e.Subject, &e.Error, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
