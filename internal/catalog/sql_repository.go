package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/corpola/bulkmail/internal/database"
)

// SQLRepository implements Repository using a SQL database.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a new SQL-based catalog repository.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Schema returns the DDL for the catalog tables.
func Schema(driver string) []string {
	pk := database.SerialPK(driver)
	return []string{
		`CREATE TABLE IF NOT EXISTS mail_types (
	id ` + pk + `,
	name TEXT NOT NULL UNIQUE
)`,
		`CREATE TABLE IF NOT EXISTS mail_templates (
	id ` + pk + `,
	mail_type_id BIGINT NOT NULL REFERENCES mail_types(id),
	subject TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	version INT NOT NULL,
	active BOOLEAN NOT NULL,
	variables TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS mail_templates_one_active
	ON mail_templates (mail_type_id) WHERE active`,
		`CREATE TABLE IF NOT EXISTS inline_images (
	id ` + pk + `,
	mail_type_id BIGINT NOT NULL REFERENCES mail_types(id),
	content_id TEXT NOT NULL,
	blob_url TEXT NOT NULL,
	version INT NOT NULL,
	display_order INT NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS inline_images_one_active
	ON inline_images (mail_type_id, content_id) WHERE active`,
	}
}

// GetMailType retrieves a mail type by ID.
func (r *SQLRepository) GetMailType(ctx context.Context, id int64) (*MailType, error) {
	mt := &MailType{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM mail_types WHERE id = $1`, id,
	).Scan(&mt.ID, &mt.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrMailTypeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query mail type: %w", err)
	}
	return mt, nil
}

// CreateMailType registers a new mail type.
func (r *SQLRepository) CreateMailType(ctx context.Context, mt *MailType) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO mail_types (name) VALUES ($1) RETURNING id`, mt.Name,
	).Scan(&mt.ID)
	if err != nil {
		return fmt.Errorf("insert mail type: %w", err)
	}
	return nil
}

const templateColumns = `id, mail_type_id, subject, content, version, active, variables, created_at`

func scanTemplate(row *sql.Row) (*Template, error) {
	t := &Template{}
	var variables string
	err := row.Scan(&t.ID, &t.MailTypeID, &t.Subject, &t.Content, &t.Version, &t.Active, &variables, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &t.Variables); err != nil {
			return nil, fmt.Errorf("decode template variables: %w", err)
		}
	}
	return t, nil
}

func encodeVariables(variables []string) (string, error) {
	if variables == nil {
		variables = []string{}
	}
	b, err := json.Marshal(variables)
	if err != nil {
		return "", fmt.Errorf("encode template variables: %w", err)
	}
	return string(b), nil
}

// GetTemplate retrieves one specific template version by its row ID.
func (r *SQLRepository) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM mail_templates WHERE id = $1`, id)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrTemplateNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}
	return t, nil
}

// ActiveTemplate retrieves the single active template version for a mail type.
func (r *SQLRepository) ActiveTemplate(ctx context.Context, mailTypeID int64) (*Template, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM mail_templates WHERE mail_type_id = $1 AND active`, mailTypeID)

	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no active version for mail type %d", ErrTemplateNotFound, mailTypeID)
	}
	if err != nil {
		return nil, fmt.Errorf("query active template: %w", err)
	}
	return t, nil
}

// CreateTemplate stores the first version of a template for a mail type.
func (r *SQLRepository) CreateTemplate(ctx context.Context, t *Template) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Version = 1
	t.Active = true

	variables, err := encodeVariables(t.Variables)
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO mail_templates (mail_type_id, subject, content, version, active, variables, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		t.MailTypeID, t.Subject, t.Content, t.Version, t.Active, variables, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// UpdateTemplate appends a new version and deactivates the current one in a
// single transaction, so readers never observe zero or two active versions.
func (r *SQLRepository) UpdateTemplate(ctx context.Context, mailTypeID int64, subject, content string, variables []string) (*Template, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM mail_templates WHERE mail_type_id = $1 AND active`, mailTypeID,
	).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no active version for mail type %d", ErrTemplateNotFound, mailTypeID)
	}
	if err != nil {
		return nil, fmt.Errorf("query current version: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE mail_templates SET active = FALSE WHERE mail_type_id = $1 AND active`, mailTypeID,
	); err != nil {
		return nil, fmt.Errorf("deactivate template: %w", err)
	}

	next := &Template{
		MailTypeID: mailTypeID,
		Subject:    subject,
		Content:    content,
		Version:    currentVersion + 1,
		Active:     true,
		Variables:  variables,
		CreatedAt:  time.Now(),
	}
	encoded, err := encodeVariables(next.Variables)
	if err != nil {
		return nil, err
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO mail_templates (mail_type_id, subject, content, version, active, variables, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		next.MailTypeID, next.Subject, next.Content, next.Version, next.Active, encoded, next.CreatedAt,
	).Scan(&next.ID)
	if err != nil {
		return nil, fmt.Errorf("insert template version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// ActiveInlineImages lists the active inline images for a mail type.
func (r *SQLRepository) ActiveInlineImages(ctx context.Context, mailTypeID int64) ([]InlineImage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, mail_type_id, content_id, blob_url, version, display_order, active
		 FROM inline_images
		 WHERE mail_type_id = $1 AND active
		 ORDER BY display_order, content_id`, mailTypeID)
	if err != nil {
		return nil, fmt.Errorf("query inline images: %w", err)
	}
	defer rows.Close()

	var images []InlineImage
	for rows.Next() {
		var img InlineImage
		if err := rows.Scan(&img.ID, &img.MailTypeID, &img.ContentID, &img.BlobURL, &img.Version, &img.DisplayOrder, &img.Active); err != nil {
			return nil, fmt.Errorf("scan inline image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// CreateInlineImage stores the first version of an image.
func (r *SQLRepository) CreateInlineImage(ctx context.Context, img *InlineImage) error {
	img.Version = 1
	img.Active = true

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO inline_images (mail_type_id, content_id, blob_url, version, display_order, active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		img.MailTypeID, img.ContentID, img.BlobURL, img.Version, img.DisplayOrder, img.Active,
	).Scan(&img.ID)
	if err != nil {
		return fmt.Errorf("insert inline image: %w", err)
	}
	return nil
}

// ReplaceInlineImage appends a new version and deactivates the current one in
// a single transaction.
func (r *SQLRepository) ReplaceInlineImage(ctx context.Context, mailTypeID int64, contentID, blobURL string) (*InlineImage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var currentVersion, displayOrder int
	err = tx.QueryRowContext(ctx,
		`SELECT version, display_order FROM inline_images
		 WHERE mail_type_id = $1 AND content_id = $2 AND active`, mailTypeID, contentID,
	).Scan(&currentVersion, &displayOrder)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no active version for cid %q", ErrImageNotFound, contentID)
	}
	if err != nil {
		return nil, fmt.Errorf("query current image: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE inline_images SET active = FALSE WHERE mail_type_id = $1 AND content_id = $2 AND active`,
		mailTypeID, contentID,
	); err != nil {
		return nil, fmt.Errorf("deactivate image: %w", err)
	}

	next := &InlineImage{
		MailTypeID:   mailTypeID,
		ContentID:    contentID,
		BlobURL:      blobURL,
		Version:      currentVersion + 1,
		DisplayOrder: displayOrder,
		Active:       true,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO inline_images (mail_type_id, content_id, blob_url, version, display_order, active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		next.MailTypeID, next.ContentID, next.BlobURL, next.Version, next.DisplayOrder, next.Active,
	).Scan(&next.ID)
	if err != nil {
		return nil, fmt.Errorf("insert image version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}
