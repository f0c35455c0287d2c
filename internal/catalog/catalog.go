// Package catalog manages mail types, their versioned message templates, and
// their versioned inline images. Template and image versions are immutable:
// an edit appends a new version and moves the active pointer, it never
// rewrites an existing row.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by repositories.
var (
	ErrMailTypeNotFound = errors.New("catalog: mail type not found")
	ErrTemplateNotFound = errors.New("catalog: template not found")
	ErrImageNotFound    = errors.New("catalog: inline image not found")
)

// SyntaxError reports template content that cannot be parsed. It is raised at
// template create/update time so broken templates never reach dispatch.
type SyntaxError struct {
	Err error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("catalog: template syntax: %v", e.Err)
}

// Unwrap returns the underlying parse error.
func (e *SyntaxError) Unwrap() error { return e.Err }

// MailType is a named category of outbound message.
type MailType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Template is one immutable version of a mail type's message body.
type Template struct {
	ID         int64     `json:"id"`
	MailTypeID int64     `json:"mailTypeId"`
	Subject    string    `json:"subject"`
	Content    string    `json:"content"`
	Version    int       `json:"version"`
	Active     bool      `json:"active"`
	// Variables lists the context keys the template body references.
	Variables []string  `json:"variables,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InlineImage is one immutable version of an embeddable image bound to a
// mail type. The body references it by its content id (cid).
type InlineImage struct {
	ID           int64  `json:"id"`
	MailTypeID   int64  `json:"mailTypeId"`
	ContentID    string `json:"contentId"`
	BlobURL      string `json:"blobUrl"`
	Version      int    `json:"version"`
	DisplayOrder int    `json:"displayOrder"`
	Active       bool   `json:"active"`
}

// Repository defines catalog persistence.
type Repository interface {
	// GetMailType retrieves a mail type by ID.
	GetMailType(ctx context.Context, id int64) (*MailType, error)

	// CreateMailType registers a new mail type.
	CreateMailType(ctx context.Context, mt *MailType) error

	// GetTemplate retrieves one specific template version by its row ID.
	GetTemplate(ctx context.Context, id int64) (*Template, error)

	// ActiveTemplate retrieves the single active template version for a
	// mail type.
	ActiveTemplate(ctx context.Context, mailTypeID int64) (*Template, error)

	// CreateTemplate stores the first version of a template for a mail type.
	// Content must already be validated by the renderer.
	CreateTemplate(ctx context.Context, t *Template) error

	// UpdateTemplate appends a new version with the given subject and content
	// and deactivates the current active version in the same transaction.
	// The prior version's row is left untouched.
	UpdateTemplate(ctx context.Context, mailTypeID int64, subject, content string, variables []string) (*Template, error)

	// ActiveInlineImages lists the active inline images for a mail type,
	// ordered by display order then content id.
	ActiveInlineImages(ctx context.Context, mailTypeID int64) ([]InlineImage, error)

	// CreateInlineImage stores the first version of an image for a
	// (mail type, content id) pair.
	CreateInlineImage(ctx context.Context, img *InlineImage) error

	// ReplaceInlineImage appends a new version for the (mail type, content id)
	// pair and deactivates the current one in the same transaction.
	ReplaceInlineImage(ctx context.Context, mailTypeID int64, contentID, blobURL string) (*InlineImage, error)
}
