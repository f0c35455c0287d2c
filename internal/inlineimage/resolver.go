// Package inlineimage resolves the active inline images of a mail type to
// their blob-store payloads before a dispatch job starts delivering.
package inlineimage

import (
	"context"
	"fmt"

	"github.com/corpola/bulkmail/internal/catalog"
	"github.com/corpola/bulkmail/pkg/logging"
	"github.com/corpola/bulkmail/pkg/metrics"
)

// FetchError reports a blob-store fetch failure for one image. Any fetch
// failure is fatal to the whole job: sending a mailing with a broken image
// to thousands of recipients is worse than sending nothing.
type FetchError struct {
	ContentID string
	BlobURL   string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("inlineimage: fetch cid %q from %s: %v", e.ContentID, e.BlobURL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Image is one resolved inline image ready to embed.
type Image struct {
	ContentID string
	Filename  string
	Content   []byte
}

// Catalog is the subset of the catalog repository the resolver needs.
type Catalog interface {
	ActiveInlineImages(ctx context.Context, mailTypeID int64) ([]catalog.InlineImage, error)
}

// Fetcher retrieves blob payloads by URL.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Resolver loads the active inline images for a mail type.
type Resolver struct {
	catalog Catalog
	fetcher Fetcher
	logger  *logging.Logger
	metrics *metrics.Registry
}

// NewResolver creates a resolver.
func NewResolver(cat Catalog, fetcher Fetcher, logger *logging.Logger, reg *metrics.Registry) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	if reg == nil {
		reg = metrics.Global()
	}
	return &Resolver{catalog: cat, fetcher: fetcher, logger: logger.WithModule("inlineimage"), metrics: reg}
}

// Resolve fetches every active image for the mail type, keyed by content
// ID. Images are fetched once per job and shared across all recipients.
// The first fetch failure aborts resolution with a *FetchError.
func (r *Resolver) Resolve(ctx context.Context, mailTypeID int64) ([]Image, error) {
	refs, err := r.catalog.ActiveInlineImages(ctx, mailTypeID)
	if err != nil {
		return nil, fmt.Errorf("inlineimage: list images for mail type %d: %w", mailTypeID, err)
	}

	images := make([]Image, 0, len(refs))
	for _, ref := range refs {
		content, err := r.fetcher.FetchBytes(ctx, ref.BlobURL)
		if err != nil {
			return nil, &FetchError{ContentID: ref.ContentID, BlobURL: ref.BlobURL, Err: err}
		}

		r.metrics.RecordInlineImageFetch()
		r.logger.DebugContext(ctx, "resolved inline image", "content_id", ref.ContentID, "bytes", len(content))

		images = append(images, Image{
			ContentID: ref.ContentID,
			Filename:  ref.ContentID + ".png",
			Content:   content,
		})
	}
	return images, nil
}
