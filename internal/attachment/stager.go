// Package attachment stages uploaded files to local disk so the HTTP
// request body can be released before the dispatch job runs, and loads
// them back exactly once per job.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/corpola/bulkmail/pkg/logging"
	"github.com/corpola/bulkmail/pkg/metrics"
)

// PersistError reports a failure to stage an uploaded file. A submission
// that hits one must be aborted before any job is enqueued.
type PersistError struct {
	Filename string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("attachment: persist %q: %v", e.Filename, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Descriptor points at one staged file. The path is local to the worker
// host; the original filename and content type travel with it so the
// outgoing mail can reconstruct them.
type Descriptor struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// Loaded is a staged file read back into memory.
type Loaded struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Stager writes uploads into a staging directory and reads them back for
// delivery.
type Stager struct {
	root    string
	logger  *logging.Logger
	metrics *metrics.Registry
}

// NewStager creates a stager rooted at dir, creating it if needed.
func NewStager(dir string, logger *logging.Logger, reg *metrics.Registry) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment: create staging dir: %w", err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	if reg == nil {
		reg = metrics.Global()
	}
	return &Stager{root: dir, logger: logger.WithModule("attachment"), metrics: reg}, nil
}

// Stage streams one upload to a uniquely named file under the staging root.
// On any write failure the partial file is removed and a *PersistError is
// returned.
func (s *Stager) Stage(ctx context.Context, filename, contentType string, r io.Reader) (*Descriptor, error) {
	path := filepath.Join(s.root, uuid.NewString())

	f, err := os.Create(path)
	if err != nil {
		return nil, &PersistError{Filename: filename, Err: err}
	}

	n, err := io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, &PersistError{Filename: filename, Err: err}
	}

	s.metrics.RecordAttachmentStaged(n)
	s.logger.DebugContext(ctx, "staged attachment", "filename", filename, "path", path, "bytes", n)

	return &Descriptor{Path: path, Filename: filename, ContentType: contentType}, nil
}

// LoadOnce reads every staged file exactly once. The returned payloads are
// shared across all recipients of a job, so disk I/O stays proportional to
// the attachment count rather than the recipient count. A file missing from
// disk is logged and skipped; the remaining attachments still go out.
func (s *Stager) LoadOnce(ctx context.Context, descs []Descriptor) []Loaded {
	var out []Loaded
	for _, d := range descs {
		content, err := os.ReadFile(d.Path)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable attachment", "filename", d.Filename, "path", d.Path, "error", err)
			continue
		}
		out = append(out, Loaded{Filename: d.Filename, ContentType: d.ContentType, Content: content})
	}
	return out
}

// Cleanup removes the staged files. It is idempotent: files already gone
// are not errors. Removal failures are logged and counted but never fail
// the job, since the delivery outcome is already decided by the time
// cleanup runs.
func (s *Stager) Cleanup(ctx context.Context, descs []Descriptor) {
	for _, d := range descs {
		err := os.Remove(d.Path)
		switch {
		case err == nil:
			s.metrics.RecordAttachmentCleaned()
			s.logger.DebugContext(ctx, "removed staged attachment", "path", d.Path)
		case errors.Is(err, os.ErrNotExist):
			// Already cleaned, nothing to do.
		default:
			s.metrics.RecordCleanupFailure()
			s.logger.ErrorContext(ctx, "failed to remove staged attachment", "path", d.Path, "error", err)
		}
	}
}
