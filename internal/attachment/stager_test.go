package attachment

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpola/bulkmail/pkg/logging"
	"github.com/corpola/bulkmail/pkg/metrics"
)

func newTestStager(t *testing.T) (*Stager, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logging.NewWithWriter(logging.Config{Level: "error", Format: "text"}, os.Stderr)
	s, err := NewStager(dir, logger, metrics.NewRegistry(metrics.DefaultConfig()))
	require.NoError(t, err)
	return s, dir
}

func TestStage_WritesFileWithUniqueName(t *testing.T) {
	s, dir := newTestStager(t)
	ctx := context.Background()

	d1, err := s.Stage(ctx, "report.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	d2, err := s.Stage(ctx, "report.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)

	assert.NotEqual(t, d1.Path, d2.Path)
	assert.Equal(t, "report.pdf", d1.Filename)
	assert.Equal(t, "application/pdf", d1.ContentType)
	assert.Equal(t, dir, filepath.Dir(d1.Path))

	content, err := os.ReadFile(d1.Path)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(content))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, os.ErrClosed }

func TestStage_RemovesPartialFileOnFailure(t *testing.T) {
	s, dir := newTestStager(t)

	_, err := s.Stage(context.Background(), "broken.bin", "application/octet-stream", failingReader{})
	require.Error(t, err)

	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken.bin", perr.Filename)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file should be removed")
}

func TestLoadOnce_SkipsMissingFiles(t *testing.T) {
	s, _ := newTestStager(t)
	ctx := context.Background()

	d1, err := s.Stage(ctx, "a.txt", "text/plain", strings.NewReader("aaa"))
	require.NoError(t, err)
	d2, err := s.Stage(ctx, "b.txt", "text/plain", strings.NewReader("bbb"))
	require.NoError(t, err)

	require.NoError(t, os.Remove(d2.Path))

	loaded := s.LoadOnce(ctx, []Descriptor{*d1, *d2})
	require.Len(t, loaded, 1)
	assert.Equal(t, "a.txt", loaded[0].Filename)
	assert.Equal(t, []byte("aaa"), loaded[0].Content)
}

func TestCleanup_Idempotent(t *testing.T) {
	s, dir := newTestStager(t)
	ctx := context.Background()

	d, err := s.Stage(ctx, "a.txt", "text/plain", strings.NewReader("aaa"))
	require.NoError(t, err)

	s.Cleanup(ctx, []Descriptor{*d})
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A second pass over already removed files is a no-op.
	s.Cleanup(ctx, []Descriptor{*d})
}
