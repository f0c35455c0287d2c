package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	cfg := DefaultConfig()
	cfg.EnableProcessMetrics = false
	cfg.EnableRuntimeMetrics = false
	return NewRegistry(cfg)
}

func TestRecordRecipient(t *testing.T) {
	r := newTestRegistry()

	r.RecordRecipient("SENT")
	r.RecordRecipient("SENT")
	r.RecordRecipient("FAILED")

	assert.Equal(t, float64(2), testutil.ToFloat64(r.recipientsTotal.WithLabelValues("SENT")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.recipientsTotal.WithLabelValues("FAILED")))
}

func TestRecordJob(t *testing.T) {
	r := newTestRegistry()

	r.RecordJob("completed", 2*time.Second)
	r.RecordJob("failed", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.jobsTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.jobsTotal.WithLabelValues("failed")))
}

func TestRecordAttachmentLifecycle(t *testing.T) {
	r := newTestRegistry()

	r.RecordAttachmentStaged(1024)
	r.RecordAttachmentStaged(2048)
	r.RecordAttachmentCleaned()
	r.RecordAttachmentCleaned()
	r.RecordCleanupFailure()

	assert.Equal(t, float64(2), testutil.ToFloat64(r.attachmentsStaged))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.attachmentsCleaned))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.attachmentsLeaked))
}

func TestHandler_ServesMetrics(t *testing.T) {
	r := newTestRegistry()
	r.RecordRecipient("SENT")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bulkmail_dispatch_recipients_total")
}
