package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpola/bulkmail/internal/attachment"
	"github.com/corpola/bulkmail/internal/catalog"
	"github.com/corpola/bulkmail/internal/directory"
	"github.com/corpola/bulkmail/internal/dispatch"
	"github.com/corpola/bulkmail/internal/ledger"
	"github.com/corpola/bulkmail/pkg/logging"
	"github.com/corpola/bulkmail/pkg/metrics"
)

type fakeEnqueuer struct {
	jobs []*dispatch.Job
	err  error
}

func (f *fakeEnqueuer) EnqueueDispatch(ctx context.Context, job *dispatch.Job) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return "task-123", nil
}

type testEnv struct {
	handler    *Handler
	router     chi.Router
	catalog    *catalog.MemoryRepository
	directory  *directory.MemoryRepository
	ledger     *ledger.MemoryRepository
	enqueuer   *fakeEnqueuer
	stagingDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewWithWriter(logging.Config{Level: "error", Format: "text"}, os.Stderr)
	dir := t.TempDir()
	stager, err := attachment.NewStager(dir, logger, metrics.NewRegistry(metrics.DefaultConfig()))
	require.NoError(t, err)

	env := &testEnv{
		catalog:    catalog.NewMemoryRepository(),
		directory:  directory.NewMemoryRepository(),
		ledger:     ledger.NewMemoryRepository(),
		enqueuer:   &fakeEnqueuer{},
		stagingDir: dir,
	}
	env.handler = NewHandler(env.catalog, env.directory, env.ledger, stager, env.enqueuer, logger)

	r := chi.NewRouter()
	r.Post("/api/v1/mailings", env.handler.SubmitMailing)
	r.Post("/api/v1/mail-types", env.handler.CreateMailType)
	r.Post("/api/v1/mail-types/{id}/template", env.handler.CreateTemplate)
	r.Put("/api/v1/mail-types/{id}/template", env.handler.UpdateTemplate)
	r.Get("/api/v1/deliveries", env.handler.ListDeliveries)
	env.router = r
	return env
}

func (env *testEnv) seedCatalog(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.catalog.CreateMailType(ctx, &catalog.MailType{ID: 1, Name: "newsletter"}))
	require.NoError(t, env.catalog.CreateTemplate(ctx, &catalog.Template{MailTypeID: 1, Subject: "News", Content: "<p>{{.company_name}}</p>"}))
	sender := &directory.SenderIdentity{ID: 1, Name: "IT", Email: "no-reply@corpola.com"}
	require.NoError(t, env.directory.CreateSender(ctx, sender))
}

type filePart struct {
	field, name, content string
}

func multipartRequest(t *testing.T, fields map[string]string, files []filePart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.Copy(part, strings.NewReader(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mailings", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitMailing_Accepted(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	req := multipartRequest(t, map[string]string{
		"mail_type_id":  "1",
		"sender_id":     "1",
		"submitter_id":  "9",
		"recipient_ids": "[1, 2, 3]",
		"message":       "Quarterly update.",
		"campaign":      "q1-2026",
	}, []filePart{{"attachments", "report.pdf", "pdf-bytes"}})

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SubmitMailingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "task-123", resp.TaskID)
	assert.Equal(t, 3, resp.Recipients)

	require.Len(t, env.enqueuer.jobs, 1)
	job := env.enqueuer.jobs[0]
	assert.Equal(t, []int64{1, 2, 3}, job.RecipientIDs)
	assert.Equal(t, int64(9), job.SubmitterID)
	assert.Equal(t, "q1-2026", job.Campaign)
	require.Len(t, job.Attachments, 1)
	assert.Equal(t, "report.pdf", job.Attachments[0].Filename)

	content, err := os.ReadFile(job.Attachments[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(content))
}

func TestSubmitMailing_RejectsMalformedRecipientIDs(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	for _, raw := range []string{"1,2,3", `["a","b"]`, "not json", `{"ids":[1]}`} {
		req := multipartRequest(t, map[string]string{
			"mail_type_id":  "1",
			"sender_id":     "1",
			"recipient_ids": raw,
		}, nil)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "recipient_ids=%q", raw)
	}
	assert.Empty(t, env.enqueuer.jobs)
}

func TestSubmitMailing_UnknownMailType(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	req := multipartRequest(t, map[string]string{
		"mail_type_id":  "42",
		"sender_id":     "1",
		"recipient_ids": "[1]",
	}, nil)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, env.enqueuer.jobs)
}

func TestSubmitMailing_NoActiveTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.catalog.CreateMailType(ctx, &catalog.MailType{ID: 1, Name: "newsletter"}))
	require.NoError(t, env.directory.CreateSender(ctx, &directory.SenderIdentity{ID: 1, Name: "IT", Email: "it@corpola.com"}))

	req := multipartRequest(t, map[string]string{
		"mail_type_id":  "1",
		"sender_id":     "1",
		"recipient_ids": "[1]",
	}, nil)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitMailing_EnqueueFailureCleansStagedFiles(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	env.enqueuer.err = errors.New("redis down")

	req := multipartRequest(t, map[string]string{
		"mail_type_id":  "1",
		"sender_id":     "1",
		"recipient_ids": "[1]",
	}, []filePart{{"attachments", "report.pdf", "pdf-bytes"}})

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	entries, err := os.ReadDir(env.stagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files must not leak when nothing was enqueued")
}

func TestCreateTemplate_RejectsSyntaxError(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.catalog.CreateMailType(context.Background(), &catalog.MailType{ID: 1, Name: "newsletter"}))

	body := `{"subject":"Hi","content":"Hello {{.company_name"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mail-types/1/template", strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "syntax error")
}

func TestUpdateTemplate_AppendsVersion(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	body := `{"subject":"News v2","content":"<p>updated {{.company_name}}</p>"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/mail-types/1/template", strings.NewReader(body))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tmpl catalog.Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tmpl))
	assert.Equal(t, 2, tmpl.Version)
	assert.True(t, tmpl.Active)
}

func TestListDeliveries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.ledger.Append(ctx, &ledger.Entry{RecipientID: 1, TaskID: "t1", Status: ledger.StatusSent}))
	require.NoError(t, env.ledger.Append(ctx, &ledger.Entry{RecipientID: 2, TaskID: "t1", Status: ledger.StatusFailed, Error: "bounced"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/deliveries?status=FAILED", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListDeliveriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "bounced", resp.Deliveries[0].Error)

	// Unknown status values are rejected, not silently ignored.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/deliveries?status=PENDING", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
