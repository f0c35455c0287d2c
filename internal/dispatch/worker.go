package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/corpola/bulkmail/internal/attachment"
	"github.com/corpola/bulkmail/internal/catalog"
	"github.com/corpola/bulkmail/internal/directory"
	"github.com/corpola/bulkmail/internal/inlineimage"
	"github.com/corpola/bulkmail/internal/ledger"
	"github.com/corpola/bulkmail/pkg/logging"
	"github.com/corpola/bulkmail/pkg/metrics"
)

// Job outcomes recorded in metrics.
const (
	outcomeComplete = "complete"
	outcomePartial  = "partial"
	outcomeFailed   = "failed"
	outcomeEmpty    = "empty"
	outcomeAborted  = "aborted"
)

// ImageResolver resolves the active inline images of a mail type.
type ImageResolver interface {
	Resolve(ctx context.Context, mailTypeID int64) ([]inlineimage.Image, error)
}

// Worker processes dispatch tasks.
type Worker struct {
	catalog   catalog.Repository
	directory directory.Repository
	ledger    ledger.Repository
	renderer  *catalog.Renderer
	stager    *attachment.Stager
	images    ImageResolver
	transport Transport
	logger    *logging.Logger
	metrics   *metrics.Registry
}

// WorkerParams bundles the dependencies of a Worker.
type WorkerParams struct {
	Catalog   catalog.Repository
	Directory directory.Repository
	Ledger    ledger.Repository
	Renderer  *catalog.Renderer
	Stager    *attachment.Stager
	Images    ImageResolver
	Transport Transport
	Logger    *logging.Logger
	Metrics   *metrics.Registry
}

// NewWorker creates a dispatch worker.
func NewWorker(p WorkerParams) *Worker {
	if p.Logger == nil {
		p.Logger = logging.Default()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.Global()
	}
	if p.Renderer == nil {
		p.Renderer = catalog.NewRenderer()
	}
	return &Worker{
		catalog:   p.Catalog,
		directory: p.Directory,
		ledger:    p.Ledger,
		renderer:  p.Renderer,
		stager:    p.Stager,
		images:    p.Images,
		transport: p.Transport,
		logger:    p.Logger.WithModule("dispatch"),
		metrics:   p.Metrics,
	}
}

// ProcessTask runs one dispatch job.
//
// Resolution happens in a strict order before any mail goes out: sender,
// recipients, template, inline images, staged attachments. A failure in
// that phase leaves the staged files on disk so a queue retry can re-read
// them, unless the failure is permanent or the retry budget is spent.
//
// Once the delivery loop starts the job is terminal: the queue never
// retries it, because a retry would re-send to recipients that already
// got the mail. Per-recipient failures are isolated to their ledger entry
// and never stop the loop.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	job, err := ParseJob(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	ctx = context.WithValue(ctx, logging.JobIDKey, taskID)
	if job.Campaign != "" {
		ctx = context.WithValue(ctx, logging.CampaignKey, job.Campaign)
	}
	logger := w.logger.WithJob(taskID).WithMailType(job.MailTypeID)

	start := time.Now()
	terminal := false
	defer func() {
		// Staged files survive queue retries but never a terminal state.
		if terminal || lastAttempt(ctx) {
			w.stager.Cleanup(ctx, job.Attachments)
		}
	}()

	abort := func(err error, permanent bool) error {
		outcome := outcomeAborted
		if permanent || lastAttempt(ctx) {
			terminal = true
			outcome = outcomeFailed
		}
		w.metrics.RecordJob(outcome, time.Since(start))
		logger.ErrorContext(ctx, "dispatch aborted", "error", err, "terminal", terminal)
		if permanent {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	sender, err := w.directory.GetSender(ctx, job.SenderID)
	if err != nil {
		return abort(fmt.Errorf("resolve sender %d: %w", job.SenderID, err), errors.Is(err, directory.ErrSenderNotFound))
	}

	recipients, err := w.directory.ListActiveRecipients(ctx, job.RecipientIDs)
	if err != nil {
		return abort(fmt.Errorf("resolve recipients: %w", err), false)
	}
	if len(recipients) == 0 {
		terminal = true
		logger.WarnContext(ctx, "no active recipients, nothing to send", "requested", len(job.RecipientIDs))
		w.metrics.RecordJob(outcomeEmpty, time.Since(start))
		return nil
	}

	mailType, err := w.catalog.GetMailType(ctx, job.MailTypeID)
	if err != nil {
		return abort(fmt.Errorf("resolve mail type: %w", err), errors.Is(err, catalog.ErrMailTypeNotFound))
	}

	tmpl, err := w.catalog.ActiveTemplate(ctx, job.MailTypeID)
	if err != nil {
		return abort(fmt.Errorf("resolve template: %w", err), errors.Is(err, catalog.ErrTemplateNotFound))
	}
	if err := w.renderer.Validate(tmpl.Content); err != nil {
		// Malformed content will not fix itself on retry.
		return abort(fmt.Errorf("template %d: %w", tmpl.ID, err), true)
	}

	images, err := w.images.Resolve(ctx, job.MailTypeID)
	if err != nil {
		return abort(fmt.Errorf("resolve inline images: %w", err), false)
	}

	// One disk read per attachment, shared by every recipient below.
	attachments := w.stager.LoadOnce(ctx, job.Attachments)

	logger.InfoContext(ctx, "dispatching mailing",
		"mail_type", mailType.Name,
		"recipients", len(recipients),
		"inline_images", len(images),
		"attachments", len(attachments))

	terminal = true

	var sent, failed int
	for _, rec := range recipients {
		entry := &ledger.Entry{
			RecipientID: rec.ID,
			MailTypeID:  job.MailTypeID,
			TemplateID:  tmpl.ID,
			SenderID:    job.SenderID,
			SubmitterID: job.SubmitterID,
			TaskID:      taskID,
			Campaign:    job.Campaign,
		}

		subject, body, err := w.renderEmail(tmpl, mailType, job, rec, *sender, images)
		if err == nil {
			entry.Subject = subject
			deliverStart := time.Now()
			_, err = w.transport.Deliver(ctx, &Email{
				To:           rec,
				Sender:       *sender,
				Subject:      subject,
				HTMLBody:     body,
				InlineImages: images,
				Attachments:  attachments,
			})
			w.metrics.RecordDelivery(time.Since(deliverStart))
		}

		if err != nil {
			failed++
			entry.Status = ledger.StatusFailed
			entry.Error = err.Error()
			logger.WithRecipient(rec.ID).ErrorContext(ctx, "delivery failed", "error", err)
		} else {
			sent++
			entry.Status = ledger.StatusSent
		}
		w.metrics.RecordRecipient(entry.Status)

		if err := w.ledger.Append(ctx, entry); err != nil {
			logger.WithRecipient(rec.ID).ErrorContext(ctx, "ledger append failed", "error", err)
		}
	}

	outcome := outcomeComplete
	switch {
	case sent == 0:
		outcome = outcomeFailed
	case failed > 0:
		outcome = outcomePartial
	}
	w.metrics.RecordJob(outcome, time.Since(start))
	logger.InfoContext(ctx, "dispatch finished", "sent", sent, "failed", failed, "outcome", outcome)

	return nil
}

// renderEmail renders subject and body for one recipient. The job's subject
// override wins over the template's stored subject; when both are blank the
// mail type name is used.
func (w *Worker) renderEmail(tmpl *catalog.Template, mt *catalog.MailType, job *Job, rec directory.Recipient, sender directory.SenderIdentity, images []inlineimage.Image) (string, string, error) {
	vars := BuildContext(job, rec, sender, images)

	body, err := w.renderer.Render(tmpl.Content, vars)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}

	subject := job.Subject
	if subject == "" {
		subject = tmpl.Subject
	}
	if subject == "" {
		subject = mt.Name
	} else if rendered, err := w.renderer.Render(subject, vars); err == nil {
		subject = rendered
	}

	return subject, body, nil
}

// lastAttempt reports whether the current attempt is the final one the
// queue will make.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
