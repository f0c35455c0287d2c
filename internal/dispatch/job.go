// Package dispatch runs bulk-mailing jobs: it resolves the active template
// and inline images once, loads staged attachments once, then delivers to
// each recipient in turn, recording every outcome in the ledger.
package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/corpola/bulkmail/internal/attachment"
)

// TypeDispatchJob is the asynq task type for bulk-mailing dispatch.
const TypeDispatchJob = "mailing:dispatch"

// Job is the payload of one dispatch task. It carries IDs and staged-file
// descriptors only; templates, images and recipient addresses are resolved
// at processing time so a queued job always uses the catalog state current
// when it runs.
type Job struct {
	MailTypeID   int64                   `json:"mail_type_id"`
	SenderID     int64                   `json:"sender_id"`
	SubmitterID  int64                   `json:"submitter_id"`
	RecipientIDs []int64                 `json:"recipient_ids"`
	Subject      string                  `json:"subject,omitempty"`
	Message      string                  `json:"message,omitempty"`
	Campaign     string                  `json:"campaign,omitempty"`
	Extra        map[string]string       `json:"extra,omitempty"`
	Attachments  []attachment.Descriptor `json:"attachments,omitempty"`
}

// NewTask builds an asynq task for the job.
func NewTask(job *Job, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("dispatch: marshal job: %w", err)
	}
	return asynq.NewTask(TypeDispatchJob, payload, opts...), nil
}

// ParseJob decodes a dispatch task payload.
func ParseJob(payload []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("dispatch: unmarshal job: %w", err)
	}
	if job.MailTypeID == 0 {
		return nil, fmt.Errorf("dispatch: job missing mail type")
	}
	if len(job.RecipientIDs) == 0 {
		return nil, fmt.Errorf("dispatch: job has no recipients")
	}
	return &job, nil
}
