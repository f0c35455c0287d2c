package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/corpola/bulkmail/internal/attachment"
	"github.com/corpola/bulkmail/internal/catalog"
	"github.com/corpola/bulkmail/internal/directory"
	"github.com/corpola/bulkmail/internal/dispatch"
)

// maxSubmissionMemory bounds how much of a multipart submission is held in
// memory before spilling to temp files.
const maxSubmissionMemory = 32 << 20

// SubmitMailingRequest is the parsed form of a mailing submission.
type SubmitMailingRequest struct {
	MailTypeID   int64             `validate:"required,gt=0"`
	SenderID     int64             `validate:"required,gt=0"`
	SubmitterID  int64             `validate:"gte=0"`
	RecipientIDs []int64           `validate:"required,min=1,dive,gt=0"`
	Subject      string            `validate:"max=255"`
	Message      string            `validate:"max=10000"`
	Campaign     string            `validate:"max=120"`
	Extra        map[string]string `validate:"omitempty"`
}

// SubmitMailingResponse acknowledges an accepted submission.
type SubmitMailingResponse struct {
	TaskID     string `json:"task_id"`
	Recipients int    `json:"recipients"`
}

// SubmitMailing handles POST /api/v1/mailings.
//
// The submission is accepted only after every uploaded attachment has been
// staged to disk. If staging fails the job is never enqueued and the files
// staged so far are removed, so a failed submission leaves nothing behind.
func (h *Handler) SubmitMailing(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSubmissionMemory); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	req, err := parseSubmitForm(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	ctx := r.Context()

	if _, err := h.catalog.GetMailType(ctx, req.MailTypeID); err != nil {
		if errors.Is(err, catalog.ErrMailTypeNotFound) {
			h.respondError(w, http.StatusNotFound, "mail type not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "failed to resolve mail type")
		return
	}
	if _, err := h.catalog.ActiveTemplate(ctx, req.MailTypeID); err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			h.respondError(w, http.StatusConflict, "mail type has no active template")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "failed to resolve template")
		return
	}
	if _, err := h.directory.GetSender(ctx, req.SenderID); err != nil {
		if errors.Is(err, directory.ErrSenderNotFound) {
			h.respondError(w, http.StatusNotFound, "sender not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "failed to resolve sender")
		return
	}

	var staged []attachment.Descriptor
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["attachments"] {
			desc, err := h.stageUpload(r, fh)
			if err != nil {
				// Abort the whole submission; nothing may be enqueued
				// after a staging failure.
				h.stager.Cleanup(ctx, staged)
				h.logger.ErrorContext(ctx, "attachment staging failed", "filename", fh.Filename, "error", err)
				h.respondError(w, http.StatusInternalServerError, "failed to persist attachment "+fh.Filename)
				return
			}
			staged = append(staged, *desc)
		}
	}

	taskID, err := h.enqueuer.EnqueueDispatch(ctx, &dispatch.Job{
		MailTypeID:   req.MailTypeID,
		SenderID:     req.SenderID,
		SubmitterID:  req.SubmitterID,
		RecipientIDs: req.RecipientIDs,
		Subject:      req.Subject,
		Message:      req.Message,
		Campaign:     req.Campaign,
		Extra:        req.Extra,
		Attachments:  staged,
	})
	if err != nil {
		h.stager.Cleanup(ctx, staged)
		h.logger.ErrorContext(ctx, "enqueue failed", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "failed to enqueue mailing")
		return
	}

	h.logger.InfoContext(ctx, "mailing accepted",
		"task_id", taskID,
		"mail_type_id", req.MailTypeID,
		"recipients", len(req.RecipientIDs),
		"attachments", len(staged))

	h.respondJSON(w, http.StatusAccepted, SubmitMailingResponse{
		TaskID:     taskID,
		Recipients: len(req.RecipientIDs),
	})
}

func (h *Handler) stageUpload(r *http.Request, fh *multipart.FileHeader) (*attachment.Descriptor, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return h.stager.Stage(r.Context(), fh.Filename, contentType, f)
}

// parseSubmitForm extracts the submission fields from the multipart form.
// recipient_ids must be a JSON array of integers; anything else is rejected
// rather than guessed at.
func parseSubmitForm(r *http.Request) (*SubmitMailingRequest, error) {
	req := &SubmitMailingRequest{
		Subject:  r.FormValue("subject"),
		Message:  r.FormValue("message"),
		Campaign: r.FormValue("campaign"),
	}

	var err error
	if req.MailTypeID, err = formInt64(r, "mail_type_id"); err != nil {
		return nil, err
	}
	if req.SenderID, err = formInt64(r, "sender_id"); err != nil {
		return nil, err
	}
	if v := r.FormValue("submitter_id"); v != "" {
		if req.SubmitterID, err = formInt64(r, "submitter_id"); err != nil {
			return nil, err
		}
	}

	rawIDs := r.FormValue("recipient_ids")
	if rawIDs == "" {
		return nil, errors.New("recipient_ids is required")
	}
	if err := json.Unmarshal([]byte(rawIDs), &req.RecipientIDs); err != nil {
		return nil, errors.New("recipient_ids must be a JSON array of integers")
	}

	if rawExtra := r.FormValue("extra"); rawExtra != "" {
		if err := json.Unmarshal([]byte(rawExtra), &req.Extra); err != nil {
			return nil, errors.New("extra must be a JSON object of strings")
		}
	}

	return req, nil
}

func formInt64(r *http.Request, field string) (int64, error) {
	v := r.FormValue(field)
	if v == "" {
		return 0, errors.New(field + " is required")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New(field + " must be an integer")
	}
	return n, nil
}
