package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/corpola/bulkmail/internal/ledger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListDeliveriesResponse wraps a ledger listing.
type ListDeliveriesResponse struct {
	Deliveries []ledger.Entry `json:"deliveries"`
	Count      int            `json:"count"`
}

// ListDeliveries handles GET /api/v1/deliveries. The ledger is read-only
// over HTTP; there is no way to modify an entry once written.
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.Filter{
		TaskID:   q.Get("task_id"),
		Campaign: q.Get("campaign"),
		Status:   q.Get("status"),
		Limit:    defaultListLimit,
	}

	if v := q.Get("recipient_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "recipient_id must be an integer")
			return
		}
		filter.RecipientID = id
	}
	if v := q.Get("mail_type_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "mail_type_id must be an integer")
			return
		}
		filter.MailTypeID = id
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			h.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}
	if filter.Status != "" && filter.Status != ledger.StatusSent && filter.Status != ledger.StatusFailed {
		h.respondError(w, http.StatusBadRequest, "status must be SENT or FAILED")
		return
	}

	entries, err := h.ledger.ListEntries(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list deliveries failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	h.respondJSON(w, http.StatusOK, ListDeliveriesResponse{Deliveries: entries, Count: len(entries)})
}

// GetDelivery handles GET /api/v1/deliveries/{id}.
func (h *Handler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid delivery id")
		return
	}

	entry, err := h.ledger.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrEntryNotFound) {
			h.respondError(w, http.StatusNotFound, "delivery not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "failed to load delivery")
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}
