package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/corpola/bulkmail/internal/catalog"
)

// CreateMailTypeRequest is the body for registering a mail type.
type CreateMailTypeRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// CreateMailType handles POST /api/v1/mail-types.
func (h *Handler) CreateMailType(w http.ResponseWriter, r *http.Request) {
	var req CreateMailTypeRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	mt := &catalog.MailType{Name: req.Name}
	if err := h.catalog.CreateMailType(r.Context(), mt); err != nil {
		h.logger.ErrorContext(r.Context(), "create mail type failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create mail type")
		return
	}

	h.respondJSON(w, http.StatusCreated, mt)
}

// TemplateRequest is the body for creating or updating a template.
type TemplateRequest struct {
	Subject   string   `json:"subject" validate:"max=255"`
	Content   string   `json:"content" validate:"required"`
	Variables []string `json:"variables,omitempty"`
}

// CreateTemplate handles POST /api/v1/mail-types/{id}/template.
// Content is parsed before it is stored; malformed templates never enter
// the catalog.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	mailTypeID, ok := h.urlID(w, r)
	if !ok {
		return
	}

	var req TemplateRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}
	if err := h.renderer.Validate(req.Content); err != nil {
		var syntaxErr *catalog.SyntaxError
		if errors.As(err, &syntaxErr) {
			h.respondError(w, http.StatusBadRequest, "template syntax error: "+syntaxErr.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid template content")
		return
	}

	tmpl := &catalog.Template{
		MailTypeID: mailTypeID,
		Subject:    req.Subject,
		Content:    req.Content,
		Variables:  req.Variables,
	}
	if err := h.catalog.CreateTemplate(r.Context(), tmpl); err != nil {
		if errors.Is(err, catalog.ErrMailTypeNotFound) {
			h.respondError(w, http.StatusNotFound, "mail type not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "create template failed", "error", err)
		h.respondError(w, http.StatusConflict, "mail type already has an active template")
		return
	}

	h.respondJSON(w, http.StatusCreated, tmpl)
}

// UpdateTemplate handles PUT /api/v1/mail-types/{id}/template. A new
// version is appended; prior versions stay readable for the audit trail.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	mailTypeID, ok := h.urlID(w, r)
	if !ok {
		return
	}

	var req TemplateRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}
	if err := h.renderer.Validate(req.Content); err != nil {
		h.respondError(w, http.StatusBadRequest, "template syntax error: "+err.Error())
		return
	}

	tmpl, err := h.catalog.UpdateTemplate(r.Context(), mailTypeID, req.Subject, req.Content, req.Variables)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			h.respondError(w, http.StatusNotFound, "mail type has no template to update")
			return
		}
		h.logger.ErrorContext(r.Context(), "update template failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to update template")
		return
	}

	h.respondJSON(w, http.StatusOK, tmpl)
}

// GetActiveTemplate handles GET /api/v1/mail-types/{id}/template.
func (h *Handler) GetActiveTemplate(w http.ResponseWriter, r *http.Request) {
	mailTypeID, ok := h.urlID(w, r)
	if !ok {
		return
	}

	tmpl, err := h.catalog.ActiveTemplate(r.Context(), mailTypeID)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			h.respondError(w, http.StatusNotFound, "no active template")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "failed to load template")
		return
	}

	h.respondJSON(w, http.StatusOK, tmpl)
}

// InlineImageRequest is the body for creating or replacing an inline image.
type InlineImageRequest struct {
	ContentID    string `json:"content_id" validate:"required,max=120"`
	BlobURL      string `json:"blob_url" validate:"required,url"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// CreateInlineImage handles POST /api/v1/mail-types/{id}/images.
func (h *Handler) CreateInlineImage(w http.ResponseWriter, r *http.Request) {
	mailTypeID, ok := h.urlID(w, r)
	if !ok {
		return
	}

	var req InlineImageRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	img := &catalog.InlineImage{
		MailTypeID:   mailTypeID,
		ContentID:    req.ContentID,
		BlobURL:      req.BlobURL,
		DisplayOrder: req.DisplayOrder,
	}
	if err := h.catalog.CreateInlineImage(r.Context(), img); err != nil {
		if errors.Is(err, catalog.ErrMailTypeNotFound) {
			h.respondError(w, http.StatusNotFound, "mail type not found")
			return
		}
		h.respondError(w, http.StatusConflict, "image already exists for content id")
		return
	}

	h.respondJSON(w, http.StatusCreated, img)
}

// ReplaceInlineImage handles PUT /api/v1/mail-types/{id}/images/{cid}.
func (h *Handler) ReplaceInlineImage(w http.ResponseWriter, r *http.Request) {
	mailTypeID, ok := h.urlID(w, r)
	if !ok {
		return
	}
	contentID := chi.URLParam(r, "cid")

	var req struct {
		BlobURL string `json:"blob_url" validate:"required,url"`
	}
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	img, err := h.catalog.ReplaceInlineImage(r.Context(), mailTypeID, contentID, req.BlobURL)
	if err != nil {
		if errors.Is(err, catalog.ErrImageNotFound) {
			h.respondError(w, http.StatusNotFound, "no active image for content id")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "failed to replace image")
		return
	}

	h.respondJSON(w, http.StatusOK, img)
}

// ListInlineImages handles GET /api/v1/mail-types/{id}/images.
func (h *Handler) ListInlineImages(w http.ResponseWriter, r *http.Request) {
	mailTypeID, ok := h.urlID(w, r)
	if !ok {
		return
	}

	images, err := h.catalog.ActiveInlineImages(r.Context(), mailTypeID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to list images")
		return
	}

	h.respondJSON(w, http.StatusOK, images)
}

// urlID parses the {id} route parameter.
func (h *Handler) urlID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
