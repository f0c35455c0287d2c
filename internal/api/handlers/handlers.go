// Package handlers contains HTTP request handlers for the API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/corpola/bulkmail/internal/attachment"
	"github.com/corpola/bulkmail/internal/catalog"
	"github.com/corpola/bulkmail/internal/directory"
	"github.com/corpola/bulkmail/internal/ledger"
	"github.com/corpola/bulkmail/internal/queue"
	"github.com/corpola/bulkmail/pkg/logging"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// Handler provides the HTTP handlers for the API.
type Handler struct {
	catalog   catalog.Repository
	directory directory.Repository
	ledger    ledger.Repository
	stager    *attachment.Stager
	enqueuer  queue.Enqueuer
	renderer  *catalog.Renderer
	validate  *validator.Validate
	logger    *logging.Logger
}

// NewHandler creates a new Handler.
func NewHandler(
	cat catalog.Repository,
	dir directory.Repository,
	led ledger.Repository,
	stager *attachment.Stager,
	enqueuer queue.Enqueuer,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		catalog:   cat,
		directory: dir,
		ledger:    led,
		stager:    stager,
		enqueuer:  enqueuer,
		renderer:  catalog.NewRenderer(),
		validate:  validator.New(),
		logger:    logger.WithModule("api"),
	}
}

// respondJSON writes a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response with the given status code.
func (h *Handler) respondError(w http.ResponseWriter, code int, message string) {
	h.respondJSON(w, code, ErrorResponse{Error: message})
}

// respondValidationError writes a field-by-field validation error response.
func (h *Handler) respondValidationError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]string)
		for _, e := range validationErrs {
			details[e.Field()] = formatValidationError(e)
		}
		h.respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: details,
		})
		return
	}
	h.respondError(w, http.StatusBadRequest, "invalid input")
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must have at least " + e.Param() + " entries"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "gt":
		return "must be greater than " + e.Param()
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}

// decodeAndValidate decodes a JSON request body and validates it.
func (h *Handler) decodeAndValidate(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}
