// ===============================
// FILE: internal/handlers/api/v1/checks/checks_controller.go
// ===============================

package checks

import (
	"encoding/json"
	"net/http"
	"strconv"

	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckController handles grading submission endpoints
type CheckController struct {
	services        *services.Collection
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewCheckController creates a new check controller
func NewCheckController(sc *services.Collection, logger *zap.Logger, builder *response.Builder) *CheckController {
	return &CheckController{
		services:        sc,
		logger:          logger,
		responseBuilder: builder,
	}
}

// Submit handles POST /api/v1/checks
func (c *CheckController) Submit(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitChecksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewMalformedPayloadError("invalid request body", err))
		return
	}

	record, err := c.services.Grade.ProcessSubmission(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if record.Redelivered {
		c.responseBuilder.WriteSuccess(w, r, record)
		return
	}
	c.responseBuilder.WriteCreated(w, r, record)
}

// Get handles GET /api/v1/checks/{runID}
func (c *CheckController) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	record, err := c.services.Grade.GetCheck(r.Context(), runID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, record)
}

// Shield handles GET /api/v1/checks/{runID}/shield
func (c *CheckController) Shield(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	shield, err := c.services.Grade.GetShield(r.Context(), runID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	// Shields.io consumes this document directly; no envelope.
	c.responseBuilder.WriteRaw(w, r, shield, http.StatusOK)
}

// List handles GET /api/v1/checks
func (c *CheckController) List(w http.ResponseWriter, r *http.Request) {
	student := r.URL.Query().Get("student")
	repository := r.URL.Query().Get("repository")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.responseBuilder.WriteError(w, r,
				services.NewValidationError("limit must be an integer", err))
			return
		}
		limit = parsed
	}

	records, err := c.services.Grade.ListChecks(r.Context(), student, repository, limit)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, records)
}
