// ===============================
// FILE: internal/handlers/api/v1/badges/badges_controller.go
// ===============================

package badges

import (
	"encoding/json"
	"net/http"
	"strconv"

	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BadgeController handles badge catalog and progress endpoints
type BadgeController struct {
	services        *services.Collection
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewBadgeController creates a new badge controller
func NewBadgeController(sc *services.Collection, logger *zap.Logger, builder *response.Builder) *BadgeController {
	return &BadgeController{
		services:        sc,
		logger:          logger,
		responseBuilder: builder,
	}
}

// Create handles POST /api/v1/badges (admin)
func (c *BadgeController) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", err))
		return
	}

	badge, err := c.services.Badge.CreateBadge(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteCreated(w, r, badge)
}

// List handles GET /api/v1/badges
func (c *BadgeController) List(w http.ResponseWriter, r *http.Request) {
	badges, err := c.services.Badge.ListBadges(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, badges)
}

// Search handles GET /api/v1/badges/search
func (c *BadgeController) Search(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	badgeID := r.URL.Query().Get("badge_id")

	result, err := c.services.Badge.Search(r.Context(), username, badgeID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

// Collection handles GET /api/v1/badges/collection/{username}
func (c *BadgeController) Collection(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	repository := r.URL.Query().Get("repository")

	collection, err := c.services.Badge.GetCollection(r.Context(), username, repository)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, collection)
}

// UpdateStep handles PATCH /api/v1/badges/{badgeID}/steps/{step} (admin)
func (c *BadgeController) UpdateStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("step must be an integer", err))
		return
	}

	var req services.UpdateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.responseBuilder.WriteError(w, r,
			services.NewValidationError("invalid request body", err))
		return
	}
	req.BadgeID = chi.URLParam(r, "badgeID")
	req.Step = step

	progress, err := c.services.Badge.UpdateStep(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, progress)
}
