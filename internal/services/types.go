package services

import (
	"encoding/json"
	"time"

	"badgehub/internal/models"
)

// ===============================
// SUBMISSION TYPES
// ===============================

// SubmitChecksRequest is one validated webhook delivery from the grading
// pipeline. GradingOutput is kept raw because callers send two shapes: an
// object wrapping a "checks" list, or a bare list of check objects.
type SubmitChecksRequest struct {
	RepositoryName  string          `json:"repository_name" validate:"required,max=255"`
	StudentUsername string          `json:"student_username" validate:"required,max=255"`
	WorkflowRunID   string          `json:"workflow_run_id" validate:"required,max=255"`
	CommitHash      string          `json:"commit_hash" validate:"required,max=40"`
	GradingOutput   json.RawMessage `json:"grading_output" validate:"required"`
}

// CheckRecordResponse is the finalized check record returned to callers,
// extended with the rendered shield URL and the re-delivery marker.
type CheckRecordResponse struct {
	*models.GradeCheck
	BadgeURL string `json:"badge_url"`
	// Redelivered reports that the workflow run was already recorded and
	// the stored record was returned unchanged.
	Redelivered bool `json:"redelivered,omitempty"`
}

// ===============================
// BADGE TYPES
// ===============================

// CreateBadgeRequest is an explicit admin badge definition.
type CreateBadgeRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Category    string `json:"category" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	TotalSteps  int    `json:"total_steps" validate:"omitempty,min=1"`
}

// UpdateStepRequest marks one step of one student's badge progress.
type UpdateStepRequest struct {
	BadgeID        string `json:"badge_id" validate:"required"`
	Step           int    `json:"step" validate:"required,min=1"`
	Username       string `json:"username" validate:"required,max=255"`
	RepositoryName string `json:"repository_name" validate:"max=255"`
	Passed         bool   `json:"passed"`
}

// BadgeSearchResponse answers a (student, badge_id) lookup.
type BadgeSearchResponse struct {
	Found     bool              `json:"found"`
	Completed bool              `json:"completed,omitempty"`
	Steps     models.StepStatus `json:"steps,omitempty"`
}

// BadgeCollectionResponse lists a student's badges with progress.
type BadgeCollectionResponse struct {
	Badges []*models.BadgeWithProgress `json:"badges"`
}

// ShieldResponse is the shields.io endpoint JSON for one check record.
type ShieldResponse struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// ===============================
// PRESENCE TYPES
// ===============================

// RegisterPresenceRequest announces a character session.
type RegisterPresenceRequest struct {
	Username   string `json:"username" validate:"required,max=255"`
	Charname   string `json:"charname" validate:"required,max=255"`
	WorkingDir string `json:"working_dir" validate:"required,max=1024"`
}

// ActiveRosterResponse lists the currently active characters.
type ActiveRosterResponse struct {
	Active []*models.Presence `json:"active"`
}

// ===============================
// HEALTH TYPES
// ===============================

// ServiceHealth aggregates dependency health for the health endpoint.
type ServiceHealth struct {
	Status       string                  `json:"status"`
	Timestamp    time.Time               `json:"timestamp"`
	Dependencies map[string]HealthDetail `json:"dependencies"`
}

// HealthDetail describes one dependency's health.
type HealthDetail struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}
