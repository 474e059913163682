package services

import (
	"context"

	"badgehub/internal/models"
)

// GradeService is the badge progress reconciliation engine: it validates
// and normalizes grading payloads, records check results and advances badge
// progress.
type GradeService interface {
	// ProcessSubmission ingests one webhook delivery. Re-delivery of a
	// known workflow run id returns the stored record unchanged. A failure
	// resolving one badge reference never fails the submission.
	ProcessSubmission(ctx context.Context, req *SubmitChecksRequest) (*CheckRecordResponse, error)

	// GetCheck returns the recorded check for a workflow run id.
	GetCheck(ctx context.Context, workflowRunID string) (*CheckRecordResponse, error)

	// GetShield renders the shields.io endpoint JSON for a workflow run.
	GetShield(ctx context.Context, workflowRunID string) (*ShieldResponse, error)

	// ListChecks returns a student's recent check records.
	ListChecks(ctx context.Context, student, repository string, limit int) ([]*models.GradeCheck, error)
}

// BadgeService manages the badge catalog and per-student progress queries.
type BadgeService interface {
	// CreateBadge explicitly defines a badge (admin surface).
	CreateBadge(ctx context.Context, req *CreateBadgeRequest) (*models.Badge, error)

	// ListBadges returns catalog badges, optionally filtered by category.
	ListBadges(ctx context.Context, category string) ([]*models.Badge, error)

	// GetCollection returns a student's badges joined with progress.
	GetCollection(ctx context.Context, student, repository string) (*BadgeCollectionResponse, error)

	// Search answers whether a student has a record for one badge.
	Search(ctx context.Context, student, badgeID string) (*BadgeSearchResponse, error)

	// UpdateStep manually marks one step of a student's badge progress.
	UpdateStep(ctx context.Context, req *UpdateStepRequest) (*models.BadgeProgress, error)
}

// PresenceService tracks ephemeral character sessions.
type PresenceService interface {
	Register(ctx context.Context, req *RegisterPresenceRequest) (*models.Presence, error)
	Heartbeat(ctx context.Context, charname string) (*models.Presence, error)
	Deregister(ctx context.Context, charname string) error
	GetByCharname(ctx context.Context, charname string) (*models.Presence, error)
	ListActive(ctx context.Context) (*ActiveRosterResponse, error)
	ListActiveByWorkingDir(ctx context.Context, workingDir string) (*ActiveRosterResponse, error)
}
