package repositories

import (
	"context"

	"badgehub/internal/models"
)

// BadgeRepository is the canonical badge catalog store.
type BadgeRepository interface {
	// ResolveOrCreate returns the badge with the given badge_id, creating it
	// if absent. The stored TotalSteps of an existing badge is never changed
	// by this call (first writer wins). The returned bool reports whether a
	// new badge was created.
	ResolveOrCreate(ctx context.Context, badge *models.Badge) (*models.Badge, bool, error)

	// GetByBadgeID returns the badge with the given stable id, or nil when
	// absent.
	GetByBadgeID(ctx context.Context, badgeID string) (*models.Badge, error)

	// List returns all badges, optionally filtered by category.
	List(ctx context.Context, category string) ([]*models.Badge, error)
}

// ProgressRepository is the per-(badge, repository, student) progress store.
type ProgressRepository interface {
	// Advance folds one step outcome into the triple's progress record,
	// creating it with a fully initialized step map when absent. The merge
	// and the completion recomputation run under a row lock, so concurrent
	// deliveries for different steps of the same badge never overwrite each
	// other. Returns the record as persisted.
	Advance(ctx context.Context, badge *models.Badge, repository, student string, step int, passed bool) (*models.BadgeProgress, error)

	// ListByStudent returns every progress record of a student joined with
	// its badge, optionally restricted to one repository.
	ListByStudent(ctx context.Context, student, repository string) ([]*models.BadgeWithProgress, error)

	// FindByStudentAndBadgeID returns one student's progress on one badge,
	// or nil when the student has no record for it.
	FindByStudentAndBadgeID(ctx context.Context, student, badgeID string) (*models.BadgeWithProgress, error)
}

// CheckRepository is the append-only grade check store.
type CheckRepository interface {
	// Create inserts a new check record. ErrDuplicateRun is returned when
	// the workflow run id already exists.
	Create(ctx context.Context, check *models.GradeCheck) error

	// GetByWorkflowRunID returns the record for a run id, or nil when
	// absent.
	GetByWorkflowRunID(ctx context.Context, runID string) (*models.GradeCheck, error)

	// ListByStudent returns a student's check records, newest first,
	// optionally restricted to one repository.
	ListByStudent(ctx context.Context, student, repository string, limit int) ([]*models.GradeCheck, error)
}

// Collection bundles all repositories for injection into the service layer.
type Collection struct {
	Badge    BadgeRepository
	Progress ProgressRepository
	Check    CheckRepository
}
