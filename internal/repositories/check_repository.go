package repositories

import (
	"context"
	"errors"
	"fmt"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// ErrDuplicateRun reports an insert against an already-recorded workflow
// run id. The service layer decides the re-delivery policy.
var ErrDuplicateRun = errors.New("workflow run already recorded")

// checkRepository implements CheckRepository on Postgres.
type checkRepository struct {
	*BaseRepository
}

// NewCheckRepository creates a new grade check repository.
func NewCheckRepository(db *database.Manager, logger *zap.Logger) CheckRepository {
	return &checkRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *checkRepository) Create(ctx context.Context, check *models.GradeCheck) error {
	query := `
		INSERT INTO grade_checks (
			repository_name, student_username, workflow_run_id, commit_hash,
			check_details, passed_checks, total_checks, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	err := r.QueryRowContext(
		ctx, query,
		check.RepositoryName, check.StudentUsername, check.WorkflowRunID,
		check.CommitHash, check.CheckDetails, check.PassedChecks,
		check.TotalChecks, check.Status,
	).Scan(&check.ID, &check.CreatedAt, &check.UpdatedAt)

	if err != nil {
		if IsUniqueViolation(err, "grade_checks_workflow_run_id_key") {
			return fmt.Errorf("run %q: %w", check.WorkflowRunID, ErrDuplicateRun)
		}
		return fmt.Errorf("failed to create grade check: %w", err)
	}

	r.GetLogger().Info("Grade check recorded",
		zap.String("workflow_run_id", check.WorkflowRunID),
		zap.String("repository", check.RepositoryName),
		zap.String("student", check.StudentUsername),
	)
	return nil
}

func (r *checkRepository) GetByWorkflowRunID(ctx context.Context, runID string) (*models.GradeCheck, error) {
	query := `
		SELECT id, repository_name, student_username, workflow_run_id, commit_hash,
		       check_details, passed_checks, total_checks, status, created_at, updated_at
		FROM grade_checks
		WHERE workflow_run_id = $1`

	var check models.GradeCheck
	err := r.QueryRowContext(ctx, query, runID).Scan(
		&check.ID, &check.RepositoryName, &check.StudentUsername,
		&check.WorkflowRunID, &check.CommitHash, &check.CheckDetails,
		&check.PassedChecks, &check.TotalChecks, &check.Status,
		&check.CreatedAt, &check.UpdatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grade check %q: %w", runID, err)
	}
	return &check, nil
}

func (r *checkRepository) ListByStudent(ctx context.Context, student, repository string, limit int) ([]*models.GradeCheck, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, repository_name, student_username, workflow_run_id, commit_hash,
		       check_details, passed_checks, total_checks, status, created_at, updated_at
		FROM grade_checks
		WHERE student_username = $1`

	args := []interface{}{student}
	if repository != "" {
		query += ` AND repository_name = $2`
		args = append(args, repository)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grade checks for %q: %w", student, err)
	}
	defer rows.Close()

	var checks []*models.GradeCheck
	for rows.Next() {
		var check models.GradeCheck
		if err := rows.Scan(
			&check.ID, &check.RepositoryName, &check.StudentUsername,
			&check.WorkflowRunID, &check.CommitHash, &check.CheckDetails,
			&check.PassedChecks, &check.TotalChecks, &check.Status,
			&check.CreatedAt, &check.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grade check: %w", err)
		}
		checks = append(checks, &check)
	}
	return checks, rows.Err()
}
