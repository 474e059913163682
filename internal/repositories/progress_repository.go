package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// progressRepository implements ProgressRepository on Postgres.
type progressRepository struct {
	*BaseRepository
}

// NewProgressRepository creates a new badge progress repository.
func NewProgressRepository(db *database.Manager, logger *zap.Logger) ProgressRepository {
	return &progressRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *progressRepository) Advance(ctx context.Context, badge *models.Badge, repository, student string, step int, passed bool) (*models.BadgeProgress, error) {
	var result *models.BadgeProgress

	err := r.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Seeding the full step range in the insert leaves no window in
		// which the record exists with an empty map. The conflict target
		// makes concurrent first touches converge on one row.
		seed := models.BadgeProgress{
			BadgeRowID:      badge.ID,
			RepositoryName:  repository,
			StudentUsername: student,
		}
		seed.InitializeSteps(badge.TotalSteps)

		insert := `
			INSERT INTO badge_progress (badge_id, repository_name, student_username, step_status, completed)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (badge_id, repository_name, student_username) DO NOTHING`

		res, err := tx.ExecContext(ctx, insert, badge.ID, repository, student, seed.StepStatus, seed.Completed)
		if err != nil {
			return fmt.Errorf("failed to create progress for badge %q: %w", badge.BadgeID, err)
		}
		if inserted, _ := res.RowsAffected(); inserted == 1 {
			r.GetLogger().Debug("Badge progress created",
				zap.String("badge_id", badge.BadgeID),
				zap.String("repository", repository),
				zap.String("student", student),
			)
		}

		// FOR UPDATE serializes concurrent deliveries against the triple:
		// each one merges its step into the latest committed map instead of
		// overwriting a racing writer's.
		lock := `
			SELECT id, badge_id, repository_name, student_username, step_status, completed, updated_at
			FROM badge_progress
			WHERE badge_id = $1 AND repository_name = $2 AND student_username = $3
			FOR UPDATE`

		var progress models.BadgeProgress
		err = tx.QueryRowContext(ctx, lock, badge.ID, repository, student).Scan(
			&progress.ID, &progress.BadgeRowID, &progress.RepositoryName,
			&progress.StudentUsername, &progress.StepStatus, &progress.Completed,
			&progress.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to lock progress for badge %q: %w", badge.BadgeID, err)
		}

		progress.SetStep(step, passed, badge.TotalSteps)

		update := `
			UPDATE badge_progress
			SET step_status = $2, completed = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1
			RETURNING updated_at`

		err = tx.QueryRowContext(ctx, update, progress.ID, progress.StepStatus, progress.Completed).
			Scan(&progress.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update progress %d: %w", progress.ID, err)
		}

		result = &progress
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *progressRepository) ListByStudent(ctx context.Context, student, repository string) ([]*models.BadgeWithProgress, error) {
	query := `
		SELECT p.id, b.badge_id, b.name, b.category, b.total_steps,
		       p.repository_name, p.step_status, p.completed, p.updated_at
		FROM badge_progress p
		INNER JOIN badges b ON p.badge_id = b.id
		WHERE p.student_username = $1`

	args := []interface{}{student}
	if repository != "" {
		query += ` AND p.repository_name = $2`
		args = append(args, repository)
	}
	query += ` ORDER BY p.updated_at DESC`

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress for %q: %w", student, err)
	}
	defer rows.Close()

	var results []*models.BadgeWithProgress
	for rows.Next() {
		var row models.BadgeWithProgress
		if err := rows.Scan(
			&row.ProgressID, &row.BadgeID, &row.Name, &row.Category, &row.TotalSteps,
			&row.RepositoryName, &row.StepStatus, &row.Completed, &row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		results = append(results, &row)
	}
	return results, rows.Err()
}

func (r *progressRepository) FindByStudentAndBadgeID(ctx context.Context, student, badgeID string) (*models.BadgeWithProgress, error) {
	query := `
		SELECT p.id, b.badge_id, b.name, b.category, b.total_steps,
		       p.repository_name, p.step_status, p.completed, p.updated_at
		FROM badge_progress p
		INNER JOIN badges b ON p.badge_id = b.id
		WHERE p.student_username = $1 AND b.badge_id = $2
		ORDER BY p.updated_at DESC
		LIMIT 1`

	var row models.BadgeWithProgress
	err := r.QueryRowContext(ctx, query, student, badgeID).Scan(
		&row.ProgressID, &row.BadgeID, &row.Name, &row.Category, &row.TotalSteps,
		&row.RepositoryName, &row.StepStatus, &row.Completed, &row.UpdatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find progress for %q/%q: %w", student, badgeID, err)
	}
	return &row, nil
}
