package repositories

import (
	"context"
	"fmt"

	"badgehub/internal/database"
	"badgehub/internal/models"

	"go.uber.org/zap"
)

// badgeRepository implements BadgeRepository on Postgres.
type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates a new badge catalog repository.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *badgeRepository) ResolveOrCreate(ctx context.Context, badge *models.Badge) (*models.Badge, bool, error) {
	// Fast path: the badge usually exists already.
	existing, err := r.GetByBadgeID(ctx, badge.BadgeID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	// ON CONFLICT DO NOTHING makes concurrent creates race-safe: the loser
	// scans no row and falls through to a re-read of the winner's badge.
	query := `
		INSERT INTO badges (badge_id, name, category, description, total_steps)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (badge_id) DO NOTHING
		RETURNING id, created_at`

	created := *badge
	err = r.QueryRowContext(
		ctx, query,
		badge.BadgeID, badge.Name, badge.Category, badge.Description, badge.TotalSteps,
	).Scan(&created.ID, &created.CreatedAt)

	if err == nil {
		r.GetLogger().Info("Badge created",
			zap.String("badge_id", created.BadgeID),
			zap.Int("total_steps", created.TotalSteps),
		)
		return &created, true, nil
	}
	if !r.IsNotFound(err) {
		return nil, false, fmt.Errorf("failed to create badge %q: %w", badge.BadgeID, err)
	}

	// Lost the race; the winner's definition is authoritative.
	existing, err = r.GetByBadgeID(ctx, badge.BadgeID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("badge %q vanished after conflict", badge.BadgeID)
	}
	return existing, false, nil
}

func (r *badgeRepository) GetByBadgeID(ctx context.Context, badgeID string) (*models.Badge, error) {
	query := `
		SELECT id, badge_id, name, category, description, total_steps, created_at
		FROM badges
		WHERE badge_id = $1`

	var badge models.Badge
	err := r.QueryRowContext(ctx, query, badgeID).Scan(
		&badge.ID, &badge.BadgeID, &badge.Name, &badge.Category,
		&badge.Description, &badge.TotalSteps, &badge.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge %q: %w", badgeID, err)
	}
	return &badge, nil
}

func (r *badgeRepository) List(ctx context.Context, category string) ([]*models.Badge, error) {
	query := `
		SELECT id, badge_id, name, category, description, total_steps, created_at
		FROM badges`
	var args []interface{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY badge_id`

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		var badge models.Badge
		if err := rows.Scan(
			&badge.ID, &badge.BadgeID, &badge.Name, &badge.Category,
			&badge.Description, &badge.TotalSteps, &badge.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, &badge)
	}
	return badges, rows.Err()
}
