package services

import (
	"context"
	"fmt"

	"badgehub/internal/models"
	"badgehub/internal/repositories"
	"badgehub/internal/validation"

	"go.uber.org/zap"
)

// badgeService implements BadgeService over the badge and progress stores.
type badgeService struct {
	repos  *repositories.Collection
	logger *zap.Logger
}

// NewBadgeService creates the badge catalog service.
func NewBadgeService(repos *repositories.Collection, logger *zap.Logger) BadgeService {
	return &badgeService{repos: repos, logger: logger}
}

func (s *badgeService) CreateBadge(ctx context.Context, req *CreateBadgeRequest) (*models.Badge, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid badge definition", err)
	}

	badgeID, err := models.ComputeBadgeID(req.Category, req.Name)
	if err != nil {
		return nil, NewValidationError(err.Error(), nil)
	}

	totalSteps := req.TotalSteps
	if totalSteps < 1 {
		totalSteps = 1
	}

	badge, created, err := s.repos.Badge.ResolveOrCreate(ctx, &models.Badge{
		BadgeID:     badgeID,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		TotalSteps:  totalSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("create badge: %w", err)
	}
	if !created {
		return nil, NewConflictError(fmt.Sprintf("badge %q already exists", badgeID), "BADGE_EXISTS")
	}

	s.logger.Info("Badge created",
		zap.String("badge_id", badge.BadgeID),
		zap.String("category", badge.Category),
		zap.Int("total_steps", badge.TotalSteps),
	)
	return badge, nil
}

func (s *badgeService) ListBadges(ctx context.Context, category string) ([]*models.Badge, error) {
	badges, err := s.repos.Badge.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return badges, nil
}

func (s *badgeService) GetCollection(ctx context.Context, student, repository string) (*BadgeCollectionResponse, error) {
	if student == "" {
		return nil, NewValidationError("student username is required", nil)
	}

	entries, err := s.repos.Progress.ListByStudent(ctx, student, repository)
	if err != nil {
		return nil, fmt.Errorf("list badge progress: %w", err)
	}
	if entries == nil {
		entries = []*models.BadgeWithProgress{}
	}
	return &BadgeCollectionResponse{Badges: entries}, nil
}

func (s *badgeService) Search(ctx context.Context, student, badgeID string) (*BadgeSearchResponse, error) {
	if student == "" || badgeID == "" {
		return nil, NewValidationError("student username and badge id are required", nil)
	}

	entry, err := s.repos.Progress.FindByStudentAndBadgeID(ctx, student, badgeID)
	if err != nil {
		return nil, fmt.Errorf("search badge progress: %w", err)
	}
	if entry == nil {
		return &BadgeSearchResponse{Found: false}, nil
	}
	return &BadgeSearchResponse{
		Found:     true,
		Completed: entry.Completed,
		Steps:     entry.StepStatus,
	}, nil
}

func (s *badgeService) UpdateStep(ctx context.Context, req *UpdateStepRequest) (*models.BadgeProgress, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid step update", err)
	}

	badge, err := s.repos.Badge.GetByBadgeID(ctx, req.BadgeID)
	if err != nil {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	if badge == nil {
		return nil, NewNotFoundError(fmt.Sprintf("badge %q not found", req.BadgeID))
	}

	// A repository name lets the caller start a fresh progress record;
	// without one, only an existing record can be advanced.
	repository := req.RepositoryName
	if repository == "" {
		entry, err := s.repos.Progress.FindByStudentAndBadgeID(ctx, req.Username, req.BadgeID)
		if err != nil {
			return nil, fmt.Errorf("find badge progress: %w", err)
		}
		if entry == nil {
			return nil, NewNotFoundError(fmt.Sprintf("no progress for %q on badge %q", req.Username, req.BadgeID))
		}
		repository = entry.RepositoryName
	}

	progress, err := s.repos.Progress.Advance(ctx, badge, repository, req.Username, req.Step, req.Passed)
	if err != nil {
		return nil, fmt.Errorf("update badge progress: %w", err)
	}

	s.logger.Info("Badge step updated",
		zap.String("badge_id", req.BadgeID),
		zap.String("student", req.Username),
		zap.Int("step", req.Step),
		zap.Bool("passed", req.Passed),
		zap.Bool("completed", progress.Completed),
	)
	return progress, nil
}
