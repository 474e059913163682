package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"badgehub/internal/models"
	"badgehub/internal/repositories"
)

// In-memory repository fakes backing the service tests.

type fakeBadgeRepo struct {
	mu     sync.Mutex
	nextID int64
	badges map[string]*models.Badge
	err    error
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{badges: make(map[string]*models.Badge)}
}

func (f *fakeBadgeRepo) ResolveOrCreate(ctx context.Context, badge *models.Badge) (*models.Badge, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	if existing, ok := f.badges[badge.BadgeID]; ok {
		clone := *existing
		return &clone, false, nil
	}
	f.nextID++
	stored := *badge
	stored.ID = f.nextID
	stored.CreatedAt = time.Now().UTC()
	f.badges[stored.BadgeID] = &stored
	clone := stored
	return &clone, true, nil
}

func (f *fakeBadgeRepo) GetByBadgeID(ctx context.Context, badgeID string) (*models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if badge, ok := f.badges[badgeID]; ok {
		clone := *badge
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeBadgeRepo) List(ctx context.Context, category string) ([]*models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Badge
	for _, badge := range f.badges {
		if category != "" && badge.Category != category {
			continue
		}
		clone := *badge
		out = append(out, &clone)
	}
	return out, nil
}

type fakeProgressRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*models.BadgeProgress
	badges  *fakeBadgeRepo
	err     error
}

func newFakeProgressRepo(badges *fakeBadgeRepo) *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]*models.BadgeProgress), badges: badges}
}

func progressKey(badgeRowID int64, repository, student string) string {
	return fmt.Sprintf("%d|%s|%s", badgeRowID, repository, student)
}

func cloneProgress(p *models.BadgeProgress) *models.BadgeProgress {
	clone := *p
	clone.StepStatus = make(models.StepStatus, len(p.StepStatus))
	for k, v := range p.StepStatus {
		clone.StepStatus[k] = v
	}
	return &clone
}

func (f *fakeProgressRepo) Advance(ctx context.Context, badge *models.Badge, repository, student string, step int, passed bool) (*models.BadgeProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	key := progressKey(badge.ID, repository, student)
	record, ok := f.records[key]
	if !ok {
		f.nextID++
		record = &models.BadgeProgress{
			ID:              f.nextID,
			BadgeRowID:      badge.ID,
			RepositoryName:  repository,
			StudentUsername: student,
		}
		record.InitializeSteps(badge.TotalSteps)
		f.records[key] = record
	}
	record.SetStep(step, passed, badge.TotalSteps)
	record.UpdatedAt = time.Now().UTC()
	return cloneProgress(record), nil
}

func (f *fakeProgressRepo) badgeByRowID(rowID int64) *models.Badge {
	for _, badge := range f.badges.badges {
		if badge.ID == rowID {
			return badge
		}
	}
	return nil
}

func (f *fakeProgressRepo) join(p *models.BadgeProgress) *models.BadgeWithProgress {
	badge := f.badgeByRowID(p.BadgeRowID)
	if badge == nil {
		return nil
	}
	return &models.BadgeWithProgress{
		ProgressID:     p.ID,
		BadgeID:        badge.BadgeID,
		Name:           badge.Name,
		Category:       badge.Category,
		TotalSteps:     badge.TotalSteps,
		RepositoryName: p.RepositoryName,
		StepStatus:     cloneProgress(p).StepStatus,
		Completed:      p.Completed,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (f *fakeProgressRepo) ListByStudent(ctx context.Context, student, repository string) ([]*models.BadgeWithProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.BadgeWithProgress
	for _, p := range f.records {
		if p.StudentUsername != student {
			continue
		}
		if repository != "" && p.RepositoryName != repository {
			continue
		}
		if joined := f.join(p); joined != nil {
			out = append(out, joined)
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) FindByStudentAndBadgeID(ctx context.Context, student, badgeID string) (*models.BadgeWithProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.records {
		if p.StudentUsername != student {
			continue
		}
		joined := f.join(p)
		if joined != nil && joined.BadgeID == badgeID {
			return joined, nil
		}
	}
	return nil, nil
}

type fakeCheckRepo struct {
	mu        sync.Mutex
	nextID    int64
	byRun     map[string]*models.GradeCheck
	failNext  int
	transient error
}

func newFakeCheckRepo() *fakeCheckRepo {
	return &fakeCheckRepo{
		byRun:     make(map[string]*models.GradeCheck),
		transient: context.DeadlineExceeded,
	}
}

func (f *fakeCheckRepo) Create(ctx context.Context, check *models.GradeCheck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return fmt.Errorf("insert grade check: %w", f.transient)
	}
	if _, ok := f.byRun[check.WorkflowRunID]; ok {
		return fmt.Errorf("run %q: %w", check.WorkflowRunID, repositories.ErrDuplicateRun)
	}
	f.nextID++
	check.ID = f.nextID
	check.CreatedAt = time.Now().UTC()
	stored := *check
	f.byRun[check.WorkflowRunID] = &stored
	return nil
}

func (f *fakeCheckRepo) GetByWorkflowRunID(ctx context.Context, runID string) (*models.GradeCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if check, ok := f.byRun[runID]; ok {
		clone := *check
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeCheckRepo) ListByStudent(ctx context.Context, student, repository string, limit int) ([]*models.GradeCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.GradeCheck
	for _, check := range f.byRun {
		if check.StudentUsername != student {
			continue
		}
		if repository != "" && check.RepositoryName != repository {
			continue
		}
		clone := *check
		out = append(out, &clone)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRepos struct {
	badge    *fakeBadgeRepo
	progress *fakeProgressRepo
	check    *fakeCheckRepo
	repos    *repositories.Collection
}

func newFakeRepos() *fakeRepos {
	badge := newFakeBadgeRepo()
	progress := newFakeProgressRepo(badge)
	check := newFakeCheckRepo()
	return &fakeRepos{
		badge:    badge,
		progress: progress,
		check:    check,
		repos: &repositories.Collection{
			Badge:    badge,
			Progress: progress,
			Check:    check,
		},
	}
}
