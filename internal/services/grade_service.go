package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"badgehub/internal/models"
	"badgehub/internal/repositories"
	"badgehub/internal/validation"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// defaultCategory is assigned to badge references whose check declares no
// category, matching the grader's own fallback.
const defaultCategory = "default"

// gradeService implements GradeService: the reconciliation engine turning
// raw grading payloads into check records and badge progress.
type gradeService struct {
	repos        *repositories.Collection
	logger       *zap.Logger
	maxRetries   int
	retryBackoff time.Duration
}

// NewGradeService creates the reconciliation engine.
func NewGradeService(repos *repositories.Collection, maxRetries int, retryBackoff time.Duration, logger *zap.Logger) GradeService {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryBackoff <= 0 {
		retryBackoff = 100 * time.Millisecond
	}
	return &gradeService{
		repos:        repos,
		logger:       logger,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}
}

func (s *gradeService) ProcessSubmission(ctx context.Context, req *SubmitChecksRequest) (*CheckRecordResponse, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid submission", err)
	}

	checks, err := normalizeGradingOutput(req.GradingOutput)
	if err != nil {
		return nil, err
	}

	record := &models.GradeCheck{
		RepositoryName:  req.RepositoryName,
		StudentUsername: req.StudentUsername,
		WorkflowRunID:   req.WorkflowRunID,
		CommitHash:      req.CommitHash,
		CheckDetails:    checks,
		PassedChecks:    models.CountPassed(checks),
		TotalChecks:     len(checks),
	}
	record.Status = models.DeriveStatus(record.PassedChecks, record.TotalChecks)

	err = s.withRetry(ctx, func() error {
		return s.repos.Check.Create(ctx, record)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateRun) {
			return s.handleRedelivery(ctx, req.WorkflowRunID)
		}
		return nil, s.storeError("create grade check", err)
	}

	// Advance badge progress per declared reference. A failure on one
	// reference is logged and skipped; the grading result itself stands.
	failures := 0
	for _, check := range checks {
		for _, ref := range check.Badges {
			if err := s.applyBadgeRef(ctx, record, check, ref); err != nil {
				failures++
				s.logger.Warn("Badge reference skipped",
					zap.String("workflow_run_id", record.WorkflowRunID),
					zap.String("check", check.Name),
					zap.String("badge", ref.Name),
					zap.Int("step", ref.Step),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("Submission processed",
		zap.String("workflow_run_id", record.WorkflowRunID),
		zap.String("repository", record.RepositoryName),
		zap.String("student", record.StudentUsername),
		zap.Int("passed_checks", record.PassedChecks),
		zap.Int("total_checks", record.TotalChecks),
		zap.String("status", string(record.Status)),
		zap.Int("badge_failures", failures),
	)

	return s.toResponse(record, false), nil
}

// handleRedelivery resolves a workflow run id collision by returning the
// stored record unchanged: webhook senders replay deliveries, and a replay
// must neither duplicate the record nor double-count steps.
func (s *gradeService) handleRedelivery(ctx context.Context, runID string) (*CheckRecordResponse, error) {
	existing, err := s.repos.Check.GetByWorkflowRunID(ctx, runID)
	if err != nil {
		return nil, s.storeError("load duplicate grade check", err)
	}
	if existing == nil {
		return nil, NewInternalError(fmt.Sprintf("duplicate run %q not found on re-read", runID))
	}

	s.logger.Info("Duplicate submission treated as re-delivery",
		zap.String("workflow_run_id", runID),
	)
	return s.toResponse(existing, true), nil
}

// applyBadgeRef resolves one badge reference and folds one step outcome
// into the student's progress.
func (s *gradeService) applyBadgeRef(ctx context.Context, record *models.GradeCheck, check models.CheckResult, ref models.BadgeRef) error {
	if ref.Name == "" {
		return NewBadgeResolutionError(ref.Name, fmt.Errorf("badge reference missing name"))
	}
	if ref.Step < 1 {
		return NewBadgeResolutionError(ref.Name, fmt.Errorf("invalid step %d", ref.Step))
	}

	category := check.Category
	if category == "" {
		category = defaultCategory
	}

	badgeID, err := models.ComputeBadgeID(category, ref.Name)
	if err != nil {
		return NewBadgeResolutionError(ref.Name, err)
	}

	seed := &models.Badge{
		BadgeID:     badgeID,
		Name:        ref.Name,
		Category:    category,
		Description: check.Description,
		TotalSteps:  1,
	}

	var badge *models.Badge
	err = s.withRetry(ctx, func() error {
		var resolveErr error
		badge, _, resolveErr = s.repos.Badge.ResolveOrCreate(ctx, seed)
		return resolveErr
	})
	if err != nil {
		return NewBadgeResolutionError(ref.Name, err)
	}

	err = s.withRetry(ctx, func() error {
		_, advErr := s.repos.Progress.Advance(ctx, badge, record.RepositoryName, record.StudentUsername, ref.Step, check.Passed)
		return advErr
	})
	if err != nil {
		return NewBadgeResolutionError(ref.Name, err)
	}
	return nil
}

func (s *gradeService) GetCheck(ctx context.Context, workflowRunID string) (*CheckRecordResponse, error) {
	check, err := s.repos.Check.GetByWorkflowRunID(ctx, workflowRunID)
	if err != nil {
		return nil, s.storeError("get grade check", err)
	}
	if check == nil {
		return nil, NewNotFoundError(fmt.Sprintf("no check recorded for run %q", workflowRunID))
	}
	return s.toResponse(check, false), nil
}

func (s *gradeService) GetShield(ctx context.Context, workflowRunID string) (*ShieldResponse, error) {
	check, err := s.repos.Check.GetByWorkflowRunID(ctx, workflowRunID)
	if err != nil {
		return nil, s.storeError("get grade check", err)
	}
	if check == nil {
		return nil, NewNotFoundError(fmt.Sprintf("no check recorded for run %q", workflowRunID))
	}
	return BuildShield(check.RepositoryName, check.PassedChecks, check.TotalChecks, check.Status), nil
}

func (s *gradeService) ListChecks(ctx context.Context, student, repository string, limit int) ([]*models.GradeCheck, error) {
	if student == "" {
		return nil, NewValidationError("student username is required", nil)
	}
	checks, err := s.repos.Check.ListByStudent(ctx, student, repository, limit)
	if err != nil {
		return nil, s.storeError("list grade checks", err)
	}
	return checks, nil
}

// ===============================
// PAYLOAD NORMALIZATION
// ===============================

type rawBadgeRef struct {
	Name string `json:"name"`
	Step *int   `json:"step"`
}

type rawCheck struct {
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Passed      *bool         `json:"passed"`
	Status      *bool         `json:"status"`
	Badges      []rawBadgeRef `json:"badges"`
}

// normalizeGradingOutput turns either payload shape (an object wrapping a
// "checks" list, or a bare list) into an ordered check sequence. Each entry
// must be an object carrying a boolean "passed" (or legacy "status") field.
func normalizeGradingOutput(raw json.RawMessage) (models.CheckDetails, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, NewMalformedPayloadError("grading output is empty", nil)
	}

	var list json.RawMessage
	switch trimmed[0] {
	case '{':
		var wrapper struct {
			Checks *json.RawMessage `json:"checks"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, NewMalformedPayloadError("grading output is not valid JSON", err)
		}
		if wrapper.Checks == nil {
			return nil, NewMalformedPayloadError("grading output must contain a 'checks' field", nil)
		}
		list = *wrapper.Checks
	case '[':
		list = trimmed
	default:
		return nil, NewMalformedPayloadError("grading output must be an object or a list", nil)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(list, &entries); err != nil {
		return nil, NewMalformedPayloadError("checks must be a list", err)
	}

	checks := make(models.CheckDetails, 0, len(entries))
	for i, entry := range entries {
		var rc rawCheck
		if err := json.Unmarshal(entry, &rc); err != nil {
			return nil, NewMalformedPayloadError(fmt.Sprintf("check %d is not a valid check object", i), err)
		}

		var passed bool
		switch {
		case rc.Passed != nil:
			passed = *rc.Passed
		case rc.Status != nil:
			passed = *rc.Status
		default:
			return nil, NewMalformedPayloadError(fmt.Sprintf("check %d is missing a 'passed' field", i), nil)
		}

		check := models.CheckResult{
			Name:        rc.Name,
			Category:    rc.Category,
			Description: rc.Description,
			Passed:      passed,
		}
		for _, ref := range rc.Badges {
			step := 1
			if ref.Step != nil {
				step = *ref.Step
			}
			check.Badges = append(check.Badges, models.BadgeRef{Name: ref.Name, Step: step})
		}
		checks = append(checks, check)
	}

	return checks, nil
}

// ===============================
// RETRY AND ERROR MAPPING
// ===============================

// withRetry retries transient store failures with capped exponential
// backoff, bounded by the caller's context. Non-transient errors abort
// immediately.
func (s *gradeService) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryBackoff
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := op()
		switch {
		case err == nil:
			return nil
		case repositories.IsTransient(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.maxRetries)), ctx))
}

// storeError maps an exhausted store failure to the retry contract.
func (s *gradeService) storeError(op string, err error) error {
	if repositories.IsTransient(err) {
		return NewStoreUnavailableError(fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *gradeService) toResponse(check *models.GradeCheck, redelivered bool) *CheckRecordResponse {
	return &CheckRecordResponse{
		GradeCheck:  check,
		BadgeURL:    ShieldURL(check.RepositoryName, check.PassedChecks, check.TotalChecks, check.Status),
		Redelivered: redelivered,
	}
}
