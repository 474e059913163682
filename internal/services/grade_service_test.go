package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"badgehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (GradeService, *fakeRepos) {
	t.Helper()
	fakes := newFakeRepos()
	svc := NewGradeService(fakes.repos, 2, time.Millisecond, zap.NewNop())
	return svc, fakes
}

func submission(runID, output string) *SubmitChecksRequest {
	return &SubmitChecksRequest{
		RepositoryName:  "webdev-homework",
		StudentUsername: "octocat",
		WorkflowRunID:   runID,
		CommitHash:      "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2",
		GradingOutput:   json.RawMessage(output),
	}
}

func TestProcessSubmissionRecordsAndDerivesStatus(t *testing.T) {
	svc, fakes := newTestEngine(t)

	resp, err := svc.ProcessSubmission(context.Background(), submission("run-1", `{
		"checks": [
			{"name": "html valid", "passed": true},
			{"name": "css valid", "passed": false},
			{"name": "deploys", "passed": true}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2, resp.PassedChecks)
	assert.Equal(t, 3, resp.TotalChecks)
	assert.Equal(t, models.StatusFailed, resp.Status)
	assert.False(t, resp.Redelivered)
	assert.Contains(t, resp.BadgeURL, "img.shields.io")

	stored, err := fakes.check.GetByWorkflowRunID(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.CheckDetails, 3)
}

func TestProcessSubmissionAllPassedIsPassed(t *testing.T) {
	svc, _ := newTestEngine(t)

	resp, err := svc.ProcessSubmission(context.Background(), submission("run-2",
		`[{"name": "lint", "passed": true}, {"name": "tests", "passed": true}]`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPassed, resp.Status)
}

func TestProcessSubmissionEmptyChecksIsPending(t *testing.T) {
	svc, _ := newTestEngine(t)

	resp, err := svc.ProcessSubmission(context.Background(), submission("run-3", `{"checks": []}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Zero(t, resp.TotalChecks)
}

func TestProcessSubmissionLegacyStatusField(t *testing.T) {
	svc, _ := newTestEngine(t)

	resp, err := svc.ProcessSubmission(context.Background(), submission("run-4",
		`[{"name": "lint", "status": true}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PassedChecks)
}

func TestProcessSubmissionMalformedPayloads(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"not json", `"checks"`},
		{"object without checks", `{"results": []}`},
		{"checks not a list", `{"checks": {"a": 1}}`},
		{"check missing passed", `[{"name": "lint"}]`},
		{"check not an object", `[42]`},
		{"empty output", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fakes := newTestEngine(t)

			_, err := svc.ProcessSubmission(context.Background(), submission("run-bad", tt.output))
			require.Error(t, err)
			assert.True(t, IsMalformedPayloadError(err), "expected MALFORMED_PAYLOAD, got %v", err)

			// Nothing may be persisted for a rejected payload.
			stored, getErr := fakes.check.GetByWorkflowRunID(context.Background(), "run-bad")
			require.NoError(t, getErr)
			assert.Nil(t, stored)
		})
	}
}

func TestProcessSubmissionAdvancesBadgeProgress(t *testing.T) {
	svc, fakes := newTestEngine(t)
	ctx := context.Background()

	// Git Master requires two steps.
	_, _, err := fakes.badge.ResolveOrCreate(ctx, &models.Badge{
		BadgeID:    "GIT_GIT_MASTER",
		Name:       "Git Master",
		Category:   "git",
		TotalSteps: 2,
	})
	require.NoError(t, err)

	_, err = svc.ProcessSubmission(ctx, submission("run-10", `{
		"checks": [{
			"name": "commits present", "category": "git", "passed": true,
			"badges": [{"name": "Git Master", "step": 1}]
		}]
	}`))
	require.NoError(t, err)

	entry, err := fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "GIT_GIT_MASTER")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.Completed)
	assert.Equal(t, models.StepStatus{1: true, 2: false}, entry.StepStatus)

	_, err = svc.ProcessSubmission(ctx, submission("run-11", `{
		"checks": [{
			"name": "branching used", "category": "git", "passed": true,
			"badges": [{"name": "Git Master", "step": 2}]
		}]
	}`))
	require.NoError(t, err)

	entry, err = fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "GIT_GIT_MASTER")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Completed)
}

func TestProcessSubmissionConcurrentStepDeliveries(t *testing.T) {
	svc, fakes := newTestEngine(t)
	ctx := context.Background()

	const totalSteps = 4
	_, _, err := fakes.badge.ResolveOrCreate(ctx, &models.Badge{
		BadgeID:    "GIT_GIT_MASTER",
		Name:       "Git Master",
		Category:   "git",
		TotalSteps: totalSteps,
	})
	require.NoError(t, err)

	// Each delivery advances a different step; none may erase another's.
	var wg sync.WaitGroup
	for step := 1; step <= totalSteps; step++ {
		wg.Add(1)
		go func(step int) {
			defer wg.Done()
			output := fmt.Sprintf(`{
				"checks": [{"name": "step check", "category": "git", "passed": true,
					"badges": [{"name": "Git Master", "step": %d}]}]
			}`, step)
			_, err := svc.ProcessSubmission(ctx, submission(fmt.Sprintf("run-step-%d", step), output))
			assert.NoError(t, err)
		}(step)
	}
	wg.Wait()

	entry, err := fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "GIT_GIT_MASTER")
	require.NoError(t, err)
	require.NotNil(t, entry)
	for step := 1; step <= totalSteps; step++ {
		assert.True(t, entry.StepStatus[step], "step %d was lost", step)
	}
	assert.True(t, entry.Completed)
}

func TestProcessSubmissionConcurrentResolvesCreateOneBadge(t *testing.T) {
	svc, fakes := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ProcessSubmission(ctx, submission(fmt.Sprintf("run-race-%d", i), `{
				"checks": [{"name": "lint", "category": "style", "passed": true,
					"badges": [{"name": "Clean Code", "step": 1}]}]
			}`))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	badges, err := fakes.badge.List(ctx, "style")
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Equal(t, "STYLE_CLEAN_CODE", badges[0].BadgeID)
}

func TestProcessSubmissionFailedCheckRetractsStep(t *testing.T) {
	svc, fakes := newTestEngine(t)
	ctx := context.Background()

	_, err := svc.ProcessSubmission(ctx, submission("run-20", `{
		"checks": [{"name": "lint", "category": "style", "passed": true,
			"badges": [{"name": "Clean Code", "step": 1}]}]
	}`))
	require.NoError(t, err)

	entry, err := fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "STYLE_CLEAN_CODE")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Completed)

	// The same step regresses on a later run.
	_, err = svc.ProcessSubmission(ctx, submission("run-21", `{
		"checks": [{"name": "lint", "category": "style", "passed": false,
			"badges": [{"name": "Clean Code", "step": 1}]}]
	}`))
	require.NoError(t, err)

	entry, err = fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "STYLE_CLEAN_CODE")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.Completed)
	assert.Equal(t, models.StepStatus{1: false}, entry.StepStatus)
}

func TestProcessSubmissionCreatesBadgeWithDefaultCategory(t *testing.T) {
	svc, fakes := newTestEngine(t)
	ctx := context.Background()

	_, err := svc.ProcessSubmission(ctx, submission("run-30", `{
		"checks": [{"name": "anything", "passed": true,
			"badges": [{"name": "First Steps"}]}]
	}`))
	require.NoError(t, err)

	badge, err := fakes.badge.GetByBadgeID(ctx, "DEFAULT_FIRST_STEPS")
	require.NoError(t, err)
	require.NotNil(t, badge)
	assert.Equal(t, 1, badge.TotalSteps)

	entry, err := fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "DEFAULT_FIRST_STEPS")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Completed)
}

func TestProcessSubmissionBadgeFailureDoesNotFailSubmission(t *testing.T) {
	svc, fakes := newTestEngine(t)
	ctx := context.Background()

	resp, err := svc.ProcessSubmission(ctx, submission("run-40", `{
		"checks": [{
			"name": "mixed refs", "category": "git", "passed": true,
			"badges": [
				{"name": "", "step": 1},
				{"name": "Bad/Name", "step": 1},
				{"name": "Git Starter", "step": 1}
			]
		}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPassed, resp.Status)

	// The record persisted despite two unresolvable references.
	stored, err := fakes.check.GetByWorkflowRunID(ctx, "run-40")
	require.NoError(t, err)
	require.NotNil(t, stored)

	// And the valid reference still advanced.
	entry, err := fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "GIT_GIT_STARTER")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Completed)
}

func TestProcessSubmissionRedelivery(t *testing.T) {
	svc, fakes := newTestEngine(t)
	ctx := context.Background()

	first, err := svc.ProcessSubmission(ctx, submission("run-50", `{
		"checks": [{"name": "lint", "category": "style", "passed": true,
			"badges": [{"name": "Clean Code", "step": 1}]}]
	}`))
	require.NoError(t, err)
	assert.False(t, first.Redelivered)

	before, err := fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "STYLE_CLEAN_CODE")
	require.NoError(t, err)
	require.NotNil(t, before)

	second, err := svc.ProcessSubmission(ctx, submission("run-50", `{
		"checks": [{"name": "lint", "category": "style", "passed": false,
			"badges": [{"name": "Clean Code", "step": 1}]}]
	}`))
	require.NoError(t, err)
	assert.True(t, second.Redelivered)

	// The stored record and progress are unchanged by the replay.
	assert.Equal(t, first.PassedChecks, second.PassedChecks)
	assert.Equal(t, first.Status, second.Status)

	after, err := fakes.progress.FindByStudentAndBadgeID(ctx, "octocat", "STYLE_CLEAN_CODE")
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, before.StepStatus, after.StepStatus)
	assert.Equal(t, before.Completed, after.Completed)
}

func TestProcessSubmissionRetriesTransientFailure(t *testing.T) {
	svc, fakes := newTestEngine(t)
	fakes.check.failNext = 1

	resp, err := svc.ProcessSubmission(context.Background(), submission("run-60",
		`[{"name": "lint", "passed": true}]`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPassed, resp.Status)
}

func TestProcessSubmissionStoreUnavailableAfterRetries(t *testing.T) {
	svc, fakes := newTestEngine(t)
	fakes.check.failNext = 10

	_, err := svc.ProcessSubmission(context.Background(), submission("run-61",
		`[{"name": "lint", "passed": true}]`))
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "STORE_UNAVAILABLE"), "got %v", err)
	assert.True(t, IsRetryable(err))
}

func TestProcessSubmissionValidation(t *testing.T) {
	svc, _ := newTestEngine(t)

	req := submission("run-70", `[]`)
	req.StudentUsername = ""

	_, err := svc.ProcessSubmission(context.Background(), req)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "VALIDATION_ERROR"))
}

func TestGetCheckNotFound(t *testing.T) {
	svc, _ := newTestEngine(t)

	_, err := svc.GetCheck(context.Background(), "missing-run")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestGetShield(t *testing.T) {
	svc, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := svc.ProcessSubmission(ctx, submission("run-80", `{
		"checks": [
			{"name": "a", "passed": true},
			{"name": "b", "passed": true},
			{"name": "c", "passed": false},
			{"name": "d", "passed": false}
		]
	}`))
	require.NoError(t, err)

	shield, err := svc.GetShield(ctx, "run-80")
	require.NoError(t, err)
	assert.Equal(t, 1, shield.SchemaVersion)
	assert.Equal(t, "webdev-homework", shield.Label)
	assert.Equal(t, "2/4 (50%)", shield.Message)
	assert.Equal(t, "critical", shield.Color)
}
