package models

import "time"

// CheckStatus is the derived aggregate status of a grade check.
type CheckStatus string

const (
	StatusPending CheckStatus = "pending"
	StatusPassed  CheckStatus = "passed"
	StatusFailed  CheckStatus = "failed"
)

// BadgeRef ties one check result to one step of a named badge.
type BadgeRef struct {
	Name string `json:"name"`
	Step int    `json:"step"`
}

// CheckResult is a single graded assertion from an external grading run.
// A result with no badge references still counts toward the aggregate
// totals; it just advances no progress.
type CheckResult struct {
	Name        string     `json:"name"`
	Category    string     `json:"category,omitempty"`
	Description string     `json:"description,omitempty"`
	Passed      bool       `json:"passed"`
	Badges      []BadgeRef `json:"badges,omitempty"`
}

// GradeCheck is the append-only record of one grading submission, keyed by
// the workflow run id. PassedChecks, TotalChecks and Status are derived from
// the stored check details and never set by callers.
type GradeCheck struct {
	ID              int64         `json:"id" db:"id"`
	RepositoryName  string        `json:"repository_name" db:"repository_name"`
	StudentUsername string        `json:"student_username" db:"student_username"`
	WorkflowRunID   string        `json:"workflow_run_id" db:"workflow_run_id"`
	CommitHash      string        `json:"commit_hash" db:"commit_hash"`
	CheckDetails    CheckDetails  `json:"check_details" db:"check_details"`
	PassedChecks    int           `json:"passed_checks" db:"passed_checks"`
	TotalChecks     int           `json:"total_checks" db:"total_checks"`
	Status          CheckStatus   `json:"status" db:"status"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// DeriveStatus computes the aggregate status from the passed/total counts.
// Pure and deterministic: pending with no checks, passed when every check
// passed, failed otherwise.
func DeriveStatus(passed, total int) CheckStatus {
	switch {
	case total == 0:
		return StatusPending
	case passed == total:
		return StatusPassed
	default:
		return StatusFailed
	}
}

// CountPassed tallies the passing results in a check sequence.
func CountPassed(checks []CheckResult) int {
	n := 0
	for _, c := range checks {
		if c.Passed {
			n++
		}
	}
	return n
}
