package models

import (
	"fmt"
	"strings"
	"time"
)

// Badge is a canonical achievement definition. Badges are created once per
// unique (category, name) pair and identified by a deterministic BadgeID;
// TotalSteps is fixed by the first writer and never lowered or raised by
// later submissions.
type Badge struct {
	ID          int64     `json:"id" db:"id"`
	BadgeID     string    `json:"badge_id" db:"badge_id"`
	Name        string    `json:"name" db:"name"`
	Category    string    `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	TotalSteps  int       `json:"total_steps" db:"total_steps"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StepStatus maps a 1-based step number to its completion state.
type StepStatus map[int]bool

// BadgeProgress tracks one student's progress toward one badge within one
// repository. The (badge, repository, student) triple is unique.
type BadgeProgress struct {
	ID              int64      `json:"id" db:"id"`
	BadgeRowID      int64      `json:"-" db:"badge_id"`
	RepositoryName  string     `json:"repository_name" db:"repository_name"`
	StudentUsername string     `json:"student_username" db:"student_username"`
	StepStatus      StepStatus `json:"step_status" db:"step_status"`
	Completed       bool       `json:"completed" db:"completed"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// BadgeWithProgress joins a progress record with its badge definition for
// collection and search responses.
type BadgeWithProgress struct {
	ProgressID     int64      `json:"-"`
	BadgeID        string     `json:"badge_id"`
	Name           string     `json:"name"`
	Category       string     `json:"category"`
	TotalSteps     int        `json:"total_steps"`
	RepositoryName string     `json:"repository_name"`
	StepStatus     StepStatus `json:"step_status"`
	Completed      bool       `json:"completed"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ComputeBadgeID derives the stable badge identifier from category and name:
// both parts are trimmed, upper-cased, spaces become underscores, and the
// parts are joined with an underscore, so ("git", "Git Master") yields
// "GIT_GIT_MASTER". Any rune that does not collapse to [A-Z0-9_] makes the
// id invalid.
func ComputeBadgeID(category, name string) (string, error) {
	normalize := func(s string) string {
		s = strings.ToUpper(strings.TrimSpace(s))
		return strings.ReplaceAll(s, " ", "_")
	}

	id := normalize(category) + "_" + normalize(name)
	if id == "_" {
		return "", fmt.Errorf("badge id is empty")
	}
	for _, r := range id {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return "", fmt.Errorf("badge id %q contains invalid rune %q", id, r)
	}
	return id, nil
}

// InitializeSteps seeds the step map with every step in 1..totalSteps set to
// false. Used at progress creation so a fresh record never carries an empty
// map.
func (p *BadgeProgress) InitializeSteps(totalSteps int) {
	p.StepStatus = make(StepStatus, totalSteps)
	for s := 1; s <= totalSteps; s++ {
		p.StepStatus[s] = false
	}
	p.Completed = false
}

// SetStep records the outcome of one step and recomputes Completed against
// the badge's required step range. Setting the same (step, passed) pair
// twice is a no-op, and steps beyond totalSteps extend the map without
// affecting completion.
func (p *BadgeProgress) SetStep(step int, passed bool, totalSteps int) {
	if p.StepStatus == nil {
		p.StepStatus = make(StepStatus)
	}
	p.StepStatus[step] = passed
	p.Completed = p.allRequiredStepsPassed(totalSteps)
}

// allRequiredStepsPassed reports whether every step in 1..totalSteps is
// present and true. Recorded steps beyond the range are ignored.
func (p *BadgeProgress) allRequiredStepsPassed(totalSteps int) bool {
	if totalSteps <= 0 {
		return false
	}
	for s := 1; s <= totalSteps; s++ {
		if !p.StepStatus[s] {
			return false
		}
	}
	return true
}
