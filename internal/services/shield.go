package services

import (
	"fmt"
	"net/url"

	"badgehub/internal/models"
)

// Shield colors understood by shields.io.
const (
	shieldColorSuccess  = "success"
	shieldColorCritical = "critical"
)

// ShieldURL renders a shields.io static badge URL for one check record,
// e.g. https://img.shields.io/badge/my--repo-3%2F4%20(75%25)-critical.
func ShieldURL(repositoryName string, passed, total int, status models.CheckStatus) string {
	return fmt.Sprintf(
		"https://img.shields.io/badge/%s-%d%%2F%d%%20(%.0f%%25)-%s",
		url.PathEscape(repositoryName),
		passed, total, passPercentage(passed, total),
		shieldColor(status),
	)
}

// BuildShield renders the shields.io endpoint JSON for one check record.
func BuildShield(repositoryName string, passed, total int, status models.CheckStatus) *ShieldResponse {
	return &ShieldResponse{
		SchemaVersion: 1,
		Label:         repositoryName,
		Message:       fmt.Sprintf("%d/%d (%.0f%%)", passed, total, passPercentage(passed, total)),
		Color:         shieldColor(status),
	}
}

func shieldColor(status models.CheckStatus) string {
	if status == models.StatusPassed {
		return shieldColorSuccess
	}
	return shieldColorCritical
}

func passPercentage(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}
