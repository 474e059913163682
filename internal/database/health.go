package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Health statuses reported by the checker.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the result of one health check.
type HealthStatus struct {
	Status      string        `json:"status"`
	Latency     time.Duration `json:"latency"`
	OpenConns   int           `json:"open_conns"`
	InUseConns  int           `json:"in_use_conns"`
	IdleConns   int           `json:"idle_conns"`
	CheckedAt   time.Time     `json:"checked_at"`
	Errors      []string      `json:"errors,omitempty"`
}

// HealthChecker probes database connectivity and pool saturation.
type HealthChecker struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHealthChecker creates a new health checker bound to a manager.
func NewHealthChecker(manager *Manager, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{manager: manager, logger: logger}
}

// Check pings the database and inspects pool statistics. A slow ping or a
// saturated pool degrades the status; a failed ping marks it unhealthy.
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:    StatusHealthy,
		CheckedAt: time.Now(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := h.manager.DB().PingContext(pingCtx)
	status.Latency = time.Since(start)

	if err != nil {
		status.Status = StatusUnhealthy
		status.Errors = append(status.Errors, fmt.Sprintf("ping failed: %v", err))
		h.logger.Error("Database health check failed", zap.Error(err))
		return status
	}

	stats := h.manager.Stats()
	status.OpenConns = stats.OpenConnections
	status.InUseConns = stats.InUse
	status.IdleConns = stats.Idle

	if status.Latency > time.Second {
		status.Status = StatusDegraded
		status.Errors = append(status.Errors, fmt.Sprintf("slow ping: %s", status.Latency))
	}
	if stats.MaxOpenConnections > 0 && stats.InUse == stats.MaxOpenConnections {
		status.Status = StatusDegraded
		status.Errors = append(status.Errors, "connection pool saturated")
	}

	return status
}
