package services

import (
	"context"
	"strings"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/config"
	"badgehub/internal/database"
	"badgehub/internal/events"
	"badgehub/internal/repositories"

	"go.uber.org/zap"
)

// Collection bundles every service for injection into the handlers.
type Collection struct {
	Grade    GradeService
	Badge    BadgeService
	Presence PresenceService

	db    *database.Manager
	cache cache.Cache
	hub   *events.Hub
}

// NewCollection wires the service layer over its stores.
func NewCollection(cfg *config.Config, db *database.Manager, c cache.Cache, hub *events.Hub, logger *zap.Logger) *Collection {
	repos := repositories.NewCollection(db, logger)

	return &Collection{
		Grade:    NewGradeService(repos, cfg.Database.MaxRetryAttempts, cfg.Database.RetryBackoff, logger),
		Badge:    NewBadgeService(repos, logger),
		Presence: NewPresenceService(c, hub, cfg.Presence.TTL, logger),
		db:       db,
		cache:    c,
		hub:      hub,
	}
}

// Hub exposes the presence event hub for websocket handlers.
func (c *Collection) Hub() *events.Hub {
	return c.hub
}

// HealthCheck reports aggregate dependency health. The overall status is
// the worst dependency status: an unhealthy store makes the whole service
// unhealthy, a degraded one degrades it.
func (c *Collection) HealthCheck(ctx context.Context) *ServiceHealth {
	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]HealthDetail),
	}

	dbHealth := c.db.Health(ctx)
	detail := HealthDetail{
		Status:  dbHealth.Status,
		Latency: dbHealth.Latency.String(),
	}
	if len(dbHealth.Errors) > 0 {
		detail.Error = strings.Join(dbHealth.Errors, "; ")
	}
	health.Dependencies["database"] = detail

	cacheDetail := HealthDetail{Status: "healthy"}
	start := time.Now()
	if err := c.cache.Health(ctx); err != nil {
		cacheDetail.Status = "unhealthy"
		cacheDetail.Error = err.Error()
	}
	cacheDetail.Latency = time.Since(start).String()
	health.Dependencies["cache"] = cacheDetail

	for _, dep := range health.Dependencies {
		switch dep.Status {
		case "unhealthy":
			health.Status = "unhealthy"
		case "degraded":
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		}
	}
	return health
}
