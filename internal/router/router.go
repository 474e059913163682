package router

import (
	"net/http"

	"badgehub/internal/cache"
	"badgehub/internal/config"
	"badgehub/internal/handlers/api/v1/badges"
	"badgehub/internal/handlers/api/v1/checks"
	"badgehub/internal/handlers/api/v1/presence"
	"badgehub/internal/middleware"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(
	cfg *config.Config,
	serviceCollection *services.Collection,
	cacheClient cache.Cache,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Recovery(responseBuilder))
	r.Use(middleware.StructuredLogging(middleware.DefaultLoggingConfig()))

	checkController := checks.NewCheckController(serviceCollection, logger, responseBuilder)
	badgeController := badges.NewBadgeController(serviceCollection, logger, responseBuilder)
	presenceController := presence.NewPresenceController(serviceCollection, logger, responseBuilder)

	webhookAuth := middleware.WebhookAuth(cfg.Webhook.GitHubSecret, responseBuilder)
	adminAuth := middleware.AdminAuth(cfg.Webhook.AdminJWTSecret, responseBuilder)
	rateLimit := middleware.RateLimit(cacheClient, middleware.DefaultRateLimitConfig(), responseBuilder)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checks", func(r chi.Router) {
			r.With(rateLimit, webhookAuth).Post("/", checkController.Submit)
			r.Get("/", checkController.List)
			r.Get("/{runID}", checkController.Get)
			r.Get("/{runID}/shield", checkController.Shield)
		})

		r.Route("/badges", func(r chi.Router) {
			r.With(adminAuth).Post("/", badgeController.Create)
			r.Get("/", badgeController.List)
			r.Get("/search", badgeController.Search)
			r.Get("/collection/{username}", badgeController.Collection)
			r.With(adminAuth).Patch("/{badgeID}/steps/{step}", badgeController.UpdateStep)
		})

		r.Route("/presence", func(r chi.Router) {
			r.Post("/", presenceController.Register)
			r.Get("/", presenceController.List)
			r.Get("/watch", presenceController.Watch)
			r.Get("/{charname}", presenceController.Get)
			r.Put("/{charname}/heartbeat", presenceController.Heartbeat)
			r.Delete("/{charname}", presenceController.Deregister)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := serviceCollection.HealthCheck(r.Context())
		status := http.StatusOK
		if health.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		responseBuilder.WriteRaw(w, r, health, status)
	})

	return r
}
