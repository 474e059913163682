package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"badgehub/internal/cache"
	"badgehub/internal/contextutils"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	Requests int           `json:"requests"`
	Window   time.Duration `json:"window"`
}

// DefaultRateLimitConfig allows a burst of submissions per sender without
// letting a runaway CI loop flood the store.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Requests: 120,
		Window:   time.Minute,
	}
}

// RateLimit counts requests per client IP in fixed windows backed by the
// cache, so the limit holds across replicas when the cache is shared.
func RateLimit(c cache.Cache, config *RateLimitConfig, builder *response.Builder) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window := time.Now().Unix() / int64(config.Window.Seconds())
			key := fmt.Sprintf("ratelimit:%s:%d", getClientIP(r), window)

			count, err := c.Increment(r.Context(), key, 1, config.Window)
			if err != nil {
				// A broken cache must not block submissions.
				contextutils.GetLogger(r.Context()).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.Requests))
			remaining := config.Requests - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > config.Requests {
				w.Header().Set("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
				err := services.NewConflictError("rate limit exceeded", "RATE_LIMITED")
				err.StatusCode = http.StatusTooManyRequests
				builder.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
