package middleware

import (
	"net/http"
	"time"

	"badgehub/internal/contextutils"

	"go.uber.org/zap"
)

// LoggingConfig holds configuration for structured logging middleware
type LoggingConfig struct {
	SlowRequestThreshold time.Duration `json:"slow_request_threshold"`
	SkipPaths            []string      `json:"skip_paths"`
}

// DefaultLoggingConfig returns production-ready logging configuration
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		SlowRequestThreshold: time.Second,
		SkipPaths:            []string{"/healthz"},
	}
}

// statusWriter captures the response status code and size.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// StructuredLogging logs one line per completed request with timing and
// outcome, plus a warning for slow requests.
func StructuredLogging(config *LoggingConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			writer := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(writer, r)

			duration := time.Since(start)
			logger := contextutils.GetLogger(r.Context())

			fields := []zap.Field{
				zap.Int("status", writer.status),
				zap.Int("bytes", writer.bytes),
				zap.Duration("duration", duration),
			}

			switch {
			case writer.status >= http.StatusInternalServerError:
				logger.Error("Request completed", fields...)
			case writer.status >= http.StatusBadRequest:
				logger.Warn("Request completed", fields...)
			default:
				logger.Info("Request completed", fields...)
			}

			if duration > config.SlowRequestThreshold {
				logger.Warn("Slow request",
					zap.Duration("duration", duration),
					zap.Duration("threshold", config.SlowRequestThreshold),
				)
			}
		})
	}
}
