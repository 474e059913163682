package middleware

import (
	"net/http"
	"runtime/debug"

	"badgehub/internal/contextutils"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"go.uber.org/zap"
)

// Recovery converts panics into a JSON 500 so a bad delivery can never take
// the worker down with it.
func Recovery(builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger := contextutils.GetLogger(r.Context())
					logger.Error("Panic recovered",
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
					builder.WriteError(w, r, services.NewInternalError("unexpected server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
