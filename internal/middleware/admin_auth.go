package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"badgehub/internal/contextutils"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AdminClaims are the JWT claims required on admin surfaces.
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth guards catalog management endpoints with a bearer JWT carrying
// the admin role.
func AdminAuth(secret string, builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				builder.WriteError(w, r, services.NewUnauthorizedError("missing bearer token"))
				return
			}

			claims := &AdminClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !parsed.Valid {
				contextutils.GetLogger(r.Context()).Warn("Admin token rejected", zap.Error(err))
				builder.WriteError(w, r, services.NewUnauthorizedError("invalid token"))
				return
			}
			if claims.Role != "admin" {
				builder.WriteError(w, r, services.NewUnauthorizedError("admin role required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
