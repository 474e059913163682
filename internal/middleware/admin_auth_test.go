package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"badgehub/internal/response"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func adminToken(t *testing.T, secret, role string, expiry time.Duration) string {
	t.Helper()
	claims := &AdminClaims{
		Username: "staff",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func adminHandler(secret string) http.Handler {
	builder := response.NewBuilder(nil, zap.NewNop())
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return AdminAuth(secret, builder)(inner)
}

func TestAdminAuthAcceptsAdminToken(t *testing.T) {
	handler := adminHandler("jwt-secret")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/badges", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "jwt-secret", "admin", time.Hour))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminAuthRejections(t *testing.T) {
	handler := adminHandler("jwt-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong secret", adminToken(t, "other-secret", "admin", time.Hour)},
		{"expired token", adminToken(t, "jwt-secret", "admin", -time.Hour)},
		{"non-admin role", adminToken(t, "jwt-secret", "student", time.Hour)},
		{"garbage token", "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/badges", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
