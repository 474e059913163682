package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"badgehub/internal/contextutils"
	"badgehub/internal/response"
	"badgehub/internal/services"

	"go.uber.org/zap"
)

// HeaderHubSignature carries the HMAC signature of the request body, in the
// GitHub webhook format: "sha256=<hex digest>".
const HeaderHubSignature = "X-Hub-Signature-256"

// maxWebhookBody caps the payload size read for signature verification.
const maxWebhookBody = 2 << 20

// WebhookAuth verifies the HMAC-SHA256 signature of inbound submission
// payloads. An empty secret disables verification; config validation
// refuses that outside development.
func WebhookAuth(secret string, builder *response.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				builder.WriteError(w, r, services.NewMalformedPayloadError("failed to read request body", err))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			signature := r.Header.Get(HeaderHubSignature)
			if !verifySignature(secret, body, signature) {
				contextutils.GetLogger(r.Context()).Warn("Webhook signature rejected",
					zap.Bool("signature_present", signature != ""),
				)
				builder.WriteError(w, r, services.NewUnauthorizedError("invalid webhook signature"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// verifySignature checks a "sha256=<hex>" signature against the body using
// a constant-time comparison.
func verifySignature(secret string, body []byte, signature string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature[len(prefix):]))
}
