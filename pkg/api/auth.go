// API authentication middleware, static bearer token.
//
// When gateway.api_key is set, every request except GET /api/health must
// carry one of:
//
//	Authorization: Bearer <api_key>
//	X-API-Key: <api_key>
//
// WebSocket upgrades may pass the token as ?token=<api_key>.
//
// With no key the server is open; it binds to 127.0.0.1 by default.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sipeed/cinebot/pkg/logger"
)

func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		logger.WarnC("auth", "API auth disabled, no api key configured")
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !tokenValid(extractToken(r), apiKey) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="cinebot"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "unauthorized, bearer token required",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken pulls the bearer token from the Authorization header, the
// X-API-Key header, or the ?token= query param.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return r.URL.Query().Get("token")
}

func tokenValid(provided, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func isPublicPath(path string) bool {
	return path == "/api/health"
}
