package admin

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// RequireToken guards admin routes with a shared token sent as
// "Authorization: Bearer <token>" or "X-Admin-Token". An empty expected
// token disables the routes entirely.
func RequireToken(expected string, log *zap.Logger) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				log.Warn("admin request rejected: ADMIN_TOKEN is empty", zap.String("path", r.URL.Path))
				writeError(w, http.StatusServiceUnavailable, "admin auth not configured")
				return
			}
			provided := extractToken(r)
			if provided == "" {
				writeError(w, http.StatusUnauthorized, "missing admin token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-Admin-Token"))
}
