package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths stay reachable without a token so the frontend can probe the service.
var publicPaths = map[string]bool{
	"/health":       true,
	"/model-info":   true,
	"/train-status": true,
}

// AuthMiddleware requires "Authorization: Bearer <token>" on every non-public
// path. An empty token disables the check. The viewer websocket may pass the
// token as a "token" query parameter since browsers cannot set headers on it.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			provided := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if provided == "" && r.URL.Path == "/api/view" {
				provided = r.URL.Query().Get("token")
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
