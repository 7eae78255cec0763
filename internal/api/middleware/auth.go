package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/civicworks/countychat/internal/api"
)

type contextKey string

// AdminPasswordHeader carries the shared admin password for the analytics
// endpoints.
const AdminPasswordHeader = "X-Admin-Password"

// AdminAuth gates a route behind the configured admin password. An empty
// configured password disables the gated routes entirely.
func AdminAuth(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" {
				api.Error(w, http.StatusServiceUnavailable, "admin endpoints disabled")
				return
			}

			supplied := r.Header.Get(AdminPasswordHeader)
			if supplied == "" {
				api.Error(w, http.StatusUnauthorized, "missing admin password")
				return
			}

			if subtle.ConstantTimeCompare([]byte(supplied), []byte(password)) != 1 {
				api.Error(w, http.StatusUnauthorized, "invalid admin password")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
