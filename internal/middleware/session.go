package middleware

import (
	"net/http"

	"nabil-inventory-api/internal/model"
	"nabil-inventory-api/pkg/apierror"
)

// SessionSource exposes the active session identity. The sync coordinator
// implements it.
type SessionSource interface {
	CurrentUser() *model.User
}

// RequireSession gates a route group on the presence of a logged-in user.
// The session's presence is the sole gate for every catalog, sales, and
// sync operation - there is no per-request credential beyond it, since the
// API only listens on the device's loopback interface.
func RequireSession(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.CurrentUser() == nil {
				w.Header().Set("Content-Type", "application/json")
				apiErr := apierror.Unauthorized("login required")
				w.WriteHeader(apiErr.StatusCode)
				w.Write(apiErr.ToJSON())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
