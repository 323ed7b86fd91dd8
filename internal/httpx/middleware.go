package httpx

import (
	"net/http"
	"strings"

	"github.com/danuprasetya/go-storefront/internal/auth"
)

// RequireSession resolves the session cookie and stores the user id in the
// request context; requests without a valid session get 401.
func RequireSession(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.FromRequest(r)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// MaintenanceGate rejects storefront API traffic with 503 while maintenance
// mode is on. The maintenance endpoints, the admin surface, and requests
// carrying the service-role key pass through so the mode can be turned off
// again. The cookie set by the maintenance toggle overrides the server default.
func MaintenanceGate(defaultOn bool, serviceKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") ||
				r.URL.Path == "/api/maintenance" ||
				strings.HasPrefix(r.URL.Path, "/api/admin/") ||
				(serviceKey != "" && r.Header.Get("X-Service-Role-Key") == serviceKey) {
				next.ServeHTTP(w, r)
				return
			}

			enabled := defaultOn
			if c, err := r.Cookie(maintenanceCookie); err == nil {
				enabled = c.Value == "true"
			}
			if enabled {
				writeJSON(w, http.StatusServiceUnavailable, errorBody{
					Error:   "maintenance",
					Message: "the store is temporarily down for maintenance",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireServiceRole guards the admin surface with the server-only key.
func RequireServiceRole(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || r.Header.Get("X-Service-Role-Key") != key {
				writeError(w, auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
