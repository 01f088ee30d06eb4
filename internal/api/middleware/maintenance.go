package middleware

import (
	"net/http"

	"github.com/Finn35/runnmate-server/internal/utils"
)

// Maintenance short-circuits every API request while the server runs in
// maintenance/build mode, instead of each handler special-casing a build
// environment variable.
func Maintenance(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			utils.JSONError(w, http.StatusServiceUnavailable, "maintenance_mode")
		})
	}
}
