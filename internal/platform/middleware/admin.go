package middleware

import (
	"log/slog"
	"net/http"

	"foodbridge/pkg/secrets"
)

// RequireAdminToken guards seeding endpoints with a shared token supplied in
// the X-Admin-Token header. A bcrypt hash is preferred; the plaintext form is
// accepted for development setups.
func RequireAdminToken(tokenHash, plainToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Admin-Token")
			valid := false
			switch {
			case presented == "":
				valid = false
			case tokenHash != "":
				valid = secrets.Compare(tokenHash, presented)
			case plainToken != "":
				valid = secrets.ConstantTimeEquals(plainToken, presented)
			}
			if !valid {
				logger.WarnContext(r.Context(), "forbidden - admin token rejected",
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
