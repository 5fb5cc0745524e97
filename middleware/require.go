package middleware

import (
	"net/http"
)

// RequireMFA lets a request through only when [Guard] found a session whose
// MFA verification is current. Mount it after Guard.
func RequireMFA() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := SessionUserFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if !user.MFAVerified {
				http.Error(w, "mfa required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission lets a request through only when the session carries
// perm. Mount it after Guard.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := SessionUserFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if !user.HasPermission(perm) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
