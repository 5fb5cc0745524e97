package middleware

import (
	"context"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

type sessionUserContextKey struct{}

// SessionUserFromContext returns the user stored by [Guard].
func SessionUserFromContext(ctx context.Context) (*goSession.SessionUser, bool) {
	user, ok := ctx.Value(sessionUserContextKey{}).(*goSession.SessionUser)
	return user, ok
}

// WithSessionUser stores user in ctx the way [Guard] does. Useful for
// handler tests.
func WithSessionUser(ctx context.Context, user *goSession.SessionUser) context.Context {
	return context.WithValue(ctx, sessionUserContextKey{}, user)
}

// Guard rejects requests without a live session behind their bearer token.
func Guard(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			user, ok := engine.ValidateAccessToken(r.Context(), token)
			if !ok {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSessionUser(r.Context(), user)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
