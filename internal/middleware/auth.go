package middleware

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const AuthTokenKey contextKey = "auth_token"

// RequireToken extracts the storefront session token from the "token"
// header and stashes it in the request context. The token is opaque to
// this service; it is forwarded verbatim to the backend, which owns
// validation.
func RequireToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("token")
			if token == "" {
				writeAuthError(w, "missing token header", "auth_required")
				return
			}

			ctx := context.WithValue(r.Context(), AuthTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthToken returns the session token stored by RequireToken.
func GetAuthToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(AuthTokenKey).(string)
	return token, ok
}

func writeAuthError(w http.ResponseWriter, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  code,
	})
}
