package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/xelth-com/centerhub/internal/auth"
)

// TokenValidator resolves a bearer token to the caller. auth.Service implements it.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (auth.Principal, error)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass ?token= instead.
func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	if r.Header.Get("Upgrade") != "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, true
		}
	}
	return "", false
}

// Auth verifies the bearer token and stores the principal in the request context
func Auth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			p, err := v.Validate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenRevoked):
					writeError(w, http.StatusUnauthorized, "Session has ended, please log in again")
				case errors.Is(err, auth.ErrInvalidToken):
					writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				default:
					writeError(w, http.StatusServiceUnavailable, "Could not verify token")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// AdminOnly rejects callers that are not the administrator. It must run after Auth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if !p.IsAdmin() {
			writeError(w, http.StatusForbidden, "Administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
