package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-estate-session/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores the verified token claims
const ContextKeyClaims ContextKey = "claims"

// RequireAuth is middleware that validates a Bearer access token signed by this server.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				writeJSONError(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := token.Verify(s.signer, strings.TrimSpace(parts[1]))
			if err != nil {
				s.logger.Debug().Err(err).Msg("rejected bearer token")
				writeJSONError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(token.Claims)
	return claims, ok
}
