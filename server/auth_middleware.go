package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-otp-auth/internal/errors"
	"github.com/jrsteele09/go-otp-auth/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyClaims stores the validated access token claims
	ContextKeyClaims ContextKey = "claims"
)

const internalAPIKeyHeader = "x-internal-api-key"

// RequireAuth validates the bearer access token against its live session and
// injects the claims into the request context.
func (s *Server) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, r, errors.New(errors.ErrUnauthorized, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			s.writeError(w, r, errors.New(errors.ErrUnauthorized, "invalid authorization header format"))
			return
		}

		claims, err := s.auth.Authenticate(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.Subject)
		ctx = context.WithValue(ctx, ContextKeyClaims, claims)
		next(w, r.WithContext(ctx))
	}
}

// ClaimsFromContext returns the claims injected by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

func (s *Server) internalKeyMatches(presented string) bool {
	expected := s.config.GetInternalAPIKey()
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
