package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-token-service/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySubject stores the authenticated subject id
	ContextKeySubject ContextKey = "subject"
	// ContextKeyIdentity stores the full resolved identity
	ContextKeyIdentity ContextKey = "identity"
)

// RequireAuth is middleware that validates a Bearer access token and
// injects the resolved identity into the request context. Every failure
// is a uniform 401 carrying only the error kind.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := s.validator.Validate(raw)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, identity.Subject)
			ctx = context.WithValue(ctx, ContextKeyIdentity, identity)
			next(w, r.WithContext(ctx))
		}
	}
}

// IdentityFromContext returns the identity injected by RequireAuth, or nil.
func IdentityFromContext(ctx context.Context) *token.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*token.Identity)
	return identity
}

// bearerToken extracts the token from an "Authorization: Bearer" header,
// returning "" when the header is absent or not bearer-shaped.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
