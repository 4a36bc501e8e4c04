package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mailpilot/mailpilot/internal/auth"
)

// Context keys for authenticated owner data
const (
	OwnerIDKey contextKey = "owner_id"
	EmailKey   contextKey = "email"
)

// TokenCookie is read when no Authorization header is sent
const TokenCookie = "mailpilot_token"

// TokenValidator validates owner access tokens
type TokenValidator interface {
	Validate(token string) (*auth.TokenClaims, error)
}

// Auth creates an authentication middleware that validates JWT tokens
func (m *Middleware) Auth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			// 1. Try Authorization header first
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = strings.TrimSpace(parts[1])
				}
			}

			// 2. Fall back to cookie
			if tokenString == "" {
				if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
					tokenString = cookie.Value
				}
			}

			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				m.log.Debug().Err(err).Msg("token validation failed")
				writeError(w, http.StatusUnauthorized, "invalid_token", "The access token is invalid or expired")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, OwnerIDKey, claims.OwnerID())
			ctx = context.WithValue(ctx, EmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwnerID retrieves the authenticated owner from context
func GetOwnerID(ctx context.Context) string {
	if id, ok := ctx.Value(OwnerIDKey).(string); ok {
		return id
	}
	return ""
}
