package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/pkg/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticator validates bearer tokens issued with the shared JWT secret.
type Authenticator struct {
	secret string
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: secret}
}

// AuthMiddleware validates JWT token
func (a *Authenticator) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ValidateToken(a.secret, parts[1])
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// AdminMiddleware checks if user has admin role
func (a *Authenticator) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return a.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(claimsKey).(*auth.Claims)
		if !ok || !claims.IsAdmin() {
			respondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actorFromContext returns the authenticated actor, or the system actor for
// unauthenticated requests.
func actorFromContext(ctx context.Context) domain.Actor {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok {
		return domain.SystemActor
	}
	return domain.Actor{ID: claims.UserID, CanOverride: claims.CanOverride()}
}
