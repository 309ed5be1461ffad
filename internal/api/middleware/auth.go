package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/arjun/temporary-social/internal/domain"
	"github.com/arjun/temporary-social/internal/service"
)

type contextKey string

const UserKey contextKey = "user"

// Auth validates the bearer token and binds the live identity to the request
// context. Token validity is checked against the user row on every request,
// so a logically expired session is rejected even while the token itself is
// still cryptographically valid.
func Auth(sessionService *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			user, err := sessionService.ValidateToken(r.Context(), parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrSessionExpired) {
					http.Error(w, "Session has expired", http.StatusUnauthorized)
					return
				}
				log.Printf("ERROR [middleware.Auth] token validation failed: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			sessionService.Touch(r.Context(), user)

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the identity bound by Auth. It is nil only on routes that
// skipped the middleware.
func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserKey).(*domain.User)
	return user
}
