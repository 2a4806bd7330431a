package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/buckles/server/internal/apiresponse"
	"github.com/buckles/server/internal/auth"
	"github.com/buckles/server/internal/model"
	"github.com/buckles/server/internal/repo"
	"github.com/buckles/server/internal/trace"
)

type contextKey string

const (
	userKey     contextKey = "user"
	usernameKey contextKey = "username"
)

// AuthMiddleware validates JWT tokens, loads the user from the store, and
// attaches the user to the request context.
func AuthMiddleware(jwtService *auth.JWTService, userRepo repo.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			txID := trace.FromRequest(r)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "missing token")
				return
			}

			claims, err := jwtService.VerifyToken(tokenString)
			if err != nil {
				apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "invalid or expired token")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				apiresponse.WriteError(w, txID, apiresponse.CodeCredential, "user not found")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, &user)
			ctx = context.WithValue(ctx, usernameKey, user.Username)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the user attached to the request context (set by AuthMiddleware)
func GetUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok
}

// GetUsername extracts the authenticated username from context
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok
}
