package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/finplay/finplay-gobackend/internal/httpjson"
	"github.com/finplay/finplay-gobackend/internal/models"
	"github.com/finplay/finplay-gobackend/internal/token"
)

// UserLoader resolves an authenticated user id to its document.
type UserLoader interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

type ctxKey int

const userKey ctxKey = iota

// UserFrom returns the authenticated user attached by Authenticate or
// OptionalAuth.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// Authenticate rejects requests without a valid bearer token. Failures get a
// fixed message so no verification detail leaks.
func Authenticate(tokens *token.Manager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := resolveUser(r, tokens, users)
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}

// OptionalAuth attaches the user when the token is valid and proceeds either
// way.
func OptionalAuth(tokens *token.Manager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, ok := resolveUser(r, tokens, users); ok {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveUser(r *http.Request, tokens *token.Manager, users UserLoader) (*models.User, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, false
	}
	claims, err := tokens.ParseAccess(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return nil, false
	}
	user, err := users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		return nil, false
	}
	return user, true
}
