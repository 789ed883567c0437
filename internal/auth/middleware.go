package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errMissingToken = errors.New("auth: missing bearer token")

// contextKey is unexported so only this package can read or write identity
// values in the request context.
type contextKey string

const emailKey contextKey = "email"

// RequireAuth enforces a valid bearer token on protected routes.
//
// It reads the Authorization header ("Bearer <token>"), validates the token,
// and stores the asserted email in the request context. A missing or invalid
// token ends the request with 401 — unauthenticated, not forbidden: the
// caller could not be identified at all.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := extractEmail(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthenticated","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), emailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext retrieves the verified caller email set by RequireAuth.
// Returns ("", false) when the request never passed the middleware.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok && email != ""
}

// WithEmail returns a context carrying the given caller email. Test helper
// for exercising handlers without the middleware chain.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

func extractEmail(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return "", errMissingToken
	}

	return tokens.Validate(tokenStr)
}
