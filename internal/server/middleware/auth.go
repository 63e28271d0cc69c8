// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/types"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// requesterKey is the context key for the authenticated requester.
const requesterKey ContextKey = "requester"

// ErrNoToken is returned by bearerToken when no Authorization header is sent.
var ErrNoToken = errors.New("no bearer token")

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (Principal, error)
}

// Principal is what a validated token says about the caller.
type Principal interface {
	GetUserID() uuid.UUID
	GetRole() types.Role
}

// AuthMiddleware requires a valid bearer token and stores the requester in
// the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validator, false)
}

// OptionalAuth accepts anonymous requests as the public role. A token that is
// present but invalid is still rejected.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validator, true)
}

func authenticate(validator TokenValidator, allowAnonymous bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if errors.Is(err, ErrNoToken) && allowAnonymous {
				next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), types.Requester{Role: types.RolePublic})))
				return
			}
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			principal, err := validator.ValidateToken(token)
			if err != nil || !principal.GetRole().Valid() {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			req := types.Requester{Role: principal.GetRole(), UserID: principal.GetUserID()}
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), req)))
		})
	}
}

// RequireRole rejects requesters whose role is not one of roles. It must run
// after AuthMiddleware or OptionalAuth.
func RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, ok := RequesterFrom(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if req.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("malformed authorization header")
	}
	return parts[1], nil
}

// WithRequester returns a context carrying req.
func WithRequester(ctx context.Context, req types.Requester) context.Context {
	return context.WithValue(ctx, requesterKey, req)
}

// RequesterFrom extracts the requester stored by the auth middleware.
func RequesterFrom(ctx context.Context) (types.Requester, bool) {
	req, ok := ctx.Value(requesterKey).(types.Requester)
	return req, ok
}
