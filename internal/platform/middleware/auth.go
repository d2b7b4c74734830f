package middleware

import (
	"context"
	"net/http"
	"strings"

	"torque/internal/identity/token"
	"torque/internal/transport/http/shared"
	id "torque/pkg/domain"
	dErrors "torque/pkg/domain-errors"
)

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	ValidateAccessToken(raw string) (*token.AccessTokenClaims, error)
}

type principalIDKey struct{}
type sessionIDKey struct{}

// Authenticate requires a valid bearer token and stores the caller's
// principal and session ids on the request context.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := validator.ValidateAccessToken(raw)
			if err != nil {
				shared.WriteError(w, err)
				return
			}
			principalID, err := id.ParsePrincipalID(claims.PrincipalID)
			if err != nil {
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid access token"))
				return
			}
			ctx := WithPrincipalID(r.Context(), principalID)
			ctx = context.WithValue(ctx, sessionIDKey{}, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipalID returns a context carrying the given principal id, as the
// Authenticate middleware would. Useful for exercising handlers directly.
func WithPrincipalID(ctx context.Context, principalID id.PrincipalID) context.Context {
	return context.WithValue(ctx, principalIDKey{}, principalID)
}

// GetPrincipalID returns the authenticated caller's principal id, if any.
func GetPrincipalID(ctx context.Context) (id.PrincipalID, bool) {
	principalID, ok := ctx.Value(principalIDKey{}).(id.PrincipalID)
	return principalID, ok
}

// GetSessionID returns the authenticated caller's session id, if any.
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey{}).(string)
	return sessionID, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return raw, raw != ""
}
