// Package middleware provides HTTP middleware for authentication, request
// identification, and rate limiting.
package middleware

import (
	"net/http"

	"arkiva/internal/auth"
	"arkiva/internal/domain"
)

// Authenticator decodes the Bearer session token, if any, and attaches the
// principal to the request context. It never rejects a request by itself:
// absent or invalid credentials simply leave the context without a principal,
// and authorization is enforced downstream per operation.
func Authenticator(issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := auth.BearerToken(r); ok {
				if principal, err := issuer.Verify(token); err == nil {
					r = r.WithContext(domain.WithPrincipal(r.Context(), principal))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
