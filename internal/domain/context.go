package domain

import "context"

type principalKey struct{}

// ContextPrincipal carries the authenticated identity through request context.
// It is derived from the session token on every request; the token itself is
// the stateless session.
type ContextPrincipal struct {
	ID    int64
	Email string
	Role  string
}

// IsAdmin reports whether the principal holds the admin role.
func (p ContextPrincipal) IsAdmin() bool { return p.Role == RoleAdmin }

// WithPrincipal stores a ContextPrincipal in the context.
func WithPrincipal(ctx context.Context, p ContextPrincipal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the ContextPrincipal from the context.
func PrincipalFromContext(ctx context.Context) (ContextPrincipal, bool) {
	p, ok := ctx.Value(principalKey{}).(ContextPrincipal)
	return p, ok
}
