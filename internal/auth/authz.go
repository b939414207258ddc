package auth

import (
	"context"
	"net/http"
	"strings"

	"arkiva/internal/domain"
)

// BearerToken extracts the token from an Authorization header. A missing or
// malformed header is not an error — authorization is enforced later, not
// here.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// RequireAuthenticated returns the context principal or UnauthenticatedError.
func RequireAuthenticated(ctx context.Context) (domain.ContextPrincipal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ContextPrincipal{}, domain.ErrUnauthenticated("missing or invalid token")
	}
	return p, nil
}

// RequireRole returns the principal if its role is in the allowed set;
// unauthenticated callers get UnauthenticatedError, authenticated callers
// outside the set get AccessDeniedError.
func RequireRole(ctx context.Context, allowed ...string) (domain.ContextPrincipal, error) {
	p, err := RequireAuthenticated(ctx)
	if err != nil {
		return domain.ContextPrincipal{}, err
	}
	for _, role := range allowed {
		if p.Role == role {
			return p, nil
		}
	}
	return domain.ContextPrincipal{}, domain.ErrAccessDenied("you do not have access")
}

// RequireOwnerOrAdmin passes admins unconditionally and owners by id match.
// A resource with no recorded owner yields NotFound for non-admins so that
// existence is not leaked through a Forbidden response.
func RequireOwnerOrAdmin(ctx context.Context, ownerID *int64) (domain.ContextPrincipal, error) {
	p, err := RequireRole(ctx, domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin)
	if err != nil {
		return domain.ContextPrincipal{}, err
	}
	if p.IsAdmin() {
		return p, nil
	}
	if ownerID == nil {
		return domain.ContextPrincipal{}, domain.ErrNotFound("document not found")
	}
	if *ownerID != p.ID {
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("only the uploader (or admin) can do this")
	}
	return p, nil
}

// Operation names for the capability table.
const (
	OpListDocuments  = "documents.list"
	OpGetDocument    = "documents.get"
	OpCreateDocument = "documents.create"
	OpUpdateMetadata = "documents.update"
	OpReplaceFile    = "documents.replace_file"
	OpArchive        = "documents.archive"
	OpUnarchive      = "documents.unarchive"
	OpDeleteDocument = "documents.delete"
	OpSummarize      = "documents.summarize"
	OpConnectDrive   = "drive.connect"
)

// capability describes who may perform an operation. Keeping this in one
// table avoids role-check drift between similar endpoints.
type capability struct {
	roles          []string
	ownershipCheck bool
}

var capabilities = map[string]capability{
	OpListDocuments:  {roles: nil}, // any authenticated principal
	OpGetDocument:    {roles: nil},
	OpCreateDocument: {roles: []string{domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin}},
	OpUpdateMetadata: {roles: []string{domain.RoleSekretaria, domain.RoleAdmin}},
	OpReplaceFile:    {roles: []string{domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin}, ownershipCheck: true},
	OpArchive:        {roles: []string{domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin}, ownershipCheck: true},
	OpUnarchive:      {roles: []string{domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin}, ownershipCheck: true},
	OpDeleteDocument: {roles: []string{domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin}, ownershipCheck: true},
	OpSummarize:      {roles: []string{domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin}},
	OpConnectDrive:   {roles: []string{domain.RoleStaf, domain.RoleSekretaria, domain.RoleAdmin}},
}

// Authorize applies the capability table for an operation. ownerID is
// consulted only for operations that carry an ownership check; pass nil when
// the resource has no recorded owner.
func Authorize(ctx context.Context, operation string, ownerID *int64) (domain.ContextPrincipal, error) {
	c, ok := capabilities[operation]
	if !ok {
		return domain.ContextPrincipal{}, domain.ErrAccessDenied("unknown operation %q", operation)
	}
	if c.roles == nil {
		return RequireAuthenticated(ctx)
	}
	if c.ownershipCheck {
		return RequireOwnerOrAdmin(ctx, ownerID)
	}
	return RequireRole(ctx, c.roles...)
}
