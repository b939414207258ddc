package domain

import "time"

// Staff roles, from least to most privileged.
const (
	RoleStaf       = "staf"
	RoleSekretaria = "sekretaria"
	RoleAdmin      = "admin"
)

// ValidRole reports whether role is one of the known staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStaf, RoleSekretaria, RoleAdmin:
		return true
	}
	return false
}

// User is a staff account that can authenticate against the API.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// CreateUserRequest holds parameters for creating a new user.
type CreateUserRequest struct {
	Email        string
	PasswordHash string
	Role         string
}

// Validate checks that the request is well-formed.
func (r *CreateUserRequest) Validate() error {
	if r.Email == "" {
		return ErrValidation("email is required")
	}
	if r.PasswordHash == "" {
		return ErrValidation("password hash is required")
	}
	if r.Role == "" {
		r.Role = RoleStaf
	}
	if !ValidRole(r.Role) {
		return ErrValidation("role must be one of 'staf', 'sekretaria', 'admin'")
	}
	return nil
}
