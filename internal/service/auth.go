package service

import (
	"context"
	"log/slog"
	"strings"

	"arkiva/internal/auth"
	"arkiva/internal/domain"
)

// AuthService handles login and current-user lookups.
type AuthService struct {
	users  domain.UserRepository
	issuer *auth.TokenIssuer
	logger *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users domain.UserRepository, issuer *auth.TokenIssuer, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, issuer: issuer, logger: logger}
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token string
	User  *domain.User
}

// Login verifies the credentials and issues a session token. Unknown email
// and wrong password produce the same error so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.ErrValidation("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrUnauthenticated("invalid email or password")
		}
		return nil, err
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, domain.ErrUnauthenticated("invalid email or password")
	}

	token, err := s.issuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return &LoginResult{Token: token, User: user}, nil
}

// Me returns the account behind the current session.
func (s *AuthService) Me(ctx context.Context) (*domain.User, error) {
	p, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, p.ID)
}
