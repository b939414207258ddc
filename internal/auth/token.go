// Package auth implements session tokens and role/ownership authorization.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"arkiva/internal/domain"
)

// sessionClaims is the signed payload of a session token. The token is the
// stateless session: no session object is ever persisted.
type sessionClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS256 session tokens. Expiry is always
// issued-at plus the configured TTL.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret and TTL.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token TTL must be positive")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock overrides the issuer's time source. Test hook.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// Issue signs a session token for the given user.
func (t *TokenIssuer) Issue(userID int64, email, role string) (string, error) {
	now := t.now()
	claims := sessionClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, shape, and expiry of a session token and
// returns the principal it encodes. Any decode failure yields
// UnauthenticatedError — verification fails closed.
func (t *TokenIssuer) Verify(tokenString string) (domain.ContextPrincipal, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.ContextPrincipal{}, domain.ErrUnauthenticated("invalid or expired session token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.ContextPrincipal{}, domain.ErrUnauthenticated("invalid or expired session token")
	}
	if !domain.ValidRole(claims.Role) {
		return domain.ContextPrincipal{}, domain.ErrUnauthenticated("invalid or expired session token")
	}

	return domain.ContextPrincipal{ID: userID, Email: claims.Email, Role: claims.Role}, nil
}
