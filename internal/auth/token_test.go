package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkiva/internal/domain"
)

func newTestIssuer(t *testing.T, ttl time.Duration) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret", ttl)
	require.NoError(t, err)
	return issuer
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	token, err := issuer.Issue(42, "staf@shkolla.edu", domain.RoleStaf)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	p, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "staf@shkolla.edu", p.Email)
	assert.Equal(t, domain.RoleStaf, p.Role)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, 30*time.Minute).WithClock(func() time.Time { return now })

	token, err := issuer.Issue(7, "admin@shkolla.edu", domain.RoleAdmin)
	require.NoError(t, err)

	// Still valid just before expiry.
	now = now.Add(29 * time.Minute)
	_, err = issuer.Verify(token)
	require.NoError(t, err)

	// Rejected after expiry.
	now = now.Add(2 * time.Minute)
	_, err = issuer.Verify(token)
	require.Error(t, err)
	var unauthenticated *domain.UnauthenticatedError
	assert.ErrorAs(t, err, &unauthenticated)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	for _, token := range []string{
		"",
		"not-a-token",
		"aaaa.bbbb.cccc",
	} {
		_, err := issuer.Verify(token)
		var unauthenticated *domain.UnauthenticatedError
		assert.ErrorAs(t, err, &unauthenticated, "token %q", token)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)
	other, err := NewTokenIssuer("different-secret", time.Hour)
	require.NoError(t, err)

	token, err := other.Issue(1, "a@b.c", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)
	token, err := issuer.Issue(1, "a@b.c", "superuser")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
}

func TestNewTokenIssuerValidation(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	require.Error(t, err)

	_, err = NewTokenIssuer("secret", 0)
	require.Error(t, err)
}
