package domain

import "time"

// LegacyCredentialUserID keys the single shared drive credential that predates
// per-user connections. It participates in resolver fallback after the
// per-user tiers.
const LegacyCredentialUserID int64 = 0

// DriveCredential is a persisted refresh credential for the external drive,
// keyed by the user who connected their account (or LegacyCredentialUserID).
// Upsert replaces all fields atomically and bumps UpdatedAt. RefreshToken and
// ClientSecret are encrypted at rest.
type DriveCredential struct {
	UserID       int64
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OAuthState is a single-use handshake state binding an authorization attempt
// to the session token that started it. It is deleted on consumption;
// unmatched or expired states are rejected.
type OAuthState struct {
	State        string
	SessionToken string
	CreatedAt    time.Time
}

// OAuthStateTTL is how long a handshake state stays consumable.
const OAuthStateTTL = 10 * time.Minute
