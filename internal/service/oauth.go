package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"

	"arkiva/internal/auth"
	"arkiva/internal/config"
	"arkiva/internal/domain"
)

// TokenExchanger abstracts the provider side of the OAuth handshake so the
// flow can be tested without Google.
type TokenExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// googleExchanger is the production TokenExchanger over x/oauth2.
type googleExchanger struct {
	conf *oauth2.Config
}

// NewGoogleExchanger builds the provider handshake from the configured OAuth
// client and callback URI. Offline access with forced consent is required:
// without it Google omits the refresh token on repeat authorizations and the
// stored credential would be useless.
func NewGoogleExchanger(client config.OAuthClientConfig, redirectURI string) TokenExchanger {
	return &googleExchanger{conf: &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{gdrive.DriveScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  client.AuthURI,
			TokenURL: client.TokenURI,
		},
	}}
}

func (g *googleExchanger) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (g *googleExchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.conf.Exchange(ctx, code)
}

// DriveConnectService runs the per-user drive-connect handshake: Start mints
// a single-use state bound to the caller's session token, Callback consumes
// it, exchanges the code, and stores the refresh credential.
type DriveConnectService struct {
	states      domain.OAuthStateRepository
	creds       domain.DriveCredentialRepository
	issuer      *auth.TokenIssuer
	exchanger   TokenExchanger
	client      config.OAuthClientConfig
	frontendURL string
	logger      *slog.Logger
	now         func() time.Time
}

// NewDriveConnectService wires the handshake. exchanger may be nil when no
// OAuth client is configured; Start then fails with a validation error.
func NewDriveConnectService(
	states domain.OAuthStateRepository,
	creds domain.DriveCredentialRepository,
	issuer *auth.TokenIssuer,
	exchanger TokenExchanger,
	client config.OAuthClientConfig,
	frontendURL string,
	logger *slog.Logger,
) *DriveConnectService {
	return &DriveConnectService{
		states:      states,
		creds:       creds,
		issuer:      issuer,
		exchanger:   exchanger,
		client:      client,
		frontendURL: frontendURL,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the service's time source. Test hook.
func (s *DriveConnectService) WithClock(now func() time.Time) *DriveConnectService {
	s.now = now
	return s
}

// newStateToken mints an unguessable handshake state.
func newStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Start begins the handshake and returns the provider authorization URL.
// The session token is verified here rather than taken from the request
// context: the browser redirect variant carries it as a query parameter,
// outside the reach of the header middleware. It then rides along in the
// stored state so the callback can prove the same user finishes the flow.
func (s *DriveConnectService) Start(ctx context.Context, sessionToken string) (string, error) {
	if sessionToken == "" {
		return "", domain.ErrUnauthenticated("missing or invalid token")
	}
	principal, err := s.issuer.Verify(sessionToken)
	if err != nil {
		return "", err
	}
	if _, err := auth.Authorize(domain.WithPrincipal(ctx, principal), auth.OpConnectDrive, nil); err != nil {
		return "", err
	}
	if s.exchanger == nil || !s.client.Configured() {
		return "", domain.ErrValidation("drive connect is not configured (GOOGLE_OAUTH_CLIENT_JSON)")
	}

	state, err := newStateToken()
	if err != nil {
		return "", err
	}
	if err := s.states.Create(ctx, domain.OAuthState{State: state, SessionToken: sessionToken}); err != nil {
		return "", err
	}
	return s.exchanger.AuthCodeURL(state), nil
}

// Callback finishes the handshake. The state is consumed before the code is
// exchanged, so a replayed callback fails on the state lookup and never
// reaches the provider. Returns the URL the browser should be redirected to.
func (s *DriveConnectService) Callback(ctx context.Context, code, state, providerErr string) (string, error) {
	if providerErr != "" {
		return "", domain.ErrValidation("authorization failed: %s", providerErr)
	}
	if code == "" || state == "" {
		return "", domain.ErrValidation("missing code or state")
	}

	stored, err := s.states.Consume(ctx, state)
	if err != nil {
		return "", domain.ErrValidation("invalid or expired state")
	}
	if s.now().Sub(stored.CreatedAt) > domain.OAuthStateTTL {
		return "", domain.ErrValidation("invalid or expired state")
	}

	// The session token stored with the state is re-verified here, not
	// trusted: the flow may outlive the token.
	principal, err := s.issuer.Verify(stored.SessionToken)
	if err != nil {
		return "", domain.ErrValidation("session expired during the drive connection, log in and retry")
	}

	tok, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		return "", domain.ErrValidation("code exchange failed: %v", err)
	}
	if tok.RefreshToken == "" {
		return "", domain.ErrValidation("no refresh token returned; remove the app's access in your Google account and retry")
	}

	err = s.creds.Upsert(ctx, domain.DriveCredential{
		UserID:       principal.ID,
		RefreshToken: tok.RefreshToken,
		TokenURI:     s.client.TokenURI,
		ClientID:     s.client.ClientID,
		ClientSecret: s.client.ClientSecret,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("drive connected", "user_id", principal.ID)
	return s.successRedirect(), nil
}

func (s *DriveConnectService) successRedirect() string {
	base := strings.TrimRight(s.frontendURL, "/")
	if base == "" {
		return "/docs"
	}
	return base + "/settings?" + url.Values{"drive": {"connected"}}.Encode()
}

// ConnectionStatus reports whether the caller has a drive connection.
type ConnectionStatus struct {
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// Status reports the caller's connection state.
func (s *DriveConnectService) Status(ctx context.Context) (*ConnectionStatus, error) {
	p, err := auth.Authorize(ctx, auth.OpConnectDrive, nil)
	if err != nil {
		return nil, err
	}
	cred, err := s.creds.GetByUserID(ctx, p.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return &ConnectionStatus{Connected: false}, nil
		}
		return nil, err
	}
	at := cred.UpdatedAt
	return &ConnectionStatus{Connected: true, ConnectedAt: &at}, nil
}

// Disconnect removes the caller's stored credential. Disconnecting when not
// connected is a no-op, not an error.
func (s *DriveConnectService) Disconnect(ctx context.Context) error {
	p, err := auth.Authorize(ctx, auth.OpConnectDrive, nil)
	if err != nil {
		return err
	}
	if err := s.creds.Delete(ctx, p.ID); err != nil && !domain.IsNotFound(err) {
		return err
	}
	s.logger.Info("drive disconnected", "user_id", p.ID)
	return nil
}
