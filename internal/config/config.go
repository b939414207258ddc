// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const insecureEncryptionKey = "0000000000000000000000000000000000000000000000000000000000000000"

// OAuthClientConfig holds the Google OAuth client used for the drive-connect
// handshake, parsed once at startup from GOOGLE_OAUTH_CLIENT_JSON.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	TokenURI     string
	AuthURI      string
}

// Configured reports whether an OAuth client is available.
func (o *OAuthClientConfig) Configured() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// Config holds the configuration for the HTTP API and its collaborators.
type Config struct {
	DBPath     string // path to the SQLite metadata file
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Session tokens
	JWTSecret string
	JWTTTL    time.Duration // default 60m (JWT_EXPIRES_MINUTES)

	// Credential encryption at rest (64-char hex, 32-byte AES key)
	EncryptionKey string

	// External drive
	DriveFolderID      string
	OAuthClient        OAuthClientConfig
	ServiceAccountJSON string // full service-account JSON, read once at startup
	PublicBaseURL      string // used to build the OAuth redirect URI
	FrontendBaseURL    string // post-callback redirect target (optional)

	// Text generation
	GeminiAPIKey string
	GeminiModel  string // default "gemini-flash-latest"

	// Seed admin (optional, first-boot convenience)
	SeedAdminEmail    string
	SeedAdminPassword string

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// RedirectURI builds the OAuth callback URI from the public base URL.
func (c *Config) RedirectURI() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/api/drive/auth/callback"
}

// LoadFromEnv loads configuration from environment variables. Drive and
// Gemini settings are optional — the app can start without them and the
// corresponding operations fail with clear errors instead.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:            os.Getenv("DB_PATH"),
		ListenAddr:        os.Getenv("LISTEN_ADDR"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Env:               os.Getenv("ENV"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		EncryptionKey:     os.Getenv("ENCRYPTION_KEY"),
		DriveFolderID:     os.Getenv("DRIVE_FOLDER_ID"),
		PublicBaseURL:     os.Getenv("PUBLIC_BASE_URL"),
		FrontendBaseURL:   os.Getenv("FRONTEND_BASE_URL"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}

	// Session TTL
	cfg.JWTTTL = time.Hour
	if v := os.Getenv("JWT_EXPIRES_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("JWT_EXPIRES_MINUTES must be a positive integer")
		}
		cfg.JWTTTL = time.Duration(n) * time.Minute
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// OAuth client JSON (Google "web" or "installed" client shape)
	if raw := os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"); raw != "" {
		oc, err := parseOAuthClientJSON(raw)
		if err != nil {
			return nil, err
		}
		cfg.OAuthClient = *oc
	}

	// Service-account JSON, validated once here so errors surface at startup
	// instead of on the first fallback upload.
	if raw := os.Getenv("GOOGLE_CREDENTIALS_JSON"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("GOOGLE_CREDENTIALS_JSON is not valid JSON")
		}
		cfg.ServiceAccountJSON = raw
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "arkiva.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-flash-latest"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set — using insecure default. Set JWT_SECRET in production!")
	}
	if cfg.EncryptionKey == "" {
		cfg.EncryptionKey = insecureEncryptionKey
		cfg.Warnings = append(cfg.Warnings, "ENCRYPTION_KEY not set — using insecure default. Set ENCRYPTION_KEY in production!")
	}
	if !cfg.OAuthClient.Configured() && cfg.ServiceAccountJSON == "" {
		cfg.Warnings = append(cfg.Warnings, "no Google credentials configured — set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_CREDENTIALS_JSON")
	}
	if cfg.OAuthClient.Configured() && cfg.PublicBaseURL == "" {
		cfg.Warnings = append(cfg.Warnings, "PUBLIC_BASE_URL not set — the OAuth redirect URI cannot be built")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.JWTSecret == "dev-secret-change-in-production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if cfg.EncryptionKey == insecureEncryptionKey {
			return nil, fmt.Errorf("ENCRYPTION_KEY must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// parseOAuthClientJSON extracts the OAuth client fields from a Google client
// JSON blob, which nests them under "web" or "installed" depending on the
// client type.
func parseOAuthClientJSON(raw string) (*OAuthClientConfig, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return nil, fmt.Errorf("invalid GOOGLE_OAUTH_CLIENT_JSON: %w", err)
	}

	section := []byte(raw)
	if inner, ok := outer["web"]; ok {
		section = inner
	} else if inner, ok := outer["installed"]; ok {
		section = inner
	}

	var fields struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		TokenURI     string `json:"token_uri"`
		AuthURI      string `json:"auth_uri"`
	}
	if err := json.Unmarshal(section, &fields); err != nil {
		return nil, fmt.Errorf("invalid GOOGLE_OAUTH_CLIENT_JSON: %w", err)
	}
	if fields.ClientID == "" || fields.ClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_OAUTH_CLIENT_JSON missing client_id/client_secret")
	}
	if fields.TokenURI == "" {
		fields.TokenURI = "https://oauth2.googleapis.com/token"
	}
	if fields.AuthURI == "" {
		fields.AuthURI = "https://accounts.google.com/o/oauth2/auth"
	}
	return &OAuthClientConfig{
		ClientID:     fields.ClientID,
		ClientSecret: fields.ClientSecret,
		TokenURI:     fields.TokenURI,
		AuthURI:      fields.AuthURI,
	}, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Env vars take precedence over .env values.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
