// Package app provides application-level wiring for the document archive.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"arkiva/internal/api"
	"arkiva/internal/auth"
	"arkiva/internal/config"
	"arkiva/internal/db/crypto"
	"arkiva/internal/db/repository"
	"arkiva/internal/gemini"
	"arkiva/internal/service"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// App holds the fully-wired application.
type App struct {
	Handler     *api.APIHandler
	TokenIssuer *auth.TokenIssuer
	OAuthStates *repository.OAuthStateRepo
	Users       *repository.UserRepo
}

// New wires repositories, services, and the HTTP handler from the provided
// deps.
func New(_ context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	// === Repositories ===
	userRepo := repository.NewUserRepo(deps.WriteDB, deps.ReadDB)
	documentRepo := repository.NewDocumentRepo(deps.WriteDB, deps.ReadDB)
	credentialRepo := repository.NewDriveCredentialRepo(deps.WriteDB, deps.ReadDB, encryptor)
	oauthStateRepo := repository.NewOAuthStateRepo(deps.WriteDB)

	// === Auth ===
	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	// === Drive credential fallback ===
	resolver := service.NewCredentialResolver(
		credentialRepo,
		service.DriveClientFactory{},
		cfg.ServiceAccountJSON,
		deps.Logger.With("component", "credential-resolver"),
	)

	// === External collaborators ===
	var exchanger service.TokenExchanger
	if cfg.OAuthClient.Configured() && cfg.PublicBaseURL != "" {
		exchanger = service.NewGoogleExchanger(cfg.OAuthClient, cfg.RedirectURI())
	}
	summarizer := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)

	// === Services ===
	authSvc := service.NewAuthService(userRepo, issuer, deps.Logger.With("component", "auth"))
	documentSvc := service.NewDocumentService(
		documentRepo, resolver, summarizer, cfg.DriveFolderID,
		deps.Logger.With("component", "documents"),
	)
	driveSvc := service.NewDriveConnectService(
		oauthStateRepo, credentialRepo, issuer, exchanger,
		cfg.OAuthClient, cfg.FrontendBaseURL,
		deps.Logger.With("component", "drive-connect"),
	)

	handler := api.NewHandler(authSvc, documentSvc, driveSvc, deps.ReadDB.PingContext, deps.Logger)

	return &App{
		Handler:     handler,
		TokenIssuer: issuer,
		OAuthStates: oauthStateRepo,
		Users:       userRepo,
	}, nil
}
