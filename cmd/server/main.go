package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"arkiva/internal/app"
	"arkiva/internal/auth"
	"arkiva/internal/config"
	internaldb "arkiva/internal/db"
	"arkiva/internal/domain"
	"arkiva/internal/middleware"
)

// seedAdmin creates the bootstrap admin account from the environment when no
// account with that email exists yet. Idempotent across restarts.
func seedAdmin(ctx context.Context, a *app.App, cfg *config.Config, logger *slog.Logger) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return nil
	}
	if _, err := a.Users.GetByEmail(ctx, cfg.SeedAdminEmail); err == nil {
		return nil
	} else if !domain.IsNotFound(err) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	user, err := a.Users.Create(ctx, domain.CreateUserRequest{
		Email:        cfg.SeedAdminEmail,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logger.Info("seeded admin account", "user_id", user.ID, "email", user.Email)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  4-connection pool for concurrent reads (WAL, no txlock).
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, 4)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	if err := internaldb.RunMigrations(writeDB); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	application, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("wiring: %v", err)
	}

	if err := seedAdmin(ctx, application, cfg, logger); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	r.Use(middleware.Authenticator(application.TokenIssuer))
	application.Handler.Routes(r)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Sweep expired handshake states every few minutes; abandoned consent
	// screens would otherwise accumulate rows forever.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@every 5m", func() {
		cutoff := time.Now().Add(-domain.OAuthStateTTL)
		n, err := application.OAuthStates.DeleteOlderThan(context.Background(), cutoff)
		if err != nil {
			logger.Warn("oauth state sweep failed", "error", err)
			return
		}
		if n > 0 {
			logger.Debug("swept expired oauth states", "deleted", n)
		}
	}); err != nil {
		log.Fatalf("cron: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sweeper.Start()
		<-gctx.Done()
		<-sweeper.Stop().Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
	logger.Info("shutdown complete")
}
