// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/revue-go/internal/api"
	"github.com/olegiv/revue-go/internal/auth"
	"github.com/olegiv/revue-go/internal/config"
	"github.com/olegiv/revue-go/internal/logging"
	"github.com/olegiv/revue-go/internal/mail"
	"github.com/olegiv/revue-go/internal/middleware"
	"github.com/olegiv/revue-go/internal/store"
	"github.com/olegiv/revue-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "revue - review and rating platform API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REVUE_JWT_SECRET       Token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REVUE_DB_PATH          SQLite database path (default: ./data/revue.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REVUE_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REVUE_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REVUE_TOKEN_TTL        Access token lifetime (default: 24h)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REVUE_SMTP_HOST        SMTP relay host; mail is logged when unset\n")
		_, _ = fmt.Fprintf(os.Stderr, "  REVUE_DO_SEED          Create the bootstrap admin account (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/revue-go\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
		_, _ = fmt.Printf("revue %s\n", info)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting revue", "version", versionInfo.Version, "commit", versionInfo.GitCommit)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		err = db.Close()
		if err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Seed the bootstrap admin account if requested
	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Mail delivery: real SMTP when configured, log-only otherwise
	var sender mail.Sender
	if cfg.MailEnabled() {
		sender = &mail.SMTPSender{Addr: cfg.SMTPAddr(), From: cfg.MailFrom}
		slog.Info("mail delivery via SMTP", "addr", cfg.SMTPAddr())
	} else {
		sender = mail.LogSender{}
		slog.Info("mail delivery disabled, codes are logged")
	}
	mailer := mail.NewMailer(sender)

	tokens := auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
	}

	h := api.NewHandler(db, tokens, mailer)
	rateLimiter := middleware.NewGlobalRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(rateLimiter.Middleware())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)

		// Signup and token exchange
		r.Post("/auth/signup", h.Signup)
		r.Post("/auth/token", h.Token)

		// Public reads; a valid token still loads the user for request
		// attribution in logs
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(db, tokens))

			r.Get("/categories", h.ListCategories)
			r.Get("/genres", h.ListGenres)
			r.Get("/titles", h.ListTitles)
			r.Get("/titles/{title_id}", h.GetTitle)
			r.Get("/titles/{title_id}/reviews", h.ListReviews)
			r.Get("/titles/{title_id}/reviews/{review_id}", h.GetReview)
			r.Get("/titles/{title_id}/reviews/{review_id}/comments", h.ListComments)
			r.Get("/titles/{title_id}/reviews/{review_id}/comments/{comment_id}", h.GetComment)
		})

		// Authenticated: own profile and review/comment writes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(db, tokens))

			r.Get("/users/me", h.Me)
			r.Patch("/users/me", h.UpdateMe)

			r.Post("/titles/{title_id}/reviews", h.CreateReview)
			r.Patch("/titles/{title_id}/reviews/{review_id}", h.UpdateReview)
			r.Delete("/titles/{title_id}/reviews/{review_id}", h.DeleteReview)

			r.Post("/titles/{title_id}/reviews/{review_id}/comments", h.CreateComment)
			r.Patch("/titles/{title_id}/reviews/{review_id}/comments/{comment_id}", h.UpdateComment)
			r.Delete("/titles/{title_id}/reviews/{review_id}/comments/{comment_id}", h.DeleteComment)
		})

		// Admin: user management, taxonomy and title writes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(db, tokens))
			r.Use(middleware.RequireAdmin())

			r.Get("/users", h.ListUsers)
			r.Post("/users", h.CreateUser)
			r.Get("/users/{username}", h.GetUserByName)
			r.Patch("/users/{username}", h.UpdateUserByName)
			r.Delete("/users/{username}", h.DeleteUserByName)

			r.Post("/categories", h.CreateCategory)
			r.Delete("/categories/{slug}", h.DeleteCategory)
			r.Post("/genres", h.CreateGenre)
			r.Delete("/genres/{slug}", h.DeleteGenre)

			r.Post("/titles", h.CreateTitle)
			r.Patch("/titles/{title_id}", h.UpdateTitle)
			r.Delete("/titles/{title_id}", h.DeleteTitle)
		})
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
