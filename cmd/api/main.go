// Package main is the entrypoint for the keymint JWKS server.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/keymint/keymint/internal/auth"
	"github.com/keymint/keymint/internal/config"
	"github.com/keymint/keymint/internal/handler"
	"github.com/keymint/keymint/internal/keys"
	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/ratelimit"
	"github.com/keymint/keymint/internal/repository"
	"github.com/keymint/keymint/internal/sealer"
	"github.com/keymint/keymint/internal/server"
	"github.com/keymint/keymint/internal/service"
	"github.com/keymint/keymint/migrations"
)

func main() {
	ctx := context.Background()

	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("failed to run migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	sealerSvc, err := sealer.New([]byte(cfg.SealerSecret))
	if err != nil {
		logger.Error("failed to initialize sealer", "error", err)
		os.Exit(1)
	}

	recorder := metrics.NewInMemory()

	keyManager := keys.NewManager(repo, sealerSvc, cfg.KeyTTL, logger, recorder)
	if err := keyManager.EnsureValidKey(ctx, time.Now()); err != nil {
		// Without a valid signing key the server cannot serve a JWKS
		// or mint tokens, so this is fatal.
		logger.Error("failed to provision signing key", "error", err)
		os.Exit(1)
	}

	credentials, err := service.NewCredentials(repo, auth.NewHasher(), logger, recorder)
	if err != nil {
		logger.Error("failed to initialize credential service", "error", err)
		os.Exit(1)
	}
	tokens := service.NewTokenIssuer(keyManager, cfg.TokenIssuer, cfg.TokenTTL)

	limiter := ratelimit.New(cfg.AuthRateLimit, cfg.AuthRateWindow)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:  logger,
		Base:    handler.New(),
		Health:  handler.NewHealthHandler(repo),
		JWKS:    handler.NewJWKSHandler(keyManager, logger, recorder),
		Auth:    handler.NewAuthHandler(credentials, tokens, logger),
		Limiter: limiter,
		Window:  cfg.AuthRateWindow,
		Metrics: recorder,
	})

	srv := server.New(
		router,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Background workers stop after in-flight requests drain.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	rotator := keys.NewRotator(keyManager, cfg.KeyRotateInterval, logger)
	rotatorDone := make(chan struct{})
	go func() {
		defer close(rotatorDone)
		_ = rotator.Run(workerCtx)
	}()
	srv.OnShutdown("key rotator", waitForWorker(stopWorkers, rotatorDone))

	sweeper := ratelimit.NewSweeper(limiter, cfg.RateLimitSweepInterval, cfg.RateLimitStaleAfter, logger)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		_ = sweeper.Run(workerCtx)
	}()
	srv.OnShutdown("rate limit sweeper", waitForWorker(stopWorkers, sweeperDone))

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"key_ttl", cfg.KeyTTL.String(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runMigrations applies pending schema migrations over a short-lived
// database/sql connection.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Up(db)
}

// waitForWorker builds a shutdown hook that cancels the worker context
// and waits for the worker loop to exit.
func waitForWorker(cancel context.CancelFunc, done <-chan struct{}) server.ShutdownFunc {
	return func(ctx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
