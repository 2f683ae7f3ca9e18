// Package main is the entrypoint for the Messagely API server.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/messagely/messagely/internal/auth"
	"github.com/messagely/messagely/internal/cache"
	"github.com/messagely/messagely/internal/config"
	"github.com/messagely/messagely/internal/handler"
	"github.com/messagely/messagely/internal/metrics"
	"github.com/messagely/messagely/internal/middleware"
	"github.com/messagely/messagely/internal/repository"
	"github.com/messagely/messagely/internal/server"
	"github.com/messagely/messagely/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return errStartup
	}
	logger.Info("connected to database")

	if cfg.MigrateOnStart {
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			logger.Error("failed to migrate database", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			return errStartup
		}
		logger.Info("database schema up to date")
	}

	// Initialize session store
	sessions, err := cache.New(ctx, cfg.RedisURL, cache.Options{
		PoolSize:  cfg.RedisPoolSize,
		KeyPrefix: cfg.SessionKeyPrefix,
	})
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return errStartup
	}
	logger.Info("connected to Redis")

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHashAlgorithm, cfg.BcryptWorkFactor, auth.Argon2Params{
		Time:     cfg.Argon2Time,
		MemoryKB: cfg.Argon2MemoryKB,
		Threads:  cfg.Argon2Threads,
		KeyLen:   auth.DefaultArgon2Params().KeyLen,
		SaltLen:  auth.DefaultArgon2Params().SaltLen,
	})
	if err != nil {
		repo.Close()
		_ = sessions.Close()
		return err
	}
	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL)

	// Initialize services
	recorder := metrics.NewInMemory()
	userService := service.NewUserService(repo, hasher, recorder, logger)
	messageService := service.NewMessageService(repo, recorder, logger)

	// Setup router
	r := handler.NewRouter(handler.RouterConfig{
		Logger:   logger,
		Health:   handler.NewHealthHandler(repo, sessions, logger),
		Metrics:  handler.NewMetricsHandler(recorder),
		Auth:     handler.NewAuthHandler(userService, tokens, sessions, logger),
		Users:    handler.NewUserHandler(userService, messageService, logger),
		Messages: handler.NewMessageHandler(messageService, logger),
		Authenticate: middleware.Auth(middleware.AuthConfig{
			Logger:   logger,
			Tokens:   tokens,
			Sessions: sessions,
		}),
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return sessions.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"password_hash", hasher.Algorithm(),
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

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
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
