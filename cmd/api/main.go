// Package main is the entrypoint for the Postbox API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/cache"
	"github.com/postbox/postbox/internal/config"
	"github.com/postbox/postbox/internal/handler"
	"github.com/postbox/postbox/internal/metrics"
	"github.com/postbox/postbox/internal/repository"
	"github.com/postbox/postbox/internal/repository/memory"
	"github.com/postbox/postbox/internal/repository/migrations"
	"github.com/postbox/postbox/internal/server"
	"github.com/postbox/postbox/internal/service"
)

// store is the persistence surface both backends provide.
type store interface {
	service.UserStore
	service.MessageStore
	Ping(ctx context.Context) error
}

func main() {
	ctx := context.Background()

	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	st, storeDep, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		os.Exit(1)
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	tokens, err := auth.NewTokenIssuer(cfg.SessionSecret)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	var recorder metrics.Recorder = metrics.NewNoop()
	var prom *metrics.PrometheusRecorder
	if cfg.MetricsEnabled {
		prom = metrics.NewPrometheus()
		recorder = prom
	}

	identity := service.NewIdentityService(st, cacheClient, tokens, cfg.SessionTTL, recorder)
	messages := service.NewMessageService(st, recorder)

	deps := routerDeps{
		Config:   cfg,
		Logger:   logger,
		Identity: identity,
		Messages: messages,
		Limiter:  cacheClient,
		Recorder: recorder,
		Health: []handler.Dependency{
			storeDep,
			{Name: "redis", Checker: cacheClient},
		},
	}
	if prom != nil {
		deps.Metrics = prom
	}
	r := setupRouter(deps)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	if closeStore != nil {
		srv.OnShutdown(storeDep.Name, closeStore)
	}
	srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreBackend,
		"metrics", cfg.MetricsEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore connects the configured persistence backend. Failures are
// logged here with credentials redacted.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, handler.Dependency, func(context.Context) error, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		mem := memory.New()
		return mem, handler.Dependency{Name: "memory", Checker: mem}, nil, nil
	}

	if cfg.AutoMigrate {
		applied, err := migrations.Up(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error(
				"failed to apply migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			return nil, handler.Dependency{}, nil, err
		}
		logger.Info("migrations applied", "version", applied)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return nil, handler.Dependency{}, nil, err
	}
	logger.Info("connected to database")

	closeFn := func(context.Context) error {
		repo.Close()
		return nil
	}
	return repo, handler.Dependency{Name: "postgres", Checker: repo}, closeFn, nil
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

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL strips the password from a connection URL, keeping the username.
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

	q := parsed.Query()
	if q.Has("password") {
		q.Set("password", "redacted")
		parsed.RawQuery = q.Encode()
	}

	return parsed.String()
}

// sanitizeError renders err with every secret replaced by its redacted form.
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
