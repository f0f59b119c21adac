package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/config"
	"github.com/postbox/postbox/internal/handler"
	"github.com/postbox/postbox/internal/metrics"
	"github.com/postbox/postbox/internal/middleware"
	"github.com/postbox/postbox/internal/service"
)

// routerDeps collects what setupRouter wires together.
type routerDeps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Identity *service.IdentityService
	Messages *service.MessageService
	Limiter  middleware.RateLimiter
	Recorder metrics.Recorder
	// Metrics serves /metrics when non-nil.
	Metrics interface{ Handler() http.Handler }
	Health  []handler.Dependency
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	cfg := deps.Config
	logger := deps.Logger

	h := handler.New()
	healthHandler := handler.NewHealthHandler(logger, deps.Health...)
	cookie := auth.CookieConfig{
		Name:   cfg.SessionCookieName,
		Secure: !cfg.IsDevelopment(),
	}
	authHandler := handler.NewAuthHandler(deps.Identity, cookie, logger)
	messageHandler := handler.NewMessageHandler(deps.Messages, logger)

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = cfg.IsDevelopment()
	securityCfg.MaxRequestBodySize = cfg.MaxRequestBodySize

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(securityCfg.MaxRequestBodySize))

	// Probes and metrics (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Get("/", h.Hello)

	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Resolver:   deps.Identity,
		CookieName: cfg.SessionCookieName,
		IsUnauthenticated: func(err error) bool {
			return errors.Is(err, service.ErrNotAuthenticated)
		},
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       logger,
		Limiter:      deps.Limiter,
		Metrics:      deps.Recorder,
		LoginEnabled: cfg.RateLimitLoginEnabled,
		LoginRPM:     cfg.RateLimitLoginRPM,
		LoginBurst:   cfg.RateLimitLoginBurst,
		APIEnabled:   cfg.RateLimitAPIEnabled,
		APIRPM:       cfg.RateLimitAPIRPM,
		APIBurst:     cfg.RateLimitAPIBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		r.Post("/auth/register", authHandler.Register)
		r.With(middleware.RateLimitLogin(rateLimitCfg)).Post("/auth/login", authHandler.Login)

		// Session-protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", messageHandler.Send)
				r.Get("/", messageHandler.List)
				r.Get("/unread", messageHandler.ListUnread)
				r.Get("/latest", messageHandler.Latest)
				r.Delete("/{id}", messageHandler.Delete)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
