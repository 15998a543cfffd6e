package handler

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/middleware"
	"github.com/keymint/keymint/internal/ratelimit"
)

// RouterConfig bundles everything the router needs.
type RouterConfig struct {
	Logger  *slog.Logger
	Base    *Handler
	Health  *HealthHandler
	JWKS    *JWKSHandler
	Auth    *AuthHandler
	Limiter *ratelimit.Limiter
	Window  time.Duration
	Metrics metrics.Recorder
}

// NewRouter wires all routes and middleware. Admission control applies
// only to /auth; the JWKS and registration endpoints are not gated.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))

	r.Get("/ping", cfg.Base.Ping)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)

	r.Get("/.well-known/jwks.json", cfg.JWKS.Get)

	r.Post("/register", cfg.Auth.Register)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  cfg.Logger,
		Limiter: cfg.Limiter,
		Metrics: cfg.Metrics,
		Window:  cfg.Window,
	}
	r.With(middleware.RateLimit(rateLimitCfg)).Post("/auth", cfg.Auth.Auth)

	r.NotFound(cfg.Base.NotFound)
	r.MethodNotAllowed(cfg.Base.MethodNotAllowed)

	return r
}
