package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/messagely/messagely/internal/middleware"
)

// RouterConfig holds everything the HTTP surface is built from.
type RouterConfig struct {
	Logger *slog.Logger

	Health   *HealthHandler
	Metrics  *MetricsHandler
	Auth     *AuthHandler
	Users    *UserHandler
	Messages *MessageHandler

	// Authenticate guards every route except health, metrics, register and login.
	Authenticate func(http.Handler) http.Handler

	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	r.Get("/metrics", cfg.Metrics.Metrics)
	r.Get("/openapi.yaml", OpenAPI)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
		r.With(cfg.Authenticate).Post("/logout", cfg.Auth.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Authenticate)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", cfg.Users.List)
			r.Get("/{username}", cfg.Users.Get)
			r.Get("/{username}/to", cfg.Users.Incoming)
			r.Get("/{username}/from", cfg.Users.Outgoing)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", cfg.Messages.Send)
			r.Get("/{id}", cfg.Messages.Get)
			r.Post("/{id}/read", cfg.Messages.MarkRead)
		})
	})

	// 404 and 405 handlers
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	return r
}
