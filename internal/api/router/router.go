// Package router assembles the chi router from handler dependencies.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/trainerhub/trainerhub/internal/http/handlers"
	httpmiddleware "github.com/trainerhub/trainerhub/internal/http/middleware"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Sessions           *handlers.SessionsHandler
	Contracts          *handlers.ContractsHandler
	Clients            *handlers.ClientsHandler
	Notifications      *handlers.NotificationsHandler
	Webhook            *handlers.WebhookHandler
	System             *handlers.SystemHandler
	MetricsHandler     http.Handler
	AuthJWTSecret      string
	WebhookSecret      string
	CORSAllowedOrigins []string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health checks, metrics, the gateway webhook.
	r.Group(func(public chi.Router) {
		if cfg.System != nil {
			public.Get("/health", cfg.System.Health)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Webhook != nil {
			public.With(
				httpmiddleware.RateLimit(10, 30),
				httpmiddleware.WebhookSecret(cfg.WebhookSecret),
			).Post("/webhooks/whatsapp", cfg.Webhook.Handle)
		}
	})

	// Provider API, JWT-scoped.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.ProviderJWT(cfg.AuthJWTSecret))

		if cfg.Sessions != nil {
			api.Route("/sessions", func(r chi.Router) {
				r.Post("/", cfg.Sessions.Create)
				r.Get("/", cfg.Sessions.List)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", cfg.Sessions.Get)
					r.Patch("/", cfg.Sessions.Update)
					r.Post("/cancel", cfg.Sessions.Cancel)
					r.Post("/reschedule", cfg.Sessions.Reschedule)
					r.Post("/complete", cfg.Sessions.Complete)
					r.Post("/reopen", cfg.Sessions.Reopen)
				})
			})
		}

		if cfg.Contracts != nil {
			api.Route("/contracts", func(r chi.Router) {
				r.Post("/", cfg.Contracts.Create)
				r.Get("/", cfg.Contracts.List)
				r.Route("/{contractID}", func(r chi.Router) {
					r.Get("/", cfg.Contracts.Get)
					r.Delete("/", cfg.Contracts.Terminate)
					r.Post("/payments", cfg.Contracts.RegisterPayment)
				})
			})
		}

		if cfg.Clients != nil {
			api.Route("/clients", func(r chi.Router) {
				r.Post("/", cfg.Clients.Create)
				r.Get("/", cfg.Clients.List)
				r.Route("/{clientID}", func(r chi.Router) {
					r.Get("/", cfg.Clients.Get)
					r.Put("/", cfg.Clients.Update)
					r.Delete("/", cfg.Clients.Delete)
				})
			})
		}

		if cfg.Notifications != nil {
			api.Route("/notifications", func(r chi.Router) {
				r.Get("/", cfg.Notifications.List)
				r.Get("/unread", cfg.Notifications.UnreadCount)
				r.Post("/read", cfg.Notifications.MarkAllRead)
				r.Post("/test", cfg.Notifications.TestSend)
				r.Post("/clients/{clientID}/summary", cfg.Notifications.ClientSummary)
				r.Get("/settings", cfg.Notifications.GetSettings)
				r.Put("/settings", cfg.Notifications.UpdateSettings)
			})
		}

		if cfg.System != nil {
			api.Get("/gateway/status", cfg.System.GatewayStatus)
		}
	})

	return r
}
