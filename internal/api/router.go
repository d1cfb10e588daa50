/**
 * @description
 * HTTP router setup for the treasury service using go-chi/chi.
 */
package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mentora/treasury-service/internal/observability"
)

// RouterOptions configures cross-cutting router behaviour.
type RouterOptions struct {
	InternalAPIKey           string
	AdminJWTSecret           string
	AllowedOrigins           []string
	MetricsEnabled           bool
	Limiter                  RateLimiter
	ReportRateLimitPerMinute int
	Logger                   *slog.Logger
}

// NewRouter creates a new Chi router and registers treasury routes.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if opts.MetricsEnabled {
		r.Use(observability.Middleware)
	}
	// Without configured origins no CORS headers are sent and browsers stay same-origin.
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Internal-API-Key", AdminIDHeader},
			ExposedHeaders:   []string{"Link", "Retry-After"},
			AllowCredentials: !hasWildcardOrigin(opts.AllowedOrigins),
			MaxAge:           300,
		}))
	}

	r.Get("/health", h.handleHealth)
	if opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	reportLimit := RateLimitMiddleware(opts.Limiter, "treasury_report", opts.ReportRateLimitPerMinute, opts.Logger)

	r.Route("/treasury", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(opts.InternalAPIKey))
		r.Use(AdminIdentityMiddleware(opts.AdminJWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(reportLimit)
			r.Get("/forecast", h.handleForecast)
			r.Get("/bfr", h.handleBFR)
			r.Get("/positions", h.handlePositions)
		})

		r.Get("/accounts", h.handleListAccounts)
		r.Get("/distributions", h.handleListDistributions)
		r.Post("/distributions/preview", h.handlePreviewDistribution)
		r.Post("/distributions", h.handleCreateDistribution)
		r.Post("/schedules/{id}/payments", h.handleRecordSchedulePayment)
		r.Post("/recurring-expenses/{id}/pay", h.handlePayRecurringExpense)
		r.Post("/missions/{id}/{action}", h.handleTransitionMission)
		r.Post("/quotes/{id}/{action}", h.handleTransitionQuote)
	})

	r.Route("/internal/treasury", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(opts.InternalAPIKey))
		r.Post("/alerts/overdue/run", h.handleRunOverdueAlerts)
		r.Post("/alerts/upcoming/run", h.handleRunUpcomingDigest)
	})

	return r
}

// hasWildcardOrigin reports whether any origin pattern matches more than one host.
func hasWildcardOrigin(origins []string) bool {
	for _, o := range origins {
		if strings.Contains(o, "*") {
			return true
		}
	}
	return false
}
