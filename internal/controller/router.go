package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/wishyapp/payments/internal/infrastructure/config"
	"github.com/wishyapp/payments/internal/infrastructure/observability"
	customMW "github.com/wishyapp/payments/internal/middleware"
	"github.com/wishyapp/payments/internal/repository/postgres"
	"github.com/wishyapp/payments/internal/service"
)

type RouterDeps struct {
	Pool            *pgxpool.Pool
	RedisClient     *redis.Client
	CheckoutService *service.CheckoutService
	IdempotencyRepo *postgres.IdempotencyRepository
	Metrics         *observability.Metrics
	CORSConfig      config.CORSConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	checkoutH := NewCheckoutController(deps.CheckoutService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RateLimit(120))
		r.Use(customMW.RequireToken())

		// Idempotency middleware for the session-creating endpoint.
		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)

		r.With(idempotencyMW).Post("/checkouts", checkoutH.Begin)
		r.Get("/checkouts", checkoutH.List)
		r.Get("/checkouts/{id}", checkoutH.Get)
		r.Post("/checkouts/{id}/authorized", checkoutH.Authorized)
		r.Post("/checkouts/{id}/dismissed", checkoutH.Dismissed)
		r.Post("/checkouts/{id}/verify", checkoutH.Verify)
	})

	return r
}
