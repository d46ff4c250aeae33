package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterConfig struct {
	Workflow StatusUpdater
	History  HistoryReader
	Monitor  MetricsSource
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Lifecycle endpoints
	r.Post("/appointments/{id}/transition", transitionHandler(cfg.Workflow))
	r.Get("/appointments/{id}/history", historyHandler(cfg.History))
	r.Get("/statuses/{status}/transitions", allowedTransitionsHandler())
	r.Get("/statuses/{status}/transitions/{target}", transitionAllowedHandler())

	// Monitoring endpoints
	r.Get("/metrics/status", statusMetricsHandler(cfg.Monitor))
	r.Get("/metrics/report", statusReportHandler(cfg.Monitor))

	return r
}
