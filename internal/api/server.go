package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/metrics"
	"github.com/finguard-labs/finguard/internal/pipeline"
	"github.com/finguard-labs/finguard/internal/policy"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, eventBus domain.EventBus, p *pipeline.Pipeline, policies *policy.Engine, version string) *Server {
	handler := NewHandler(repo, cache, eventBus, p, policies, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health and scrape endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API routes (tenant required)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(TenantMiddleware)
		r.Use(RateLimitMiddleware(cache, cfg.RateLimitPerMinute))

		// Transaction scoring
		r.Post("/transactions", handler.ScoreTransaction)
		r.Post("/transactions/batch", handler.ScoreBatch)
		r.Get("/transactions/{id}", handler.GetTransaction)

		// Alerts
		r.Get("/alerts", handler.ListAlerts)
		r.Get("/alerts/{id}", handler.GetAlert)

		// Fraud pattern catalog
		r.Get("/patterns", handler.ListPatterns)

		// Dashboard stats
		r.Get("/stats", handler.GetStats)

		// Policy management
		r.Get("/policies", handler.ListPolicies)
		r.Post("/policies", handler.CreatePolicy)
		r.Post("/policies/reload", handler.ReloadPolicies)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
