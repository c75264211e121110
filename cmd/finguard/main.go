// FinGuard - Behavioral fraud pattern detection and risk fusion.
// Copyright (c) 2025 finguard-labs
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/finguard-labs/finguard/internal/api"
	"github.com/finguard-labs/finguard/internal/bus"
	"github.com/finguard-labs/finguard/internal/cache"
	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/investigate"
	"github.com/finguard-labs/finguard/internal/pipeline"
	"github.com/finguard-labs/finguard/internal/policy"
	"github.com/finguard-labs/finguard/internal/repository"
	"github.com/finguard-labs/finguard/internal/vecstore"
	"github.com/finguard-labs/finguard/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("FINGUARD_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting finguard",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("FINGUARD_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize similarity search and seed the known-pattern catalog
	search := vecstore.New(repo, cfg.Search, logger)
	if err := search.SeedPatterns(ctx); err != nil {
		slog.Error("failed to seed fraud pattern catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("fraud pattern catalog seeded")

	// Initialize forensic investigator. Without GEMINI_API_KEY every
	// investigation uses the rule-based fallback.
	var gen investigate.Generator
	if os.Getenv("GEMINI_API_KEY") != "" {
		gemini, err := investigate.NewGeminiGenerator(ctx, cfg.Investigator.Model)
		if err != nil {
			slog.Warn("failed to initialize generative model, using fallback assessments", "error", err)
		} else {
			gen = gemini
			slog.Info("generative model initialized", "model", cfg.Investigator.Model)
		}
	} else {
		slog.Info("GEMINI_API_KEY not set, using rule-based fallback assessments")
	}
	inv := investigate.New(gen, cfg.Investigator, logger)

	// Initialize Policy Engine
	policies, err := policy.NewEngine()
	if err != nil {
		slog.Error("failed to initialize policy engine", "error", err)
		os.Exit(1)
	}
	if err := loadPoliciesFromDatabase(ctx, repo, policies); err != nil {
		slog.Error("failed to load policies", "error", err)
		os.Exit(1)
	}
	slog.Info("policy engine initialized", "policies_count", policies.PoliciesCount())

	// Initialize the scoring pipeline
	pipe := pipeline.New(repo, cacheImpl, busImpl, search, inv, policies, pipeline.Config{
		Search:        cfg.Search,
		AssessmentTTL: time.Duration(cfg.Investigator.CacheTTLSeconds) * time.Second,
	}, logger)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("FINGUARD_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, pipe)

		var tenantIDs []string
		if envTenants := os.Getenv("FINGUARD_TENANTS"); envTenants != "" {
			tenantIDs = strings.Split(envTenants, ",")
		}

		if err := asyncWorker.Start(worker.Config{TenantIDs: tenantIDs}); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, pipe, policies, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("finguard is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("finguard shutdown complete")
}

// applyEnvOverrides applies FINGUARD_* environment overrides on top of the
// tier defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("FINGUARD_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("FINGUARD_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("FINGUARD_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("FINGUARD_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("FINGUARD_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("FINGUARD_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("FINGUARD_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("FINGUARD_MODEL"); v != "" {
		cfg.Investigator.Model = v
	}
}

// loadPoliciesFromDatabase loads screening policies into the engine.
// Policies are tenant scoped; at startup we load the default tenant's set.
// Tenants manage theirs via the policies API.
func loadPoliciesFromDatabase(ctx context.Context, repo domain.Repository, engine *policy.Engine) error {
	tenantID := os.Getenv("FINGUARD_DEFAULT_TENANT")
	if tenantID == "" {
		return nil
	}

	configs, err := repo.ListPolicies(ctx, tenantID)
	if err != nil {
		slog.Warn("failed to list policies from database", "error", err)
		return nil // Start with empty policies - they can be added via API
	}

	if len(configs) > 0 {
		slog.Info("loading policies from database", "count", len(configs))
		return engine.ReloadPolicies(configs)
	}

	slog.Info("no policies in database - configure via POST /api/v1/policies")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  FinGuard - Fraud Pattern Detection & Risk Fusion")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/v1/transactions        - Score a transaction")
	fmt.Println("    POST /api/v1/transactions/batch  - Score a batch")
	fmt.Println("    GET  /api/v1/transactions/{id}   - Get transaction by ID")
	fmt.Println("    GET  /api/v1/alerts              - List alerts")
	fmt.Println("    GET  /api/v1/alerts/{id}         - Get alert by ID")
	fmt.Println("    GET  /api/v1/patterns            - List fraud patterns")
	fmt.Println("    GET  /api/v1/stats               - Dashboard stats")
	fmt.Println("    GET  /api/v1/policies            - List screening policies")
	fmt.Println("    POST /api/v1/policies            - Create a policy")
	fmt.Println("    POST /api/v1/policies/reload     - Hot-reload policies")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println("    GET  /metrics                    - Prometheus metrics")
	fmt.Println()
}
