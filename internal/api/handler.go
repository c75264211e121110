package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finguard-labs/finguard/internal/bus"
	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/pipeline"
	"github.com/finguard-labs/finguard/internal/policy"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	policies *policy.Engine
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, eventBus domain.EventBus, p *pipeline.Pipeline, policies *policy.Engine, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      eventBus,
		pipeline: p,
		policies: policies,
		version:  version,
	}
}

// ScoreResponse is the response for POST /api/v1/transactions.
type ScoreResponse struct {
	Alert    *domain.Alert `json:"alert"`
	Metadata struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// ScoreTransaction handles POST /api/v1/transactions. The default path
// scores synchronously and returns the alert; with ?async=true the
// transaction is published for worker processing and a 202 is returned.
func (h *Handler) ScoreTransaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var raw domain.RawTransaction
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if raw.TransactionID == "" {
		raw.TransactionID = uuid.New().String()
	}

	if r.URL.Query().Get("async") == "true" {
		if h.bus == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "event bus not available",
			})
			return
		}
		event := bus.TransactionReceivedEvent{Raw: &raw}
		if err := bus.PublishJSON(ctx, h.bus, tenantID, domain.TopicTransactionReceived, event); err != nil {
			slog.Error("failed to publish transaction", "tx_id", raw.TransactionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to enqueue transaction",
			})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"transaction_id": raw.TransactionID,
			"status":         "accepted",
		})
		return
	}

	alert, err := h.pipeline.Process(ctx, tenantID, &raw)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("scoring failed", "tx_id", raw.TransactionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scoring failed",
		})
		return
	}

	resp := ScoreResponse{Alert: alert}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// ScoreBatch handles POST /api/v1/transactions/batch. Malformed entries are
// skipped and counted; one bad record never fails the batch.
func (h *Handler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var raws []*domain.RawTransaction
	if err := json.NewDecoder(r.Body).Decode(&raws); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(raws) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "batch must contain at least one transaction",
		})
		return
	}

	result, err := h.pipeline.ProcessBatch(ctx, tenantID, raws)
	if err != nil {
		slog.Error("batch scoring failed", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "batch scoring failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetTransaction retrieves a stored transaction by ID.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	txID := chi.URLParam(r, "id")

	if txID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction id is required",
		})
		return
	}

	tx, err := h.repo.GetTransaction(ctx, tenantID, txID)
	if err != nil {
		slog.Error("failed to get transaction", "id", txID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "transaction not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// GetAlert retrieves an alert by ID.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	alertID := chi.URLParam(r, "id")

	if alertID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "alert id is required",
		})
		return
	}

	alert, err := h.repo.GetAlert(ctx, tenantID, alertID)
	if err != nil {
		slog.Error("failed to get alert", "id", alertID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "alert not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, alert)
}

// ListAlerts returns alerts for the tenant, optionally filtered by status.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	status := r.URL.Query().Get("status")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	alerts, err := h.repo.ListAlertsByStatus(ctx, tenantID, status, limit)
	if err != nil {
		slog.Error("failed to list alerts", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list alerts",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ListPatterns returns the known fraud pattern catalog.
func (h *Handler) ListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.repo.ListPatterns(r.Context())
	if err != nil {
		slog.Error("failed to list patterns", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list patterns",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

// GetStats returns dashboard statistics for the tenant.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	stats, err := h.repo.Stats(ctx, tenantID)
	if err != nil {
		slog.Error("failed to get stats", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get stats",
		})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ListPolicies returns the screening policies loaded for the tenant.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	policies, err := h.repo.ListPolicies(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list policies", "tenant_id", tenantID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list policies",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policies": policies,
		"count":    len(policies),
	})
}

// CreatePolicyRequest is the request body for creating a screening policy.
type CreatePolicyRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Enabled     bool   `json:"enabled"`
}

// CreatePolicy validates and saves a screening policy. Call
// POST /api/v1/policies/reload to apply it.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	cfg := &domain.PolicyConfig{
		ID:          req.ID,
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression before persisting
	if h.policies != nil {
		if err := h.policies.ValidatePolicy(cfg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid CEL expression: " + err.Error(),
			})
			return
		}
	}

	if err := h.repo.SavePolicy(ctx, tenantID, cfg); err != nil {
		slog.Error("failed to save policy", "id", cfg.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save policy",
		})
		return
	}

	slog.Info("policy created", "id", cfg.ID, "name", cfg.Name, "tenant_id", tenantID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"policy":  cfg,
		"message": "Policy created. Call POST /api/v1/policies/reload to apply changes.",
	})
}

// ReloadPolicies reloads the tenant's screening policies from the database
// into the engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadPolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.policies == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "policy engine not available",
		})
		return
	}

	configs, err := h.repo.ListPolicies(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list policies from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load policies from database",
		})
		return
	}

	if err := h.policies.ReloadPolicies(configs); err != nil {
		slog.Error("failed to reload policies into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload policies: " + err.Error(),
		})
		return
	}

	slog.Info("policies reloaded from database", "count", h.policies.PoliciesCount())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "policies reloaded successfully",
		"count":   h.policies.PoliciesCount(),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
