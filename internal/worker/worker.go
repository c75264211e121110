// Package worker provides async transaction scoring for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/finguard-labs/finguard/internal/bus"
	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/pipeline"
)

// Worker consumes received-transaction events from the EventBus and runs
// them through the scoring pipeline.
type Worker struct {
	bus      domain.EventBus
	pipeline *pipeline.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via the
	// global subscription)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(eventBus domain.EventBus, p *pipeline.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      eventBus,
		pipeline: p,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicTransactionReceived, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts a worker for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicTransactionReceived, func(ctx context.Context, msg *domain.Message) error {
		return w.processMessage(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicTransactionReceived,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processMessage(ctx, msg.TenantID, msg)
}

// processMessage decodes a received-transaction event and scores it.
func (w *Worker) processMessage(ctx context.Context, tenantID string, msg *domain.Message) error {
	var event bus.TransactionReceivedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse transaction event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if event.Raw == nil {
		slog.Error("transaction event missing payload", "message_id", msg.ID)
		return nil
	}

	alert, err := w.pipeline.Process(ctx, tenantID, event.Raw)
	if err != nil {
		slog.Error("async scoring failed",
			"tx_id", event.Raw.TransactionID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	slog.Debug("async transaction scored",
		"tx_id", event.Raw.TransactionID,
		"tenant_id", tenantID,
		"alert_id", alert.ID,
		"status", alert.Status,
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
