// Package pipeline orchestrates the scoring path: ingestion, vectorization,
// similarity search, pattern detection, forensic assessment, risk fusion,
// policy screening, persistence, and event publication.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/finguard-labs/finguard/internal/bus"
	"github.com/finguard-labs/finguard/internal/detect"
	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/ingest"
	"github.com/finguard-labs/finguard/internal/investigate"
	"github.com/finguard-labs/finguard/internal/metrics"
	"github.com/finguard-labs/finguard/internal/policy"
	"github.com/finguard-labs/finguard/internal/scoring"
	"github.com/finguard-labs/finguard/internal/vectorize"
)

var tracer = otel.Tracer("finguard-pipeline")

// Config holds pipeline tuning knobs.
type Config struct {
	// Search controls the history and catalog similarity searches.
	Search domain.SearchConfig

	// AssessmentTTL is how long model assessments are cached by behavior
	// digest. 0 disables assessment caching.
	AssessmentTTL time.Duration
}

// Pipeline scores transactions end to end. Safe for concurrent use.
type Pipeline struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	search   domain.VectorSearch
	inv      domain.Investigator
	policies *policy.Engine
	cfg      Config
	logger   *slog.Logger
}

// New creates a scoring pipeline. The cache and policy engine are optional;
// a nil cache disables assessment caching and a nil engine skips screening.
func New(repo domain.Repository, cache domain.Cache, eventBus domain.EventBus, search domain.VectorSearch, inv domain.Investigator, policies *policy.Engine, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		repo:     repo,
		cache:    cache,
		bus:      eventBus,
		search:   search,
		inv:      inv,
		policies: policies,
		cfg:      cfg,
		logger:   logger,
	}
}

// Process scores a single raw transaction and returns the resulting alert.
// Validation failures are returned to the caller; search and persistence
// failures degrade rather than abort, so an accepted transaction always
// produces an alert.
func (p *Pipeline) Process(ctx context.Context, tenantID string, raw *domain.RawTransaction) (*domain.Alert, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "pipeline.Process")
	defer span.End()

	tx, err := ingest.Normalize(raw)
	if err != nil {
		metrics.ValidationFailures.WithLabelValues(tenantID).Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	stored := vectorize.Vectorize(tx)

	neighbors, err := p.search.SearchHistory(ctx, tenantID, stored.Vector, p.cfg.Search.HistoryLimit, p.cfg.Search.HistoryWindowDays)
	if err != nil {
		return nil, err
	}
	matches, err := p.search.SearchPatterns(ctx, stored.Vector, p.cfg.Search.PatternLimit)
	if err != nil {
		return nil, err
	}

	analysis := detect.AnalyzeNeighbors(neighbors)
	verdict := detect.MatchPattern(matches)
	indicators := detect.ExtractIndicators(analysis, verdict)

	assessment := p.assess(ctx, tenantID, tx, stored.BehaviorText, analysis, verdict, indicators)

	breakdown := scoring.Fuse(analysis, verdict, indicators, assessment)
	recommendations := scoring.Recommendations(breakdown, assessment, tx, analysis)

	var policyHits []string
	if p.policies != nil {
		policyHits = p.policies.Screen(tx)
	}

	alert := scoring.ComposeAlert(tx, breakdown, analysis, verdict, assessment, recommendations, policyHits)

	score := float64(breakdown.FraudRiskScore)
	stored.FraudScore = &score
	stored.RiskLevel = breakdown.RiskLevel
	stored.IsFlagged = alert.Status == domain.AlertStatusFlagged
	stored.InvestigationNotes = assessment.Reasoning

	if err := p.repo.SaveTransaction(ctx, tenantID, stored); err != nil {
		p.logger.Error("failed to save transaction",
			"tx_id", tx.ID,
			"tenant_id", tenantID,
			"error", err,
		)
	}
	if err := p.repo.SaveAlert(ctx, tenantID, alert); err != nil {
		p.logger.Error("failed to save alert",
			"alert_id", alert.ID,
			"tenant_id", tenantID,
			"error", err,
		)
	}

	p.publish(ctx, tenantID, alert)

	metrics.TransactionsProcessed.WithLabelValues(tenantID, breakdown.RiskLevel).Inc()
	metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	p.logger.Info("transaction scored",
		"tx_id", tx.ID,
		"tenant_id", tenantID,
		"score", breakdown.FraudRiskScore,
		"risk_level", breakdown.RiskLevel,
		"status", alert.Status,
		"assessment_source", assessment.Source,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return alert, nil
}

// assess produces the forensic assessment, consulting the digest cache so
// near-identical transactions skip repeated model calls. Only warranted
// investigations touch the cache; quiet transactions always get the fixed
// skip default.
func (p *Pipeline) assess(ctx context.Context, tenantID string, tx *domain.Transaction, behaviorText string, analysis domain.PatternAnalysis, verdict domain.PatternVerdict, indicators domain.RiskIndicators) *domain.Assessment {
	cacheable := p.cache != nil && p.cfg.AssessmentTTL > 0 && indicators.RequiresInvestigation
	digest := vectorize.Digest(behaviorText)

	if cacheable {
		cached, err := p.cache.GetAssessment(ctx, tenantID, digest)
		if err != nil {
			p.logger.Warn("assessment cache lookup failed",
				"tx_id", tx.ID,
				"error", err,
			)
		} else if cached != nil {
			metrics.Investigations.WithLabelValues("cache").Inc()
			return cached
		}
	}

	assessment, err := p.inv.Investigate(ctx, tx, analysis, verdict, indicators)
	if err != nil || assessment == nil {
		// Investigators recover internally; this is a safety net.
		assessment = investigate.Fallback(indicators, verdict)
	}
	metrics.Investigations.WithLabelValues(string(assessment.Source)).Inc()

	// Only model verdicts are worth pinning; fallbacks are cheap to recompute.
	if cacheable && assessment.Source == domain.AssessmentSourceModel {
		if err := p.cache.SetAssessment(ctx, tenantID, digest, assessment, p.cfg.AssessmentTTL); err != nil {
			p.logger.Warn("assessment cache store failed",
				"tx_id", tx.ID,
				"error", err,
			)
		}
	}

	return assessment
}

// publish emits the scored event, plus the flagged event when the alert
// crossed the review threshold. Publish failures are logged, never fatal.
func (p *Pipeline) publish(ctx context.Context, tenantID string, alert *domain.Alert) {
	if p.bus == nil {
		return
	}

	scored := bus.TransactionScoredEvent{
		TransactionID:  alert.TransactionID,
		AlertID:        alert.ID,
		FraudRiskScore: alert.FraudRiskScore,
		RiskLevel:      alert.RiskLevel,
		Status:         alert.Status,
	}
	if err := bus.PublishJSON(ctx, p.bus, tenantID, domain.TopicTransactionScored, scored); err != nil {
		p.logger.Warn("failed to publish scored event",
			"alert_id", alert.ID,
			"error", err,
		)
	}

	if alert.Status != domain.AlertStatusFlagged {
		return
	}

	metrics.AlertsFlagged.WithLabelValues(tenantID).Inc()
	flagged := bus.AlertFlaggedEvent{
		AlertID:        alert.ID,
		TransactionID:  alert.TransactionID,
		FraudRiskScore: alert.FraudRiskScore,
		RiskLevel:      alert.RiskLevel,
	}
	if err := bus.PublishJSON(ctx, p.bus, tenantID, domain.TopicAlertFlagged, flagged); err != nil {
		p.logger.Warn("failed to publish flagged event",
			"alert_id", alert.ID,
			"error", err,
		)
	}
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Alerts  []*domain.Alert `json:"alerts"`
	Skipped int             `json:"skipped"`
}

// ProcessBatch scores a list of raw transactions in submission order.
// Malformed transactions are skipped and counted; one bad record never
// aborts the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, tenantID string, raws []*domain.RawTransaction) (*BatchResult, error) {
	result := &BatchResult{}
	for _, raw := range raws {
		alert, err := p.Process(ctx, tenantID, raw)
		if err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				p.logger.Warn("skipping invalid transaction in batch",
					"tenant_id", tenantID,
					"error", err,
				)
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Alerts = append(result.Alerts, alert)
	}
	return result, nil
}
