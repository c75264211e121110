// Package investigate produces forensic fraud assessments.
//
// Investigation is gated: transactions that trip no investigation-worthy
// indicators get a fixed low-confidence default without a model call. When
// the model is consulted, failures and malformed responses degrade to a
// deterministic rule-based fallback, so Investigate never fails outright.
package investigate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finguard-labs/finguard/internal/domain"
)

// Generator abstracts the generative model call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Investigator runs forensic assessment with bounded retries and a
// deterministic fallback.
type Investigator struct {
	gen    Generator
	cfg    domain.InvestigatorConfig
	logger *slog.Logger
}

// New creates an investigator. gen may be nil, in which case every
// investigation uses the fallback path.
func New(gen Generator, cfg domain.InvestigatorConfig, logger *slog.Logger) *Investigator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Investigator{
		gen:    gen,
		cfg:    cfg,
		logger: logger,
	}
}

// SkipAssessment is the default substituted when no investigation is
// warranted.
func SkipAssessment() *domain.Assessment {
	return &domain.Assessment{
		IsFraud:         false,
		Confidence:      25,
		FraudType:       "Legitimate",
		Reasoning:       "No significant risk indicators detected",
		Recommendations: []string{"Continue monitoring"},
		Source:          domain.AssessmentSourceSkipped,
	}
}

// Investigate assesses a transaction. Returns the skip default when the
// indicators do not warrant investigation, a model assessment on success,
// or the rule-based fallback after all attempts fail.
func (inv *Investigator) Investigate(ctx context.Context, tx *domain.Transaction, analysis domain.PatternAnalysis, verdict domain.PatternVerdict, indicators domain.RiskIndicators) (*domain.Assessment, error) {
	if !indicators.RequiresInvestigation {
		return SkipAssessment(), nil
	}

	if inv.gen != nil {
		prompt := buildPrompt(tx, analysis, verdict, indicators)

		for attempt := 1; attempt <= inv.cfg.MaxAttempts; attempt++ {
			raw, err := inv.gen.Generate(ctx, prompt)
			if err != nil {
				inv.logger.Warn("model call failed",
					"transaction_id", tx.ID,
					"attempt", attempt,
					"error", err)
				continue
			}

			assessment, err := parseResponse(raw)
			if err != nil {
				inv.logger.Warn("model response unparseable",
					"transaction_id", tx.ID,
					"attempt", attempt,
					"error", err)
				continue
			}

			assessment.Source = domain.AssessmentSourceModel
			return assessment, nil
		}
	}

	inv.logger.Info("using rule-based fallback assessment", "transaction_id", tx.ID)
	return Fallback(indicators, verdict), nil
}

// Fallback produces the deterministic rule-based assessment used when the
// model is unavailable or keeps returning garbage.
func Fallback(indicators domain.RiskIndicators, verdict domain.PatternVerdict) *domain.Assessment {
	riskCount := indicators.Count()

	isFraud := riskCount >= 3 || verdict.Matched

	confidence := riskCount * 20
	if verdict.Matched {
		confidence += 30
	}
	if confidence > 90 {
		confidence = 90
	}

	fraudType := "Unknown"
	if verdict.Matched {
		fraudType = verdict.PatternName
	}

	reasoning := fmt.Sprintf("Rule-based assessment: %d risk indicators detected. ", riskCount)
	if verdict.Matched {
		reasoning += fmt.Sprintf("Matches %s pattern. ", verdict.PatternName)
	}
	reasoning += "LLM analysis unavailable, using fallback logic."

	recommendations := []string{
		"Manual review required (LLM unavailable)",
		"Check transaction history",
		"Verify user identity",
	}
	if isFraud {
		recommendations = append(recommendations, "Consider temporary account hold")
	}

	return &domain.Assessment{
		IsFraud:         isFraud,
		Confidence:      confidence,
		FraudType:       fraudType,
		Reasoning:       reasoning,
		Recommendations: recommendations,
		Source:          domain.AssessmentSourceFallback,
	}
}
