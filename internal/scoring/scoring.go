// Package scoring fuses pattern signals and the forensic assessment into
// the final fraud risk score and alert.
//
// The fusion is a fixed 40/60 weighted blend: rule-based pattern points
// carry 40%, assessment confidence carries 60%. All arithmetic uses
// integer truncation so scores are stable across runs.
package scoring

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/finguard-labs/finguard/internal/domain"
)

// FlagThreshold is the fused score at or above which an alert is flagged
// for review rather than merely monitored.
const FlagThreshold = 70

// Fuse combines the pattern analysis, catalog verdict, indicators and the
// forensic assessment into the score breakdown.
func Fuse(analysis domain.PatternAnalysis, verdict domain.PatternVerdict, indicators domain.RiskIndicators, assessment *domain.Assessment) domain.ScoreBreakdown {
	ruleScore := 0

	// Accounts involved, max 35 points.
	switch {
	case analysis.UniqueUsers > 10:
		ruleScore += 35
	case analysis.UniqueUsers > 5:
		ruleScore += 25
	case analysis.UniqueUsers > 2:
		ruleScore += 15
	}

	// Neighbor volume, max 25 points.
	switch {
	case analysis.SimilarCount > 15:
		ruleScore += 25
	case analysis.SimilarCount > 10:
		ruleScore += 15
	case analysis.SimilarCount > 5:
		ruleScore += 10
	}

	if indicators.TimeDilated {
		ruleScore += 20
	}
	if indicators.AmountClustering {
		ruleScore += 20
	}
	if indicators.MerchantHopping {
		ruleScore += 15
	}
	if indicators.DeviceSwitching {
		ruleScore += 15
	}

	// Catalog match, scaled by severity and match confidence.
	if verdict.Matched {
		switch verdict.Severity {
		case domain.SeverityCritical:
			ruleScore += int(40 * verdict.Confidence)
		case domain.SeverityHigh:
			ruleScore += int(30 * verdict.Confidence)
		default:
			ruleScore += int(20 * verdict.Confidence)
		}
	}

	if ruleScore > 100 {
		ruleScore = 100
	}

	confidence := assessment.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	final := int(float64(ruleScore)*0.4 + float64(confidence)*0.6)

	riskLevel := domain.RiskLevelLow
	switch {
	case final >= 75:
		riskLevel = domain.RiskLevelHigh
	case final >= 50:
		riskLevel = domain.RiskLevelMedium
	}

	return domain.ScoreBreakdown{
		FraudRiskScore:       final,
		RiskLevel:            riskLevel,
		RuleBasedScore:       ruleScore,
		AssessmentConfidence: confidence,
	}
}

// Recommendations builds the ranked action list: up to three assessment
// recommendations first, then risk-tier actions, then a volume followup.
// Duplicates keep their first position; the list is capped at five.
func Recommendations(breakdown domain.ScoreBreakdown, assessment *domain.Assessment, tx *domain.Transaction, analysis domain.PatternAnalysis) []string {
	var recs []string

	if n := len(assessment.Recommendations); n > 0 {
		if n > 3 {
			n = 3
		}
		recs = append(recs, assessment.Recommendations[:n]...)
	}

	userHash := tx.UserHash
	if len(userHash) > 8 {
		userHash = userHash[:8]
	}

	switch {
	case breakdown.FraudRiskScore >= 75:
		recs = append(recs,
			fmt.Sprintf("🚨 URGENT: Flag account %s... for immediate review", userHash),
			"Temporarily block/hold account pending investigation",
			"Notify fraud investigation team within 15 minutes",
			"Review all transactions from this account in last 30 days",
			fmt.Sprintf("Check related accounts (%d accounts in pattern)", analysis.UniqueUsers),
		)
	case breakdown.FraudRiskScore >= 50:
		recs = append(recs,
			fmt.Sprintf("⚠️ Flag account %s... for manual review within 24 hours", userHash),
			"Implement step-up authentication for next 3 transactions",
			"Monitor account closely for next 7 days",
			"Review recent transaction history (last 14 days)",
			"Set transaction amount limit temporarily",
		)
	default:
		recs = append(recs,
			"Continue normal monitoring",
			"No immediate action required",
			"Log for historical pattern analysis",
		)
	}

	if analysis.SimilarCount > 10 {
		recs = append(recs, fmt.Sprintf(
			"Investigate %d similar transactions across %d accounts",
			analysis.SimilarCount, analysis.UniqueUsers))
	}

	seen := make(map[string]struct{}, len(recs))
	unique := recs[:0]
	for _, rec := range recs {
		if _, ok := seen[rec]; ok {
			continue
		}
		seen[rec] = struct{}{}
		unique = append(unique, rec)
	}

	if len(unique) > 5 {
		unique = unique[:5]
	}
	return unique
}

// Explanation renders the human-readable account of how the score came to
// be, ending with the assessment reasoning.
func Explanation(breakdown domain.ScoreBreakdown, analysis domain.PatternAnalysis, verdict domain.PatternVerdict, assessment *domain.Assessment) string {
	parts := []string{
		fmt.Sprintf("Fraud risk score: %d/100 (%s Risk).", breakdown.FraudRiskScore, breakdown.RiskLevel),
	}

	if analysis.SimilarCount > 0 {
		parts = append(parts, fmt.Sprintf(
			"Found %d similar transactions across %d different accounts over %d days.",
			analysis.SimilarCount, analysis.UniqueUsers, analysis.TimeSpanDays))
	}

	if verdict.Matched {
		parts = append(parts, fmt.Sprintf(
			"Matches known '%s' pattern (%s severity) with %.0f%% confidence.",
			verdict.PatternName, verdict.Severity, verdict.Confidence*100))
	}

	if assessment.Reasoning != "" {
		parts = append(parts, assessment.Reasoning)
	}

	return strings.Join(parts, " ")
}

// ComposeAlert assembles the terminal alert artifact.
func ComposeAlert(tx *domain.Transaction, breakdown domain.ScoreBreakdown, analysis domain.PatternAnalysis, verdict domain.PatternVerdict, assessment *domain.Assessment, recommendations []string, policyHits []string) *domain.Alert {
	knownPattern := verdict.PatternName
	if knownPattern == "" {
		knownPattern = "None detected"
	}

	notes := assessment.Reasoning
	if notes == "" {
		notes = "No investigation performed"
	}

	status := domain.AlertStatusMonitor
	if breakdown.FraudRiskScore >= FlagThreshold {
		status = domain.AlertStatusFlagged
	}

	return &domain.Alert{
		ID:             uuid.New().String(),
		TransactionID:  tx.ID,
		FraudRiskScore: breakdown.FraudRiskScore,
		RiskLevel:      breakdown.RiskLevel,
		Reasoning:      Explanation(breakdown, analysis, verdict, assessment),
		BehavioralAnalysis: domain.BehavioralAnalysis{
			SimilarPatternsFound:  analysis.SimilarCount,
			TimeSpanDays:          analysis.TimeSpanDays,
			AccountsInvolved:      analysis.UniqueUsers,
			VectorSimilarityScore: analysis.AvgSimilarity,
			KnownFraudPattern:     knownPattern,
		},
		InvestigationNotes: notes,
		Recommendations:    recommendations,
		PolicyHits:         policyHits,
		Confidence:         float64(breakdown.AssessmentConfidence) / 100,
		Status:             status,
		Timestamp:          tx.Timestamp,
	}
}
