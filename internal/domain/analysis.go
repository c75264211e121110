package domain

import (
	"time"
)

// Severity classifies a catalogued fraud pattern.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// FraudPattern is one entry of the known-pattern catalog. The catalog is
// small, seeded at startup, and matched in the same vector space as
// transactions.
type FraudPattern struct {
	ID          string    `json:"pattern_id"`
	Name        string    `json:"pattern_name"`
	Description string    `json:"pattern_description"`
	Severity    Severity  `json:"severity"`
	Vector      []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// NeighborResult is one hit from the history similarity search: a stored
// transaction snapshot plus its cosine distance from the query vector
// (0 = identical direction, 2 = opposite).
type NeighborResult struct {
	Tx       StoredTransaction
	Distance float64
}

// PatternMatch is one hit from the known-pattern search.
type PatternMatch struct {
	Name        string
	Description string
	Severity    Severity
	Distance    float64
}

// AmountRange summarizes the amounts of a neighbor cluster.
type AmountRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// PatternAnalysis holds the aggregate behavioral statistics derived from
// the history similarity search. Recomputed per transaction, never stored.
type PatternAnalysis struct {
	SimilarCount      int         `json:"similar_count"`
	UniqueUsers       int         `json:"unique_users"`
	AvgSimilarity     float64     `json:"avg_similarity"`
	TimeSpanDays      int         `json:"time_span_days"`
	AmountRange       AmountRange `json:"amount_range"`
	MerchantDiversity int         `json:"merchant_diversity"`
	DeviceDiversity   int         `json:"device_diversity"`
}

// PatternVerdict is the single best-match verdict against the known-pattern
// catalog. Lower-ranked matches are discarded; only the first (lowest
// distance) entry is surfaced.
type PatternVerdict struct {
	Matched     bool     `json:"matched"`
	PatternName string   `json:"pattern_name,omitempty"`
	Description string   `json:"pattern_description,omitempty"`
	Severity    Severity `json:"severity,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// RiskIndicators is the set of named boolean signals derived from the
// pattern analysis and the catalog verdict. Ephemeral, pure derivation.
type RiskIndicators struct {
	MultipleAccounts      bool `json:"multiple_accounts"`
	TimeDilated           bool `json:"time_dilated"`
	AmountClustering      bool `json:"amount_clustering"`
	HighFraudMatch        bool `json:"high_fraud_match"`
	MerchantHopping       bool `json:"merchant_hopping"`
	DeviceSwitching       bool `json:"device_switching"`
	RequiresInvestigation bool `json:"requires_investigation"`
}

// Count returns the number of active indicators, excluding the
// requires_investigation gate itself.
func (r RiskIndicators) Count() int {
	n := 0
	for _, b := range []bool{
		r.MultipleAccounts, r.TimeDilated, r.AmountClustering,
		r.HighFraudMatch, r.MerchantHopping, r.DeviceSwitching,
	} {
		if b {
			n++
		}
	}
	return n
}

// ActiveNames returns the names of active indicators in declaration order,
// excluding requires_investigation.
func (r RiskIndicators) ActiveNames() []string {
	var names []string
	for _, it := range []struct {
		name string
		on   bool
	}{
		{"multiple_accounts", r.MultipleAccounts},
		{"time_dilated", r.TimeDilated},
		{"amount_clustering", r.AmountClustering},
		{"high_fraud_match", r.HighFraudMatch},
		{"merchant_hopping", r.MerchantHopping},
		{"device_switching", r.DeviceSwitching},
	} {
		if it.on {
			names = append(names, it.name)
		}
	}
	return names
}

// AssessmentSource records how an assessment was produced, so callers can
// distinguish "used fallback" from "succeeded" without inspecting errors.
type AssessmentSource string

const (
	// AssessmentSourceModel means the forensic model produced the assessment.
	AssessmentSourceModel AssessmentSource = "model"

	// AssessmentSourceFallback means the deterministic rule-based fallback
	// produced the assessment after the model failed or its response could
	// not be parsed.
	AssessmentSourceFallback AssessmentSource = "fallback"

	// AssessmentSourceSkipped means no investigation was warranted and the
	// fixed low-confidence default was substituted.
	AssessmentSourceSkipped AssessmentSource = "skipped"
)

// Assessment is the external forensic verdict on a transaction, produced by
// the investigation model or one of its deterministic stand-ins. Confidence
// is always an integer in [0,100].
type Assessment struct {
	IsFraud         bool             `json:"is_fraud"`
	Confidence      int              `json:"confidence"`
	FraudType       string           `json:"fraud_type"`
	Reasoning       string           `json:"reasoning"`
	Recommendations []string         `json:"recommendations"`
	Source          AssessmentSource `json:"source,omitempty"`
}

// Risk level thresholds over the fused score.
const (
	RiskLevelHigh   = "High"
	RiskLevelMedium = "Medium"
	RiskLevelLow    = "Low"
)

// Alert status values.
const (
	AlertStatusMonitor = "monitor"
	AlertStatusFlagged = "flagged_for_review"
)

// ScoreBreakdown is the fused scoring output. All score fields are integers
// clamped to [0,100]; RiskLevel is a pure function of FraudRiskScore.
type ScoreBreakdown struct {
	FraudRiskScore       int    `json:"fraud_risk_score"`
	RiskLevel            string `json:"risk_level"`
	RuleBasedScore       int    `json:"rule_based_score"`
	AssessmentConfidence int    `json:"assessment_confidence"`
}

// BehavioralAnalysis is the summary sub-record embedded in an alert.
type BehavioralAnalysis struct {
	SimilarPatternsFound  int     `json:"similar_patterns_found"`
	TimeSpanDays          int     `json:"time_span_days"`
	AccountsInvolved      int     `json:"accounts_involved"`
	VectorSimilarityScore float64 `json:"vector_similarity_score"`
	KnownFraudPattern     string  `json:"known_fraud_pattern"`
}

// Alert is the terminal artifact of the scoring pipeline. Ownership passes
// to the caller; persistence and presentation are not this core's concern.
type Alert struct {
	ID                 string             `json:"alert_id"`
	TransactionID      string             `json:"transaction_id"`
	FraudRiskScore     int                `json:"fraud_risk_score"`
	RiskLevel          string             `json:"risk_level"`
	Reasoning          string             `json:"reasoning"`
	BehavioralAnalysis BehavioralAnalysis `json:"behavioral_analysis"`
	InvestigationNotes string             `json:"investigation_notes"`
	Recommendations    []string           `json:"recommendations"`
	PolicyHits         []string           `json:"policy_hits,omitempty"`
	Confidence         float64            `json:"confidence"`
	Status             string             `json:"status"`
	Timestamp          time.Time          `json:"timestamp"`
}

// DashboardStats are the aggregate figures served to dashboards.
type DashboardStats struct {
	TotalTransactions int     `json:"total_transactions"`
	FlaggedCount      int     `json:"flagged_count"`
	AvgFraudScore     float64 `json:"avg_fraud_score"`
	HighRiskCount     int     `json:"high_risk_count"`
}
