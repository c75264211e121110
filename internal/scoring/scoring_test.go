package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/finguard-labs/finguard/internal/domain"
)

func assessment(confidence int, recs ...string) *domain.Assessment {
	return &domain.Assessment{
		IsFraud:         confidence >= 50,
		Confidence:      confidence,
		FraudType:       "Card Testing",
		Reasoning:       "Model reasoning.",
		Recommendations: recs,
	}
}

func TestFuseQuietTransaction(t *testing.T) {
	got := Fuse(domain.PatternAnalysis{}, domain.PatternVerdict{}, domain.RiskIndicators{}, assessment(25))

	if got.RuleBasedScore != 0 {
		t.Errorf("rule score = %d, want 0", got.RuleBasedScore)
	}
	// 0*0.4 + 25*0.6 = 15
	if got.FraudRiskScore != 15 {
		t.Errorf("fused score = %d, want 15", got.FraudRiskScore)
	}
	if got.RiskLevel != domain.RiskLevelLow {
		t.Errorf("risk level = %s, want Low", got.RiskLevel)
	}
}

func TestFuseCardTestingScenario(t *testing.T) {
	analysis := domain.PatternAnalysis{
		SimilarCount: 12,
		UniqueUsers:  8,
		TimeSpanDays: 2,
		AmountRange:  domain.AmountRange{Min: 4.50, Max: 6.20},
	}
	verdict := domain.PatternVerdict{
		Matched:     true,
		PatternName: "Card Testing",
		Severity:    domain.SeverityHigh,
		Confidence:  0.85,
	}
	indicators := domain.RiskIndicators{
		MultipleAccounts:      true,
		AmountClustering:      true,
		HighFraudMatch:        true,
		RequiresInvestigation: true,
	}

	got := Fuse(analysis, verdict, indicators, assessment(85))

	// users>5: 25, count>10: 15, clustering: 20, match: int(30*0.85)=25
	if got.RuleBasedScore != 85 {
		t.Errorf("rule score = %d, want 85", got.RuleBasedScore)
	}
	// int(85*0.4 + 85*0.6) = 85
	if got.FraudRiskScore != 85 {
		t.Errorf("fused score = %d, want 85", got.FraudRiskScore)
	}
	if got.RiskLevel != domain.RiskLevelHigh {
		t.Errorf("risk level = %s, want High", got.RiskLevel)
	}
}

func TestFuseRuleScoreCapped(t *testing.T) {
	analysis := domain.PatternAnalysis{SimilarCount: 20, UniqueUsers: 12}
	verdict := domain.PatternVerdict{Matched: true, Severity: domain.SeverityCritical, Confidence: 1.0}
	indicators := domain.RiskIndicators{
		TimeDilated:      true,
		AmountClustering: true,
		MerchantHopping:  true,
		DeviceSwitching:  true,
	}

	got := Fuse(analysis, verdict, indicators, assessment(100))

	// Raw points: 35+25+20+20+15+15+40 = 170, capped at 100.
	if got.RuleBasedScore != 100 {
		t.Errorf("rule score = %d, want cap 100", got.RuleBasedScore)
	}
	if got.FraudRiskScore != 100 {
		t.Errorf("fused score = %d, want 100", got.FraudRiskScore)
	}
}

func TestFuseSeverityScaling(t *testing.T) {
	tests := []struct {
		severity domain.Severity
		want     int
	}{
		{domain.SeverityCritical, int(40 * 0.8)},
		{domain.SeverityHigh, int(30 * 0.8)},
		{domain.SeverityMedium, int(20 * 0.8)},
		{domain.SeverityLow, int(20 * 0.8)},
	}

	for _, tt := range tests {
		verdict := domain.PatternVerdict{Matched: true, Severity: tt.severity, Confidence: 0.8}
		got := Fuse(domain.PatternAnalysis{}, verdict, domain.RiskIndicators{}, assessment(0))
		if got.RuleBasedScore != tt.want {
			t.Errorf("severity %s: rule score = %d, want %d", tt.severity, got.RuleBasedScore, tt.want)
		}
	}
}

func TestFuseClampsConfidence(t *testing.T) {
	got := Fuse(domain.PatternAnalysis{}, domain.PatternVerdict{}, domain.RiskIndicators{}, assessment(140))
	if got.AssessmentConfidence != 100 {
		t.Errorf("confidence = %d, want clamp 100", got.AssessmentConfidence)
	}

	got = Fuse(domain.PatternAnalysis{}, domain.PatternVerdict{}, domain.RiskIndicators{}, assessment(-5))
	if got.AssessmentConfidence != 0 {
		t.Errorf("confidence = %d, want clamp 0", got.AssessmentConfidence)
	}
}

func TestFuseRiskLevelBoundaries(t *testing.T) {
	// Drive the fused score directly through confidence: score = int(conf*0.6).
	cases := []struct {
		conf      int
		wantLevel string
	}{
		{83, domain.RiskLevelLow},    // int(49.8) = 49
		{84, domain.RiskLevelMedium}, // int(50.4) = 50
		{100, domain.RiskLevelMedium},
	}
	for _, c := range cases {
		got := Fuse(domain.PatternAnalysis{}, domain.PatternVerdict{}, domain.RiskIndicators{}, assessment(c.conf))
		if got.RiskLevel != c.wantLevel {
			t.Errorf("conf %d: level = %s, want %s (score %d)", c.conf, got.RiskLevel, c.wantLevel, got.FraudRiskScore)
		}
	}

	// 75 boundary needs rule points too: rule 100, conf 59 → int(40+35.4)=75.
	verdict := domain.PatternVerdict{Matched: true, Severity: domain.SeverityCritical, Confidence: 1.0}
	analysis := domain.PatternAnalysis{SimilarCount: 20, UniqueUsers: 12}
	indicators := domain.RiskIndicators{TimeDilated: true, AmountClustering: true}
	got := Fuse(analysis, verdict, indicators, assessment(59))
	if got.FraudRiskScore != 75 || got.RiskLevel != domain.RiskLevelHigh {
		t.Errorf("score = %d level = %s, want 75 High", got.FraudRiskScore, got.RiskLevel)
	}
}

func tx() *domain.Transaction {
	return &domain.Transaction{
		ID:        "TXN_100",
		UserHash:  "abcd1234efgh5678",
		Amount:    4.99,
		Timestamp: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestRecommendationsHighRisk(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 85, RiskLevel: domain.RiskLevelHigh}
	analysis := domain.PatternAnalysis{SimilarCount: 12, UniqueUsers: 8}
	a := assessment(85, "Block the card", "Review related accounts")

	got := Recommendations(breakdown, a, tx(), analysis)

	if len(got) != 5 {
		t.Fatalf("expected 5 recommendations, got %d: %v", len(got), got)
	}
	if got[0] != "Block the card" {
		t.Errorf("model recommendations must come first, got %q", got[0])
	}
	if got[2] != "🚨 URGENT: Flag account abcd1234... for immediate review" {
		t.Errorf("unexpected urgent recommendation: %q", got[2])
	}
}

func TestRecommendationsModelCappedAtThree(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 30, RiskLevel: domain.RiskLevelLow}
	a := assessment(30, "one", "two", "three", "four")

	got := Recommendations(breakdown, a, tx(), domain.PatternAnalysis{})

	if got[0] != "one" || got[1] != "two" || got[2] != "three" {
		t.Errorf("expected first three model recommendations, got %v", got)
	}
	for _, rec := range got {
		if rec == "four" {
			t.Error("fourth model recommendation must be dropped")
		}
	}
}

func TestRecommendationsLowRisk(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 15, RiskLevel: domain.RiskLevelLow}

	got := Recommendations(breakdown, assessment(25), tx(), domain.PatternAnalysis{})

	want := []string{
		"Continue normal monitoring",
		"No immediate action required",
		"Log for historical pattern analysis",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rec[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRecommendationsDeduplicates(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 15, RiskLevel: domain.RiskLevelLow}
	a := assessment(25, "Continue normal monitoring")

	got := Recommendations(breakdown, a, tx(), domain.PatternAnalysis{})

	count := 0
	for _, rec := range got {
		if rec == "Continue normal monitoring" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate not removed: %v", got)
	}
	if got[0] != "Continue normal monitoring" {
		t.Errorf("first occurrence must keep its position: %v", got)
	}
}

func TestRecommendationsVolumeFollowupAndCap(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 55, RiskLevel: domain.RiskLevelMedium}
	analysis := domain.PatternAnalysis{SimilarCount: 14, UniqueUsers: 9}

	got := Recommendations(breakdown, assessment(55), tx(), analysis)

	if len(got) != 5 {
		t.Fatalf("expected cap of 5, got %d: %v", len(got), got)
	}
	// The volume followup ranks after the five tier actions, so it is cut.
	for _, rec := range got {
		if strings.HasPrefix(rec, "Investigate 14 similar") {
			t.Error("volume followup should have been cut by the cap")
		}
	}
}

func TestExplanation(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 85, RiskLevel: domain.RiskLevelHigh}
	analysis := domain.PatternAnalysis{SimilarCount: 12, UniqueUsers: 8, TimeSpanDays: 2}
	verdict := domain.PatternVerdict{
		Matched:     true,
		PatternName: "Card Testing",
		Severity:    domain.SeverityHigh,
		Confidence:  0.85,
	}

	got := Explanation(breakdown, analysis, verdict, assessment(85))

	want := "Fraud risk score: 85/100 (High Risk). " +
		"Found 12 similar transactions across 8 different accounts over 2 days. " +
		"Matches known 'Card Testing' pattern (High severity) with 85% confidence. " +
		"Model reasoning."
	if got != want {
		t.Errorf("explanation:\n got %q\nwant %q", got, want)
	}
}

func TestComposeAlert(t *testing.T) {
	breakdown := domain.ScoreBreakdown{
		FraudRiskScore:       85,
		RiskLevel:            domain.RiskLevelHigh,
		RuleBasedScore:       85,
		AssessmentConfidence: 85,
	}
	analysis := domain.PatternAnalysis{SimilarCount: 12, UniqueUsers: 8, TimeSpanDays: 2, AvgSimilarity: 0.91}
	verdict := domain.PatternVerdict{Matched: true, PatternName: "Card Testing", Severity: domain.SeverityHigh, Confidence: 0.85}
	recs := []string{"Block the card"}

	alert := ComposeAlert(tx(), breakdown, analysis, verdict, assessment(85), recs, []string{"night_owl"})

	if alert.ID == "" {
		t.Error("alert must get an id")
	}
	if alert.TransactionID != "TXN_100" {
		t.Errorf("transaction id = %s", alert.TransactionID)
	}
	if alert.Status != domain.AlertStatusFlagged {
		t.Errorf("status = %s, want flagged", alert.Status)
	}
	if alert.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", alert.Confidence)
	}
	if alert.BehavioralAnalysis.KnownFraudPattern != "Card Testing" {
		t.Errorf("known pattern = %s", alert.BehavioralAnalysis.KnownFraudPattern)
	}
	if alert.BehavioralAnalysis.AccountsInvolved != 8 {
		t.Errorf("accounts = %d", alert.BehavioralAnalysis.AccountsInvolved)
	}
	if len(alert.PolicyHits) != 1 || alert.PolicyHits[0] != "night_owl" {
		t.Errorf("policy hits = %v", alert.PolicyHits)
	}
}

func TestComposeAlertMonitorStatusAndDefaults(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 69, RiskLevel: domain.RiskLevelMedium}
	a := &domain.Assessment{Confidence: 25}

	alert := ComposeAlert(tx(), breakdown, domain.PatternAnalysis{}, domain.PatternVerdict{}, a, nil, nil)

	if alert.Status != domain.AlertStatusMonitor {
		t.Errorf("status = %s, want monitor", alert.Status)
	}
	if alert.BehavioralAnalysis.KnownFraudPattern != "None detected" {
		t.Errorf("known pattern = %s", alert.BehavioralAnalysis.KnownFraudPattern)
	}
	if alert.InvestigationNotes != "No investigation performed" {
		t.Errorf("notes = %s", alert.InvestigationNotes)
	}
}

func TestComposeAlertFlagBoundary(t *testing.T) {
	breakdown := domain.ScoreBreakdown{FraudRiskScore: 70, RiskLevel: domain.RiskLevelMedium}
	alert := ComposeAlert(tx(), breakdown, domain.PatternAnalysis{}, domain.PatternVerdict{}, assessment(70), nil, nil)
	if alert.Status != domain.AlertStatusFlagged {
		t.Errorf("score 70 must flag, got %s", alert.Status)
	}
}
