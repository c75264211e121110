package investigate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finguard-labs/finguard/internal/domain"
)

// scriptedGenerator returns queued responses, then errors.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("no more scripted responses")
}

func suspiciousIndicators() domain.RiskIndicators {
	return domain.RiskIndicators{
		MultipleAccounts:      true,
		HighFraudMatch:        true,
		RequiresInvestigation: true,
	}
}

func testTx() *domain.Transaction {
	return &domain.Transaction{
		ID:                "TXN_100",
		Amount:            4.99,
		MerchantCategory:  "online",
		LocationCity:      "Dallas",
		DeviceType:        "mobile",
		PaymentMethodType: "credit_card",
		HourOfDay:         3,
		DayOfWeek:         "Tuesday",
	}
}

func testConfig() domain.InvestigatorConfig {
	return domain.InvestigatorConfig{Model: "gemini-2.0-flash", MaxAttempts: 2}
}

const validReply = `{
  "is_fraud": true,
  "confidence": 85,
  "fraud_type": "Card Testing",
  "reasoning": "Tight amount clustering across many accounts.",
  "recommendations": ["Block the card", "Review related accounts"]
}`

func TestInvestigateSkipsWhenNotWarranted(t *testing.T) {
	gen := &scriptedGenerator{}
	inv := New(gen, testConfig(), nil)

	got, err := inv.Investigate(context.Background(), testTx(), domain.PatternAnalysis{}, domain.PatternVerdict{}, domain.RiskIndicators{})
	if err != nil {
		t.Fatalf("investigate failed: %v", err)
	}
	if gen.calls != 0 {
		t.Error("no model call expected when investigation is not warranted")
	}
	if got.Source != domain.AssessmentSourceSkipped {
		t.Errorf("source = %s, want skipped", got.Source)
	}
	if got.IsFraud || got.Confidence != 25 || got.FraudType != "Legitimate" {
		t.Errorf("unexpected skip default: %+v", got)
	}
	if got.Reasoning != "No significant risk indicators detected" {
		t.Errorf("reasoning = %q", got.Reasoning)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0] != "Continue monitoring" {
		t.Errorf("recommendations = %v", got.Recommendations)
	}
}

func TestInvestigateModelSuccess(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{validReply}}
	inv := New(gen, testConfig(), nil)

	got, err := inv.Investigate(context.Background(), testTx(), domain.PatternAnalysis{}, domain.PatternVerdict{}, suspiciousIndicators())
	if err != nil {
		t.Fatalf("investigate failed: %v", err)
	}
	if got.Source != domain.AssessmentSourceModel {
		t.Errorf("source = %s, want model", got.Source)
	}
	if !got.IsFraud || got.Confidence != 85 || got.FraudType != "Card Testing" {
		t.Errorf("unexpected assessment: %+v", got)
	}
}

func TestInvestigateRetriesThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{
		errs:      []error{errors.New("timeout"), nil},
		responses: []string{"", validReply},
	}
	inv := New(gen, testConfig(), nil)

	got, err := inv.Investigate(context.Background(), testTx(), domain.PatternAnalysis{}, domain.PatternVerdict{}, suspiciousIndicators())
	if err != nil {
		t.Fatalf("investigate failed: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", gen.calls)
	}
	if got.Source != domain.AssessmentSourceModel {
		t.Errorf("source = %s, want model", got.Source)
	}
}

func TestInvestigateFallsBackAfterExhaustedAttempts(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{errors.New("down"), errors.New("still down")},
	}
	inv := New(gen, testConfig(), nil)

	verdict := domain.PatternVerdict{Matched: true, PatternName: "Card Testing"}

	got, err := inv.Investigate(context.Background(), testTx(), domain.PatternAnalysis{}, verdict, suspiciousIndicators())
	if err != nil {
		t.Fatalf("investigate must not fail: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", gen.calls)
	}
	if got.Source != domain.AssessmentSourceFallback {
		t.Errorf("source = %s, want fallback", got.Source)
	}
}

func TestInvestigateNilGeneratorUsesFallback(t *testing.T) {
	inv := New(nil, testConfig(), nil)

	got, err := inv.Investigate(context.Background(), testTx(), domain.PatternAnalysis{}, domain.PatternVerdict{}, suspiciousIndicators())
	if err != nil {
		t.Fatalf("investigate failed: %v", err)
	}
	if got.Source != domain.AssessmentSourceFallback {
		t.Errorf("source = %s, want fallback", got.Source)
	}
}

func TestFallback(t *testing.T) {
	indicators := domain.RiskIndicators{
		MultipleAccounts: true,
		AmountClustering: true,
		HighFraudMatch:   true,
	}
	verdict := domain.PatternVerdict{Matched: true, PatternName: "Card Testing"}

	got := Fallback(indicators, verdict)

	if !got.IsFraud {
		t.Error("3 indicators should mean fraud")
	}
	// 3 indicators * 20 + 30 for the match = 90
	if got.Confidence != 90 {
		t.Errorf("confidence = %d, want 90", got.Confidence)
	}
	if got.FraudType != "Card Testing" {
		t.Errorf("fraud type = %s", got.FraudType)
	}
	want := "Rule-based assessment: 3 risk indicators detected. Matches Card Testing pattern. LLM analysis unavailable, using fallback logic."
	if got.Reasoning != want {
		t.Errorf("reasoning = %q, want %q", got.Reasoning, want)
	}
	if len(got.Recommendations) != 4 || got.Recommendations[3] != "Consider temporary account hold" {
		t.Errorf("recommendations = %v", got.Recommendations)
	}
}

func TestFallbackConfidenceCapped(t *testing.T) {
	indicators := domain.RiskIndicators{
		MultipleAccounts: true,
		TimeDilated:      true,
		AmountClustering: true,
		HighFraudMatch:   true,
		MerchantHopping:  true,
		DeviceSwitching:  true,
	}
	got := Fallback(indicators, domain.PatternVerdict{Matched: true, PatternName: "Velocity Attack"})
	if got.Confidence != 90 {
		t.Errorf("confidence = %d, want cap 90", got.Confidence)
	}
}

func TestFallbackQuietTransaction(t *testing.T) {
	got := Fallback(domain.RiskIndicators{}, domain.PatternVerdict{})

	if got.IsFraud {
		t.Error("no indicators and no match should not be fraud")
	}
	if got.Confidence != 0 {
		t.Errorf("confidence = %d, want 0", got.Confidence)
	}
	if got.FraudType != "Unknown" {
		t.Errorf("fraud type = %s, want Unknown", got.FraudType)
	}
	if len(got.Recommendations) != 3 {
		t.Errorf("recommendations = %v", got.Recommendations)
	}
}

func TestParseResponseFenced(t *testing.T) {
	fenced := "```json\n" + validReply + "\n```"

	got, err := parseResponse(fenced)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !got.IsFraud || got.Confidence != 85 {
		t.Errorf("unexpected assessment: %+v", got)
	}
}

func TestParseResponseEmbeddedInProse(t *testing.T) {
	prose := "Here is my assessment.\n" + validReply + "\nLet me know if you need more."

	got, err := parseResponse(prose)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got.FraudType != "Card Testing" {
		t.Errorf("fraud type = %s", got.FraudType)
	}
}

func TestParseResponseFractionalConfidence(t *testing.T) {
	reply := `{"is_fraud": true, "confidence": 0.85, "fraud_type": "Card Testing", "reasoning": "r", "recommendations": ["a"]}`

	got, err := parseResponse(reply)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got.Confidence != 85 {
		t.Errorf("confidence = %d, want 85", got.Confidence)
	}
}

func TestParseResponseStringRecommendations(t *testing.T) {
	reply := `{"is_fraud": false, "confidence": 40, "fraud_type": "Legitimate", "reasoning": "r", "recommendations": "Keep monitoring"}`

	got, err := parseResponse(reply)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0] != "Keep monitoring" {
		t.Errorf("recommendations = %v", got.Recommendations)
	}
}

func TestParseResponseMissingField(t *testing.T) {
	reply := `{"is_fraud": true, "confidence": 85, "reasoning": "r", "recommendations": ["a"]}`

	if _, err := parseResponse(reply); err == nil {
		t.Fatal("expected error for missing fraud_type")
	}
}

func TestParseResponseGarbage(t *testing.T) {
	if _, err := parseResponse("I cannot help with that."); err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
}

func TestBuildPromptContents(t *testing.T) {
	analysis := domain.PatternAnalysis{
		SimilarCount:  12,
		UniqueUsers:   8,
		TimeSpanDays:  2,
		AvgSimilarity: 0.91,
		AmountRange:   domain.AmountRange{Min: 4.50, Max: 6.20},
	}
	verdict := domain.PatternVerdict{
		Matched:     true,
		PatternName: "Card Testing",
		Severity:    domain.SeverityHigh,
		Description: "desc",
		Confidence:  0.85,
	}

	prompt := buildPrompt(testTx(), analysis, verdict, suspiciousIndicators())

	for _, want := range []string{
		"Transaction ID: TXN_100",
		"Amount: $4.99",
		"Similar transactions found: 12",
		"Matched known pattern: Card Testing",
		"Respond ONLY with valid JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptNoMatch(t *testing.T) {
	prompt := buildPrompt(testTx(), domain.PatternAnalysis{}, domain.PatternVerdict{}, suspiciousIndicators())

	if !strings.Contains(prompt, "Matched known pattern: None") {
		t.Error("expected None placeholder for unmatched pattern")
	}
	if !strings.Contains(prompt, "Pattern severity: N/A") {
		t.Error("expected N/A placeholder for severity")
	}
}
