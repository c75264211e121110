package investigate

import (
	"fmt"

	"github.com/finguard-labs/finguard/internal/domain"
)

// buildPrompt renders the structured investigation prompt. The model is
// told to answer with strict JSON; parseResponse still defends against
// markdown fences and stray prose.
func buildPrompt(tx *domain.Transaction, analysis domain.PatternAnalysis, verdict domain.PatternVerdict, indicators domain.RiskIndicators) string {
	patternName := verdict.PatternName
	if patternName == "" {
		patternName = "None"
	}
	severity := string(verdict.Severity)
	if severity == "" {
		severity = "N/A"
	}
	description := verdict.Description
	if description == "" {
		description = "N/A"
	}

	return fmt.Sprintf(`You are an expert fraud detection AI agent conducting a forensic analysis of a financial transaction.

TRANSACTION UNDER INVESTIGATION:
- Transaction ID: %s
- Amount: $%.2f
- Merchant Category: %s
- Device Type: %s
- Location: %s
- Time: %d:00 on %s
- Payment Method: %s

PATTERN ANALYSIS FINDINGS:
- Similar transactions found: %d
- Different accounts involved: %d
- Time span of pattern: %d days
- Average similarity score: %.2f%%
- Amount range: $%.2f - $%.2f

FRAUD PATTERN MATCH:
- Matched known pattern: %s
- Match confidence: %.2f%%
- Pattern severity: %s
- Description: %s

RISK INDICATORS DETECTED:
- Multiple accounts involved: %t
- Time-dilated attack pattern: %t
- Amount clustering (card testing): %t
- High fraud pattern match: %t
- Merchant hopping detected: %t
- Device switching detected: %t

YOUR TASK:
As a fraud investigator, analyze this information and provide your assessment in JSON format:

{
  "is_fraud": true or false,
  "confidence": 0-100 (your confidence level),
  "fraud_type": "Card Testing" | "Account Takeover" | "Low-and-Slow" | "Velocity Attack" | "Legitimate" | "Unknown",
  "reasoning": "2-3 sentences explaining why you believe this is or isn't fraud",
  "recommendations": ["action 1", "action 2", "action 3"]
}

IMPORTANT: Respond ONLY with valid JSON, no markdown formatting, no extra text.
`,
		tx.ID,
		tx.Amount,
		tx.MerchantCategory,
		tx.DeviceType,
		tx.LocationCity,
		tx.HourOfDay,
		tx.DayOfWeek,
		tx.PaymentMethodType,
		analysis.SimilarCount,
		analysis.UniqueUsers,
		analysis.TimeSpanDays,
		analysis.AvgSimilarity*100,
		analysis.AmountRange.Min,
		analysis.AmountRange.Max,
		patternName,
		verdict.Confidence*100,
		severity,
		description,
		indicators.MultipleAccounts,
		indicators.TimeDilated,
		indicators.AmountClustering,
		indicators.HighFraudMatch,
		indicators.MerchantHopping,
		indicators.DeviceSwitching,
	)
}
