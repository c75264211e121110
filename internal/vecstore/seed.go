package vecstore

import (
	"context"
	"time"

	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/vectorize"
)

// windowStart returns the lower bound of a recency window in UTC. A
// non-positive window means no lower bound.
func windowStart(windowDays int) time.Time {
	if windowDays <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -windowDays)
}

// knownPatterns is the catalog of fraud modus operandi the engine matches
// against. Each description is embedded at seed time into the same vector
// space as transaction behavior text.
var knownPatterns = []struct {
	id          string
	name        string
	description string
	severity    domain.Severity
}{
	{
		id:          "PATTERN_001",
		name:        "Card Testing",
		description: "Multiple small transactions under $50 across different merchants within short time, testing stolen card validity before larger purchases",
		severity:    domain.SeverityHigh,
	},
	{
		id:          "PATTERN_002",
		name:        "Account Takeover",
		description: "Sudden change in transaction behavior with new device, different location, unusual merchants, password reset followed by purchases",
		severity:    domain.SeverityCritical,
	},
	{
		id:          "PATTERN_003",
		name:        "Low-and-Slow Exfiltration",
		description: "Small recurring transactions over weeks, barely below detection thresholds, targeting multiple accounts with coordinated timing",
		severity:    domain.SeverityMedium,
	},
	{
		id:          "PATTERN_004",
		name:        "Velocity Attack",
		description: "Rapid succession of transactions across multiple accounts within hours, coordinated fraud with same IP cluster or device fingerprint",
		severity:    domain.SeverityHigh,
	},
	{
		id:          "PATTERN_005",
		name:        "Synthetic Identity Fraud",
		description: "Gradual legitimate-looking transactions building trust over months, then sudden large purchases or cash advances",
		severity:    domain.SeverityMedium,
	},
}

// SeedPatterns embeds the built-in pattern catalog and stores it through
// the repository. Idempotent; the repository upserts by pattern id.
func (s *Store) SeedPatterns(ctx context.Context) error {
	now := time.Now().UTC()

	patterns := make([]*domain.FraudPattern, 0, len(knownPatterns))
	for _, kp := range knownPatterns {
		patterns = append(patterns, &domain.FraudPattern{
			ID:          kp.id,
			Name:        kp.name,
			Description: kp.description,
			Severity:    kp.severity,
			Vector:      vectorize.Embed(kp.description),
			CreatedAt:   now,
		})
	}

	if err := s.repo.SeedPatterns(ctx, patterns); err != nil {
		return err
	}

	s.logger.Info("seeded fraud pattern catalog", "patterns", len(patterns))
	return nil
}
