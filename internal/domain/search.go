package domain

import (
	"context"
)

// VectorSearch is the similarity-search contract the detection engine
// depends on. Implementations MUST return results in ascending distance
// order; the detection engine assumes that ordering and does not re-sort.
type VectorSearch interface {
	// SearchHistory finds the closest stored transactions to the query
	// vector, prefiltered to the given recency window before ranking.
	SearchHistory(ctx context.Context, tenantID string, vector []float32, limit int, windowDays int) ([]NeighborResult, error)

	// SearchPatterns ranks the known-pattern catalog against the query
	// vector.
	SearchPatterns(ctx context.Context, vector []float32, limit int) ([]PatternMatch, error)
}

// Investigator is the external forensic-assessment contract. Investigate
// never fails outright: implementations recover model errors and malformed
// responses with a deterministic fallback and report the source on the
// returned assessment.
type Investigator interface {
	Investigate(ctx context.Context, tx *Transaction, analysis PatternAnalysis, verdict PatternVerdict, indicators RiskIndicators) (*Assessment, error)
}
