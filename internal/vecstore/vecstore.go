// Package vecstore provides similarity search over stored transaction
// vectors and the known-pattern catalog.
//
// Search is a brute-force scan: candidates are prefiltered by recency in
// SQL, then ranked by cosine distance in memory. At the catalog sizes and
// history windows involved this is fast enough that an ANN index would be
// premature.
package vecstore

import (
	"context"
	"log/slog"
	"sort"

	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/vectorize"
)

// Store ranks stored vectors against query vectors.
type Store struct {
	repo   domain.Repository
	cfg    domain.SearchConfig
	logger *slog.Logger
}

// New creates a vector store backed by the given repository.
func New(repo domain.Repository, cfg domain.SearchConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// SearchHistory finds the closest stored transactions to the query vector
// within the recency window. Results come back in ascending distance order.
// Search failures degrade to an empty result set so a storage hiccup never
// blocks scoring.
func (s *Store) SearchHistory(ctx context.Context, tenantID string, vector []float32, limit int, windowDays int) ([]domain.NeighborResult, error) {
	since := windowStart(windowDays)

	candidates, err := s.repo.ListTransactionsSince(ctx, tenantID, since, s.cfg.MaxCandidates)
	if err != nil {
		s.logger.Warn("history search failed, returning no neighbors",
			"tenant_id", tenantID,
			"error", err)
		return nil, nil
	}

	results := make([]domain.NeighborResult, 0, len(candidates))
	for _, tx := range candidates {
		if len(tx.Vector) == 0 {
			continue
		}
		results = append(results, domain.NeighborResult{
			Tx:       *tx,
			Distance: vectorize.CosineDistance(vector, tx.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SearchPatterns ranks the known-pattern catalog against the query vector,
// ascending by distance. Catalog read failures degrade to no matches.
func (s *Store) SearchPatterns(ctx context.Context, vector []float32, limit int) ([]domain.PatternMatch, error) {
	patterns, err := s.repo.ListPatterns(ctx)
	if err != nil {
		s.logger.Warn("pattern search failed, returning no matches", "error", err)
		return nil, nil
	}

	matches := make([]domain.PatternMatch, 0, len(patterns))
	for _, p := range patterns {
		if len(p.Vector) == 0 {
			continue
		}
		matches = append(matches, domain.PatternMatch{
			Name:        p.Name,
			Description: p.Description,
			Severity:    p.Severity,
			Distance:    vectorize.CosineDistance(vector, p.Vector),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
