// Package detect derives behavioral pattern analysis and risk indicators
// from similarity search results.
//
// Everything here is a pure derivation: the functions take search results
// in, produce analysis out, and touch no storage. That keeps the exact
// threshold behavior trivially testable.
package detect

import (
	"fmt"
	"strings"

	"github.com/finguard-labs/finguard/internal/domain"
)

// Distance below which a neighbor counts as high-similarity. A cosine
// distance under 0.30 corresponds to similarity above 0.70.
const highSimilarityDistance = 0.30

// Similarity above which a catalog entry counts as a confirmed match.
const patternMatchThreshold = 0.70

// AnalyzeNeighbors filters the history search results down to
// high-similarity neighbors and aggregates their behavioral statistics.
// Neighbors at or beyond the similarity cutoff are discarded entirely.
func AnalyzeNeighbors(neighbors []domain.NeighborResult) domain.PatternAnalysis {
	var close []domain.NeighborResult
	for _, n := range neighbors {
		if n.Distance < highSimilarityDistance {
			close = append(close, n)
		}
	}

	if len(close) == 0 {
		return domain.PatternAnalysis{}
	}

	users := make(map[string]struct{})
	merchants := make(map[string]struct{})
	devices := make(map[string]struct{})

	var distanceSum float64
	amountMin := close[0].Tx.Amount
	amountMax := close[0].Tx.Amount
	var amountSum float64
	earliest := close[0].Tx.Timestamp
	latest := close[0].Tx.Timestamp

	for _, n := range close {
		users[n.Tx.UserHash] = struct{}{}
		merchants[n.Tx.MerchantCategory] = struct{}{}
		devices[n.Tx.DeviceType] = struct{}{}

		distanceSum += n.Distance
		amountSum += n.Tx.Amount
		if n.Tx.Amount < amountMin {
			amountMin = n.Tx.Amount
		}
		if n.Tx.Amount > amountMax {
			amountMax = n.Tx.Amount
		}
		if n.Tx.Timestamp.Before(earliest) {
			earliest = n.Tx.Timestamp
		}
		if n.Tx.Timestamp.After(latest) {
			latest = n.Tx.Timestamp
		}
	}

	timeSpanDays := 0
	if len(close) > 1 {
		timeSpanDays = int(latest.Sub(earliest).Hours() / 24)
	}

	return domain.PatternAnalysis{
		SimilarCount:  len(close),
		UniqueUsers:   len(users),
		AvgSimilarity: 1 - distanceSum/float64(len(close)),
		TimeSpanDays:  timeSpanDays,
		AmountRange: domain.AmountRange{
			Min: amountMin,
			Max: amountMax,
			Avg: amountSum / float64(len(close)),
		},
		MerchantDiversity: len(merchants),
		DeviceDiversity:   len(devices),
	}
}

// MatchPattern turns the ranked catalog results into a verdict. Only the
// best (lowest distance) entry is considered; it counts as a match when
// its similarity exceeds the threshold, strictly.
func MatchPattern(matches []domain.PatternMatch) domain.PatternVerdict {
	if len(matches) == 0 {
		return domain.PatternVerdict{}
	}

	best := matches[0]
	confidence := 1 - best.Distance

	return domain.PatternVerdict{
		Matched:     confidence > patternMatchThreshold,
		PatternName: best.Name,
		Description: best.Description,
		Severity:    best.Severity,
		Confidence:  confidence,
	}
}

// ExtractIndicators derives the named risk signals from the aggregate
// analysis and the catalog verdict.
func ExtractIndicators(analysis domain.PatternAnalysis, verdict domain.PatternVerdict) domain.RiskIndicators {
	ind := domain.RiskIndicators{}

	if analysis.UniqueUsers > 5 {
		ind.MultipleAccounts = true
	}
	if analysis.TimeSpanDays > 7 && analysis.SimilarCount > 5 {
		ind.TimeDilated = true
	}
	if analysis.SimilarCount > 3 && analysis.AmountRange.Max-analysis.AmountRange.Min < 20 {
		ind.AmountClustering = true
	}
	if verdict.Matched {
		ind.HighFraudMatch = true
	}
	if analysis.MerchantDiversity > 5 {
		ind.MerchantHopping = true
	}
	if analysis.DeviceDiversity > 2 {
		ind.DeviceSwitching = true
	}

	ind.RequiresInvestigation = ind.MultipleAccounts ||
		ind.HighFraudMatch ||
		ind.TimeDilated ||
		analysis.SimilarCount > 10

	return ind
}

// Summary renders a human-readable one-paragraph account of the detection
// results.
func Summary(analysis domain.PatternAnalysis, verdict domain.PatternVerdict, indicators domain.RiskIndicators) string {
	var parts []string

	if analysis.SimilarCount > 0 {
		parts = append(parts, fmt.Sprintf(
			"Found %d similar transactions across %d accounts spanning %d days",
			analysis.SimilarCount, analysis.UniqueUsers, analysis.TimeSpanDays))
	}

	if verdict.Matched {
		parts = append(parts, fmt.Sprintf(
			"Matches known '%s' pattern (%s severity, %.0f%% confidence)",
			verdict.PatternName, verdict.Severity, verdict.Confidence*100))
	}

	if names := indicators.ActiveNames(); len(names) > 0 {
		parts = append(parts, "Risk indicators: "+strings.Join(names, ", "))
	}

	if len(parts) == 0 {
		return "No significant patterns detected"
	}
	return strings.Join(parts, ". ")
}
