package investigate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finguard-labs/finguard/internal/domain"
)

// rawAssessment mirrors the JSON shape requested from the model. Pointer
// fields distinguish "missing" from zero values; confidence and
// recommendations stay raw because models return them in several shapes.
type rawAssessment struct {
	IsFraud         *bool           `json:"is_fraud"`
	Confidence      *float64        `json:"confidence"`
	FraudType       *string         `json:"fraud_type"`
	Reasoning       *string         `json:"reasoning"`
	Recommendations json.RawMessage `json:"recommendations"`
}

// parseResponse extracts and validates an assessment from a model reply.
// It tolerates markdown code fences and surrounding prose.
func parseResponse(text string) (*domain.Assessment, error) {
	text = strings.TrimSpace(text)

	// Try each fenced block first when fences are present.
	if strings.Contains(text, "```") {
		for _, part := range strings.Split(text, "```") {
			part = strings.TrimSpace(part)
			part = strings.TrimPrefix(part, "json")
			part = strings.TrimSpace(part)
			if a, err := decodeAssessment(part); err == nil {
				return a, nil
			}
		}
	}

	if a, err := decodeAssessment(text); err == nil {
		return a, nil
	}

	// Last resort: the outermost brace-delimited span.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if a, err := decodeAssessment(text[start : end+1]); err == nil {
			return a, nil
		}
	}

	return nil, fmt.Errorf("no valid assessment JSON in model response")
}

func decodeAssessment(text string) (*domain.Assessment, error) {
	var raw rawAssessment
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}

	switch {
	case raw.IsFraud == nil:
		return nil, fmt.Errorf("missing required field: is_fraud")
	case raw.Confidence == nil:
		return nil, fmt.Errorf("missing required field: confidence")
	case raw.FraudType == nil:
		return nil, fmt.Errorf("missing required field: fraud_type")
	case raw.Reasoning == nil:
		return nil, fmt.Errorf("missing required field: reasoning")
	case len(raw.Recommendations) == 0:
		return nil, fmt.Errorf("missing required field: recommendations")
	}

	// Models sometimes answer on a 0-1 scale instead of 0-100.
	confidence := *raw.Confidence
	if confidence <= 1.0 {
		confidence *= 100
	}

	recs, err := decodeRecommendations(raw.Recommendations)
	if err != nil {
		return nil, err
	}

	return &domain.Assessment{
		IsFraud:         *raw.IsFraud,
		Confidence:      int(confidence),
		FraudType:       *raw.FraudType,
		Reasoning:       *raw.Reasoning,
		Recommendations: recs,
	}, nil
}

// decodeRecommendations accepts either a JSON array of strings or a single
// string.
func decodeRecommendations(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	return nil, fmt.Errorf("recommendations must be a string or list of strings")
}
