package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finguard-labs/finguard/internal/domain"
)

// TransactionReceivedEvent is published when a raw transaction is accepted
// for asynchronous scoring.
type TransactionReceivedEvent struct {
	Raw *domain.RawTransaction `json:"raw"`
}

// TransactionScoredEvent is published after the pipeline scores a
// transaction.
type TransactionScoredEvent struct {
	TransactionID  string `json:"transaction_id"`
	AlertID        string `json:"alert_id"`
	FraudRiskScore int    `json:"fraud_risk_score"`
	RiskLevel      string `json:"risk_level"`
	Status         string `json:"status"`
}

// AlertFlaggedEvent is published when an alert crosses the review
// threshold.
type AlertFlaggedEvent struct {
	AlertID        string `json:"alert_id"`
	TransactionID  string `json:"transaction_id"`
	FraudRiskScore int    `json:"fraud_risk_score"`
	RiskLevel      string `json:"risk_level"`
}

// PublishJSON marshals an event and publishes it on the given topic.
func PublishJSON(ctx context.Context, eb domain.EventBus, tenantID, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", topic, err)
	}
	return eb.Publish(ctx, tenantID, topic, payload)
}
