// Package domain defines the core interfaces and types for FinGuard.
package domain

import (
	"fmt"
	"time"
)

// RawTransaction is an incoming transaction exactly as the banking system
// submits it. All fields are required; ingestion validates and anonymizes
// before anything else sees the record.
type RawTransaction struct {
	TransactionID string  `json:"transaction_id"`
	UserID        string  `json:"user_id"`
	Amount        float64 `json:"amount"`
	Merchant      string  `json:"merchant"`
	Location      string  `json:"location"`
	Timestamp     string  `json:"timestamp"`
	Device        string  `json:"device"`
	PaymentMethod string  `json:"payment_method"`
}

// Transaction is the normalized, anonymized form of a transaction.
// It carries no PII: the user identifier is a one-way hash, the merchant
// is reduced to a category, and the location to a city name.
// Immutable once produced by ingestion.
type Transaction struct {
	ID                string    `json:"transaction_id"`
	UserHash          string    `json:"user_hash"`
	Amount            float64   `json:"amount"`
	MerchantCategory  string    `json:"merchant_category"`
	LocationCity      string    `json:"location_city"`
	DeviceType        string    `json:"device_type"`
	PaymentMethodType string    `json:"payment_method_type"`
	Timestamp         time.Time `json:"timestamp"`
	HourOfDay         int       `json:"hour_of_day"`
	DayOfWeek         string    `json:"day_of_week"`
}

// StoredTransaction is a transaction as persisted in the history store,
// including its behavioral embedding and, once scored, the risk fields.
type StoredTransaction struct {
	Transaction

	BehaviorText string    `json:"behavior_text"`
	Vector       []float32 `json:"vector"`

	FraudScore         *float64 `json:"fraud_score,omitempty"`
	RiskLevel          string   `json:"risk_level,omitempty"`
	IsFlagged          bool     `json:"is_flagged"`
	InvestigationNotes string   `json:"investigation_notes,omitempty"`
}

// ValidationError reports a malformed or incomplete raw transaction.
// Fatal for the transaction in question; batch processing skips it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transaction: field %q %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid transaction: missing required field %q", e.Field)
}
