// Package ingest normalizes and anonymizes incoming transactions.
//
// Privacy guarantees: user identifiers are one-way hashed, merchants are
// reduced to broad categories, locations to city names, and devices and
// payment methods to coarse types. Nothing downstream sees raw PII.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/finguard-labs/finguard/internal/domain"
)

// HashUserID produces an irreversible 16-character identifier for a user.
func HashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:16]
}

// merchantCategories maps broad categories to the keywords that select
// them. Evaluated in order; the first category with a matching keyword
// wins.
var merchantCategories = []struct {
	name     string
	keywords []string
}{
	{"electronics", []string{"electronics", "tech", "gadget", "computer", "phone", "tablet"}},
	{"grocery", []string{"grocery", "food", "market", "supermarket", "store"}},
	{"retail", []string{"retail", "shop", "clothing", "fashion", "apparel"}},
	{"online", []string{"online", "web", "internet", "ecommerce", "amazon"}},
	{"travel", []string{"airline", "hotel", "travel", "booking", "flight"}},
	{"entertainment", []string{"movie", "game", "entertainment", "streaming", "music"}},
	{"restaurant", []string{"restaurant", "cafe", "coffee", "dining", "pizza", "burger"}},
	{"gas", []string{"gas", "fuel", "petrol", "station"}},
	{"pharmacy", []string{"pharmacy", "drug", "cvs", "walgreens", "medicine"}},
	{"home", []string{"home", "depot", "hardware", "garden", "furniture"}},
}

// CategorizeMerchant reduces a merchant name to a broad category.
func CategorizeMerchant(merchant string) string {
	lower := strings.ToLower(merchant)
	for _, cat := range merchantCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}
	return "other"
}

// DeviceType reduces a device description to a coarse type.
func DeviceType(device string) string {
	lower := strings.ToLower(device)
	switch {
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "android"), strings.Contains(lower, "samsung"):
		return "mobile"
	case strings.Contains(lower, "ipad"), strings.Contains(lower, "tablet"):
		return "tablet"
	case strings.Contains(lower, "mac"), strings.Contains(lower, "windows"), strings.Contains(lower, "laptop"):
		return "desktop"
	default:
		return "unknown"
	}
}

// PaymentType reduces a payment method description to a coarse type.
func PaymentType(paymentMethod string) string {
	lower := strings.ToLower(paymentMethod)
	switch {
	case strings.Contains(lower, "credit"):
		return "credit_card"
	case strings.Contains(lower, "debit"):
		return "debit_card"
	case strings.Contains(lower, "paypal"):
		return "paypal"
	case strings.Contains(lower, "venmo"), strings.Contains(lower, "zelle"):
		return "p2p"
	default:
		return "other"
	}
}

// ParseTimestamp parses an RFC 3339 timestamp. Malformed timestamps fall
// back to the current time rather than failing the transaction.
func ParseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}

// Validate checks that every required raw field is present.
func Validate(raw *domain.RawTransaction) error {
	switch {
	case raw.TransactionID == "":
		return &domain.ValidationError{Field: "transaction_id"}
	case raw.UserID == "":
		return &domain.ValidationError{Field: "user_id"}
	case raw.Amount <= 0:
		return &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	case raw.Merchant == "":
		return &domain.ValidationError{Field: "merchant"}
	case raw.Location == "":
		return &domain.ValidationError{Field: "location"}
	case raw.Timestamp == "":
		return &domain.ValidationError{Field: "timestamp"}
	case raw.Device == "":
		return &domain.ValidationError{Field: "device"}
	case raw.PaymentMethod == "":
		return &domain.ValidationError{Field: "payment_method"}
	}
	return nil
}

// Normalize validates and anonymizes a raw transaction.
func Normalize(raw *domain.RawTransaction) (*domain.Transaction, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}

	ts := ParseTimestamp(raw.Timestamp)

	city := raw.Location
	if idx := strings.Index(city, ","); idx >= 0 {
		city = city[:idx]
	}
	city = strings.TrimSpace(city)

	return &domain.Transaction{
		ID:                raw.TransactionID,
		UserHash:          HashUserID(raw.UserID),
		Amount:            raw.Amount,
		MerchantCategory:  CategorizeMerchant(raw.Merchant),
		LocationCity:      city,
		DeviceType:        DeviceType(raw.Device),
		PaymentMethodType: PaymentType(raw.PaymentMethod),
		Timestamp:         ts,
		HourOfDay:         ts.Hour(),
		DayOfWeek:         ts.Weekday().String(),
	}, nil
}
