package ingest

import (
	"errors"
	"testing"

	"github.com/finguard-labs/finguard/internal/domain"
)

func validRaw() *domain.RawTransaction {
	return &domain.RawTransaction{
		TransactionID: "TXN_001",
		UserID:        "USER_001",
		Amount:        85.50,
		Merchant:      "Local Grocery Store",
		Location:      "Dallas, TX",
		Timestamp:     "2025-06-02T14:30:00Z",
		Device:        "iPhone 12",
		PaymentMethod: "Credit Card ending in 1234",
	}
}

func TestNormalize(t *testing.T) {
	tx, err := Normalize(validRaw())
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if tx.ID != "TXN_001" {
		t.Errorf("unexpected id: %s", tx.ID)
	}
	if len(tx.UserHash) != 16 {
		t.Errorf("expected 16-char user hash, got %q", tx.UserHash)
	}
	if tx.UserHash == "USER_001" {
		t.Error("user id must not pass through unhashed")
	}
	if tx.MerchantCategory != "grocery" {
		t.Errorf("expected grocery, got %s", tx.MerchantCategory)
	}
	if tx.LocationCity != "Dallas" {
		t.Errorf("expected Dallas, got %s", tx.LocationCity)
	}
	if tx.DeviceType != "mobile" {
		t.Errorf("expected mobile, got %s", tx.DeviceType)
	}
	if tx.PaymentMethodType != "credit_card" {
		t.Errorf("expected credit_card, got %s", tx.PaymentMethodType)
	}
	if tx.HourOfDay != 14 {
		t.Errorf("expected hour 14, got %d", tx.HourOfDay)
	}
	if tx.DayOfWeek != "Monday" {
		t.Errorf("expected Monday, got %s", tx.DayOfWeek)
	}
}

func TestNormalizeMissingField(t *testing.T) {
	raw := validRaw()
	raw.UserID = ""

	_, err := Normalize(raw)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Field != "user_id" {
		t.Errorf("expected user_id field, got %s", verr.Field)
	}
}

func TestHashUserIDDeterministic(t *testing.T) {
	a := HashUserID("USER_001")
	b := HashUserID("USER_001")
	c := HashUserID("USER_002")

	if a != b {
		t.Error("hash must be deterministic")
	}
	if a == c {
		t.Error("distinct users must hash differently")
	}
}

func TestCategorizeMerchant(t *testing.T) {
	tests := []struct {
		merchant string
		want     string
	}{
		{"Online Electronics Store", "electronics"},
		{"Joe's Pizza", "restaurant"},
		{"Shell Gas Station", "gas"},
		{"Delta Airline", "travel"},
		{"Completely Unrelated LLC", "other"},
	}

	for _, tt := range tests {
		if got := CategorizeMerchant(tt.merchant); got != tt.want {
			t.Errorf("CategorizeMerchant(%q) = %q, want %q", tt.merchant, got, tt.want)
		}
	}
}

func TestDeviceAndPaymentTypes(t *testing.T) {
	if got := DeviceType("Unknown Android Device"); got != "mobile" {
		t.Errorf("expected mobile, got %s", got)
	}
	if got := DeviceType("iPad Pro"); got != "tablet" {
		t.Errorf("expected tablet, got %s", got)
	}
	if got := DeviceType("Windows Laptop"); got != "desktop" {
		t.Errorf("expected desktop, got %s", got)
	}
	if got := DeviceType("smart fridge"); got != "unknown" {
		t.Errorf("expected unknown, got %s", got)
	}

	if got := PaymentType("Debit Card ending 9987"); got != "debit_card" {
		t.Errorf("expected debit_card, got %s", got)
	}
	if got := PaymentType("Zelle transfer"); got != "p2p" {
		t.Errorf("expected p2p, got %s", got)
	}
}

func TestParseTimestampFallsBackOnGarbage(t *testing.T) {
	ts := ParseTimestamp("not-a-timestamp")
	if ts.IsZero() {
		t.Error("expected a non-zero fallback timestamp")
	}
}
