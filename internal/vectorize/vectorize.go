// Package vectorize turns transactions into behavioral embeddings.
//
// The embedding is a deterministic 384-dimensional feature-hashing
// bag-of-tokens vector over a privacy-preserving behavior description.
// No external model is involved, so embeddings are reproducible across
// processes and offline environments.
package vectorize

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/finguard-labs/finguard/internal/domain"
)

// Dim is the embedding dimensionality.
const Dim = 384

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// AmountBucket maps an amount onto a coarse range so exact amounts never
// leak into the embedded text.
func AmountBucket(amount float64) string {
	switch {
	case amount < 10:
		return "micro (under $10)"
	case amount < 50:
		return "small ($10-$50)"
	case amount < 200:
		return "medium ($50-$200)"
	case amount < 1000:
		return "large ($200-$1000)"
	default:
		return "very large (over $1000)"
	}
}

// BehaviorText renders the privacy-preserving behavioral description of a
// transaction. This text is what gets embedded and compared; it contains
// no PII, only behavioral features.
func BehaviorText(tx *domain.Transaction) string {
	return fmt.Sprintf(`Transaction behavioral pattern:
Amount range: %s
Merchant category: %s
Location type: %s
Device type: %s
Payment method: %s
Time of day: %d hour
Day of week: %s`,
		AmountBucket(tx.Amount),
		tx.MerchantCategory,
		tx.LocationCity,
		tx.DeviceType,
		tx.PaymentMethodType,
		tx.HourOfDay,
		tx.DayOfWeek,
	)
}

// Embed hashes the tokens of text into a Dim-dimensional L2-normalized
// vector. Each token contributes ±1 at an index derived from its SHA-256
// digest.
func Embed(text string) []float32 {
	vec := make([]float32, Dim)

	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		digest := sha256.Sum256([]byte(tok))
		idx := int(binary.LittleEndian.Uint16(digest[:2])) % Dim
		if digest[2]%2 == 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec
}

// Vectorize attaches the behavior text and embedding to a transaction.
func Vectorize(tx *domain.Transaction) *domain.StoredTransaction {
	text := BehaviorText(tx)
	return &domain.StoredTransaction{
		Transaction:  *tx,
		BehaviorText: text,
		Vector:       Embed(text),
	}
}

// CosineSimilarity returns the cosine similarity of two vectors, or 0 when
// either has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CosineDistance returns 1 − cosine similarity; lower means more similar.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// Digest returns a stable hex digest of a behavior text, used as the
// assessment cache key.
func Digest(behaviorText string) string {
	sum := sha256.Sum256([]byte(behaviorText))
	return hex.EncodeToString(sum[:])
}
