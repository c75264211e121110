// Load generator for exercising FinGuard with synthetic fraud scenarios.
//
// Usage:
//   go run cmd/loadgen/main.go -url http://localhost:8080
//
// This tool:
//   1. Generates labeled transaction scenarios (normal traffic, card testing,
//      account takeover, low-and-slow exfiltration)
//   2. Sends each transaction to FinGuard for scoring
//   3. Reports the score distribution and how many scenario transactions
//      were flagged for review
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// ScenarioTransaction is a synthetic transaction with its scenario label.
type ScenarioTransaction struct {
	Scenario string
	Raw      RawTransaction
}

// RawTransaction matches the FinGuard scoring request body.
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

// ScoreResponse is the FinGuard scoring response body.
type ScoreResponse struct {
	Alert struct {
		ID             string `json:"alert_id"`
		FraudRiskScore int    `json:"fraud_risk_score"`
		RiskLevel      string `json:"risk_level"`
		Status         string `json:"status"`
	} `json:"alert"`
}

// Metrics tracks load generation results.
type Metrics struct {
	TotalProcessed int64
	TotalErrors    int64
	FlaggedCount   int64
	HighCount      int64
	MediumCount    int64
	LowCount       int64
	ScoreSum       int64

	ProcessingTimeMs int64
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "FinGuard base URL")
	tenantID := flag.String("tenant", "loadgen-test", "Tenant ID for requests")
	workers := flag.Int("workers", 4, "Number of concurrent workers")
	normalCount := flag.Int("normal", 50, "Number of normal background transactions")
	seed := flag.Int64("seed", 42, "Random seed for scenario generation")
	verbose := flag.Bool("verbose", false, "Print each transaction result")
	flag.Parse()

	fmt.Println("FinGuard load generator")
	fmt.Printf("\nURL:       %s\n", *baseURL)
	fmt.Printf("Tenant:    %s\n", *tenantID)
	fmt.Printf("Workers:   %d\n", *workers)
	fmt.Printf("Normal:    %d\n", *normalCount)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: FinGuard not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure FinGuard is running:")
		fmt.Println("  go run cmd/finguard/main.go")
		os.Exit(1)
	}
	fmt.Println("FinGuard is healthy")

	rng := rand.New(rand.NewSource(*seed))
	transactions := generateScenarios(rng, *normalCount)
	fmt.Printf("Generated %d transactions\n", len(transactions))

	fmt.Printf("\nSending with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := run(transactions, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// generateScenarios builds the synthetic workload. Normal traffic goes first
// so the fraud scenarios have history to cluster against.
func generateScenarios(rng *rand.Rand, normalCount int) []ScenarioTransaction {
	var txs []ScenarioTransaction
	base := time.Now().UTC().AddDate(0, 0, -20)

	merchants := []string{"Corner Grocery", "Downtown Cafe", "City Gas Station", "Fashion Retail Shop", "Streaming Movies Inc"}
	cities := []string{"Austin, TX", "Denver, CO", "Seattle, WA", "Portland, OR"}
	devices := []string{"iPhone 14", "Android Pixel", "MacBook Pro", "Windows Laptop"}

	// Normal background traffic: varied users, merchants, and amounts.
	for i := 0; i < normalCount; i++ {
		txs = append(txs, ScenarioTransaction{
			Scenario: "normal",
			Raw: RawTransaction{
				TransactionID: fmt.Sprintf("normal-%03d", i),
				UserID:        fmt.Sprintf("user-%03d", rng.Intn(20)),
				Amount:        5 + rng.Float64()*200,
				Merchant:      merchants[rng.Intn(len(merchants))],
				Location:      cities[rng.Intn(len(cities))],
				Timestamp:     base.AddDate(0, 0, rng.Intn(18)).Format(time.RFC3339),
				Device:        devices[rng.Intn(len(devices))],
				PaymentMethod: "credit_card_1234",
			},
		})
	}

	// Card testing: a burst of near-identical small electronics purchases
	// from many different accounts.
	for i := 0; i < 12; i++ {
		txs = append(txs, ScenarioTransaction{
			Scenario: "card_testing",
			Raw: RawTransaction{
				TransactionID: fmt.Sprintf("cardtest-%03d", i),
				UserID:        fmt.Sprintf("ct-user-%03d", i),
				Amount:        1.99 + float64(i)*0.25,
				Merchant:      "QuickBuy Electronics Online",
				Location:      "Miami, FL",
				Timestamp:     base.AddDate(0, 0, i).Format(time.RFC3339),
				Device:        "Windows Laptop",
				PaymentMethod: "credit_card_9999",
			},
		})
	}

	// Account takeover: sudden high-value electronics purchases from a new
	// device on one account.
	for i := 0; i < 4; i++ {
		txs = append(txs, ScenarioTransaction{
			Scenario: "account_takeover",
			Raw: RawTransaction{
				TransactionID: fmt.Sprintf("ato-%03d", i),
				UserID:        "user-victim",
				Amount:        899 + float64(i)*150,
				Merchant:      "TechWorld Electronics",
				Location:      "Lagos, NG",
				Timestamp:     base.AddDate(0, 0, 15+i).Format(time.RFC3339),
				Device:        "Android Unknown",
				PaymentMethod: "credit_card_4532",
			},
		})
	}

	// Low-and-slow: small daily transfers from one account over two weeks.
	for i := 0; i < 14; i++ {
		txs = append(txs, ScenarioTransaction{
			Scenario: "low_and_slow",
			Raw: RawTransaction{
				TransactionID: fmt.Sprintf("slow-%03d", i),
				UserID:        "user-drip",
				Amount:        45.00,
				Merchant:      "WebPay Online Transfers",
				Location:      "Austin, TX",
				Timestamp:     base.AddDate(0, 0, i).Format(time.RFC3339),
				Device:        "MacBook Pro",
				PaymentMethod: "paypal",
			},
		})
	}

	return txs
}

func run(transactions []ScenarioTransaction, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan ScenarioTransaction, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for tx := range work {
				start := time.Now()
				result, err := scoreTransaction(client, baseURL, tenantID, tx.Raw)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", tx.Raw.TransactionID, err)
					}
					continue
				}

				atomic.AddInt64(&metrics.ScoreSum, int64(result.Alert.FraudRiskScore))
				if result.Alert.Status == "flagged_for_review" {
					atomic.AddInt64(&metrics.FlaggedCount, 1)
				}
				switch result.Alert.RiskLevel {
				case "High":
					atomic.AddInt64(&metrics.HighCount, 1)
				case "Medium":
					atomic.AddInt64(&metrics.MediumCount, 1)
				default:
					atomic.AddInt64(&metrics.LowCount, 1)
				}

				if verbose {
					fmt.Printf("%-16s | %-16s | score %3d | %-6s | %s\n",
						tx.Raw.TransactionID,
						tx.Scenario,
						result.Alert.FraudRiskScore,
						result.Alert.RiskLevel,
						result.Alert.Status,
					)
				}
			}
		}()
	}

	// Preserve scenario ordering so history accumulates before the fraud
	// bursts arrive.
	for _, tx := range transactions {
		work <- tx
	}
	close(work)

	wg.Wait()

	return metrics
}

func scoreTransaction(client *http.Client, baseURL, tenantID string, raw RawTransaction) (*ScoreResponse, error) {
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nRESULTS")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)
	fmt.Printf("   Flagged:          %d\n", m.FlaggedCount)

	fmt.Printf("\nRISK DISTRIBUTION\n")
	fmt.Printf("   High:    %d\n", m.HighCount)
	fmt.Printf("   Medium:  %d\n", m.MediumCount)
	fmt.Printf("   Low:     %d\n", m.LowCount)

	scored := m.TotalProcessed - m.TotalErrors
	if scored > 0 {
		fmt.Printf("   Avg Score: %.1f\n", float64(m.ScoreSum)/float64(scored))
	}

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f tx/sec\n", tps)
	}

	fmt.Println()
}
