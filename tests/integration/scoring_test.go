//go:build integration
// +build integration

// Package integration provides end-to-end tests for the FinGuard scoring
// engine.
//
// These tests exercise the COMPLETE pipeline over a real HTTP server:
//
//	Raw transaction → Ingestion → Vectorization → Similarity search →
//	Pattern detection → Assessment → Risk fusion → Alert
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The server is wired in-process against a temporary SQLite database, the
// in-memory LRU cache, and the channel event bus. No generative model is
// configured, so assessments come from the deterministic rule-based
// fallback; the scenario assertions below are computed against that path.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/finguard-labs/finguard/internal/api"
	"github.com/finguard-labs/finguard/internal/bus"
	"github.com/finguard-labs/finguard/internal/cache"
	"github.com/finguard-labs/finguard/internal/domain"
	"github.com/finguard-labs/finguard/internal/investigate"
	"github.com/finguard-labs/finguard/internal/pipeline"
	"github.com/finguard-labs/finguard/internal/policy"
	"github.com/finguard-labs/finguard/internal/repository"
	"github.com/finguard-labs/finguard/internal/vecstore"
	"github.com/finguard-labs/finguard/internal/worker"
)

const testTenant = "integration-tenant"

// testStack is the fully wired engine plus its HTTP server.
type testStack struct {
	server *httptest.Server
	repo   domain.Repository
	bus    domain.EventBus
	worker *worker.Worker
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "integration.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	c := cache.NewLRUCache(1000)
	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	searchCfg := domain.SearchConfig{
		HistoryLimit:      20,
		HistoryWindowDays: 30,
		PatternLimit:      3,
	}
	store := vecstore.New(repo, searchCfg, nil)
	if err := store.SeedPatterns(context.Background()); err != nil {
		t.Fatalf("failed to seed patterns: %v", err)
	}

	inv := investigate.New(nil, domain.InvestigatorConfig{MaxAttempts: 1}, nil)

	policies, err := policy.NewEngine()
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	pipe := pipeline.New(repo, c, eventBus, store, inv, policies, pipeline.Config{
		Search:        searchCfg,
		AssessmentTTL: time.Hour,
	}, nil)

	w := worker.NewWorker(eventBus, pipe)
	if err := w.Start(worker.Config{TenantIDs: []string{testTenant}}); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	srv := api.NewServer(domain.ServerConfig{Host: "localhost", Port: 0}, repo, c, eventBus, pipe, policies, "integration-test")
	httpSrv := httptest.NewServer(srv.Router())
	t.Cleanup(httpSrv.Close)

	return &testStack{server: httpSrv, repo: repo, bus: eventBus, worker: w}
}

func rawTransaction(id, userID string, amount float64, merchant, device string, ts time.Time) map[string]any {
	return map[string]any{
		"transaction_id": id,
		"user_id":        userID,
		"amount":         amount,
		"merchant":       merchant,
		"location":       "Miami, FL",
		"timestamp":      ts.Format(time.RFC3339),
		"device":         device,
		"payment_method": "credit_card_9999",
	}
}

func (s *testStack) post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", testTenant)

	resp, err := s.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return resp, respBody
}

func (s *testStack) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("X-Tenant-ID", testTenant)

	resp, err := s.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return resp, respBody
}

func score(t *testing.T, s *testStack, tx map[string]any) *domain.Alert {
	t.Helper()

	resp, body := s.post(t, "/api/v1/transactions", tx)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Alert *domain.Alert `json:"alert"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse response: %v (body: %s)", err, string(body))
	}
	if result.Alert == nil {
		t.Fatalf("expected alert in response: %s", string(body))
	}
	return result.Alert
}

// TestCardTestingScenario drives a burst of near-identical micro purchases
// from many accounts and expects the later ones to be flagged for review.
func TestCardTestingScenario(t *testing.T) {
	stack := newTestStack(t)
	base := time.Now().UTC().AddDate(0, 0, -12)

	var last *domain.Alert
	for i := 0; i < 12; i++ {
		tx := rawTransaction(
			fmt.Sprintf("ct-%03d", i),
			fmt.Sprintf("ct-user-%03d", i),
			2.00+float64(i)*0.25,
			"QuickBuy Electronics Online",
			"Windows Laptop",
			base.AddDate(0, 0, i),
		)
		last = score(t, stack, tx)
	}

	// The 12th transaction sees 11 tight neighbors across 11 accounts over
	// 11 days: multiple accounts, time dilation, and amount clustering all
	// trip, and the rule-based fallback crosses the review threshold.
	if last.FraudRiskScore < 70 {
		t.Errorf("expected final score >= 70, got %d", last.FraudRiskScore)
	}
	if last.Status != domain.AlertStatusFlagged {
		t.Errorf("expected flagged_for_review, got %s", last.Status)
	}
	if last.BehavioralAnalysis.SimilarPatternsFound < 10 {
		t.Errorf("expected at least 10 similar transactions, got %d", last.BehavioralAnalysis.SimilarPatternsFound)
	}
	if last.BehavioralAnalysis.AccountsInvolved < 10 {
		t.Errorf("expected at least 10 accounts involved, got %d", last.BehavioralAnalysis.AccountsInvolved)
	}

	// Flagged alerts are retrievable by status.
	resp, body := stack.get(t, "/api/v1/alerts?status=flagged_for_review")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var alerts struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &alerts); err != nil {
		t.Fatalf("failed to parse alerts: %v", err)
	}
	if alerts.Count < 1 {
		t.Errorf("expected at least 1 flagged alert, got %d", alerts.Count)
	}

	// Stats reflect the run.
	resp, body = stack.get(t, "/api/v1/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("failed to parse stats: %v", err)
	}
	if stats.TotalTransactions != 12 {
		t.Errorf("expected 12 transactions, got %d", stats.TotalTransactions)
	}
	if stats.FlaggedCount < 1 {
		t.Errorf("expected at least 1 flagged, got %d", stats.FlaggedCount)
	}
}

// TestQuietTransactionStaysLow verifies an isolated transaction with no
// similar history is left in monitor status.
func TestQuietTransactionStaysLow(t *testing.T) {
	stack := newTestStack(t)

	alert := score(t, stack, rawTransaction(
		"quiet-001", "user-quiet", 54.20,
		"Corner Grocery", "iPhone 14", time.Now().UTC().AddDate(0, 0, -1),
	))

	if alert.Status != domain.AlertStatusMonitor {
		t.Errorf("expected monitor status, got %s", alert.Status)
	}
	if alert.RiskLevel != domain.RiskLevelLow {
		t.Errorf("expected Low risk, got %s", alert.RiskLevel)
	}
	if alert.BehavioralAnalysis.KnownFraudPattern != "None detected" {
		t.Errorf("expected no pattern match, got %s", alert.BehavioralAnalysis.KnownFraudPattern)
	}
}

// TestPatternCatalogSeeded verifies the five known patterns are served.
func TestPatternCatalogSeeded(t *testing.T) {
	stack := newTestStack(t)

	resp, body := stack.get(t, "/api/v1/patterns")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var result struct {
		Patterns []*domain.FraudPattern `json:"patterns"`
		Count    int                    `json:"count"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse patterns: %v", err)
	}
	if result.Count != 5 {
		t.Fatalf("expected 5 seeded patterns, got %d", result.Count)
	}

	names := make(map[string]bool)
	for _, p := range result.Patterns {
		names[p.Name] = true
	}
	for _, want := range []string{"Card Testing", "Account Takeover", "Low-and-Slow Exfiltration", "Velocity Attack", "Synthetic Identity Fraud"} {
		if !names[want] {
			t.Errorf("expected pattern %q in catalog", want)
		}
	}
}

// TestAsyncScoring submits a transaction on the async path and waits for the
// worker to persist the scored result.
func TestAsyncScoring(t *testing.T) {
	stack := newTestStack(t)

	tx := rawTransaction("async-001", "user-async", 19.99,
		"Downtown Cafe", "Android Pixel", time.Now().UTC().AddDate(0, 0, -2))

	resp, body := stack.post(t, "/api/v1/transactions?async=true", tx)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", resp.StatusCode, string(body))
	}

	// Poll until the worker has scored and persisted the transaction.
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, body := stack.get(t, "/api/v1/transactions/async-001")
		if resp.StatusCode == http.StatusOK {
			var stored domain.StoredTransaction
			if err := json.Unmarshal(body, &stored); err != nil {
				t.Fatalf("failed to parse transaction: %v", err)
			}
			if stored.FraudScore == nil {
				t.Fatal("expected fraud score on async-scored transaction")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for async scoring")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// TestPolicyScreeningEndToEnd creates a policy, reloads it, and checks it
// tags subsequent alerts without changing the score.
func TestPolicyScreeningEndToEnd(t *testing.T) {
	stack := newTestStack(t)

	resp, body := stack.post(t, "/api/v1/policies", map[string]any{
		"id":         "pol-int-001",
		"name":       "micro-amount",
		"expression": "amount < 10.0",
		"enabled":    true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.StatusCode, string(body))
	}

	resp, body = stack.post(t, "/api/v1/policies/reload", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, string(body))
	}

	withoutHit := score(t, stack, rawTransaction(
		"pol-quiet", "user-pol", 54.20,
		"Corner Grocery", "iPhone 14", time.Now().UTC().AddDate(0, 0, -1),
	))
	if len(withoutHit.PolicyHits) != 0 {
		t.Errorf("expected no policy hits for $54.20, got %v", withoutHit.PolicyHits)
	}

	withHit := score(t, stack, rawTransaction(
		"pol-micro", "user-pol", 3.50,
		"Corner Grocery", "iPhone 14", time.Now().UTC().AddDate(0, 0, -1),
	))
	if len(withHit.PolicyHits) != 1 || withHit.PolicyHits[0] != "micro-amount" {
		t.Errorf("expected policy hit 'micro-amount', got %v", withHit.PolicyHits)
	}

	// Policies tag, never score: both stay in the monitor band.
	if withHit.Status != domain.AlertStatusMonitor {
		t.Errorf("policy hit must not change status, got %s", withHit.Status)
	}
}
