// Package policy provides the CEL-based screening engine.
//
// Policies are tenant-authored boolean expressions over normalized
// transaction features. A matched policy tags the resulting alert; it
// never contributes to the fraud risk score, which stays a pure function
// of the detection and investigation signals.
package policy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/finguard-labs/finguard/internal/domain"
)

// Engine compiles and evaluates screening policies.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*compiledPolicy
}

type compiledPolicy struct {
	config  *domain.PolicyConfig
	program cel.Program
}

// NewEngine creates a policy engine with the transaction feature
// environment.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("merchant_category", cel.StringType),
		cel.Variable("location_city", cel.StringType),
		cel.Variable("device_type", cel.StringType),
		cel.Variable("payment_method_type", cel.StringType),
		cel.Variable("hour_of_day", cel.IntType),
		cel.Variable("day_of_week", cel.StringType),
		cel.Variable("user_hash", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		compiled: make(map[string]*compiledPolicy),
	}, nil
}

// ValidatePolicy compiles a policy without loading it.
func (e *Engine) ValidatePolicy(cfg *domain.PolicyConfig) error {
	if cfg == nil {
		return fmt.Errorf("policy config is required")
	}
	_, err := e.compile(cfg)
	return err
}

// LoadPolicy compiles and loads a single policy.
func (e *Engine) LoadPolicy(cfg *domain.PolicyConfig) error {
	compiled, err := e.compile(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled[cfg.ID] = compiled
	return nil
}

// ReloadPolicies atomically replaces the loaded set with the enabled
// policies from configs. Used for hot reload from the database.
func (e *Engine) ReloadPolicies(configs []*domain.PolicyConfig) error {
	next := make(map[string]*compiledPolicy)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compile(cfg)
		if err != nil {
			return err
		}
		next[cfg.ID] = compiled
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiled = next
	return nil
}

// Screen evaluates every loaded policy against a transaction and returns
// the names of those that matched. Evaluation errors in one policy do not
// block the others.
func (e *Engine) Screen(tx *domain.Transaction) []string {
	e.mu.RLock()
	policies := make([]*compiledPolicy, 0, len(e.compiled))
	for _, p := range e.compiled {
		policies = append(policies, p)
	}
	e.mu.RUnlock()

	if len(policies) == 0 {
		return nil
	}

	activation := map[string]any{
		"amount":              tx.Amount,
		"merchant_category":   tx.MerchantCategory,
		"location_city":       tx.LocationCity,
		"device_type":         tx.DeviceType,
		"payment_method_type": tx.PaymentMethodType,
		"hour_of_day":         tx.HourOfDay,
		"day_of_week":         tx.DayOfWeek,
		"user_hash":           tx.UserHash,
	}

	var hits []string
	for _, p := range policies {
		out, _, err := p.program.Eval(activation)
		if err != nil {
			continue
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			hits = append(hits, p.config.Name)
		}
	}
	sort.Strings(hits)
	return hits
}

// PoliciesCount returns the number of loaded policies.
func (e *Engine) PoliciesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// LoadedPolicies returns the currently loaded policy configurations.
func (e *Engine) LoadedPolicies() []*domain.PolicyConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	configs := make([]*domain.PolicyConfig, 0, len(e.compiled))
	for _, p := range e.compiled {
		configs = append(configs, p.config)
	}
	return configs
}

func (e *Engine) compile(cfg *domain.PolicyConfig) (*compiledPolicy, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile policy %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("policy %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for policy %s: %w", cfg.ID, err)
	}

	return &compiledPolicy{
		config:  cfg,
		program: program,
	}, nil
}
