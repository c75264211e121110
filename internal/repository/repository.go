// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finguard-labs/finguard/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores a scored transaction with tenant isolation.
// Upserts by id so re-scoring updates the stored score fields.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tenantID string, tx *domain.StoredTransaction) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	vector, err := json.Marshal(tx.Vector)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}

	flagged := 0
	if tx.IsFlagged {
		flagged = 1
	}

	query := `
		INSERT INTO transactions (
			id, tenant_id, user_hash, amount, merchant_category,
			location_city, device_type, payment_method_type,
			timestamp, hour_of_day, day_of_week,
			behavior_text, vector, fraud_score, risk_level,
			is_flagged, investigation_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			fraud_score = excluded.fraud_score,
			risk_level = excluded.risk_level,
			is_flagged = excluded.is_flagged,
			investigation_notes = excluded.investigation_notes
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tenantID, tx.UserHash, tx.Amount, tx.MerchantCategory,
		tx.LocationCity, tx.DeviceType, tx.PaymentMethodType,
		tx.Timestamp, tx.HourOfDay, tx.DayOfWeek,
		tx.BehaviorText, string(vector), tx.FraudScore, tx.RiskLevel,
		flagged, tx.InvestigationNotes,
	)
	return err
}

const transactionColumns = `
	id, user_hash, amount, merchant_category,
	location_city, device_type, payment_method_type,
	timestamp, hour_of_day, day_of_week,
	behavior_text, vector, fraud_score, risk_level,
	is_flagged, investigation_notes
`

func scanTransaction(scan func(dest ...any) error) (*domain.StoredTransaction, error) {
	var tx domain.StoredTransaction
	var vector string
	var riskLevel, notes sql.NullString
	var flagged int

	err := scan(
		&tx.ID, &tx.UserHash, &tx.Amount, &tx.MerchantCategory,
		&tx.LocationCity, &tx.DeviceType, &tx.PaymentMethodType,
		&tx.Timestamp, &tx.HourOfDay, &tx.DayOfWeek,
		&tx.BehaviorText, &vector, &tx.FraudScore, &riskLevel,
		&flagged, &notes,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(vector), &tx.Vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector for %s: %w", tx.ID, err)
	}
	tx.RiskLevel = riskLevel.String
	tx.InvestigationNotes = notes.String
	tx.IsFlagged = flagged == 1

	return &tx, nil
}

// GetTransaction retrieves a transaction by ID with tenant isolation.
func (r *SQLRepository) GetTransaction(ctx context.Context, tenantID string, txID string) (*domain.StoredTransaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = ? AND id = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, txID)
	tx, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tx, err
}

// ListTransactionsSince retrieves stored transactions in a recency window,
// newest first, with tenant isolation.
func (r *SQLRepository) ListTransactionsSince(ctx context.Context, tenantID string, since time.Time, limit int) ([]*domain.StoredTransaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 1000
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.StoredTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// SeedPatterns upserts the fraud-pattern catalog.
func (r *SQLRepository) SeedPatterns(ctx context.Context, patterns []*domain.FraudPattern) error {
	query := `
		INSERT INTO fraud_patterns (id, name, description, severity, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			severity = excluded.severity,
			vector = excluded.vector
	`

	for _, p := range patterns {
		vector, err := json.Marshal(p.Vector)
		if err != nil {
			return fmt.Errorf("failed to encode vector for %s: %w", p.ID, err)
		}
		_, err = r.db.ExecContext(ctx, r.rebind(query),
			p.ID, p.Name, p.Description, string(p.Severity), string(vector), p.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListPatterns retrieves the full fraud-pattern catalog.
func (r *SQLRepository) ListPatterns(ctx context.Context) ([]*domain.FraudPattern, error) {
	query := `
		SELECT id, name, description, severity, vector, created_at
		FROM fraud_patterns
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []*domain.FraudPattern
	for rows.Next() {
		var p domain.FraudPattern
		var severity, vector string

		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &severity, &vector, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vector), &p.Vector); err != nil {
			return nil, fmt.Errorf("failed to decode vector for %s: %w", p.ID, err)
		}
		p.Severity = domain.Severity(severity)
		patterns = append(patterns, &p)
	}

	return patterns, rows.Err()
}

// SaveAlert stores an alert with tenant isolation.
func (r *SQLRepository) SaveAlert(ctx context.Context, tenantID string, alert *domain.Alert) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	behavioral, _ := json.Marshal(alert.BehavioralAnalysis)
	recommendations, _ := json.Marshal(alert.Recommendations)
	policyHits, _ := json.Marshal(alert.PolicyHits)

	query := `
		INSERT INTO alerts (
			id, tenant_id, transaction_id, fraud_risk_score, risk_level,
			reasoning, behavioral_analysis, investigation_notes,
			recommendations, policy_hits, confidence, status, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.ID, tenantID, alert.TransactionID, alert.FraudRiskScore, alert.RiskLevel,
		alert.Reasoning, string(behavioral), alert.InvestigationNotes,
		string(recommendations), string(policyHits), alert.Confidence, alert.Status, alert.Timestamp,
	)
	return err
}

func scanAlert(scan func(dest ...any) error) (*domain.Alert, error) {
	var alert domain.Alert
	var behavioral, recommendations string
	var policyHits, notes sql.NullString

	err := scan(
		&alert.ID, &alert.TransactionID, &alert.FraudRiskScore, &alert.RiskLevel,
		&alert.Reasoning, &behavioral, &notes,
		&recommendations, &policyHits, &alert.Confidence, &alert.Status, &alert.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(behavioral), &alert.BehavioralAnalysis)
	json.Unmarshal([]byte(recommendations), &alert.Recommendations)
	if policyHits.Valid {
		json.Unmarshal([]byte(policyHits.String), &alert.PolicyHits)
	}
	alert.InvestigationNotes = notes.String

	return &alert, nil
}

const alertColumns = `
	id, transaction_id, fraud_risk_score, risk_level,
	reasoning, behavioral_analysis, investigation_notes,
	recommendations, policy_hits, confidence, status, timestamp
`

// GetAlert retrieves an alert by ID with tenant isolation.
func (r *SQLRepository) GetAlert(ctx context.Context, tenantID string, alertID string) (*domain.Alert, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE tenant_id = ? AND id = ?
	`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, alertID)
	alert, err := scanAlert(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return alert, err
}

// ListAlertsByStatus retrieves alerts filtered by status, newest first.
// An empty status returns alerts of every status.
func (r *SQLRepository) ListAlertsByStatus(ctx context.Context, tenantID string, status string, limit int) ([]*domain.Alert, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + alertColumns + `
		FROM alerts
		WHERE tenant_id = ?
	`
	args := []any{tenantID}

	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// SavePolicy upserts a policy configuration with tenant isolation.
func (r *SQLRepository) SavePolicy(ctx context.Context, tenantID string, policy *domain.PolicyConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if policy.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO policies (
			id, tenant_id, name, description, expression, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		policy.ID, tenantID, policy.Name, policy.Description,
		policy.Expression, enabled, now, now,
	)
	return err
}

// ListPolicies retrieves all policies for a tenant, enabled or not.
func (r *SQLRepository) ListPolicies(ctx context.Context, tenantID string) ([]*domain.PolicyConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, expression, enabled, created_at, updated_at
		FROM policies
		WHERE tenant_id = ?
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.PolicyConfig
	for rows.Next() {
		var p domain.PolicyConfig
		var description sql.NullString
		var enabled int

		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Name, &description,
			&p.Expression, &enabled, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.Enabled = enabled == 1
		policies = append(policies, &p)
	}

	return policies, rows.Err()
}

// Stats returns dashboard aggregates for a tenant.
func (r *SQLRepository) Stats(ctx context.Context, tenantID string) (*domain.DashboardStats, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(is_flagged), 0),
			COALESCE(AVG(fraud_score), 0),
			COALESCE(SUM(CASE WHEN risk_level = 'High' THEN 1 ELSE 0 END), 0)
		FROM transactions
		WHERE tenant_id = ?
	`

	var stats domain.DashboardStats
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(
		&stats.TotalTransactions,
		&stats.FlaggedCount,
		&stats.AvgFraudScore,
		&stats.HighRiskCount,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
