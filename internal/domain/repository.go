package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All transaction and alert methods require tenantID for strict
// multi-tenancy isolation; the fraud-pattern catalog is global.
type Repository interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, tenantID string, tx *StoredTransaction) error
	GetTransaction(ctx context.Context, tenantID string, txID string) (*StoredTransaction, error)

	// ListTransactionsSince returns stored transactions (with vectors) whose
	// timestamp is at or after since, newest first, capped at limit.
	ListTransactionsSince(ctx context.Context, tenantID string, since time.Time, limit int) ([]*StoredTransaction, error)

	// Fraud-pattern catalog operations
	SeedPatterns(ctx context.Context, patterns []*FraudPattern) error
	ListPatterns(ctx context.Context) ([]*FraudPattern, error)

	// Alert operations
	SaveAlert(ctx context.Context, tenantID string, alert *Alert) error
	GetAlert(ctx context.Context, tenantID string, alertID string) (*Alert, error)
	ListAlertsByStatus(ctx context.Context, tenantID string, status string, limit int) ([]*Alert, error)

	// Policy configuration operations
	SavePolicy(ctx context.Context, tenantID string, policy *PolicyConfig) error
	ListPolicies(ctx context.Context, tenantID string) ([]*PolicyConfig, error)

	// Stats returns dashboard statistics for a tenant.
	Stats(ctx context.Context, tenantID string) (*DashboardStats, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
