package repository

// Schema definitions for the FinGuard database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    user_hash TEXT NOT NULL,
    amount REAL NOT NULL,
    merchant_category TEXT NOT NULL,
    location_city TEXT NOT NULL,
    device_type TEXT NOT NULL,
    payment_method_type TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    hour_of_day INTEGER NOT NULL,
    day_of_week TEXT NOT NULL,
    behavior_text TEXT NOT NULL,
    vector TEXT NOT NULL,
    fraud_score REAL,
    risk_level TEXT,
    is_flagged INTEGER NOT NULL DEFAULT 0,
    investigation_notes TEXT,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant ON transactions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(tenant_id, user_hash);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(tenant_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_transactions_flagged ON transactions(tenant_id, is_flagged);
`

// The fraud-pattern catalog is global, not tenant-scoped: the patterns
// describe modus operandi, not customer data.
const schemaFraudPatterns = `
CREATE TABLE IF NOT EXISTS fraud_patterns (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL,
    severity TEXT NOT NULL,
    vector TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaAlerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    transaction_id TEXT NOT NULL,
    fraud_risk_score INTEGER NOT NULL,
    risk_level TEXT NOT NULL,
    reasoning TEXT NOT NULL,
    behavioral_analysis TEXT NOT NULL,
    investigation_notes TEXT,
    recommendations TEXT NOT NULL,
    policy_hits TEXT,
    confidence REAL NOT NULL,
    status TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_alerts_tenant ON alerts(tenant_id);
CREATE INDEX IF NOT EXISTS idx_alerts_tx ON alerts(tenant_id, transaction_id);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(tenant_id, status);
CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(tenant_id, timestamp);
`

const schemaPolicies = `
CREATE TABLE IF NOT EXISTS policies (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_policies_tenant ON policies(tenant_id);
CREATE INDEX IF NOT EXISTS idx_policies_enabled ON policies(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaFraudPatterns,
		schemaAlerts,
		schemaPolicies,
	}
}
