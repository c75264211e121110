package domain

import (
	"time"
)

// PolicyConfig is a tenant-configurable screening rule expressed as a CEL
// expression over the normalized transaction fields. A matching policy
// appends its name to the alert's policy hits; policies never alter the
// scoring formulas or the alert status rule.
type PolicyConfig struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Expression  string    `json:"expression"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}
