package models

import (
	"time"

	id "aureon/pkg/domain"
)

// TenantStatus is the lifecycle state of a tenant. Only active tenants are
// resolvable by default; the others produce TENANT_INACTIVE, not NOT_FOUND,
// so callers can distinguish "wrong address" from "account trouble".
type TenantStatus string

const (
	TenantStatusProvisioning TenantStatus = "provisioning"
	TenantStatusActive       TenantStatus = "active"
	TenantStatusSuspended    TenantStatus = "suspended"
	TenantStatusTerminated   TenantStatus = "terminated"
)

// Tenant represents an isolated customer organization: the unit of data and
// policy isolation. Tenants are never physically removed; DeletedAt marks
// soft deletion and every store lookup filters on it.
type Tenant struct {
	ID           id.TenantID   `json:"id"`
	Code         id.TenantCode `json:"tenant_code"`
	Name         string        `json:"name"`
	Subdomain    string        `json:"subdomain"`
	CustomDomain string        `json:"custom_domain,omitempty"`
	Status       TenantStatus  `json:"status"`

	// Isolation pointers into the relational store.
	IsolationLevel string `json:"isolation_level"`
	SchemaName     string `json:"schema_name"`
	DatabaseName   string `json:"database_name,omitempty"`

	// Resource limits. -1 means unlimited.
	MaxUsers     int `json:"max_users"`
	MaxPatients  int `json:"max_patients"`
	MaxProviders int `json:"max_providers"`
	MaxStorageGB int `json:"max_storage_gb"`

	Features           map[string]bool `json:"features"`
	SecuritySettings   map[string]any  `json:"security_settings"`
	ComplianceSettings map[string]any  `json:"compliance_settings"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

func (t *Tenant) IsDeleted() bool {
	return t.DeletedAt != nil
}

// StatusAllowed reports whether the tenant's status is in the given allow-list.
func (t *Tenant) StatusAllowed(allowed []TenantStatus) bool {
	for _, s := range allowed {
		if t.Status == s {
			return true
		}
	}
	return false
}
