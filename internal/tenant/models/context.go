package models

import (
	id "aureon/pkg/domain"
)

// Context is the immutable per-request projection of a Tenant. It is
// recomputed from the resolver's output on every request, never persisted,
// and answers feature-flag, limit, and policy questions for the rest of the
// pipeline.
type Context struct {
	ID             id.TenantID
	Code           id.TenantCode
	Name           string
	Status         TenantStatus
	IsolationLevel string
	SchemaName     string
	DatabaseName   string

	maxUsers     int
	maxPatients  int
	maxProviders int
	maxStorageGB int

	features           map[string]bool
	securitySettings   map[string]any
	complianceSettings map[string]any
}

// PasswordPolicy holds the tenant's password rules with platform defaults
// applied for anything unset.
type PasswordPolicy struct {
	MinLength        int  `json:"min_length"`
	RequireUppercase bool `json:"require_uppercase"`
	RequireLowercase bool `json:"require_lowercase"`
	RequireNumbers   bool `json:"require_numbers"`
	RequireSpecial   bool `json:"require_special"`
	MaxAgeDays       int  `json:"max_age_days"`
	HistoryCount     int  `json:"history_count"`
}

// NewContext builds the per-request view from a tenant record. The maps are
// not copied; the cached Tenant is treated as read-only by convention and
// the Context exposes no mutating accessors.
func NewContext(t *Tenant) *Context {
	schema := t.SchemaName
	if schema == "" {
		schema = "public"
	}
	return &Context{
		ID:                 t.ID,
		Code:               t.Code,
		Name:               t.Name,
		Status:             t.Status,
		IsolationLevel:     t.IsolationLevel,
		SchemaName:         schema,
		DatabaseName:       t.DatabaseName,
		maxUsers:           t.MaxUsers,
		maxPatients:        t.MaxPatients,
		maxProviders:       t.MaxProviders,
		maxStorageGB:       t.MaxStorageGB,
		features:           t.Features,
		securitySettings:   t.SecuritySettings,
		complianceSettings: t.ComplianceSettings,
	}
}

// HasFeature reports whether a feature flag is enabled for this tenant.
func (c *Context) HasFeature(name string) bool {
	return c.features[name]
}

// CheckLimit reports whether the tenant may add one more of resourceType
// given the current count. A configured limit of -1 means unlimited.
// Unknown resource types are denied.
func (c *Context) CheckLimit(resourceType string, currentCount int) bool {
	var limit int
	switch resourceType {
	case "users":
		limit = c.maxUsers
	case "patients":
		limit = c.maxPatients
	case "providers":
		limit = c.maxProviders
	case "storage":
		limit = c.maxStorageGB
	default:
		return false
	}
	if limit == -1 {
		return true
	}
	return currentCount < limit
}

// SecuritySetting returns a security-policy value, or def when unset.
func (c *Context) SecuritySetting(key string, def any) any {
	if v, ok := c.securitySettings[key]; ok && v != nil {
		return v
	}
	return def
}

// ComplianceSetting returns a compliance-policy value, or def when unset.
func (c *Context) ComplianceSetting(key string, def any) any {
	if v, ok := c.complianceSettings[key]; ok && v != nil {
		return v
	}
	return def
}

// ComplianceFlag reads a boolean compliance setting, false when unset.
func (c *Context) ComplianceFlag(key string) bool {
	v, ok := c.complianceSettings[key].(bool)
	return ok && v
}

// PasswordPolicy returns the tenant's password policy with defaults applied.
func (c *Context) PasswordPolicy() PasswordPolicy {
	policy := PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
		MaxAgeDays:       90,
		HistoryCount:     5,
	}

	raw, ok := c.securitySettings["password_policy"].(map[string]any)
	if !ok {
		return policy
	}
	if v, ok := toInt(raw["min_length"]); ok {
		policy.MinLength = v
	}
	if v, ok := raw["require_uppercase"].(bool); ok {
		policy.RequireUppercase = v
	}
	if v, ok := raw["require_lowercase"].(bool); ok {
		policy.RequireLowercase = v
	}
	if v, ok := raw["require_numbers"].(bool); ok {
		policy.RequireNumbers = v
	}
	if v, ok := raw["require_special"].(bool); ok {
		policy.RequireSpecial = v
	}
	if v, ok := toInt(raw["max_age_days"]); ok {
		policy.MaxAgeDays = v
	}
	if v, ok := toInt(raw["history_count"]); ok {
		policy.HistoryCount = v
	}
	return policy
}

// IsMFARequired reports whether tenant policy mandates MFA.
func (c *Context) IsMFARequired() bool {
	v, ok := c.securitySettings["mfa_required"].(bool)
	return ok && v
}

// IsIPAllowed checks the caller's address against the tenant IP allow-list.
// An empty or absent allow-list means unrestricted.
func (c *Context) IsIPAllowed(ip string) bool {
	raw, ok := c.securitySettings["ip_whitelist"]
	if !ok || raw == nil {
		return true
	}

	var list []string
	switch v := raw.(type) {
	case []string:
		list = v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				list = append(list, s)
			}
		}
	}
	if len(list) == 0 {
		return true
	}
	for _, allowed := range list {
		if allowed == ip {
			return true
		}
	}
	return false
}

// SessionTimeoutMinutes returns the tenant's session inactivity timeout,
// or 0 when the platform default applies.
func (c *Context) SessionTimeoutMinutes() int {
	v, ok := toInt(c.securitySettings["session_timeout_minutes"])
	if !ok {
		return 0
	}
	return v
}

// Redacted is the only form of tenant context permitted in logs: identity
// and isolation pointers, none of the policy or feature payload.
func (c *Context) Redacted() map[string]any {
	return map[string]any{
		"id":              c.ID.String(),
		"code":            c.Code.String(),
		"name":            c.Name,
		"status":          string(c.Status),
		"isolation_level": c.IsolationLevel,
	}
}

// toInt tolerates the numeric types JSON decoding produces.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
