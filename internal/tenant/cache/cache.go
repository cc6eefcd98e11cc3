// Package cache provides the time-bounded lookup cache backing tenant
// resolution. Entries live for a fixed TTL decided at construction; there is
// no further eviction policy. Growth is bounded by the number of distinct
// tenants times the four key namespaces, which is small at the tenant counts
// this platform targets.
package cache

import (
	"context"
	"strings"

	"aureon/internal/tenant/models"
	id "aureon/pkg/domain"
)

// Cache is the resolver-facing contract. Implementations must be safe for
// concurrent use by many in-flight requests.
type Cache interface {
	// Get returns a tenant only when the entry exists and is younger than
	// the TTL; an expired entry counts as a miss.
	Get(ctx context.Context, key string) (*models.Tenant, bool)

	// Put stores or overwrites an entry, restarting its TTL.
	Put(ctx context.Context, key string, tenant *models.Tenant)

	// Invalidate removes every entry referencing the given tenant, or all
	// entries when tenantID is nil. Used by admin mutations so a suspended
	// tenant stops resolving before the TTL would expire it.
	Invalidate(ctx context.Context, tenantID id.TenantID)
}

// Key namespaces. Each resolution signal caches under its own namespace so
// identical logical tenants hit the cache regardless of which signal arrived.

func KeyByID(tenantID id.TenantID) string {
	return "tenant:id:" + tenantID.String()
}

func KeyBySubdomain(subdomain string) string {
	return "tenant:subdomain:" + strings.ToLower(subdomain)
}

func KeyByDomain(domain string) string {
	return "tenant:domain:" + strings.ToLower(domain)
}

func KeyByCode(code id.TenantCode) string {
	return "tenant:code:" + strings.ToLower(code.String())
}
