package store

import (
	"context"

	"aureon/internal/tenant/models"
	id "aureon/pkg/domain"
)

// Store is the relational-store contract the resolver depends on. Every
// lookup filters out soft-deleted tenants.
//
// Error Contract:
// - Return sentinel.ErrNotFound when no matching tenant exists
// - Return nil error for successful lookups
// - Return wrapped errors with context for infrastructure failures; callers
//   treat those as a failed check (fail closed), never as a miss.
type Store interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	FindByCode(ctx context.Context, code id.TenantCode) (*models.Tenant, error)
}
