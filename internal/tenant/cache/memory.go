package cache

import (
	"context"
	"strings"
	"time"

	"aureon/internal/tenant/models"
	id "aureon/pkg/domain"
)

// Memory is the in-process tenant cache used by default and in tests.
type Memory struct {
	cache *TTL[*models.Tenant]
}

// NewMemory constructs an in-memory tenant cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{cache: NewTTL[*models.Tenant](ttl)}
}

// WithClock overrides the cache clock. Test use only.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.cache.WithClock(now)
	return m
}

func (m *Memory) Get(_ context.Context, key string) (*models.Tenant, bool) {
	return m.cache.Get(key)
}

func (m *Memory) Put(_ context.Context, key string, tenant *models.Tenant) {
	m.cache.Put(key, tenant)
}

func (m *Memory) Invalidate(_ context.Context, tenantID id.TenantID) {
	if tenantID.IsNil() {
		m.cache.Clear()
		return
	}
	needle := tenantID.String()
	m.cache.DeleteMatching(func(key string, t *models.Tenant) bool {
		// Subdomain/domain/code keys don't carry the tenant id; match on
		// the stored record as well.
		return strings.Contains(key, needle) || (t != nil && t.ID == tenantID)
	})
}

var _ Cache = (*Memory)(nil)
