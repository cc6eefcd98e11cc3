package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"aureon/internal/sentinel"
	"aureon/internal/tenant/models"
	id "aureon/pkg/domain"
)

// InMemoryStore stores tenants in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]*models.Tenant

	// lookups counts store reads so cache tests can assert on traffic.
	lookups int
}

// NewMemory constructs an empty in-memory tenant store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{tenants: make(map[id.TenantID]*models.Tenant)}
}

// Put inserts or replaces a tenant record. Test/seed helper.
func (s *InMemoryStore) Put(tenant *models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenant.ID] = tenant
}

// Lookups reports how many store reads have been served.
func (s *InMemoryStore) Lookups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookups
}

func (s *InMemoryStore) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if t, ok := s.tenants[tenantID]; ok && !t.IsDeleted() {
		return t, nil
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindBySubdomain(_ context.Context, subdomain string) (*models.Tenant, error) {
	return s.findBy(func(t *models.Tenant) bool {
		return strings.EqualFold(t.Subdomain, subdomain)
	})
}

func (s *InMemoryStore) FindByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	return s.findBy(func(t *models.Tenant) bool {
		return t.CustomDomain != "" && strings.EqualFold(t.CustomDomain, domain)
	})
}

func (s *InMemoryStore) FindByCode(_ context.Context, code id.TenantCode) (*models.Tenant, error) {
	return s.findBy(func(t *models.Tenant) bool {
		return strings.EqualFold(t.Code.String(), code.String())
	})
}

func (s *InMemoryStore) findBy(match func(*models.Tenant) bool) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	for _, t := range s.tenants {
		if !t.IsDeleted() && match(t) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

var _ Store = (*InMemoryStore)(nil)
