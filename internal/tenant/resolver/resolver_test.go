package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aureon/internal/tenant/cache"
	"aureon/internal/tenant/models"
	"aureon/internal/tenant/store"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

type ResolverSuite struct {
	suite.Suite

	store *store.InMemoryStore
	cache *cache.Memory
	clock time.Time

	resolver *Resolver
	tenant   *models.Tenant
}

func (s *ResolverSuite) SetupTest() {
	s.store = store.NewMemory()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.cache = cache.NewMemory(5 * time.Minute).WithClock(func() time.Time { return s.clock })

	var err error
	s.resolver, err = New(s.store, s.cache, "aureoncare.com")
	s.Require().NoError(err)

	s.tenant = &models.Tenant{
		ID:           id.NewTenantID(),
		Code:         "acme",
		Name:         "Acme Health",
		Subdomain:    "acme",
		CustomDomain: "portal.acmehealth.org",
		Status:       models.TenantStatusActive,
	}
	s.store.Put(s.tenant)
}

func (s *ResolverSuite) advance(d time.Duration) {
	s.clock = s.clock.Add(d)
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) TestResolveByTokenClaim() {
	got, err := s.resolver.Resolve(context.Background(), Signals{TokenTenantID: s.tenant.ID})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, got.ID)
}

func (s *ResolverSuite) TestResolveByHeaderID() {
	got, err := s.resolver.Resolve(context.Background(), Signals{HeaderTenantID: s.tenant.ID})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, got.ID)
}

func (s *ResolverSuite) TestResolveByHeaderCode() {
	got, err := s.resolver.Resolve(context.Background(), Signals{HeaderTenantCode: "ACME"})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, got.ID)
}

func (s *ResolverSuite) TestResolveBySubdomain() {
	got, err := s.resolver.Resolve(context.Background(), Signals{Host: "acme.aureoncare.com"})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, got.ID)
}

func (s *ResolverSuite) TestResolveBySubdomainStripsPort() {
	got, err := s.resolver.Resolve(context.Background(), Signals{Host: "acme.aureoncare.com:8443"})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, got.ID)
}

func (s *ResolverSuite) TestResolveByCustomDomain() {
	got, err := s.resolver.Resolve(context.Background(), Signals{Host: "portal.acmehealth.org"})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, got.ID)
}

func (s *ResolverSuite) TestTokenClaimWinsOverHeaders() {
	other := &models.Tenant{
		ID:        id.NewTenantID(),
		Code:      "other",
		Subdomain: "other",
		Status:    models.TenantStatusActive,
	}
	s.store.Put(other)

	got, err := s.resolver.Resolve(context.Background(), Signals{
		TokenTenantID:    s.tenant.ID,
		HeaderTenantID:   other.ID,
		HeaderTenantCode: "other",
		Host:             "other.aureoncare.com",
	})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, got.ID)
}

func (s *ResolverSuite) TestHeaderIDWinsOverSubdomain() {
	other := &models.Tenant{
		ID:        id.NewTenantID(),
		Code:      "other",
		Subdomain: "other",
		Status:    models.TenantStatusActive,
	}
	s.store.Put(other)

	got, err := s.resolver.Resolve(context.Background(), Signals{
		HeaderTenantID: other.ID,
		Host:           "acme.aureoncare.com",
	})
	s.Require().NoError(err)
	s.Equal(other.ID, got.ID)
}

func (s *ResolverSuite) TestReservedSubdomainsDoNotResolve() {
	for _, host := range []string{"www.aureoncare.com", "api.aureoncare.com"} {
		_, err := s.resolver.Resolve(context.Background(), Signals{Host: host})
		s.True(dErrors.HasCode(err, dErrors.CodeTenantNotFound), "host %s", host)
	}
}

func (s *ResolverSuite) TestBareBaseDomainDoesNotResolve() {
	_, err := s.resolver.Resolve(context.Background(), Signals{Host: "aureoncare.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeTenantNotFound))
}

func (s *ResolverSuite) TestLocalhostAndIPHostsDoNotResolve() {
	for _, host := range []string{"localhost", "localhost:8080", "127.0.0.1", "10.0.0.5:3000"} {
		_, err := s.resolver.Resolve(context.Background(), Signals{Host: host})
		s.True(dErrors.HasCode(err, dErrors.CodeTenantNotFound), "host %s", host)
	}
}

func (s *ResolverSuite) TestNoSignalsReturnsNotFound() {
	_, err := s.resolver.Resolve(context.Background(), Signals{})
	s.True(dErrors.HasCode(err, dErrors.CodeTenantNotFound))
}

func (s *ResolverSuite) TestUnknownTenantReturnsNotFound() {
	_, err := s.resolver.Resolve(context.Background(), Signals{HeaderTenantID: id.NewTenantID()})
	s.True(dErrors.HasCode(err, dErrors.CodeTenantNotFound))
}

func (s *ResolverSuite) TestSecondResolveServedFromCache() {
	sig := Signals{Host: "acme.aureoncare.com"}

	_, err := s.resolver.Resolve(context.Background(), sig)
	s.Require().NoError(err)
	s.Equal(1, s.store.Lookups())

	_, err = s.resolver.Resolve(context.Background(), sig)
	s.Require().NoError(err)
	s.Equal(1, s.store.Lookups(), "second resolve should not hit the store")
}

func (s *ResolverSuite) TestSubdomainResolveWarmsIDKey() {
	_, err := s.resolver.Resolve(context.Background(), Signals{Host: "acme.aureoncare.com"})
	s.Require().NoError(err)

	_, err = s.resolver.Resolve(context.Background(), Signals{TokenTenantID: s.tenant.ID})
	s.Require().NoError(err)
	s.Equal(1, s.store.Lookups(), "id lookup should hit the warmed cache")
}

func (s *ResolverSuite) TestCacheEntryExpiresAtTTL() {
	sig := Signals{HeaderTenantID: s.tenant.ID}

	_, err := s.resolver.Resolve(context.Background(), sig)
	s.Require().NoError(err)

	s.advance(5*time.Minute - time.Second)
	_, err = s.resolver.Resolve(context.Background(), sig)
	s.Require().NoError(err)
	s.Equal(1, s.store.Lookups(), "entry just under TTL is still fresh")

	s.advance(2 * time.Second)
	_, err = s.resolver.Resolve(context.Background(), sig)
	s.Require().NoError(err)
	s.Equal(2, s.store.Lookups(), "entry past TTL forces a store read")
}

func (s *ResolverSuite) TestInvalidatePurgesAllKeysForTenant() {
	_, err := s.resolver.Resolve(context.Background(), Signals{Host: "acme.aureoncare.com"})
	s.Require().NoError(err)

	s.resolver.Invalidate(context.Background(), s.tenant.ID)

	_, err = s.resolver.Resolve(context.Background(), Signals{Host: "acme.aureoncare.com"})
	s.Require().NoError(err)
	s.Equal(2, s.store.Lookups())
}

func (s *ResolverSuite) TestResolveContextRejectsInactiveTenant() {
	s.tenant.Status = models.TenantStatusSuspended

	_, err := s.resolver.ResolveContext(context.Background(), Signals{HeaderTenantID: s.tenant.ID})
	s.True(dErrors.HasCode(err, dErrors.CodeTenantInactive))
}

func (s *ResolverSuite) TestResolveContextAllowsConfiguredStatuses() {
	s.tenant.Status = models.TenantStatusProvisioning

	r, err := New(s.store, s.cache, "aureoncare.com",
		WithAllowedStatuses(models.TenantStatusActive, models.TenantStatusProvisioning))
	s.Require().NoError(err)

	tc, err := r.ResolveContext(context.Background(), Signals{HeaderTenantID: s.tenant.ID})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, tc.ID)
}

func (s *ResolverSuite) TestResolveContextEnforcesIPAllowList() {
	s.tenant.SecuritySettings = map[string]any{
		"ip_whitelist": []any{"10.1.2.3", "10.1.2.4"},
	}

	_, err := s.resolver.ResolveContext(context.Background(), Signals{
		HeaderTenantID: s.tenant.ID,
		ClientIP:       "192.168.1.50",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeIPNotWhitelisted))

	tc, err := s.resolver.ResolveContext(context.Background(), Signals{
		HeaderTenantID: s.tenant.ID,
		ClientIP:       "10.1.2.3",
	})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, tc.ID)
}

func (s *ResolverSuite) TestEmptyAllowListAcceptsAnyIP() {
	tc, err := s.resolver.ResolveContext(context.Background(), Signals{
		HeaderTenantID: s.tenant.ID,
		ClientIP:       "203.0.113.9",
	})
	s.Require().NoError(err)
	s.Equal(s.tenant.ID, tc.ID)
}
