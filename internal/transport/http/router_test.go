package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aureon/internal/audit"
	auditstore "aureon/internal/audit/store"
	authmodels "aureon/internal/auth/models"
	"aureon/internal/auth/password"
	authservice "aureon/internal/auth/service"
	authstore "aureon/internal/auth/store"
	"aureon/internal/auth/token"
	"aureon/internal/authz"
	"aureon/internal/ratelimit"
	"aureon/internal/tenant/cache"
	tenantmodels "aureon/internal/tenant/models"
	"aureon/internal/tenant/resolver"
	tenantstore "aureon/internal/tenant/store"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

const (
	testBaseDomain = "aureoncare.com"
	testPassword   = "Str0ng!Passw0rd"
)

type TransportSuite struct {
	suite.Suite

	passwordHash string

	tenants    *tenantstore.InMemoryStore
	users      *authstore.InMemoryUserStore
	sessions   *authstore.InMemorySessionStore
	roles      *authstore.InMemoryRoleStore
	auditStore *auditstore.InMemoryStore

	router http.Handler

	acme  *tenantmodels.Tenant
	beta  *tenantmodels.Tenant
	staff *authmodels.User
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func (s *TransportSuite) SetupSuite() {
	hash, err := password.Hash(testPassword)
	s.Require().NoError(err)
	s.passwordHash = hash
}

func (s *TransportSuite) SetupTest() {
	s.tenants = tenantstore.NewMemory()
	s.users = authstore.NewMemoryUsers()
	s.sessions = authstore.NewMemorySessions()
	s.roles = authstore.NewMemoryRoles()
	s.auditStore = auditstore.NewMemory()

	s.acme = &tenantmodels.Tenant{
		ID:          id.NewTenantID(),
		Code:        "acme",
		Name:        "Acme Health",
		Subdomain:   "acme",
		Status:      tenantmodels.TenantStatusActive,
		MaxPatients: -1,
	}
	s.beta = &tenantmodels.Tenant{
		ID:        id.NewTenantID(),
		Code:      "beta",
		Name:      "Beta Clinic",
		Subdomain: "beta",
		Status:    tenantmodels.TenantStatusActive,
	}
	s.tenants.Put(s.acme)
	s.tenants.Put(s.beta)

	s.staff = &authmodels.User{
		ID:           id.NewUserID(),
		Email:        "staff@acme.test",
		PasswordHash: s.passwordHash,
		Role:         "user",
		Status:       authmodels.UserStatusActive,
	}
	s.users.PutUser(s.staff)
	s.users.PutMembership(&authmodels.Membership{
		UserID:   s.staff.ID,
		TenantID: s.acme.ID,
		Roles:    []string{"staff"},
		Status:   authmodels.MembershipStatusActive,
	})
	s.roles.Put(&authmodels.Role{
		TenantID:    s.acme.ID,
		Code:        "staff",
		Name:        "Staff",
		Permissions: []string{"patients.read", "audit.read"},
	})

	s.router = s.buildRouter(100, false)
}

// buildRouter wires a full server over the suite's stores.
func (s *TransportSuite) buildRouter(rateLimitMax int, legacyAuth bool) http.Handler {
	tokens, err := token.New("transport-test-secret", time.Hour, 24*time.Hour)
	s.Require().NoError(err)

	res, err := resolver.New(s.tenants, cache.NewMemory(5*time.Minute), testBaseDomain)
	s.Require().NoError(err)

	auth, err := authservice.New(s.users, s.sessions, tokens,
		authservice.WithLegacyHeaderAuth(legacyAuth))
	s.Require().NoError(err)

	guard, err := authz.New(s.roles)
	s.Require().NoError(err)

	limiter, err := ratelimit.New(time.Minute, rateLimitMax)
	s.Require().NoError(err)

	pipeline, err := audit.New(s.auditStore)
	s.Require().NoError(err)

	server, err := NewServer(Config{
		Resolver: res,
		Auth:     auth,
		Guard:    guard,
		Limiter:  limiter,
		Audit:    pipeline,
	})
	s.Require().NoError(err)
	return server.Router()
}

func (s *TransportSuite) request(method, host, path, bearer, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Host = host
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *TransportSuite) login(host, email, pass string) tokenPairResponse {
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, pass)
	rec := s.request(http.MethodPost, host, "/auth/login", "", body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var pair tokenPairResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair
}

func (s *TransportSuite) rejection(rec *httptest.ResponseRecorder) errorEnvelope {
	var envelope errorEnvelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func (s *TransportSuite) TestHealthNeedsNoTenant() {
	rec := s.request(http.MethodGet, "localhost", "/health", "", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *TransportSuite) TestLoginIssuesTokensAndEchoesTenant() {
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, s.staff.Email, testPassword)
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/auth/login", "", body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	s.Equal(s.acme.ID.String(), rec.Header().Get("X-Tenant-ID"))
	s.Equal("acme", rec.Header().Get("X-Tenant-Code"))
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
	s.Equal("100", rec.Header().Get("X-RateLimit-Limit"))
	s.Equal("99", rec.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rec.Header().Get("X-RateLimit-Reset"))

	var pair tokenPairResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &pair))
	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)
	s.NotEmpty(pair.SessionID)
	s.Equal(s.staff.ID.String(), pair.UserID)
}

func (s *TransportSuite) TestLoginFailureIsASecurityEvent() {
	body := fmt.Sprintf(`{"email":%q,"password":"wrong"}`, s.staff.Email)
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/auth/login", "", body)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal(string(dErrors.CodeNotAuthenticated), s.rejection(rec).Code)

	// Failed logins take the immediate audit path.
	entries := s.auditStore.Entries()
	s.Require().Len(entries, 1)
	s.Equal("login", entries[0].Action)
	s.Equal("failure", entries[0].Status)
	s.True(entries[0].IsSecurityEvent)
	s.Equal(s.acme.ID, entries[0].TenantID)
}

func (s *TransportSuite) TestUnknownTenantRejected() {
	rec := s.request(http.MethodGet, "ghost.aureoncare.com", "/api/patients", "", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(string(dErrors.CodeTenantNotFound), s.rejection(rec).Code)
}

func (s *TransportSuite) TestInactiveTenantDistinctFromUnknown() {
	s.beta.Status = tenantmodels.TenantStatusSuspended
	rec := s.request(http.MethodGet, "beta.aureoncare.com", "/api/patients", "", "")
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(string(dErrors.CodeTenantInactive), s.rejection(rec).Code)
}

func (s *TransportSuite) TestGuardedReadAllowedAndAudited() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	rec := s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", pair.AccessToken, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	// PHI resource access is written immediately at high severity.
	entries := s.auditStore.Entries()
	s.Require().NotEmpty(entries)
	last := entries[len(entries)-1]
	s.Equal("read", last.Action)
	s.Equal("patient", last.ResourceType)
	s.True(last.IsPHIAccess)
	s.Equal(s.staff.ID, last.UserID)
	s.Equal(s.acme.ID, last.TenantID)
}

func (s *TransportSuite) TestBearerTokenResolvesTenantWithoutSubdomain() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	// No subdomain, no headers: the token's tenant claim is the only
	// resolution signal present.
	rec := s.request(http.MethodGet, "aureoncare.com", "/api/patients", pair.AccessToken, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(s.acme.ID.String(), rec.Header().Get("X-Tenant-ID"))
}

func (s *TransportSuite) TestWriteWithoutPermissionDenied() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	body := `{"firstName":"Jane","lastName":"Doe"}`
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/api/patients", pair.AccessToken, body)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(string(dErrors.CodePermissionDenied), s.rejection(rec).Code)

	// The rejection itself is audited.
	entries := s.auditStore.Entries()
	s.Require().NotEmpty(entries)
	last := entries[len(entries)-1]
	s.Equal("create", last.Action)
	s.Equal("failure", last.Status)
}

func (s *TransportSuite) TestWildcardPermissionAllowsWrite() {
	s.roles.Put(&authmodels.Role{
		TenantID:    s.acme.ID,
		Code:        "staff",
		Permissions: []string{"*"},
	})
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	body := `{"firstName":"Jane","lastName":"Doe"}`
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/api/patients", pair.AccessToken, body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.Equal("Jane", created["firstName"])
	s.Equal(s.acme.ID.String(), created["tenantId"])
}

func (s *TransportSuite) TestPatientAllowanceOfZeroBlocksCreation() {
	s.acme.MaxPatients = 0
	s.roles.Put(&authmodels.Role{
		TenantID:    s.acme.ID,
		Code:        "staff",
		Permissions: []string{"*"},
	})
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	body := `{"firstName":"Jane","lastName":"Doe"}`
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/api/patients", pair.AccessToken, body)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(string(dErrors.CodeTenantLimitExceeded), s.rejection(rec).Code)
}

func (s *TransportSuite) TestRefreshOnForeignTenantIsMismatch() {
	// The staff user belongs to acme; presenting the acme refresh token on
	// the beta subdomain must not mint a token there.
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	body := fmt.Sprintf(`{"refreshToken":%q}`, pair.RefreshToken)
	rec := s.request(http.MethodPost, "beta.aureoncare.com", "/auth/refresh", "", body)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(string(dErrors.CodeTenantMismatch), s.rejection(rec).Code)
}

func (s *TransportSuite) TestRefreshRotatesAccessToken() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	body := fmt.Sprintf(`{"refreshToken":%q}`, pair.RefreshToken)
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/auth/refresh", "", body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var refreshed tokenPairResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &refreshed))
	s.NotEmpty(refreshed.AccessToken)
	s.NotEqual(pair.AccessToken, refreshed.AccessToken)

	// The old access token no longer matches the stored session hash.
	rec = s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", pair.AccessToken, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal(string(dErrors.CodeSessionInvalid), s.rejection(rec).Code)

	rec = s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", refreshed.AccessToken, "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *TransportSuite) TestLogoutRevokesSession() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/auth/logout", pair.AccessToken, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", pair.AccessToken, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal(string(dErrors.CodeSessionInvalid), s.rejection(rec).Code)
}

func (s *TransportSuite) TestSessionListingAndTargetedRevoke() {
	first := s.login("acme.aureoncare.com", s.staff.Email, testPassword)
	second := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	rec := s.request(http.MethodGet, "acme.aureoncare.com", "/auth/sessions", second.AccessToken, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var listing struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listing))
	s.Require().Len(listing.Sessions, 2)

	current := 0
	for _, session := range listing.Sessions {
		if session.Current {
			current++
			s.Equal(second.SessionID, session.ID)
		}
	}
	s.Equal(1, current)

	rec = s.request(http.MethodDelete, "acme.aureoncare.com", "/auth/sessions/"+first.SessionID, second.AccessToken, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", first.AccessToken, "")
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", second.AccessToken, "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *TransportSuite) TestRevokingForeignSessionIsNotFound() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	rec := s.request(http.MethodDelete, "acme.aureoncare.com", "/auth/sessions/"+id.NewSessionID().String(), pair.AccessToken, "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(string(dErrors.CodeNotFound), s.rejection(rec).Code)
}

func (s *TransportSuite) TestRateLimitBudgetEnforced() {
	s.router = s.buildRouter(2, false)

	for i := 0; i < 2; i++ {
		rec := s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", "", "")
		s.Equal(http.StatusUnauthorized, rec.Code, "budget not yet exhausted")
	}

	rec := s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", "", "")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal(string(dErrors.CodeRateLimitExceeded), s.rejection(rec).Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))
	s.Equal("0", rec.Header().Get("X-RateLimit-Remaining"))
}

func (s *TransportSuite) TestMFARequiredByTenantPolicy() {
	s.acme.SecuritySettings = map[string]any{"mfa_required": true}

	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)
	rec := s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", pair.AccessToken, "")
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(string(dErrors.CodeMFARequired), s.rejection(rec).Code)
}

func (s *TransportSuite) TestFeatureGateOnAppointments() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	body := fmt.Sprintf(`{"patientId":"p-1","startsAt":%q}`, time.Now().Add(time.Hour).Format(time.RFC3339))
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/api/appointments", pair.AccessToken, body)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(string(dErrors.CodeFeatureNotEnabled), s.rejection(rec).Code)

	s.acme.Features = map[string]bool{"scheduling": true}
	s.roles.Put(&authmodels.Role{
		TenantID:    s.acme.ID,
		Code:        "staff",
		Permissions: []string{"*"},
	})
	s.router = s.buildRouter(100, false)
	pair = s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	rec = s.request(http.MethodPost, "acme.aureoncare.com", "/api/appointments", pair.AccessToken, body)
	s.Equal(http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *TransportSuite) TestAuditLogQuery() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	// Generate an immediate entry to query back.
	rec := s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", pair.AccessToken, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodGet, "acme.aureoncare.com", "/audit/logs?resource_type=patient", pair.AccessToken, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var listing struct {
		Entries []auditEntryResponse `json:"entries"`
		Total   int                  `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &listing))
	s.Equal(1, listing.Total)
	s.Require().Len(listing.Entries, 1)
	s.Equal("patient", listing.Entries[0].ResourceType)
	s.True(listing.Entries[0].PHIAccess)
}

func (s *TransportSuite) TestAuditReportNeedsTenantAdmin() {
	pair := s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	body := fmt.Sprintf(`{"type":"security_summary","from":%q,"to":%q}`,
		time.Now().Add(-time.Hour).Format(time.RFC3339), time.Now().Add(time.Hour).Format(time.RFC3339))
	rec := s.request(http.MethodPost, "acme.aureoncare.com", "/audit/reports", pair.AccessToken, body)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal(string(dErrors.CodeNotTenantAdmin), s.rejection(rec).Code)

	s.users.PutMembership(&authmodels.Membership{
		UserID:        s.staff.ID,
		TenantID:      s.acme.ID,
		Roles:         []string{"staff"},
		IsTenantAdmin: true,
		Status:        authmodels.MembershipStatusActive,
	})
	pair = s.login("acme.aureoncare.com", s.staff.Email, testPassword)

	rec = s.request(http.MethodPost, "acme.aureoncare.com", "/audit/reports", pair.AccessToken, body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var report reportResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &report))
	s.Equal("security_summary", report.Type)
	s.NotEmpty(report.ID)
	s.Require().Len(s.auditStore.Reports(), 1)
}

func (s *TransportSuite) TestLegacyHeaderAuthDisabledByDefault() {
	rec := s.request(http.MethodGet, "acme.aureoncare.com", "/api/patients", "", "")
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Host = "acme.aureoncare.com"
	req.Header.Set("X-User-ID", s.staff.ID.String())
	req.Header.Set("X-User-Role", "staff")
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, req)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal(http.StatusUnauthorized, recorder.Code)
	s.Equal(string(dErrors.CodeNoToken), s.rejection(recorder).Code)
}

func (s *TransportSuite) TestLegacyHeaderAuthWhenEnabled() {
	s.router = s.buildRouter(100, true)

	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Host = "acme.aureoncare.com"
	req.Header.Set("X-User-ID", s.staff.ID.String())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code, rec.Body.String())
}
