package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aureon/internal/auth/models"
	"aureon/internal/auth/password"
	"aureon/internal/auth/store"
	"aureon/internal/auth/token"
	tenantmodels "aureon/internal/tenant/models"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite

	users    *store.InMemoryUserStore
	sessions *store.InMemorySessionStore
	tokens   *token.Service
	clock    time.Time

	svc *Service

	tenant      *tenantmodels.Context
	otherTenant *tenantmodels.Context
	user        *models.User
}

const testPassword = "Str0ng!Passw0rd"

func (s *ServiceSuite) SetupTest() {
	s.users = store.NewMemoryUsers()
	s.sessions = store.NewMemorySessions()
	s.clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	var err error
	s.tokens, err = token.New("test-secret", 24*time.Hour, 168*time.Hour)
	s.Require().NoError(err)
	s.tokens.WithClock(s.now)

	s.svc, err = New(s.users, s.sessions, s.tokens, WithClock(s.now))
	s.Require().NoError(err)

	s.tenant = tenantmodels.NewContext(&tenantmodels.Tenant{
		ID:     id.NewTenantID(),
		Code:   "acme",
		Name:   "Acme Health",
		Status: tenantmodels.TenantStatusActive,
	})
	s.otherTenant = tenantmodels.NewContext(&tenantmodels.Tenant{
		ID:     id.NewTenantID(),
		Code:   "beta",
		Name:   "Beta Clinic",
		Status: tenantmodels.TenantStatusActive,
	})

	hash, err := password.Hash(testPassword)
	s.Require().NoError(err)
	s.user = &models.User{
		ID:           id.NewUserID(),
		Email:        "u1@acme.example",
		PasswordHash: hash,
		Role:         "staff",
		Status:       models.UserStatusActive,
	}
	s.users.PutUser(s.user)
	s.users.PutMembership(&models.Membership{
		UserID:   s.user.ID,
		TenantID: s.tenant.ID,
		Roles:    []string{"staff"},
		Status:   models.MembershipStatusActive,
	})
}

func (s *ServiceSuite) now() time.Time { return s.clock }

func (s *ServiceSuite) advance(d time.Duration) { s.clock = s.clock.Add(d) }

func (s *ServiceSuite) login() *TokenPair {
	pair, err := s.svc.Login(context.Background(), s.tenant, LoginRequest{
		Email:    s.user.Email,
		Password: testPassword,
	})
	s.Require().NoError(err)
	return pair
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestLoginIssuesTokenPairAndSession() {
	pair := s.login()

	s.NotEmpty(pair.AccessToken)
	s.NotEmpty(pair.RefreshToken)
	s.Equal(int64((24 * time.Hour).Seconds()), pair.ExpiresIn)

	sess, err := s.sessions.FindByID(context.Background(), pair.SessionID)
	s.Require().NoError(err)
	s.Equal(token.Hash(pair.AccessToken), sess.TokenHash)
	s.NotEqual(pair.AccessToken, sess.TokenHash, "raw token must never be stored")
	s.Equal(s.clock.Add(7*24*time.Hour), sess.ExpiresAt)
}

func (s *ServiceSuite) TestLoginRejectsWrongPassword() {
	_, err := s.svc.Login(context.Background(), s.tenant, LoginRequest{
		Email:    s.user.Email,
		Password: "wrong",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthenticated))
}

func (s *ServiceSuite) TestLoginRejectsUnknownEmailWithSameCode() {
	_, err := s.svc.Login(context.Background(), s.tenant, LoginRequest{
		Email:    "nobody@acme.example",
		Password: testPassword,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthenticated),
		"unknown email must not be distinguishable from wrong password")
}

func (s *ServiceSuite) TestAuthenticateHappyPath() {
	pair := s.login()

	identity, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: pair.AccessToken,
		Tenant:   s.tenant,
	})
	s.Require().NoError(err)
	s.Equal(s.user.ID, identity.UserID)
	s.Equal(s.tenant.ID, identity.TenantID)
	s.Equal([]string{"staff"}, identity.TenantRoles)
	s.Equal(pair.SessionID, identity.SessionID)
}

func (s *ServiceSuite) TestAuthenticateWithoutTokenFails() {
	_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{Tenant: s.tenant})
	s.True(dErrors.HasCode(err, dErrors.CodeNoToken))
}

func (s *ServiceSuite) TestAuthenticateGarbageTokenFails() {
	_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: "not-a-jwt",
		Tenant:   s.tenant,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *ServiceSuite) TestOptionalModeProceedsUnauthenticated() {
	for _, raw := range []string{"", "not-a-jwt"} {
		identity, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
			RawToken: raw,
			Tenant:   s.tenant,
			Optional: true,
		})
		s.NoError(err)
		s.Nil(identity)
	}
}

func (s *ServiceSuite) TestTenantMismatchRejected() {
	pair := s.login()

	_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: pair.AccessToken,
		Tenant:   s.otherTenant,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTenantMismatch))
}

func (s *ServiceSuite) TestInactiveUserRejected() {
	pair := s.login()
	s.user.Status = models.UserStatusSuspended

	_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: pair.AccessToken,
		Tenant:   s.tenant,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUserInactive))
}

func (s *ServiceSuite) TestSuspendedMembershipRejected() {
	pair := s.login()
	s.users.PutMembership(&models.Membership{
		UserID:   s.user.ID,
		TenantID: s.tenant.ID,
		Roles:    []string{"staff"},
		Status:   models.MembershipStatusSuspended,
	})

	_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: pair.AccessToken,
		Tenant:   s.tenant,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTenantAccessRestricted))
}

func (s *ServiceSuite) TestRevokedSessionRejectedImmediately() {
	pair := s.login()

	s.Require().NoError(s.svc.RevokeSession(context.Background(), pair.SessionID, ReasonLogout))

	_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: pair.AccessToken,
		Tenant:   s.tenant,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid),
		"revoked session must be rejected even while the token signature is valid")
}

func (s *ServiceSuite) TestExpiredSessionRejectedDespiteValidToken() {
	short, err := New(s.users, s.sessions, s.tokens,
		WithClock(s.now), WithSessionTTL(time.Hour))
	s.Require().NoError(err)

	pair, err := short.Login(context.Background(), s.tenant, LoginRequest{
		Email:    s.user.Email,
		Password: testPassword,
	})
	s.Require().NoError(err)

	s.advance(2 * time.Hour)

	_, err = short.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: pair.AccessToken,
		Tenant:   s.tenant,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
}

func (s *ServiceSuite) TestRevokeAllScopedToUserAndTenant() {
	// Two sessions for u1 in acme, one for u1 in beta, one for u2 in acme.
	first := s.login()
	second := s.login()

	s.users.PutMembership(&models.Membership{
		UserID:   s.user.ID,
		TenantID: s.otherTenant.ID,
		Status:   models.MembershipStatusActive,
	})
	betaPair, err := s.svc.Login(context.Background(), s.otherTenant, LoginRequest{
		Email:    s.user.Email,
		Password: testPassword,
	})
	s.Require().NoError(err)

	other := &models.User{
		ID:           id.NewUserID(),
		Email:        "u2@acme.example",
		PasswordHash: s.user.PasswordHash,
		Role:         "staff",
		Status:       models.UserStatusActive,
	}
	s.users.PutUser(other)
	otherPair, err := s.svc.Login(context.Background(), s.tenant, LoginRequest{
		Email:    other.Email,
		Password: testPassword,
	})
	s.Require().NoError(err)

	revoked, err := s.svc.RevokeAllUserSessions(context.Background(), s.user.ID, s.tenant.ID, ReasonPasswordChanged)
	s.Require().NoError(err)
	s.Equal(2, revoked)

	for _, pair := range []*TokenPair{first, second} {
		_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
			RawToken: pair.AccessToken,
			Tenant:   s.tenant,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
	}

	_, err = s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: betaPair.AccessToken,
		Tenant:   s.otherTenant,
	})
	s.NoError(err, "same user in another tenant must keep its session")

	_, err = s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: otherPair.AccessToken,
		Tenant:   s.tenant,
	})
	s.NoError(err, "other users in the same tenant must keep their sessions")
}

func (s *ServiceSuite) TestRefreshRotatesAccessToken() {
	pair := s.login()
	s.advance(time.Minute)

	res, err := s.svc.Refresh(context.Background(), s.tenant, pair.RefreshToken)
	s.Require().NoError(err)
	s.NotEqual(pair.AccessToken, res.AccessToken)
	s.Equal(pair.SessionID, res.SessionID)

	// The rotated token authenticates; the superseded one no longer
	// matches the stored hash.
	_, err = s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: res.AccessToken,
		Tenant:   s.tenant,
	})
	s.NoError(err)

	_, err = s.svc.Authenticate(context.Background(), AuthenticateRequest{
		RawToken: pair.AccessToken,
		Tenant:   s.tenant,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
}

func (s *ServiceSuite) TestRefreshRejectsAccessToken() {
	pair := s.login()

	_, err := s.svc.Refresh(context.Background(), s.tenant, pair.AccessToken)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *ServiceSuite) TestRefreshRejectsRevokedSession() {
	pair := s.login()
	s.Require().NoError(s.svc.RevokeSession(context.Background(), pair.SessionID, ReasonLogout))

	_, err := s.svc.Refresh(context.Background(), s.tenant, pair.RefreshToken)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
}

func (s *ServiceSuite) TestLegacyHeaderPathDisabledByDefault() {
	_, err := s.svc.Authenticate(context.Background(), AuthenticateRequest{
		Tenant:       s.tenant,
		LegacyUserID: s.user.ID.String(),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNoToken))
}

func (s *ServiceSuite) TestLegacyHeaderPathWhenEnabled() {
	legacy, err := New(s.users, s.sessions, s.tokens,
		WithClock(s.now), WithLegacyHeaderAuth(true))
	s.Require().NoError(err)

	identity, err := legacy.Authenticate(context.Background(), AuthenticateRequest{
		Tenant:       s.tenant,
		LegacyUserID: s.user.ID.String(),
		LegacyRole:   "supervisor",
	})
	s.Require().NoError(err)
	s.Equal(s.user.ID, identity.UserID)
	s.Equal("supervisor", identity.Role, "legacy path accepts the caller-supplied role override")
	s.True(identity.SessionID.IsNil(), "legacy path has no backing session")
}

func (s *ServiceSuite) TestListSessionsNewestFirst() {
	first := s.login()
	s.advance(time.Minute)
	second := s.login()

	sessions, err := s.svc.ListSessions(context.Background(), s.user.ID, s.tenant.ID)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(second.SessionID, sessions[0].ID)
	s.Equal(first.SessionID, sessions[1].ID)
}
