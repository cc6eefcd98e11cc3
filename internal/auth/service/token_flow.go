package service

import (
	"context"
	"errors"

	"aureon/internal/auth/device"
	"aureon/internal/auth/models"
	"aureon/internal/auth/password"
	"aureon/internal/auth/token"
	"aureon/internal/platform/privacy"
	"aureon/internal/sentinel"
	tenantmodels "aureon/internal/tenant/models"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

// LoginRequest carries the credentials and client metadata of a login.
type LoginRequest struct {
	Email    string
	Password string

	UserAgent string
	IPAddress string
}

// TokenPair is the result of a successful login or refresh. ExpiresIn is
// the access-token lifetime in seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	SessionID    id.SessionID
	UserID       id.UserID
}

// Login verifies the credentials against the tenant's user base and issues
// a token pair with its backing session. Credential failures are reported
// as NOT_AUTHENTICATED without distinguishing unknown email from wrong
// password.
func (s *Service) Login(ctx context.Context, tenant *tenantmodels.Context, req LoginRequest) (*TokenPair, error) {
	if tenant == nil {
		return nil, dErrors.New(dErrors.CodeNoTenantContext, "login requires a tenant context")
	}
	if req.Email == "" || req.Password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	user, membership, err := s.users.FindByEmail(ctx, req.Email, tenant.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejectLogin(req)
			return nil, dErrors.New(dErrors.CodeNotAuthenticated, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "user lookup failed")
	}
	if !password.Compare(user.PasswordHash, req.Password) {
		s.rejectLogin(req)
		return nil, dErrors.New(dErrors.CodeNotAuthenticated, "invalid credentials")
	}
	if !user.IsActive() {
		s.recordLogin("inactive")
		return nil, dErrors.New(dErrors.CodeUserInactive, "user account is not active")
	}
	if !membership.IsActive() {
		s.recordLogin("restricted")
		return nil, dErrors.New(dErrors.CodeTenantAccessRestricted, "access to this tenant is restricted")
	}

	pair, err := s.IssueTokens(ctx, user, membership, tenant, req.UserAgent, req.IPAddress)
	if err != nil {
		return nil, err
	}
	s.recordLogin("ok")
	return pair, nil
}

// rejectLogin records a failed credential check. The address and IP are
// masked before logging; the unmasked values never leave the request.
func (s *Service) rejectLogin(req LoginRequest) {
	s.recordLogin("rejected")
	s.logger.Warn("login rejected",
		"email", privacy.MaskEmail(req.Email),
		"client_net", privacy.AnonymizeIP(req.IPAddress))
}

// IssueTokens signs an access/refresh pair for an already-verified user and
// writes the backing session. The session stores hashes of both token
// values and a hard expiry independent of token lifetime, so revoking the
// session force-logs-out even while the tokens are still valid signatures.
func (s *Service) IssueTokens(ctx context.Context, user *models.User, membership *models.Membership, tenant *tenantmodels.Context, userAgent, ipAddress string) (*TokenPair, error) {
	sessionID := id.NewSessionID()

	role := user.Role
	if len(membership.Roles) > 0 {
		role = membership.Roles[0]
	}

	principal := token.Principal{
		UserID:     user.ID,
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantCode: tenant.Code,
		Role:       role,
		SessionID:  sessionID,
	}

	access, err := s.tokens.IssueAccess(principal)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signing access token")
	}
	refresh, err := s.tokens.IssueRefresh(principal)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signing refresh token")
	}

	now := s.now()
	session := &models.Session{
		ID:               sessionID,
		TenantID:         tenant.ID,
		UserID:           user.ID,
		TokenHash:        token.Hash(access),
		RefreshTokenHash: token.Hash(refresh),
		DeviceName:       device.Name(userAgent),
		UserAgent:        userAgent,
		IPAddress:        ipAddress,
		IsActive:         true,
		ExpiresAt:        now.Add(s.sessionTTL),
		CreatedAt:        now,
		LastActivityAt:   now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting session")
	}

	if s.metrics != nil {
		s.metrics.RecordTokensIssued()
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		SessionID:    sessionID,
		UserID:       user.ID,
	}, nil
}

func (s *Service) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
}
