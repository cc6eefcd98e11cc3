package service

import (
	"context"
	"errors"

	"aureon/internal/auth/token"
	"aureon/internal/sentinel"
	tenantmodels "aureon/internal/tenant/models"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

// RefreshResult carries the rotated access token.
type RefreshResult struct {
	AccessToken string
	ExpiresIn   int64
	SessionID   id.SessionID
}

// Refresh exchanges a refresh token for a new access token against the same
// session. The session keeps its hard expiry; refresh extends nothing but
// the access token.
func (s *Service) Refresh(ctx context.Context, tenant *tenantmodels.Context, rawRefresh string) (*RefreshResult, error) {
	if tenant == nil {
		return nil, dErrors.New(dErrors.CodeNoTenantContext, "refresh requires a tenant context")
	}
	if rawRefresh == "" {
		return nil, dErrors.New(dErrors.CodeNoToken, "refresh token is required")
	}

	claims, err := s.tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		s.recordRefresh("invalid")
		return nil, dErrors.New(dErrors.CodeInvalidToken, "refresh token is invalid or expired")
	}

	tokenTenant, err := id.ParseTenantID(claims.TenantID)
	if err != nil || tokenTenant != tenant.ID {
		s.recordRefresh("mismatch")
		return nil, dErrors.New(dErrors.CodeTenantMismatch, "refresh token does not belong to this tenant")
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "refresh token carries a malformed subject")
	}

	user, membership, err := s.loadActiveUser(ctx, userID, tenant.ID)
	if err != nil {
		s.recordRefresh("rejected")
		return nil, err
	}

	now := s.now()
	session, err := s.sessions.FindByRefreshHash(ctx, token.Hash(rawRefresh), user.ID, tenant.ID, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordRefresh("session_invalid")
			return nil, dErrors.New(dErrors.CodeSessionInvalid, "session has been revoked or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}

	role := user.Role
	if len(membership.Roles) > 0 {
		role = membership.Roles[0]
	}
	access, err := s.tokens.IssueAccess(token.Principal{
		UserID:     user.ID,
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantCode: tenant.Code,
		Role:       role,
		SessionID:  session.ID,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "signing access token")
	}

	// Rotating the stored hash invalidates the previous access token for
	// session lookups immediately.
	if err := s.sessions.UpdateTokenHash(ctx, session.ID, token.Hash(access)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rotating session token")
	}
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("session activity touch failed",
			"session_id", session.ID.String(), "error", err)
	}

	s.recordRefresh("ok")
	return &RefreshResult{
		AccessToken: access,
		ExpiresIn:   int64(s.tokens.AccessTTL().Seconds()),
		SessionID:   session.ID,
	}, nil
}

func (s *Service) recordRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRefresh(outcome)
	}
}
