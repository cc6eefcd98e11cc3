package service

import (
	"context"
	"errors"

	"aureon/internal/auth/models"
	"aureon/internal/sentinel"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

// Revocation reasons used across the platform.
const (
	ReasonLogout           = "logout"
	ReasonPasswordChanged  = "password_changed"
	ReasonAdminRevoked     = "admin_revoked"
	ReasonSecurityIncident = "security_incident"
)

// RevokeSession deactivates one session. Revoking an already-revoked or
// unknown session is not an error for the caller initiating a logout.
func (s *Service) RevokeSession(ctx context.Context, sessionID id.SessionID, reason string) error {
	if sessionID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "session ID is required")
	}
	if err := s.sessions.Revoke(ctx, sessionID, s.now(), reason); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoking session")
	}
	if s.metrics != nil {
		s.metrics.RecordRevocation("single")
	}
	s.logger.Info("session revoked",
		"session_id", sessionID.String(), "reason", reason)
	return nil
}

// RevokeAllUserSessions deactivates every active session of the user within
// one tenant. Sessions of the same user in other tenants are untouched.
// Used on password change, compromise response, and admin block.
func (s *Service) RevokeAllUserSessions(ctx context.Context, userID id.UserID, tenantID id.TenantID, reason string) (int, error) {
	if userID.IsNil() || tenantID.IsNil() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "user and tenant IDs are required")
	}
	revoked, err := s.sessions.RevokeAllForUser(ctx, userID, tenantID, s.now(), reason)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "revoking user sessions")
	}
	if s.metrics != nil {
		s.metrics.RecordRevocation("all")
	}
	s.logger.Info("all user sessions revoked",
		"user_id", userID.String(),
		"tenant_id", tenantID.String(),
		"reason", reason,
		"count", revoked)
	return revoked, nil
}

// ListSessions returns the user's sessions within the tenant, newest first.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID, tenantID id.TenantID) ([]*models.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "listing sessions")
	}
	return sessions, nil
}
