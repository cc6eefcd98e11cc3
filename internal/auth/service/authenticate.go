package service

import (
	"context"
	"errors"
	"fmt"

	"aureon/internal/auth/models"
	"aureon/internal/auth/token"
	"aureon/internal/sentinel"
	tenantmodels "aureon/internal/tenant/models"
	"aureon/internal/tracer"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

// AuthenticateRequest carries the request-boundary credentials.
type AuthenticateRequest struct {
	// RawToken is the bearer token, empty when the header was absent.
	RawToken string

	// Tenant is the resolved tenant context; required for the primary path.
	Tenant *tenantmodels.Context

	// LegacyUserID and LegacyRole come from the migration-era principal
	// headers. Honored only when the legacy path is enabled.
	LegacyUserID string
	LegacyRole   string

	// Optional makes missing or invalid credentials proceed
	// unauthenticated instead of failing the request.
	Optional bool
}

// Authenticate runs the primary authentication path: verify the token,
// confirm the token's tenant matches the resolved tenant, load the user and
// membership fresh, and require a live session keyed by the token's hash.
// In optional mode a nil Identity with nil error means "unauthenticated".
func (s *Service) Authenticate(ctx context.Context, req AuthenticateRequest) (*models.Identity, error) {
	ctx, span := s.trace.Start(ctx, tracer.SpanAuthenticate)

	identity, err := s.authenticate(ctx, req)
	if err != nil {
		s.recordFailure(string(dErrors.CodeOf(err)))
		span.End(err)
		return nil, err
	}
	if identity != nil {
		span.SetAttributes(tracer.IdentityAttrs(identity.UserID, identity.TenantID)...)
	}
	span.End(nil)
	return identity, nil
}

func (s *Service) authenticate(ctx context.Context, req AuthenticateRequest) (*models.Identity, error) {
	if req.RawToken == "" {
		if s.legacyHeaderAuth && req.LegacyUserID != "" && req.Tenant != nil {
			return s.authenticateLegacy(ctx, req)
		}
		if req.Optional {
			return nil, nil
		}
		return nil, dErrors.New(dErrors.CodeNoToken, "authentication token is required")
	}

	claims, err := s.tokens.Verify(req.RawToken)
	if err != nil {
		if req.Optional {
			return nil, nil
		}
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token is invalid or expired")
	}

	if req.Tenant == nil {
		return nil, dErrors.New(dErrors.CodeNoTenantContext, "no tenant context for authentication")
	}

	tokenTenant, err := id.ParseTenantID(claims.TenantID)
	if err != nil || tokenTenant != req.Tenant.ID {
		return nil, dErrors.New(dErrors.CodeTenantMismatch, "token does not belong to this tenant")
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token carries a malformed subject")
	}

	user, membership, err := s.loadActiveUser(ctx, userID, req.Tenant.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session, err := s.sessions.FindByTokenHash(ctx, token.Hash(req.RawToken), user.ID, req.Tenant.ID, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeSessionInvalid, "session has been revoked or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session lookup failed")
	}

	// Best effort; a failed touch must not reject an otherwise valid login.
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("session activity touch failed",
			"session_id", session.ID.String(), "error", err)
	}

	return &models.Identity{
		UserID:        user.ID,
		TenantID:      req.Tenant.ID,
		Email:         user.Email,
		Role:          user.Role,
		TenantRoles:   membership.Roles,
		IsTenantAdmin: membership.IsTenantAdmin,
		MFAVerified:   user.MFAEnabled,
		SessionID:     session.ID,
	}, nil
}

// authenticateLegacy is the time-boxed header fallback: no token, no
// session, the caller names its own principal and role. It exists so
// pre-migration clients keep working and must be retired with them.
func (s *Service) authenticateLegacy(ctx context.Context, req AuthenticateRequest) (*models.Identity, error) {
	userID, err := id.ParseUserID(req.LegacyUserID)
	if err != nil {
		if req.Optional {
			return nil, nil
		}
		return nil, dErrors.New(dErrors.CodeUserNotFound, "unknown principal")
	}

	user, membership, err := s.loadActiveUser(ctx, userID, req.Tenant.ID)
	if err != nil {
		if req.Optional {
			return nil, nil
		}
		return nil, err
	}

	role := user.Role
	if req.LegacyRole != "" {
		role = req.LegacyRole
	}

	s.logger.Warn("legacy header authentication used",
		"user_id", user.ID.String(),
		"tenant_id", req.Tenant.ID.String(),
		"role_override", req.LegacyRole != "")

	return &models.Identity{
		UserID:        user.ID,
		TenantID:      req.Tenant.ID,
		Email:         user.Email,
		Role:          role,
		TenantRoles:   membership.Roles,
		IsTenantAdmin: membership.IsTenantAdmin,
		MFAVerified:   user.MFAEnabled,
	}, nil
}

// loadActiveUser reads the user and membership fresh from the store and
// enforces both statuses. Fresh reads mean a block takes effect on the next
// request, not at token expiry.
func (s *Service) loadActiveUser(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.User, *models.Membership, error) {
	user, membership, err := s.users.FindByID(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeUserNotFound, "user account not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "user lookup failed")
	}
	if !user.IsActive() {
		return nil, nil, dErrors.New(dErrors.CodeUserInactive, fmt.Sprintf("user account is %s", user.Status))
	}
	if !membership.IsActive() {
		return nil, nil, dErrors.New(dErrors.CodeTenantAccessRestricted, "access to this tenant is restricted")
	}
	return user, membership, nil
}
