// Package store defines the persistence contracts of the auth domain and
// provides in-memory and PostgreSQL implementations.
//
// Error contract: lookups that find nothing wrap sentinel.ErrNotFound; every
// other error is a dependency failure. The service layer translates
// sentinels into domain error codes exactly once.
package store

import (
	"context"
	"time"

	"aureon/internal/auth/models"
	id "aureon/pkg/domain"
)

// UserStore loads accounts and their tenant memberships. The membership row
// is joined per tenant so a single read answers both "is the user active"
// and "may they act in this tenant".
type UserStore interface {
	// FindByID returns the user and their membership in the given tenant.
	// A user without a membership row gets a zero-value Membership, which
	// does not restrict access.
	FindByID(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.User, *models.Membership, error)

	// FindByEmail is the login-path lookup; membership semantics match
	// FindByID.
	FindByEmail(ctx context.Context, email string, tenantID id.TenantID) (*models.User, *models.Membership, error)
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error

	// FindByTokenHash returns the session matching the presented token's
	// hash, scoped to user and tenant, active and unexpired as of now.
	FindByTokenHash(ctx context.Context, hash string, userID id.UserID, tenantID id.TenantID, now time.Time) (*models.Session, error)

	// FindByRefreshHash is the refresh-path equivalent of FindByTokenHash.
	FindByRefreshHash(ctx context.Context, hash string, userID id.UserID, tenantID id.TenantID, now time.Time) (*models.Session, error)

	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)

	// Touch updates last_activity_at.
	Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error

	// UpdateTokenHash replaces the access-token hash after a refresh.
	UpdateTokenHash(ctx context.Context, sessionID id.SessionID, hash string) error

	// Revoke deactivates one session with a reason.
	Revoke(ctx context.Context, sessionID id.SessionID, at time.Time, reason string) error

	// RevokeAllForUser deactivates every active session of the user within
	// the tenant and reports how many were revoked.
	RevokeAllForUser(ctx context.Context, userID id.UserID, tenantID id.TenantID, at time.Time, reason string) (int, error)

	// ListByUser returns the user's sessions in the tenant, newest first.
	ListByUser(ctx context.Context, userID id.UserID, tenantID id.TenantID) ([]*models.Session, error)

	// DeleteExpired removes sessions whose hard expiry passed before
	// cutoff. Maintenance path, invoked by the cleanup worker.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// RoleStore resolves tenant-scoped role definitions for permission checks.
type RoleStore interface {
	FindByCode(ctx context.Context, tenantID id.TenantID, code string) (*models.Role, error)
}
