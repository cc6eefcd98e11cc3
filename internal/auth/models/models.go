// Package models contains pure domain entities for authentication: users,
// tenant memberships, sessions, and the per-request Identity. Nothing here
// depends on transport or storage concerns.
package models

import (
	"time"

	id "aureon/pkg/domain"
)

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusPending   UserStatus = "pending"
)

// MembershipStatus is the state of a user's membership in one tenant. A user
// can be active while a particular membership is suspended.
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusSuspended MembershipStatus = "suspended"
	MembershipStatusRevoked   MembershipStatus = "revoked"
)

// User is a platform account.
type User struct {
	ID           id.UserID
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	Status       UserStatus
	MFAEnabled   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Membership ties a user to a tenant with tenant-scoped roles.
type Membership struct {
	UserID        id.UserID
	TenantID      id.TenantID
	Roles         []string
	IsTenantAdmin bool
	Status        MembershipStatus
	JoinedAt      time.Time
}

func (m *Membership) IsActive() bool {
	// A zero-value membership (user with no tenant-scoped row) does not
	// restrict access; only an explicit non-active status does.
	return m.Status == "" || m.Status == MembershipStatusActive
}

// Identity is the authenticated principal attached to a request. Loaded
// fresh from the store on every request so a blocked or demoted user is
// rejected immediately, not at token expiry.
type Identity struct {
	UserID        id.UserID
	TenantID      id.TenantID
	Email         string
	Role          string
	TenantRoles   []string
	IsTenantAdmin bool
	MFAVerified   bool
	SessionID     id.SessionID
}

// AllRoles returns the base role plus the tenant-scoped roles.
func (i *Identity) AllRoles() []string {
	roles := make([]string, 0, len(i.TenantRoles)+1)
	if i.Role != "" {
		roles = append(roles, i.Role)
	}
	roles = append(roles, i.TenantRoles...)
	return roles
}

// ActiveRole is the role used for tenant permission lookups. The first
// tenant-scoped role wins; the base role is the fallback.
func (i *Identity) ActiveRole() string {
	if len(i.TenantRoles) > 0 {
		return i.TenantRoles[0]
	}
	return i.Role
}

// Session backs one logical login. Tokens reference it by id; the record
// stores only hashes of the token values, never the raw tokens, so a
// database leak cannot be replayed. The hard expiry is independent of token
// expiry: revoking or expiring the session forces logout even while a token
// is still cryptographically valid.
type Session struct {
	ID               id.SessionID
	TenantID         id.TenantID
	UserID           id.UserID
	TokenHash        string
	RefreshTokenHash string

	DeviceName string
	UserAgent  string
	IPAddress  string

	IsActive       bool
	RevokedAt      *time.Time
	RevokedReason  string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// IsValid reports whether the session can authenticate a request at the
// given instant.
func (s *Session) IsValid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// Revoke flips the session inactive and stamps reason and time. Returns
// false when the session was already revoked.
func (s *Session) Revoke(at time.Time, reason string) bool {
	if !s.IsActive {
		return false
	}
	s.IsActive = false
	s.RevokedAt = &at
	s.RevokedReason = reason
	return true
}

// Touch updates the last-activity timestamp if at is newer.
func (s *Session) Touch(at time.Time) {
	if at.After(s.LastActivityAt) {
		s.LastActivityAt = at
	}
}

// Role is a tenant-scoped role definition carrying its permission list.
// "*" in the permission list grants everything.
type Role struct {
	TenantID    id.TenantID
	Code        string
	Name        string
	Permissions []string
}

// Allows reports whether the role's permission list covers the requested
// permission, either verbatim or via the wildcard.
func (r *Role) Allows(permission string) bool {
	for _, p := range r.Permissions {
		if p == "*" || p == permission {
			return true
		}
	}
	return false
}
