// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "aureon/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	TenantID  uuid.UUID
	UserID    uuid.UUID
	SessionID uuid.UUID
)

// TenantCode is the short human-readable tenant identifier (e.g. "acme").
// Lowercased at trust boundaries so cache keys stay canonical.
type TenantCode string

// Parse functions - use at trust boundaries (handlers, headers, token claims).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

// String methods - for logging and debugging.

func (id TenantID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (c TenantCode) String() string { return string(c) }

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (c TenantCode) IsNil() bool { return c == "" }

// NewTenantID generates a random tenant identifier.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewUserID generates a random user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID generates a random session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// parseUUID is the shared validation logic. Nil UUIDs are allowed here;
// services use IsNil() where a concrete ID is a business requirement so
// store lookups can still return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
