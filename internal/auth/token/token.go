// Package token issues and verifies the signed bearer tokens backing the
// primary authentication path. Access and refresh tokens are HS256 JWTs
// signed with a process-wide secret; both carry the session id so a revoked
// session kills every token it issued.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "aureon/pkg/domain"
)

// TypeRefresh is the type claim distinguishing refresh tokens from access
// tokens. Access tokens carry no type claim.
const TypeRefresh = "refresh"

var (
	ErrInvalidToken = errors.New("token invalid")
	ErrWrongType    = errors.New("token type mismatch")
)

// Claims is the payload both token kinds share. Refresh tokens omit email,
// tenant code, and role.
type Claims struct {
	UserID     string `json:"userId"`
	Email      string `json:"email,omitempty"`
	TenantID   string `json:"tenantId"`
	TenantCode string `json:"tenantCode,omitempty"`
	Role       string `json:"role,omitempty"`
	SessionID  string `json:"sessionId"`
	Type       string `json:"type,omitempty"`

	jwt.RegisteredClaims
}

// Principal is what the caller proves about itself; one Principal yields one
// access/refresh token pair.
type Principal struct {
	UserID     id.UserID
	Email      string
	TenantID   id.TenantID
	TenantCode id.TenantCode
	Role       string
	SessionID  id.SessionID
}

// Service signs and verifies tokens.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// New constructs a token service. secret must be non-empty; TTLs fall back
// to 24h access / 168h refresh when zero.
func New(secret string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 168 * time.Hour
	}
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock overrides the clock. Test use only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AccessTTL reports the configured access-token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// IssueAccess signs a short-lived access token for the principal.
func (s *Service) IssueAccess(p Principal) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:     p.UserID.String(),
		Email:      p.Email,
		TenantID:   p.TenantID.String(),
		TenantCode: p.TenantCode.String(),
		Role:       p.Role,
		SessionID:  p.SessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			// jti makes every issuance distinct even within one clock
			// second, so rotation always changes the stored hash.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// IssueRefresh signs a longer-lived refresh token. It carries only the ids
// needed to locate the session plus the refresh type claim.
func (s *Service) IssueRefresh(p Principal) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    p.UserID.String(),
		TenantID:  p.TenantID.String(),
		SessionID: p.SessionID.String(),
		Type:      TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks structure, signature, and expiry of an access token.
// Refresh tokens are rejected here; use VerifyRefresh.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type == TypeRefresh {
		return nil, ErrWrongType
	}
	return claims, nil
}

// VerifyRefresh checks a refresh token, requiring the refresh type claim.
func (s *Service) VerifyRefresh(raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrWrongType
	}
	return claims, nil
}

func (s *Service) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// PeekTenantID extracts the tenant id claim without verifying the
// signature. The resolver uses this as its highest-priority signal; the
// authenticator re-validates the claim once the signature is checked.
func PeekTenantID(raw string) (id.TenantID, bool) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return id.TenantID{}, false
	}
	tenantID, err := id.ParseTenantID(claims.TenantID)
	if err != nil || tenantID.IsNil() {
		return id.TenantID{}, false
	}
	return tenantID, true
}

// Hash returns the hex SHA-256 of a token value. Sessions persist hashes
// only; the raw token never reaches the store.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
