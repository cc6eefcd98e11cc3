package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"aureon/internal/auth/models"
	"aureon/internal/sentinel"
	id "aureon/pkg/domain"
)

// InMemoryUserStore holds users and memberships for tests/dev.
type InMemoryUserStore struct {
	mu          sync.RWMutex
	users       map[id.UserID]*models.User
	memberships map[membershipKey]*models.Membership
}

type membershipKey struct {
	userID   id.UserID
	tenantID id.TenantID
}

// NewMemoryUsers constructs an empty in-memory user store.
func NewMemoryUsers() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:       make(map[id.UserID]*models.User),
		memberships: make(map[membershipKey]*models.Membership),
	}
}

// PutUser inserts or replaces a user. Test/seed helper.
func (s *InMemoryUserStore) PutUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// PutMembership inserts or replaces a membership. Test/seed helper.
func (s *InMemoryUserStore) PutMembership(m *models.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[membershipKey{m.UserID, m.TenantID}] = m
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID, tenantID id.TenantID) (*models.User, *models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return user, s.membership(userID, tenantID), nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string, tenantID id.TenantID) (*models.User, *models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return user, s.membership(user.ID, tenantID), nil
		}
	}
	return nil, nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// membership returns the stored row or a zero-value non-restricting one.
func (s *InMemoryUserStore) membership(userID id.UserID, tenantID id.TenantID) *models.Membership {
	if m, ok := s.memberships[membershipKey{userID, tenantID}]; ok {
		return m
	}
	return &models.Membership{UserID: userID, TenantID: tenantID}
}

// InMemorySessionStore holds sessions for tests/dev.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

// NewMemorySessions constructs an empty in-memory session store.
func NewMemorySessions() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.SessionID]*models.Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemorySessionStore) FindByTokenHash(_ context.Context, hash string, userID id.UserID, tenantID id.TenantID, now time.Time) (*models.Session, error) {
	return s.findValid(now, func(sess *models.Session) bool {
		return sess.TokenHash == hash && sess.UserID == userID && sess.TenantID == tenantID
	})
}

func (s *InMemorySessionStore) FindByRefreshHash(_ context.Context, hash string, userID id.UserID, tenantID id.TenantID, now time.Time) (*models.Session, error) {
	return s.findValid(now, func(sess *models.Session) bool {
		return sess.RefreshTokenHash == hash && sess.UserID == userID && sess.TenantID == tenantID
	})
}

func (s *InMemorySessionStore) findValid(now time.Time, match func(*models.Session) bool) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if match(sess) && sess.IsValid(now) {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[sessionID]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

func (s *InMemorySessionStore) Touch(_ context.Context, sessionID id.SessionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	sess.Touch(at)
	return nil
}

func (s *InMemorySessionStore) UpdateTokenHash(_ context.Context, sessionID id.SessionID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	sess.TokenHash = hash
	return nil
}

func (s *InMemorySessionStore) Revoke(_ context.Context, sessionID id.SessionID, at time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	sess.Revoke(at, reason)
	return nil
}

func (s *InMemorySessionStore) RevokeAllForUser(_ context.Context, userID id.UserID, tenantID id.TenantID, at time.Time, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.TenantID == tenantID && sess.Revoke(at, reason) {
			revoked++
		}
	}
	return revoked, nil
}

func (s *InMemorySessionStore) ListByUser(_ context.Context, userID id.UserID, tenantID id.TenantID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.TenantID == tenantID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemorySessionStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for sid, sess := range s.sessions {
		if sess.ExpiresAt.Before(cutoff) {
			delete(s.sessions, sid)
			deleted++
		}
	}
	return deleted, nil
}

// InMemoryRoleStore holds tenant role definitions for tests/dev.
type InMemoryRoleStore struct {
	mu    sync.RWMutex
	roles map[roleKey]*models.Role
}

type roleKey struct {
	tenantID id.TenantID
	code     string
}

// NewMemoryRoles constructs an empty in-memory role store.
func NewMemoryRoles() *InMemoryRoleStore {
	return &InMemoryRoleStore{roles: make(map[roleKey]*models.Role)}
}

// Put inserts or replaces a role. Test/seed helper.
func (s *InMemoryRoleStore) Put(role *models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[roleKey{role.TenantID, role.Code}] = role
}

func (s *InMemoryRoleStore) FindByCode(_ context.Context, tenantID id.TenantID, code string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if role, ok := s.roles[roleKey{tenantID, code}]; ok {
		return role, nil
	}
	return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
}

var (
	_ UserStore    = (*InMemoryUserStore)(nil)
	_ SessionStore = (*InMemorySessionStore)(nil)
	_ RoleStore    = (*InMemoryRoleStore)(nil)
)
