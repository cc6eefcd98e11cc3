package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"aureon/internal/auth/models"
	"aureon/internal/sentinel"
	id "aureon/pkg/domain"
)

// PostgresUserStore loads users joined with their tenant membership row.
type PostgresUserStore struct {
	db *sql.DB
}

// NewPostgresUsers constructs a PostgreSQL-backed user store.
func NewPostgresUsers(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `
	u.id, u.email, u.first_name, u.last_name, u.password_hash,
	u.role, u.status, u.mfa_enabled, u.created_at, u.updated_at,
	m.roles, m.is_tenant_admin, m.status, m.joined_at`

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.User, *models.Membership, error) {
	query := `SELECT` + userColumns + `
		FROM users u
		LEFT JOIN tenant_memberships m ON m.user_id = u.id AND m.tenant_id = $2
		WHERE u.id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(userID), uuid.UUID(tenantID)), tenantID)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string, tenantID id.TenantID) (*models.User, *models.Membership, error) {
	query := `SELECT` + userColumns + `
		FROM users u
		LEFT JOIN tenant_memberships m ON m.user_id = u.id AND m.tenant_id = $2
		WHERE lower(u.email) = lower($1)`
	return scanUser(s.db.QueryRowContext(ctx, query, email, uuid.UUID(tenantID)), tenantID)
}

func scanUser(row *sql.Row, tenantID id.TenantID) (*models.User, *models.Membership, error) {
	var (
		u       models.User
		userID  uuid.UUID
		roles   []byte
		isAdmin sql.NullBool
		mStatus sql.NullString
		joined  sql.NullTime
	)

	err := row.Scan(
		&userID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.Role, &u.Status, &u.MFAEnabled, &u.CreatedAt, &u.UpdatedAt,
		&roles, &isAdmin, &mStatus, &joined,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(userID)

	m := &models.Membership{
		UserID:   u.ID,
		TenantID: tenantID,
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &m.Roles); err != nil {
			return nil, nil, fmt.Errorf("decode membership roles: %w", err)
		}
	}
	m.IsTenantAdmin = isAdmin.Bool
	m.Status = models.MembershipStatus(mStatus.String)
	if joined.Valid {
		m.JoinedAt = joined.Time
	}

	return &u, m, nil
}

// PostgresSessionStore persists login sessions.
type PostgresSessionStore struct {
	db *sql.DB
}

// NewPostgresSessions constructs a PostgreSQL-backed session store.
func NewPostgresSessions(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

const sessionColumns = `
	id, tenant_id, user_id, token_hash, refresh_token_hash,
	device_name, user_agent, ip_address,
	is_active, revoked_at, revoked_reason,
	expires_at, created_at, last_activity_at`

func (s *PostgresSessionStore) Create(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO sessions (` + strings.TrimSpace(sessionColumns) + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(session.ID), uuid.UUID(session.TenantID), uuid.UUID(session.UserID),
		session.TokenHash, session.RefreshTokenHash,
		session.DeviceName, session.UserAgent, session.IPAddress,
		session.IsActive, session.RevokedAt, nullString(session.RevokedReason),
		session.ExpiresAt, session.CreatedAt, session.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) FindByTokenHash(ctx context.Context, hash string, userID id.UserID, tenantID id.TenantID, now time.Time) (*models.Session, error) {
	return s.findByHash(ctx, "token_hash", hash, userID, tenantID, now)
}

func (s *PostgresSessionStore) FindByRefreshHash(ctx context.Context, hash string, userID id.UserID, tenantID id.TenantID, now time.Time) (*models.Session, error) {
	return s.findByHash(ctx, "refresh_token_hash", hash, userID, tenantID, now)
}

func (s *PostgresSessionStore) findByHash(ctx context.Context, column, hash string, userID id.UserID, tenantID id.TenantID, now time.Time) (*models.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE ` + column + ` = $1 AND user_id = $2 AND tenant_id = $3
			AND is_active = TRUE AND expires_at > $4`
	return scanSession(s.db.QueryRowContext(ctx, query, hash, uuid.UUID(userID), uuid.UUID(tenantID), now))
}

func (s *PostgresSessionStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE id = $1`
	return scanSession(s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID)))
}

func (s *PostgresSessionStore) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) error {
	query := `UPDATE sessions SET last_activity_at = $2 WHERE id = $1 AND last_activity_at < $2`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(sessionID), at); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) UpdateTokenHash(ctx context.Context, sessionID id.SessionID, hash string) error {
	query := `UPDATE sessions SET token_hash = $2 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(sessionID), hash)
	if err != nil {
		return fmt.Errorf("update session token hash: %w", err)
	}
	return requireRow(res, "session")
}

func (s *PostgresSessionStore) Revoke(ctx context.Context, sessionID id.SessionID, at time.Time, reason string) error {
	query := `UPDATE sessions
		SET is_active = FALSE, revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND is_active = TRUE`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(sessionID), at, reason); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *PostgresSessionStore) RevokeAllForUser(ctx context.Context, userID id.UserID, tenantID id.TenantID, at time.Time, reason string) (int, error) {
	query := `UPDATE sessions
		SET is_active = FALSE, revoked_at = $3, revoked_reason = $4
		WHERE user_id = $1 AND tenant_id = $2 AND is_active = TRUE`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(userID), uuid.UUID(tenantID), at, reason)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return int(n), nil
}

func (s *PostgresSessionStore) ListByUser(ctx context.Context, userID id.UserID, tenantID id.TenantID) ([]*models.Session, error) {
	query := `SELECT` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*models.Session, error) {
	sess, err := scanSessionFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, err
	}
	return sess, nil
}

func scanSessionRow(rows *sql.Rows) (*models.Session, error) {
	return scanSessionFrom(rows)
}

func scanSessionFrom(row rowScanner) (*models.Session, error) {
	var (
		sess      models.Session
		sessionID uuid.UUID
		tenantID  uuid.UUID
		userID    uuid.UUID
		revokedAt sql.NullTime
		reason    sql.NullString
	)

	err := row.Scan(
		&sessionID, &tenantID, &userID, &sess.TokenHash, &sess.RefreshTokenHash,
		&sess.DeviceName, &sess.UserAgent, &sess.IPAddress,
		&sess.IsActive, &revokedAt, &reason,
		&sess.ExpiresAt, &sess.CreatedAt, &sess.LastActivityAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.ID = id.SessionID(sessionID)
	sess.TenantID = id.TenantID(tenantID)
	sess.UserID = id.UserID(userID)
	if revokedAt.Valid {
		at := revokedAt.Time
		sess.RevokedAt = &at
	}
	sess.RevokedReason = reason.String
	return &sess, nil
}

// PostgresRoleStore resolves tenant role definitions.
type PostgresRoleStore struct {
	db *sql.DB
}

// NewPostgresRoles constructs a PostgreSQL-backed role store.
func NewPostgresRoles(db *sql.DB) *PostgresRoleStore {
	return &PostgresRoleStore{db: db}
}

func (s *PostgresRoleStore) FindByCode(ctx context.Context, tenantID id.TenantID, code string) (*models.Role, error) {
	query := `SELECT tenant_id, code, name, permissions
		FROM tenant_roles
		WHERE tenant_id = $1 AND code = $2`

	var (
		role     models.Role
		tid      uuid.UUID
		permsRaw []byte
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID), code).
		Scan(&tid, &role.Code, &role.Name, &permsRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	role.TenantID = id.TenantID(tid)
	if len(permsRaw) > 0 {
		if err := json.Unmarshal(permsRaw, &role.Permissions); err != nil {
			return nil, fmt.Errorf("decode role permissions: %w", err)
		}
	}
	return &role, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, sentinel.ErrNotFound)
	}
	return nil
}

var (
	_ UserStore    = (*PostgresUserStore)(nil)
	_ SessionStore = (*PostgresSessionStore)(nil)
	_ RoleStore    = (*PostgresRoleStore)(nil)
)
