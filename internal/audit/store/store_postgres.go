package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"aureon/internal/audit/models"
	id "aureon/pkg/domain"
)

// PostgresStore persists audit entries in PostgreSQL. Value snapshots and
// report payloads live in JSONB columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const auditColumns = `
	id, tenant_id, user_id, action, resource_type, resource_id,
	old_values, new_values, ip_address, user_agent, request_id,
	severity, is_phi_access, is_security_event,
	status, error_message, retention_until, created_at`

const auditColumnCount = 18

func (s *PostgresStore) InsertBatch(ctx context.Context, entries []*models.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*auditColumnCount)
	for i, e := range entries {
		marks := make([]string, auditColumnCount)
		for j := range marks {
			marks[j] = "$" + strconv.Itoa(i*auditColumnCount+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")

		entryArgs, err := entryArgs(e)
		if err != nil {
			return err
		}
		args = append(args, entryArgs...)
	}

	query := `INSERT INTO audit_logs (` + strings.TrimSpace(auditColumns) + `)
		VALUES ` + strings.Join(placeholders, ", ")
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, entry *models.Entry) error {
	return s.InsertBatch(ctx, []*models.Entry{entry})
}

func entryArgs(e *models.Entry) ([]any, error) {
	oldVals, err := marshalSnapshot(e.OldValues)
	if err != nil {
		return nil, fmt.Errorf("encode old values: %w", err)
	}
	newVals, err := marshalSnapshot(e.NewValues)
	if err != nil {
		return nil, fmt.Errorf("encode new values: %w", err)
	}

	var userID any
	if !e.UserID.IsNil() {
		userID = uuid.UUID(e.UserID)
	}

	return []any{
		e.ID, uuid.UUID(e.TenantID), userID, e.Action, e.ResourceType, e.ResourceID,
		oldVals, newVals, e.IPAddress, e.UserAgent, e.RequestID,
		string(e.Severity), e.IsPHIAccess, e.IsSecurityEvent,
		e.Status, e.ErrorMessage, e.RetentionUntil, e.CreatedAt,
	}, nil
}

func marshalSnapshot(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func (s *PostgresStore) Query(ctx context.Context, filter Filter) ([]*models.Entry, int, error) {
	where, args := buildWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_logs` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := `SELECT` + auditColumns + `
		FROM audit_logs` + where + `
		ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	return entries, total, nil
}

func buildWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !f.TenantID.IsNil() {
		add("tenant_id = $%d", uuid.UUID(f.TenantID))
	}
	if !f.UserID.IsNil() {
		add("user_id = $%d", uuid.UUID(f.UserID))
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}
	if f.PHIOnly {
		conds = append(conds, "is_phi_access = TRUE")
	}
	if f.SecurityOnly {
		conds = append(conds, "is_security_event = TRUE")
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (*models.Entry, error) {
	var (
		e         models.Entry
		tenantID  uuid.UUID
		userID    uuid.NullUUID
		oldVals   []byte
		newVals   []byte
		severity  string
		errorMsg  sql.NullString
		requestID sql.NullString
	)

	err := rows.Scan(
		&e.ID, &tenantID, &userID, &e.Action, &e.ResourceType, &e.ResourceID,
		&oldVals, &newVals, &e.IPAddress, &e.UserAgent, &requestID,
		&severity, &e.IsPHIAccess, &e.IsSecurityEvent,
		&e.Status, &errorMsg, &e.RetentionUntil, &e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}

	e.TenantID = id.TenantID(tenantID)
	if userID.Valid {
		e.UserID = id.UserID(userID.UUID)
	}
	e.RequestID = requestID.String
	e.Severity = models.Severity(severity)
	e.ErrorMessage = errorMsg.String

	if len(oldVals) > 0 {
		if err := json.Unmarshal(oldVals, &e.OldValues); err != nil {
			return nil, fmt.Errorf("decode old values: %w", err)
		}
	}
	if len(newVals) > 0 {
		if err := json.Unmarshal(newVals, &e.NewValues); err != nil {
			return nil, fmt.Errorf("decode new values: %w", err)
		}
	}
	return &e, nil
}

func (s *PostgresStore) InsertReport(ctx context.Context, report *models.Report) error {
	data, err := json.Marshal(report.Data)
	if err != nil {
		return fmt.Errorf("encode report data: %w", err)
	}

	var generatedBy any
	if !report.GeneratedBy.IsNil() {
		generatedBy = uuid.UUID(report.GeneratedBy)
	}

	query := `INSERT INTO compliance_reports
		(id, tenant_id, report_type, period_start, period_end, generated_by, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.db.ExecContext(ctx, query,
		report.ID, uuid.UUID(report.TenantID), report.Type,
		report.PeriodStart, report.PeriodEnd, generatedBy, data, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert compliance report: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
