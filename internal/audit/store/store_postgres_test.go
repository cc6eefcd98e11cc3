package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"aureon/internal/audit/models"
	id "aureon/pkg/domain"
)

var auditRowColumns = []string{
	"id", "tenant_id", "user_id", "action", "resource_type", "resource_id",
	"old_values", "new_values", "ip_address", "user_agent", "request_id",
	"severity", "is_phi_access", "is_security_event",
	"status", "error_message", "retention_until", "created_at",
}

type PostgresAuditSuite struct {
	suite.Suite

	mock  sqlmock.Sqlmock
	store *PostgresStore
	done  func() error
}

func TestPostgresAuditSuite(t *testing.T) {
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.mock = mock
	s.store = NewPostgres(db)
	s.done = db.Close
}

func (s *PostgresAuditSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.mock.ExpectClose()
	s.NoError(s.done())
}

func (s *PostgresAuditSuite) entry(action string) *models.Entry {
	now := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)
	return &models.Entry{
		ID:             models.NewID(now),
		TenantID:       id.NewTenantID(),
		UserID:         id.NewUserID(),
		Action:         action,
		ResourceType:   "patient",
		ResourceID:     "p-1",
		NewValues:      map[string]any{"field": "value"},
		IPAddress:      "10.0.0.5",
		Severity:       models.SeverityInfo,
		Status:         "success",
		RetentionUntil: now.AddDate(7, 0, 0),
		CreatedAt:      now,
	}
}

func (s *PostgresAuditSuite) TestInsertBatchUsesSingleStatement() {
	s.mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	batch := []*models.Entry{s.entry("read"), s.entry("update"), s.entry("delete")}
	s.NoError(s.store.InsertBatch(context.Background(), batch))
}

func (s *PostgresAuditSuite) TestInsertBatchSkipsEmptyInput() {
	// No expectations registered; any statement would fail the test.
	s.NoError(s.store.InsertBatch(context.Background(), nil))
}

func (s *PostgresAuditSuite) TestInsertNilActorBindsNullUser() {
	e := s.entry("login")
	e.UserID = id.UserID{}

	s.mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(
			e.ID, uuid.UUID(e.TenantID), nil, e.Action, e.ResourceType, e.ResourceID,
			sqlmock.AnyArg(), sqlmock.AnyArg(), e.IPAddress, e.UserAgent, e.RequestID,
			string(e.Severity), e.IsPHIAccess, e.IsSecurityEvent,
			e.Status, e.ErrorMessage, e.RetentionUntil, e.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.store.Insert(context.Background(), e))
}

func (s *PostgresAuditSuite) TestQueryCountsAndDecodes() {
	tenantID := id.NewTenantID()
	userID := uuid.New()
	now := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WithArgs(uuid.UUID(tenantID), "patient").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	s.mock.ExpectQuery(`FROM audit_logs`).
		WithArgs(uuid.UUID(tenantID), "patient", 10).
		WillReturnRows(sqlmock.NewRows(auditRowColumns).AddRow(
			"01HZX0000000000000000000EE", uuid.UUID(tenantID), uuid.NullUUID{UUID: userID, Valid: true},
			"read", "patient", "p-1",
			nil, []byte(`{"field":"value"}`), "10.0.0.5", "Mozilla/5.0", "req-1",
			"high", true, false,
			"success", nil, now.AddDate(7, 0, 0), now,
		))

	entries, total, err := s.store.Query(context.Background(), Filter{
		TenantID:     tenantID,
		ResourceType: "patient",
		Limit:        10,
	})
	s.Require().NoError(err)
	s.Equal(12, total)
	s.Require().Len(entries, 1)
	s.Equal(models.SeverityHigh, entries[0].Severity)
	s.True(entries[0].IsPHIAccess)
	s.Equal(id.UserID(userID), entries[0].UserID)
	s.Equal("value", entries[0].NewValues["field"])
}

func (s *PostgresAuditSuite) TestInsertReportEncodesData() {
	report := &models.Report{
		ID:          models.NewID(time.Now()),
		TenantID:    id.NewTenantID(),
		Type:        models.ReportSecuritySummary,
		PeriodStart: time.Now().AddDate(0, -1, 0),
		PeriodEnd:   time.Now(),
		GeneratedBy: id.NewUserID(),
		Data:        map[string]any{"security_event_count": 4},
		CreatedAt:   time.Now(),
	}

	s.mock.ExpectExec(`INSERT INTO compliance_reports`).
		WithArgs(
			report.ID, uuid.UUID(report.TenantID), report.Type,
			report.PeriodStart, report.PeriodEnd, uuid.UUID(report.GeneratedBy),
			sqlmock.AnyArg(), report.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.store.InsertReport(context.Background(), report))
}
