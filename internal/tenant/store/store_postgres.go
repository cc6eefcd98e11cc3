package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"aureon/internal/sentinel"
	"aureon/internal/tenant/models"
	id "aureon/pkg/domain"
)

// PostgresStore persists tenants in PostgreSQL. Feature flags and policy
// maps live in JSONB columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tenantColumns = `
	id, tenant_code, name, subdomain, custom_domain, status,
	isolation_level, schema_name, database_name,
	max_users, max_patients, max_providers, max_storage_gb,
	features, security_settings, compliance_settings,
	created_at, updated_at, deleted_at`

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	query := `SELECT` + tenantColumns + `
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL`
	return scanTenant(s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)))
}

func (s *PostgresStore) FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query := `SELECT` + tenantColumns + `
		FROM tenants
		WHERE subdomain = $1 AND deleted_at IS NULL`
	return scanTenant(s.db.QueryRowContext(ctx, query, strings.ToLower(subdomain)))
}

func (s *PostgresStore) FindByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	query := `SELECT` + tenantColumns + `
		FROM tenants
		WHERE custom_domain = $1 AND deleted_at IS NULL`
	return scanTenant(s.db.QueryRowContext(ctx, query, strings.ToLower(domain)))
}

func (s *PostgresStore) FindByCode(ctx context.Context, code id.TenantCode) (*models.Tenant, error) {
	query := `SELECT` + tenantColumns + `
		FROM tenants
		WHERE tenant_code = $1 AND deleted_at IS NULL`
	return scanTenant(s.db.QueryRowContext(ctx, query, strings.ToLower(code.String())))
}

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	var (
		t            models.Tenant
		tenantID     uuid.UUID
		code         string
		customDomain sql.NullString
		databaseName sql.NullString
		features     []byte
		security     []byte
		compliance   []byte
		deletedAt    sql.NullTime
	)

	err := row.Scan(
		&tenantID, &code, &t.Name, &t.Subdomain, &customDomain, &t.Status,
		&t.IsolationLevel, &t.SchemaName, &databaseName,
		&t.MaxUsers, &t.MaxPatients, &t.MaxProviders, &t.MaxStorageGB,
		&features, &security, &compliance,
		&t.CreatedAt, &t.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}

	t.ID = id.TenantID(tenantID)
	t.Code = id.TenantCode(code)
	t.CustomDomain = customDomain.String
	t.DatabaseName = databaseName.String
	if deletedAt.Valid {
		at := deletedAt.Time
		t.DeletedAt = &at
	}

	if err := unmarshalJSONB(features, &t.Features); err != nil {
		return nil, fmt.Errorf("decode tenant features: %w", err)
	}
	if err := unmarshalJSONB(security, &t.SecuritySettings); err != nil {
		return nil, fmt.Errorf("decode tenant security settings: %w", err)
	}
	if err := unmarshalJSONB(compliance, &t.ComplianceSettings); err != nil {
		return nil, fmt.Errorf("decode tenant compliance settings: %w", err)
	}

	return &t, nil
}

// unmarshalJSONB tolerates NULL columns by leaving the target nil.
func unmarshalJSONB(raw []byte, target any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

var _ Store = (*PostgresStore)(nil)
