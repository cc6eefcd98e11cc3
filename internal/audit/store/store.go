// Package store persists audit entries and compliance reports.
//
// The log is append-only: nothing here updates or deletes entries.
// Retention-based purge is a separate maintenance concern outside the
// pipeline.
package store

import (
	"context"
	"time"

	"aureon/internal/audit/models"
	id "aureon/pkg/domain"
)

// Filter narrows a log query. Zero values mean "any".
type Filter struct {
	TenantID     id.TenantID
	UserID       id.UserID
	Action       string
	ResourceType string
	Severity     models.Severity
	PHIOnly      bool
	SecurityOnly bool
	From         time.Time
	To           time.Time

	Limit  int
	Offset int
}

// Store is the audit persistence contract.
type Store interface {
	// InsertBatch writes entries in one operation, preserving slice order.
	InsertBatch(ctx context.Context, entries []*models.Entry) error

	// Insert writes a single entry synchronously (immediate path).
	Insert(ctx context.Context, entry *models.Entry) error

	// Query returns matching entries newest-first plus the total match
	// count before pagination.
	Query(ctx context.Context, filter Filter) ([]*models.Entry, int, error)

	// InsertReport persists a generated compliance report.
	InsertReport(ctx context.Context, report *models.Report) error
}
