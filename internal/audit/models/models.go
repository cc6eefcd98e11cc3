// Package models defines the audit log entry and the compliance report
// artifact. Entries are immutable once written; the pipeline only ever
// appends.
package models

import (
	"time"

	"github.com/oklog/ulid/v2"

	id "aureon/pkg/domain"
)

// Severity classifies audit entries. High and critical entries take the
// immediate write path.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsImmediate reports whether entries of this severity must bypass the
// batch queue.
func (s Severity) IsImmediate() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Common audit actions. Free-form actions are allowed; these cover the
// pipeline's own vocabulary.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLogin  = "login"
	ActionLogout = "logout"
	ActionExport = "export"
	ActionAccess = "access"
)

// phiResources are the resource types whose access is protected health
// information and carries stricter audit and retention handling.
var phiResources = map[string]bool{
	"patient":        true,
	"medical_record": true,
	"prescription":   true,
	"diagnosis":      true,
	"lab_order":      true,
}

// IsPHIResource reports whether a resource type is PHI.
func IsPHIResource(resourceType string) bool {
	return phiResources[resourceType]
}

// Retention windows. HIPAA requires roughly seven years for healthcare
// records; everything else keeps one year.
const (
	RetentionHIPAADays   = 2555
	RetentionDefaultDays = 365
)

// Entry is one audit log record.
type Entry struct {
	ID           string
	TenantID     id.TenantID
	UserID       id.UserID
	Action       string
	ResourceType string
	ResourceID   string

	// OldValues/NewValues are before/after snapshots. Sensitive fields
	// are redacted before the entry is persisted.
	OldValues map[string]any
	NewValues map[string]any

	IPAddress string
	UserAgent string
	RequestID string

	Severity        Severity
	IsPHIAccess     bool
	IsSecurityEvent bool

	Status       string
	ErrorMessage string

	RetentionUntil time.Time
	CreatedAt      time.Time

	// HIPAARetention marks the entry for the extended retention window.
	// Stamped from tenant compliance settings when the entry is recorded.
	HIPAARetention bool
}

// NewID returns a time-sortable unique entry id.
func NewID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// Finalize stamps the derived fields: id, timestamps, PHI flag, severity
// default, and the retention date. Idempotent per entry.
func (e *Entry) Finalize(now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ID == "" {
		e.ID = NewID(e.CreatedAt)
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	if IsPHIResource(e.ResourceType) {
		e.IsPHIAccess = true
	}
	if e.RetentionUntil.IsZero() {
		days := RetentionDefaultDays
		if e.HIPAARetention || e.IsPHIAccess {
			days = RetentionHIPAADays
		}
		e.RetentionUntil = e.CreatedAt.AddDate(0, 0, days)
	}
}

// Report types generated from the durable log.
const (
	ReportHIPAAAudit      = "hipaa_audit"
	ReportAccess          = "access_report"
	ReportPHIDisclosure   = "phi_disclosure"
	ReportSecuritySummary = "security_summary"
)

// Report is a persisted compliance aggregate computed over a time window.
type Report struct {
	ID          string
	TenantID    id.TenantID
	Type        string
	PeriodStart time.Time
	PeriodEnd   time.Time
	GeneratedBy id.UserID
	Data        map[string]any
	CreatedAt   time.Time
}
