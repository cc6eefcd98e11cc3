package audit

import (
	"context"

	"aureon/internal/audit/models"
	"aureon/internal/audit/store"
	tenantmodels "aureon/internal/tenant/models"
	id "aureon/pkg/domain"
)

// SecurityEvent records a security-relevant occurrence (failed logins,
// permission denials, revocations). High severity, so it takes the
// immediate path.
func (p *Pipeline) SecurityEvent(ctx context.Context, tenant *tenantmodels.Context, userID id.UserID, event, detail, clientIP string) {
	entry := &models.Entry{
		UserID:          userID,
		Action:          event,
		ResourceType:    "security",
		IPAddress:       clientIP,
		Severity:        models.SeverityHigh,
		IsSecurityEvent: true,
		Status:          "recorded",
		ErrorMessage:    detail,
	}
	// Error already logged and the entry requeued; nothing for the caller.
	_ = p.RecordImmediate(ctx, entry, tenant)
}

// PHIAccess records access to protected health information. Immediate and
// compliance-flagged regardless of tenant settings.
func (p *Pipeline) PHIAccess(ctx context.Context, tenant *tenantmodels.Context, userID id.UserID, action, resourceType, resourceID, clientIP string) {
	entry := &models.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    clientIP,
		Severity:     models.SeverityHigh,
		IsPHIAccess:  true,
		Status:       "recorded",
	}
	_ = p.RecordImmediate(ctx, entry, tenant)
}

// Query reads the durable log with filtering and pagination. Read-only;
// the pipeline's queue is not visible to queries.
func (p *Pipeline) Query(ctx context.Context, filter store.Filter) ([]*models.Entry, int, error) {
	return p.store.Query(ctx, filter)
}
