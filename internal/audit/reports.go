package audit

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"aureon/internal/audit/models"
	"aureon/internal/audit/store"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

// ReportRequest identifies the report to generate.
type ReportRequest struct {
	Type        string
	TenantID    id.TenantID
	From        time.Time
	To          time.Time
	GeneratedBy id.UserID
}

// GenerateReport aggregates the durable log over the requested window,
// persists the result as its own artifact, and returns it. Sub-aggregations
// run concurrently; the first failure cancels the rest.
func (p *Pipeline) GenerateReport(ctx context.Context, req ReportRequest) (*models.Report, error) {
	if req.TenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "report requires a tenant")
	}
	if !req.To.After(req.From) {
		return nil, dErrors.New(dErrors.CodeValidation, "report window end must follow start")
	}

	var (
		data map[string]any
		err  error
	)
	switch req.Type {
	case models.ReportHIPAAAudit:
		data, err = p.hipaaAuditData(ctx, req)
	case models.ReportAccess:
		data, err = p.accessReportData(ctx, req)
	case models.ReportPHIDisclosure:
		data, err = p.phiDisclosureData(ctx, req)
	case models.ReportSecuritySummary:
		data, err = p.securitySummaryData(ctx, req)
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown report type: "+req.Type)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "aggregating "+req.Type)
	}

	now := p.now()
	report := &models.Report{
		ID:          models.NewID(now),
		TenantID:    req.TenantID,
		Type:        req.Type,
		PeriodStart: req.From,
		PeriodEnd:   req.To,
		GeneratedBy: req.GeneratedBy,
		Data:        data,
		CreatedAt:   now,
	}
	if err := p.store.InsertReport(ctx, report); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisting report")
	}
	return report, nil
}

func (p *Pipeline) windowFilter(req ReportRequest) store.Filter {
	return store.Filter{TenantID: req.TenantID, From: req.From, To: req.To}
}

// hipaaAuditData summarizes PHI access in the window: totals, unique
// actors, and per-resource-type counts.
func (p *Pipeline) hipaaAuditData(ctx context.Context, req ReportRequest) (map[string]any, error) {
	filter := p.windowFilter(req)
	filter.PHIOnly = true

	var (
		phi      []*models.Entry
		phiTotal int
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		phi, phiTotal, err = p.store.Query(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		_, total, err = p.store.Query(gctx, store.Filter{
			TenantID: req.TenantID, From: req.From, To: req.To, Limit: 1,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	actors := map[string]bool{}
	byResource := map[string]int{}
	byAction := map[string]int{}
	for _, e := range phi {
		if !e.UserID.IsNil() {
			actors[e.UserID.String()] = true
		}
		byResource[e.ResourceType]++
		byAction[e.Action]++
	}

	return map[string]any{
		"total_events":     total,
		"phi_access_count": phiTotal,
		"unique_actors":    len(actors),
		"by_resource_type": byResource,
		"by_action":        byAction,
	}, nil
}

// accessReportData is the raw filtered log, paginated implicitly by the
// window, plus simple totals.
func (p *Pipeline) accessReportData(ctx context.Context, req ReportRequest) (map[string]any, error) {
	entries, total, err := p.store.Query(ctx, p.windowFilter(req))
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		records = append(records, map[string]any{
			"id":            e.ID,
			"user_id":       userIDOrEmpty(e.UserID),
			"action":        e.Action,
			"resource_type": e.ResourceType,
			"resource_id":   e.ResourceID,
			"severity":      string(e.Severity),
			"created_at":    e.CreatedAt,
		})
	}
	return map[string]any{
		"total":   total,
		"records": records,
	}, nil
}

// phiDisclosureData lists each PHI access individually, as disclosure
// accounting requires.
func (p *Pipeline) phiDisclosureData(ctx context.Context, req ReportRequest) (map[string]any, error) {
	filter := p.windowFilter(req)
	filter.PHIOnly = true

	entries, total, err := p.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	disclosures := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		disclosures = append(disclosures, map[string]any{
			"id":            e.ID,
			"user_id":       userIDOrEmpty(e.UserID),
			"action":        e.Action,
			"resource_type": e.ResourceType,
			"resource_id":   e.ResourceID,
			"ip_address":    e.IPAddress,
			"created_at":    e.CreatedAt,
		})
	}
	return map[string]any{
		"disclosure_count": total,
		"disclosures":      disclosures,
	}, nil
}

// securitySummaryData counts security events by severity and event type.
func (p *Pipeline) securitySummaryData(ctx context.Context, req ReportRequest) (map[string]any, error) {
	filter := p.windowFilter(req)
	filter.SecurityOnly = true

	var (
		events   []*models.Entry
		total    int
		critical int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, total, err = p.store.Query(gctx, filter)
		return err
	})
	g.Go(func() error {
		crit := filter
		crit.Severity = models.SeverityCritical
		crit.Limit = 1
		var err error
		_, critical, err = p.store.Query(gctx, crit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bySeverity := map[string]int{}
	byEvent := map[string]int{}
	for _, e := range events {
		bySeverity[string(e.Severity)]++
		byEvent[e.Action]++
	}

	return map[string]any{
		"total_events":    total,
		"critical_events": critical,
		"by_severity":     bySeverity,
		"by_event":        byEvent,
	}, nil
}

func userIDOrEmpty(userID id.UserID) string {
	if userID.IsNil() {
		return ""
	}
	return userID.String()
}
