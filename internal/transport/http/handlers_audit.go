package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"aureon/internal/audit"
	auditmodels "aureon/internal/audit/models"
	auditstore "aureon/internal/audit/store"
	dErrors "aureon/pkg/domain-errors"
)

const (
	defaultLogPageSize = 50
	maxLogPageSize     = 500
)

type auditEntryResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId,omitempty"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId,omitempty"`
	Severity     string    `json:"severity"`
	PHIAccess    bool      `json:"phiAccess"`
	Security     bool      `json:"securityEvent"`
	Status       string    `json:"status"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// handleAuditLogs is the filtered, paginated log query, scoped to the
// resolved tenant regardless of what the caller asks for.
func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	q := r.URL.Query()
	filter := auditstore.Filter{
		TenantID:     st.Tenant.ID,
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		Severity:     auditmodels.Severity(q.Get("severity")),
		PHIOnly:      q.Get("phi_only") == "true",
		SecurityOnly: q.Get("security_only") == "true",
		Limit:        defaultLogPageSize,
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = min(v, maxLogPageSize)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeValidation, "from must be RFC 3339"))
			return
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeValidation, "to must be RFC 3339"))
			return
		}
		filter.To = t
	}

	entries, total, err := s.audit.Query(r.Context(), filter)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit query failed"))
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := auditEntryResponse{
			ID:           e.ID,
			Action:       e.Action,
			ResourceType: e.ResourceType,
			ResourceID:   e.ResourceID,
			Severity:     string(e.Severity),
			PHIAccess:    e.IsPHIAccess,
			Security:     e.IsSecurityEvent,
			Status:       e.Status,
			IPAddress:    e.IPAddress,
			CreatedAt:    e.CreatedAt,
		}
		if !e.UserID.IsNil() {
			resp.UserID = e.UserID.String()
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": out,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

type reportRequest struct {
	Type string    `json:"type"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (req *reportRequest) Validate() error {
	if req.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "report type is required")
	}
	if req.From.IsZero() || req.To.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "report window is required")
	}
	return nil
}

type reportResponse struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	PeriodStart time.Time      `json:"periodStart"`
	PeriodEnd   time.Time      `json:"periodEnd"`
	Data        map[string]any `json:"data"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// handleAuditReport generates and persists a compliance report over a time
// window. Tenant-admin only.
func (s *Server) handleAuditReport(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	req, ok := decodeJSON[reportRequest](w, r)
	if !ok {
		return
	}

	report, err := s.audit.GenerateReport(r.Context(), audit.ReportRequest{
		Type:        req.Type,
		TenantID:    st.Tenant.ID,
		From:        req.From,
		To:          req.To,
		GeneratedBy: st.Identity.UserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reportResponse{
		ID:          report.ID,
		Type:        report.Type,
		PeriodStart: report.PeriodStart,
		PeriodEnd:   report.PeriodEnd,
		Data:        report.Data,
		CreatedAt:   report.CreatedAt,
	})
}
