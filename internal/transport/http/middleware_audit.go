package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	auditmodels "aureon/internal/audit/models"
	"aureon/pkg/requestcontext"
)

// auditAction derives the audit action from the HTTP method.
func auditAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return auditmodels.ActionRead
	case http.MethodPost:
		return auditmodels.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return auditmodels.ActionUpdate
	case http.MethodDelete:
		return auditmodels.ActionDelete
	default:
		return auditmodels.ActionAccess
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// audited records one audit entry per request against the named resource
// type, including rejected requests. PHI resources are recorded at high
// severity, which routes them through the immediate write path.
func (s *Server) audited(resourceType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			st := StateFrom(r.Context())
			entry := &auditmodels.Entry{
				Action:       auditAction(r.Method),
				ResourceType: resourceType,
				ResourceID:   chi.URLParam(r, "id"),
				IPAddress:    st.ClientIP,
				UserAgent:    r.UserAgent(),
				RequestID:    requestcontext.RequestID(r.Context()),
				Status:       "success",
			}
			if st.Identity != nil {
				entry.UserID = st.Identity.UserID
			}
			if rec.status >= http.StatusBadRequest {
				entry.Status = "failure"
				entry.Severity = auditmodels.SeverityWarning
				entry.ErrorMessage = http.StatusText(rec.status)
			}
			if auditmodels.IsPHIResource(resourceType) {
				entry.Severity = auditmodels.SeverityHigh
			}
			s.audit.Record(entry, st.Tenant)
		})
	}
}
