package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	dErrors "aureon/pkg/domain-errors"
	"aureon/pkg/requestcontext"
)

// The resource handlers below are the tenant-scoped surface behind the full
// stage chain. Clinical record semantics live in downstream services; this
// layer only proves the caller out through resolution, budget, identity, and
// permission checks, and returns the tenant-scoped envelope the clients
// expect.

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"tenantId": st.Tenant.ID.String(),
		"patients": []any{},
		"total":    0,
	})
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())
	patientID := chi.URLParam(r, "id")
	if patientID == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "patient id is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenantId": st.Tenant.ID.String(),
		"id":       patientID,
	})
}

type createPatientRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (req *createPatientRequest) Validate() error {
	if req.FirstName == "" || req.LastName == "" {
		return dErrors.New(dErrors.CodeValidation, "first and last name are required")
	}
	return nil
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	// Downstream owns the real count; here zero verifies the tenant has
	// any patient allowance at all.
	if err := s.guard.CheckLimit(st.Tenant, "patients", 0); err != nil {
		writeError(w, err)
		return
	}

	req, ok := decodeJSON[createPatientRequest](w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        ulid.Make().String(),
		"tenantId":  st.Tenant.ID.String(),
		"firstName": req.FirstName,
		"lastName":  req.LastName,
		"requestId": requestcontext.RequestID(r.Context()),
	})
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"tenantId":     st.Tenant.ID.String(),
		"appointments": []any{},
		"total":        0,
	})
}

type createAppointmentRequest struct {
	PatientID string    `json:"patientId"`
	StartsAt  time.Time `json:"startsAt"`
}

func (req *createAppointmentRequest) Validate() error {
	if req.PatientID == "" {
		return dErrors.New(dErrors.CodeValidation, "patient id is required")
	}
	if req.StartsAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start time is required")
	}
	return nil
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	req, ok := decodeJSON[createAppointmentRequest](w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        ulid.Make().String(),
		"tenantId":  st.Tenant.ID.String(),
		"patientId": req.PatientID,
		"startsAt":  req.StartsAt,
	})
}
