package httptransport

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	auditmodels "aureon/internal/audit/models"
	authservice "aureon/internal/auth/service"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
	"aureon/pkg/requestcontext"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *loginRequest) Validate() error {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	req, ok := decodeJSON[loginRequest](w, r)
	if !ok {
		return
	}

	pair, err := s.auth.Login(r.Context(), st.Tenant, authservice.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: st.ClientIP,
	})
	if err != nil {
		s.recordLoginAudit(r, st, req.Email, err)
		writeError(w, err)
		return
	}
	s.recordLoginAudit(r, st, req.Email, nil)

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		SessionID:    pair.SessionID.String(),
		UserID:       pair.UserID.String(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (req *refreshRequest) Validate() error {
	if req.RefreshToken == "" {
		return dErrors.New(dErrors.CodeValidation, "refresh token is required")
	}
	return nil
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	req, ok := decodeJSON[refreshRequest](w, r)
	if !ok {
		return
	}

	res, err := s.auth.Refresh(r.Context(), st.Tenant, req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
		SessionID:   res.SessionID.String(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	if err := s.auth.RevokeSession(r.Context(), st.Identity.SessionID, authservice.ReasonLogout); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

type sessionResponse struct {
	ID             string    `json:"id"`
	DeviceName     string    `json:"deviceName"`
	IPAddress      string    `json:"ipAddress"`
	Current        bool      `json:"current"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	sessions, err := s.auth.ListSessions(r.Context(), st.Identity.UserID, st.Identity.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionResponse{
			ID:             session.ID.String(),
			DeviceName:     session.DeviceName,
			IPAddress:      session.IPAddress,
			Current:        session.ID == st.Identity.SessionID,
			CreatedAt:      session.CreatedAt,
			LastActivityAt: session.LastActivityAt,
			ExpiresAt:      session.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

// handleRevokeSession revokes one of the caller's own sessions. Sessions
// belonging to other users or tenants are indistinguishable from unknown.
func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	st := StateFrom(r.Context())

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid session id"))
		return
	}

	sessions, err := s.auth.ListSessions(r.Context(), st.Identity.UserID, st.Identity.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	owned := false
	for _, session := range sessions {
		if session.ID == sessionID {
			owned = true
			break
		}
	}
	if !owned {
		writeError(w, dErrors.New(dErrors.CodeNotFound, "session not found"))
		return
	}

	if err := s.auth.RevokeSession(r.Context(), sessionID, authservice.ReasonAdminRevoked); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// recordLoginAudit writes the login attempt to the audit trail. Failed
// attempts are security events and take the immediate write path.
func (s *Server) recordLoginAudit(r *http.Request, st State, email string, loginErr error) {
	entry := &auditmodels.Entry{
		Action:       auditmodels.ActionLogin,
		ResourceType: "session",
		IPAddress:    st.ClientIP,
		UserAgent:    r.UserAgent(),
		RequestID:    requestcontext.RequestID(r.Context()),
		Status:       "success",
		NewValues:    map[string]any{"email": email},
	}
	if loginErr != nil {
		entry.Status = "failure"
		entry.ErrorMessage = loginErr.Error()
		entry.Severity = auditmodels.SeverityHigh
		entry.IsSecurityEvent = true
	}
	s.audit.Record(entry, st.Tenant)
}
