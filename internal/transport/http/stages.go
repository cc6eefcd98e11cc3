package httptransport

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	authservice "aureon/internal/auth/service"
	"aureon/internal/auth/token"
	"aureon/internal/platform/privacy"
	"aureon/internal/ratelimit"
	"aureon/internal/tenant/resolver"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

// Request headers consumed at the boundary.
const (
	headerAuthorization = "Authorization"
	headerTenantID      = "X-Tenant-ID"
	headerTenantCode    = "X-Tenant-Code"
	headerLegacyUserID  = "X-User-ID"
	headerLegacyRole    = "X-User-Role"
)

// bearerToken extracts the bearer credential, "" when absent or malformed.
func bearerToken(r *http.Request) string {
	raw := r.Header.Get(headerAuthorization)
	const prefix = "Bearer "
	if len(raw) > len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return raw[len(prefix):]
	}
	return ""
}

// clientIP prefers the first X-Forwarded-For hop, then the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// stageClientIP records the caller's network address for every later stage.
func (s *Server) stageClientIP() Stage {
	return Stage{
		Name: "client_ip",
		Run: func(_ http.ResponseWriter, r *http.Request, st State) (State, error) {
			st.ClientIP = clientIP(r)
			return st, nil
		},
	}
}

// stageResolveTenant resolves the owning tenant and echoes it back in
// response headers. Health, metrics, central-admin, and public paths bypass
// resolution entirely.
func (s *Server) stageResolveTenant() Stage {
	return Stage{
		Name: "tenant_resolve",
		Run: func(w http.ResponseWriter, r *http.Request, st State) (State, error) {
			for _, prefix := range s.skipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					return st, nil
				}
			}

			sig := resolver.Signals{
				Host:     r.Host,
				ClientIP: st.ClientIP,
			}
			if raw := bearerToken(r); raw != "" {
				if tenantID, ok := token.PeekTenantID(raw); ok {
					sig.TokenTenantID = tenantID
				}
			}
			if raw := r.Header.Get(headerTenantID); raw != "" {
				tenantID, err := id.ParseTenantID(raw)
				if err != nil {
					return st, dErrors.New(dErrors.CodeInvalidInput, "malformed tenant id header")
				}
				sig.HeaderTenantID = tenantID
			}
			if raw := r.Header.Get(headerTenantCode); raw != "" {
				sig.HeaderTenantCode = id.TenantCode(raw)
			}

			tenant, err := s.resolver.ResolveContext(r.Context(), sig)
			if err != nil {
				return st, err
			}

			w.Header().Set(headerTenantID, tenant.ID.String())
			w.Header().Set(headerTenantCode, tenant.Code.String())
			st.Tenant = tenant
			return st, nil
		},
	}
}

// stageRateLimit charges the request against the (tenant, client) budget and
// exposes the remaining budget in response headers.
func (s *Server) stageRateLimit() Stage {
	return Stage{
		Name: "rate_limit",
		Run: func(w http.ResponseWriter, r *http.Request, st State) (State, error) {
			var tenantID id.TenantID
			if st.Tenant != nil {
				tenantID = st.Tenant.ID
			}
			decision := s.limiter.Allow(ratelimit.Key(tenantID, st.ClientIP))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				seconds := int(decision.RetryAfter.Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				// Abuse logs keep only the anonymized network prefix.
				s.logger.Warn("rate limit exceeded",
					"tenant_id", tenantID.String(),
					"client_net", privacy.AnonymizeIP(st.ClientIP),
					"retry_after_s", seconds)
				return st, dErrors.New(dErrors.CodeRateLimitExceeded, "too many requests, slow down")
			}

			st.RateLimit = &decision
			return st, nil
		},
	}
}

// stageAuthenticate establishes the caller's identity. In optional mode
// absent or invalid credentials proceed unauthenticated.
func (s *Server) stageAuthenticate(optional bool) Stage {
	return Stage{
		Name: "authenticate",
		Run: func(_ http.ResponseWriter, r *http.Request, st State) (State, error) {
			identity, err := s.auth.Authenticate(r.Context(), authservice.AuthenticateRequest{
				RawToken:     bearerToken(r),
				Tenant:       st.Tenant,
				LegacyUserID: r.Header.Get(headerLegacyUserID),
				LegacyRole:   r.Header.Get(headerLegacyRole),
				Optional:     optional,
			})
			if err != nil {
				return st, err
			}
			st.Identity = identity
			return st, nil
		},
	}
}

// Route-level guard middlewares. Each is a single-stage chain picking up the
// state the router chain established.

func (s *Server) requirePermission(permissions ...string) func(http.Handler) http.Handler {
	return s.chain(Stage{
		Name: "require_permission",
		Run: func(_ http.ResponseWriter, r *http.Request, st State) (State, error) {
			return st, s.guard.RequirePermission(r.Context(), st.Identity, st.Tenant, permissions...)
		},
	})
}

func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return s.chain(Stage{
		Name: "require_role",
		Run: func(_ http.ResponseWriter, _ *http.Request, st State) (State, error) {
			return st, s.guard.RequireRole(st.Identity, roles...)
		},
	})
}

func (s *Server) requireTenantAdmin() func(http.Handler) http.Handler {
	return s.chain(Stage{
		Name: "require_tenant_admin",
		Run: func(_ http.ResponseWriter, _ *http.Request, st State) (State, error) {
			return st, s.guard.RequireTenantAdmin(st.Identity)
		},
	})
}

func (s *Server) requireFeature(feature string) func(http.Handler) http.Handler {
	return s.chain(Stage{
		Name: "require_feature",
		Run: func(_ http.ResponseWriter, _ *http.Request, st State) (State, error) {
			return st, s.guard.RequireFeature(st.Tenant, feature)
		},
	})
}

func (s *Server) requireMFA() func(http.Handler) http.Handler {
	return s.chain(Stage{
		Name: "require_mfa",
		Run: func(_ http.ResponseWriter, _ *http.Request, st State) (State, error) {
			return st, s.guard.RequireMFA(st.Identity, st.Tenant)
		},
	})
}
