// Package httptransport is the thin HTTP layer over the trust-boundary
// pipeline: request-boundary middleware, the ordered stage chain (tenant
// resolution, rate limiting, authentication, guards), and the handlers for
// the auth and audit surfaces. It delegates to domain services without
// embedding business logic.
package httptransport

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aureon/internal/audit"
	authservice "aureon/internal/auth/service"
	"aureon/internal/authz"
	"aureon/internal/platform/middleware"
	"aureon/internal/ratelimit"
	"aureon/internal/tenant/resolver"
)

// defaultSkipPaths bypass tenant resolution: health probes, the central
// admin surface, and public routes are not tenant-scoped.
var defaultSkipPaths = []string{
	"/api/health",
	"/api/tenant-admin",
	"/api/public",
}

// Config carries the Server's collaborators. All services are required.
type Config struct {
	Resolver *resolver.Resolver
	Auth     *authservice.Service
	Guard    *authz.Guard
	Limiter  *ratelimit.Limiter
	Audit    *audit.Pipeline

	Logger *slog.Logger

	// SkipPaths are path prefixes that bypass tenant resolution.
	// Defaults to health, central-admin, and public prefixes.
	SkipPaths []string

	// Throttle caps process-wide requests per second. Zero disables.
	Throttle float64
}

// Server owns the HTTP surface.
type Server struct {
	resolver  *resolver.Resolver
	auth      *authservice.Service
	guard     *authz.Guard
	limiter   *ratelimit.Limiter
	audit     *audit.Pipeline
	logger    *slog.Logger
	skipPaths []string
	throttle  float64
}

// NewServer validates the wiring and builds the Server.
func NewServer(cfg Config) (*Server, error) {
	switch {
	case cfg.Resolver == nil:
		return nil, errors.New("tenant resolver is required")
	case cfg.Auth == nil:
		return nil, errors.New("auth service is required")
	case cfg.Guard == nil:
		return nil, errors.New("authorization guard is required")
	case cfg.Limiter == nil:
		return nil, errors.New("rate limiter is required")
	case cfg.Audit == nil:
		return nil, errors.New("audit pipeline is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	skip := cfg.SkipPaths
	if skip == nil {
		skip = defaultSkipPaths
	}

	return &Server{
		resolver:  cfg.Resolver,
		auth:      cfg.Auth,
		guard:     cfg.Guard,
		limiter:   cfg.Limiter,
		audit:     cfg.Audit,
		logger:    logger,
		skipPaths: skip,
		throttle:  cfg.Throttle,
	}, nil
}

// Router wires all endpoints behind the stage chain. Health and metrics sit
// outside the chain; everything else is tenant-scoped and rate limited.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Throttle(s.throttle))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.chain(s.stageClientIP(), s.stageResolveTenant(), s.stageRateLimit()))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(s.chain(s.stageAuthenticate(false)))
				r.Post("/logout", s.handleLogout)
				r.Get("/sessions", s.handleListSessions)
				r.Delete("/sessions/{id}", s.handleRevokeSession)
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(s.chain(s.stageAuthenticate(false)))
			r.With(s.requirePermission("audit.read")).Get("/logs", s.handleAuditLogs)
			r.With(s.requireTenantAdmin()).Post("/reports", s.handleAuditReport)
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(s.chain(s.stageAuthenticate(false)))
			r.Use(s.requireMFA())

			r.Route("/patients", func(r chi.Router) {
				r.Use(s.audited("patient"))
				r.With(s.requirePermission("patients.read")).Get("/", s.handleListPatients)
				r.With(s.requirePermission("patients.read")).Get("/{id}", s.handleGetPatient)
				r.With(s.requirePermission("patients.write")).Post("/", s.handleCreatePatient)
			})

			r.Route("/appointments", func(r chi.Router) {
				r.Use(s.audited("appointment"))
				r.With(s.requirePermission("appointments.read")).Get("/", s.handleListAppointments)
				r.With(s.requireFeature("scheduling"), s.requirePermission("appointments.write")).
					Post("/", s.handleCreateAppointment)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
