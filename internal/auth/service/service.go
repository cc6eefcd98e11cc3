// Package service implements the authentication flows: login, per-request
// token authentication, refresh, and session revocation. Stores return
// sentinel errors; this layer translates them into the stable rejection
// codes exactly once.
package service

import (
	"errors"
	"log/slog"
	"time"

	"aureon/internal/auth/metrics"
	"aureon/internal/auth/store"
	"aureon/internal/auth/token"
	"aureon/internal/tracer"
)

// Service carries the dependencies of the auth flows.
type Service struct {
	users    store.UserStore
	sessions store.SessionStore
	tokens   *token.Service

	// sessionTTL is the hard session expiry, independent of token expiry.
	// A session past this point cannot authenticate even with a valid token.
	sessionTTL time.Duration

	// legacyHeaderAuth enables the header-based fallback. Migration aid
	// only; every use is logged with a warning and the path performs no
	// session validation.
	legacyHeaderAuth bool

	logger  *slog.Logger
	metrics *metrics.Metrics
	trace   tracer.Tracer
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithSessionTTL overrides the 7-day default hard session expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithLegacyHeaderAuth toggles the header-based fallback path.
func WithLegacyHeaderAuth(enabled bool) Option {
	return func(s *Service) {
		s.legacyHeaderAuth = enabled
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.trace = t
	}
}

// WithClock overrides the clock. Test use only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs the auth service.
func New(users store.UserStore, sessions store.SessionStore, tokens *token.Service, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}

	s := &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: 7 * 24 * time.Hour,
		logger:     slog.Default(),
		trace:      tracer.NewNoop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) recordFailure(code string) {
	if s.metrics != nil {
		s.metrics.RecordFailure(code)
	}
}
