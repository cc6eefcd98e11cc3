// Package resolver determines the owning tenant for a request. Signals are
// tried in a fixed priority order: token claim, tenant-id header, tenant-code
// header, subdomain, custom domain. Each signal is a cache-or-store lookup
// under its own cache namespace, so a tenant resolved once by subdomain is a
// cache hit next time it arrives by id.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	"aureon/internal/sentinel"
	"aureon/internal/tenant/cache"
	"aureon/internal/tenant/metrics"
	"aureon/internal/tenant/models"
	"aureon/internal/tenant/store"
	"aureon/internal/tracer"
	id "aureon/pkg/domain"
	dErrors "aureon/pkg/domain-errors"
)

// reservedSubdomains never resolve to tenants.
var reservedSubdomains = map[string]bool{
	"www": true,
	"api": true,
}

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// Signals carries everything the request boundary knows that could identify
// a tenant. Zero values mean "signal absent".
type Signals struct {
	// TokenTenantID comes from a structurally-valid bearer token claim. The
	// signature has not necessarily been checked yet; the authenticator
	// re-validates tenant membership once it has.
	TokenTenantID id.TenantID

	HeaderTenantID   id.TenantID
	HeaderTenantCode id.TenantCode
	Host             string
	ClientIP         string
}

// Resolver performs cache-backed tenant resolution.
type Resolver struct {
	store      store.Store
	cache      cache.Cache
	baseDomain string

	allowedStatuses []models.TenantStatus
	logger          *slog.Logger
	metrics         *metrics.Metrics
	trace           tracer.Tracer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAllowedStatuses overrides the statuses a tenant may hold to resolve
// successfully. Defaults to active only.
func WithAllowedStatuses(statuses ...models.TenantStatus) Option {
	return func(r *Resolver) {
		r.allowedStatuses = statuses
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithTracer sets the tracer for resolution spans.
func WithTracer(t tracer.Tracer) Option {
	return func(r *Resolver) {
		r.trace = t
	}
}

// New creates a Resolver. store and cache are required; baseDomain anchors
// subdomain extraction and custom-domain detection.
func New(st store.Store, c cache.Cache, baseDomain string, opts ...Option) (*Resolver, error) {
	if st == nil {
		return nil, errors.New("tenant store is required")
	}
	if c == nil {
		return nil, errors.New("tenant cache is required")
	}
	if baseDomain == "" {
		return nil, errors.New("base domain is required")
	}

	r := &Resolver{
		store:           st,
		cache:           c,
		baseDomain:      strings.ToLower(baseDomain),
		allowedStatuses: []models.TenantStatus{models.TenantStatusActive},
		trace:           tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve walks the signal priority chain and returns the owning tenant.
// Returns CodeTenantNotFound when no signal matches a known tenant.
func (r *Resolver) Resolve(ctx context.Context, sig Signals) (*models.Tenant, error) {
	start := time.Now()
	if r.metrics != nil {
		defer r.metrics.ObserveResolve(start)
	}

	ctx, span := r.trace.Start(ctx, tracer.SpanTenantResolve)

	tenant, signal, err := r.resolve(ctx, sig)
	if err != nil {
		span.End(err)
		if r.metrics != nil {
			r.metrics.RecordResolution(signal, "error")
		}
		return nil, err
	}
	if tenant == nil {
		span.End(nil)
		if r.metrics != nil {
			r.metrics.RecordResolution(signal, "not_found")
		}
		return nil, dErrors.New(dErrors.CodeTenantNotFound, "unable to identify tenant from request")
	}

	span.SetAttributes(tracer.ResolutionAttrs(tenant.ID, signal)...)
	span.End(nil)
	if r.metrics != nil {
		r.metrics.RecordResolution(signal, "ok")
	}
	return tenant, nil
}

// ResolveContext resolves the tenant, enforces the status allow-list and the
// tenant's IP allow-list, and returns the per-request context.
func (r *Resolver) ResolveContext(ctx context.Context, sig Signals) (*models.Context, error) {
	tenant, err := r.Resolve(ctx, sig)
	if err != nil {
		return nil, err
	}

	if !tenant.StatusAllowed(r.allowedStatuses) {
		return nil, dErrors.New(dErrors.CodeTenantInactive, "tenant is currently "+string(tenant.Status))
	}

	tc := models.NewContext(tenant)

	if sig.ClientIP != "" && !tc.IsIPAllowed(sig.ClientIP) {
		if r.logger != nil {
			r.logger.Warn("request from non-whitelisted address rejected",
				"tenant", tc.Redacted())
		}
		return nil, dErrors.New(dErrors.CodeIPNotWhitelisted, "your IP address is not authorized")
	}

	return tc, nil
}

// resolve returns (tenant, signal-name, error). A nil tenant with nil error
// means every present signal missed.
func (r *Resolver) resolve(ctx context.Context, sig Signals) (*models.Tenant, string, error) {
	if !sig.TokenTenantID.IsNil() {
		t, err := r.lookup(ctx, cache.KeyByID(sig.TokenTenantID), func(ctx context.Context) (*models.Tenant, error) {
			return r.store.FindByID(ctx, sig.TokenTenantID)
		})
		return t, "token", err
	}

	if !sig.HeaderTenantID.IsNil() {
		t, err := r.lookup(ctx, cache.KeyByID(sig.HeaderTenantID), func(ctx context.Context) (*models.Tenant, error) {
			return r.store.FindByID(ctx, sig.HeaderTenantID)
		})
		return t, "header_id", err
	}

	if !sig.HeaderTenantCode.IsNil() {
		code := id.TenantCode(strings.ToLower(sig.HeaderTenantCode.String()))
		t, err := r.lookup(ctx, cache.KeyByCode(code), func(ctx context.Context) (*models.Tenant, error) {
			return r.store.FindByCode(ctx, code)
		})
		return t, "header_code", err
	}

	host := normalizeHost(sig.Host)

	if sub := extractSubdomain(host, r.baseDomain); sub != "" && !reservedSubdomains[sub] {
		t, err := r.lookup(ctx, cache.KeyBySubdomain(sub), func(ctx context.Context) (*models.Tenant, error) {
			return r.store.FindBySubdomain(ctx, sub)
		})
		return t, "subdomain", err
	}

	if host != "" && !strings.HasSuffix(host, r.baseDomain) && !isUnresolvableHost(host) {
		t, err := r.lookup(ctx, cache.KeyByDomain(host), func(ctx context.Context) (*models.Tenant, error) {
			return r.store.FindByDomain(ctx, host)
		})
		return t, "custom_domain", err
	}

	return nil, "none", nil
}

// lookup consults the cache before the store; hits for the tenant's primary
// key are also warmed so id-based lookups succeed next.
func (r *Resolver) lookup(ctx context.Context, key string, fetch func(context.Context) (*models.Tenant, error)) (*models.Tenant, error) {
	if tenant, ok := r.cache.Get(ctx, key); ok {
		if r.metrics != nil {
			r.metrics.RecordCacheHit()
		}
		return tenant, nil
	}
	if r.metrics != nil {
		r.metrics.RecordCacheMiss()
	}

	tenant, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		// Store trouble is not a miss: surface it so the caller fails closed.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "tenant lookup failed")
	}

	r.cache.Put(ctx, key, tenant)
	if key != cache.KeyByID(tenant.ID) {
		r.cache.Put(ctx, cache.KeyByID(tenant.ID), tenant)
	}
	return tenant, nil
}

// Invalidate purges cached entries for one tenant, or everything when the
// zero TenantID is given. Admin mutations call this so policy changes take
// effect before the TTL expires.
func (r *Resolver) Invalidate(ctx context.Context, tenantID id.TenantID) {
	r.cache.Invalidate(ctx, tenantID)
}

// normalizeHost lowercases and strips any port.
func normalizeHost(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// extractSubdomain returns the label(s) before the base domain, or "" when
// the host is the base domain itself, an IP, localhost, or unrelated.
func extractSubdomain(host, baseDomain string) string {
	if host == "" || isUnresolvableHost(host) {
		return ""
	}
	suffix := "." + baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	return strings.TrimSuffix(host, suffix)
}

// isUnresolvableHost filters hosts that can never name a tenant.
func isUnresolvableHost(host string) bool {
	return host == "localhost" || ipv4Pattern.MatchString(host) || net.ParseIP(host) != nil
}
