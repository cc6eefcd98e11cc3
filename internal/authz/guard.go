// Package authz implements the authorization guard: role, permission, MFA,
// tenant-admin, feature, and limit checks against the authenticated
// identity and the tenant context. Every failure is terminal for the
// request; there is no partial access.
package authz

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	authmodels "aureon/internal/auth/models"
	"aureon/internal/auth/store"
	"aureon/internal/sentinel"
	tenantmodels "aureon/internal/tenant/models"
	dErrors "aureon/pkg/domain-errors"
)

// Wildcard matches any role or permission when present in the allowed set.
const Wildcard = "*"

// Guard evaluates access checks. Role definitions are loaded per check from
// the role store, never cached, so a permission edit takes effect on the
// next request.
type Guard struct {
	roles   store.RoleStore
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Guard.
type Option func(*Guard)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// New constructs a Guard.
func New(roles store.RoleStore, opts ...Option) (*Guard, error) {
	if roles == nil {
		return nil, errors.New("role store is required")
	}
	g := &Guard{
		roles:  roles,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// RequireAuthenticated rejects anonymous requests.
func (g *Guard) RequireAuthenticated(identity *authmodels.Identity) error {
	if identity == nil {
		return g.deny("authenticated", dErrors.New(dErrors.CodeNotAuthenticated, "authentication required"))
	}
	return nil
}

// RequireRole passes when the identity is a tenant admin, when the allowed
// list contains the wildcard, or when any of the identity's roles (base
// plus tenant-scoped) appears in the allowed list.
func (g *Guard) RequireRole(identity *authmodels.Identity, allowed ...string) error {
	if identity == nil {
		return g.deny("role", dErrors.New(dErrors.CodeNotAuthenticated, "authentication required"))
	}
	if identity.IsTenantAdmin {
		return nil
	}

	for _, want := range allowed {
		if want == Wildcard {
			return nil
		}
		for _, have := range identity.AllRoles() {
			if strings.EqualFold(have, want) {
				return nil
			}
		}
	}
	return g.deny("role", dErrors.New(dErrors.CodeForbidden, "insufficient role for this operation"))
}

// RequirePermission loads the permission list for the identity's active
// tenant role and requires every requested permission to be present, either
// verbatim or via the wildcard. A missing role record denies rather than
// erroring: an unprovisioned role grants nothing.
func (g *Guard) RequirePermission(ctx context.Context, identity *authmodels.Identity, tenant *tenantmodels.Context, required ...string) error {
	if identity == nil {
		return g.deny("permission", dErrors.New(dErrors.CodeNotAuthenticated, "authentication required"))
	}
	if tenant == nil {
		return g.deny("permission", dErrors.New(dErrors.CodeNoTenantContext, "no tenant context for permission check"))
	}
	if identity.IsTenantAdmin {
		return nil
	}

	roleCode := identity.ActiveRole()
	if roleCode == "" {
		return g.deny("permission", dErrors.New(dErrors.CodePermissionDenied, "no role assigned in this tenant"))
	}

	role, err := g.roles.FindByCode(ctx, tenant.ID, roleCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return g.deny("permission", dErrors.New(dErrors.CodePermissionDenied, "role grants no permissions in this tenant"))
		}
		// Store trouble denies the check; it must never grant by default.
		return dErrors.Wrap(err, dErrors.CodeInternal, "permission lookup failed")
	}

	for _, perm := range required {
		if !role.Allows(perm) {
			g.logger.Info("permission denied",
				"user_id", identity.UserID.String(),
				"tenant_id", tenant.ID.String(),
				"role", roleCode,
				"permission", perm)
			return g.deny("permission", dErrors.New(dErrors.CodePermissionDenied, "missing permission: "+perm))
		}
	}
	return nil
}

// RequireMFA enforces the tenant's MFA policy. Only meaningful for
// authenticated requests; anonymous callers fail the authentication checks
// first.
func (g *Guard) RequireMFA(identity *authmodels.Identity, tenant *tenantmodels.Context) error {
	if tenant == nil || !tenant.IsMFARequired() {
		return nil
	}
	if identity == nil {
		return g.deny("mfa", dErrors.New(dErrors.CodeNotAuthenticated, "authentication required"))
	}
	if !identity.MFAVerified {
		return g.deny("mfa", dErrors.New(dErrors.CodeMFARequired, "multi-factor authentication is required"))
	}
	return nil
}

// RequireTenantAdmin restricts an operation to tenant administrators.
func (g *Guard) RequireTenantAdmin(identity *authmodels.Identity) error {
	if identity == nil {
		return g.deny("tenant_admin", dErrors.New(dErrors.CodeNotAuthenticated, "authentication required"))
	}
	if !identity.IsTenantAdmin {
		return g.deny("tenant_admin", dErrors.New(dErrors.CodeNotTenantAdmin, "tenant administrator access required"))
	}
	return nil
}

// RequireFeature rejects when the tenant's plan does not include a feature.
func (g *Guard) RequireFeature(tenant *tenantmodels.Context, feature string) error {
	if tenant == nil {
		return g.deny("feature", dErrors.New(dErrors.CodeNoTenantContext, "no tenant context for feature check"))
	}
	if !tenant.HasFeature(feature) {
		return g.deny("feature", dErrors.New(dErrors.CodeFeatureNotEnabled, "feature not enabled: "+feature))
	}
	return nil
}

// CheckLimit rejects when creating one more resource of the given type
// would exceed the tenant's configured limit.
func (g *Guard) CheckLimit(tenant *tenantmodels.Context, resourceType string, currentCount int) error {
	if tenant == nil {
		return g.deny("limit", dErrors.New(dErrors.CodeNoTenantContext, "no tenant context for limit check"))
	}
	if !tenant.CheckLimit(resourceType, currentCount) {
		return g.deny("limit", dErrors.New(dErrors.CodeTenantLimitExceeded, "tenant limit reached for "+resourceType))
	}
	return nil
}

func (g *Guard) deny(check string, err error) error {
	if g.metrics != nil {
		g.metrics.RecordDenial(check, string(dErrors.CodeOf(err)))
	}
	return err
}
