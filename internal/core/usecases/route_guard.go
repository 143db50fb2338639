package usecases

import (
	"context"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
)

// RouteAccessGuard decides whether the caller may enter the owner or sitter flow.
type RouteAccessGuard struct {
	auth  ports.AuthState
	flags ports.FeatureFlags
}

// NewRouteAccessGuard creates a new RouteAccessGuard.
func NewRouteAccessGuard(auth ports.AuthState, flags ports.FeatureFlags) *RouteAccessGuard {
	return &RouteAccessGuard{auth: auth, flags: flags}
}

// CheckOwnerRoute evaluates access to the owner flow.
func (g *RouteAccessGuard) CheckOwnerRoute(ctx context.Context) domain.RouteProtectionResult {
	return g.check(ctx, g.flags.OwnerPathEnabled, domain.RoleOwner)
}

// CheckSitterRoute evaluates access to the sitter flow.
func (g *RouteAccessGuard) CheckSitterRoute(ctx context.Context) domain.RouteProtectionResult {
	return g.check(ctx, g.flags.SitterPathEnabled, domain.RoleSitter)
}

// check stops at the first failing condition. Callers without a role are let
// through so users who have not finished onboarding can still pick a flow.
func (g *RouteAccessGuard) check(ctx context.Context, enabled func(context.Context) bool, required string) domain.RouteProtectionResult {
	if !g.auth.IsAuthenticated(ctx) {
		return domain.NotAuthenticated
	}
	if !enabled(ctx) {
		return domain.FeatureDisabled
	}
	if role, ok := g.auth.CurrentRole(ctx); ok && role != "" && role != required {
		return domain.WrongRole
	}
	return domain.Allowed
}
