package domain

// Roles a user may pick during onboarding.
const (
	RoleOwner  = "owner"
	RoleSitter = "petsitter"
)

// RouteProtectionResult is the outcome of a route access check.
type RouteProtectionResult int

const (
	Allowed RouteProtectionResult = iota
	NotAuthenticated
	FeatureDisabled
	WrongRole
)

func (r RouteProtectionResult) String() string {
	switch r {
	case Allowed:
		return "allowed"
	case NotAuthenticated:
		return "not_authenticated"
	case FeatureDisabled:
		return "feature_disabled"
	case WrongRole:
		return "wrong_role"
	}
	return "unknown"
}
