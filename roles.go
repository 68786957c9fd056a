package auth

// Role is the closed set of dashboard roles in the retail platform.
type Role string

const (
	// RoleOwner manages the whole chain (branches, staff, finances).
	RoleOwner Role = "owner"
	// RoleManager runs a single branch.
	RoleManager Role = "manager"
	// RoleSalesman operates the sales floor of a branch.
	RoleSalesman Role = "salesman"
	// RoleCompany is a supplier company account.
	RoleCompany Role = "company"
	// RoleCustomer is a retail customer account.
	RoleCustomer Role = "customer"
)

// LoginRoute is where unauthenticated (or unmappable) sessions are sent.
const LoginRoute = "/login"

// IsValid checks if the role is one of the predefined valid roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleSalesman, RoleCompany, RoleCustomer:
		return true
	default:
		return false
	}
}

// LandingRoute maps the role to its default post-login dashboard. The map is
// total over the closed role set; anything else falls back to the login route.
func (r Role) LandingRoute() string {
	switch r {
	case RoleOwner:
		return "/owner/dashboard"
	case RoleManager:
		return "/manager/dashboard"
	case RoleSalesman:
		return "/salesman/dashboard"
	case RoleCompany:
		return "/company/dashboard"
	case RoleCustomer:
		return "/shop"
	default:
		return LoginRoute
	}
}

// AllRoles returns all predefined roles.
func AllRoles() []Role {
	return []Role{
		RoleOwner,
		RoleManager,
		RoleSalesman,
		RoleCompany,
		RoleCustomer,
	}
}

// ParseRole safely parses a string into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	return role, role.IsValid()
}

// RoleSet is an inclusion check helper used by route requirements.
type RoleSet []Role

// Contains reports whether the set includes the given role.
func (s RoleSet) Contains(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}
