package auth

// GuardAction is what the route guard decided to do with a request.
type GuardAction string

const (
	// ActionWait renders a neutral placeholder while startup resolution is
	// still running. Never a redirect.
	ActionWait GuardAction = "wait"
	// ActionRender lets the protected content through.
	ActionRender GuardAction = "render"
	// ActionRedirectLogin sends the visitor to the login entry point,
	// capturing the originally requested location best-effort.
	ActionRedirectLogin GuardAction = "redirect_login"
	// ActionRedirectLanding fails soft: a role mismatch silently redirects to
	// the identity's landing route instead of surfacing a 403.
	ActionRedirectLanding GuardAction = "redirect_landing"
)

// Requirement is the role requirement attached to a route. A nil/empty Roles
// set means any authenticated identity qualifies.
type Requirement struct {
	Roles RoleSet
}

// RequireRoles builds a Requirement for the given acceptable roles.
func RequireRoles(roles ...Role) Requirement {
	return Requirement{Roles: roles}
}

// Decision is the route guard's verdict for a single request.
type Decision struct {
	Action GuardAction
	// Target is the redirect destination for the redirect actions.
	Target string
	// CaptureLocation marks that the originally requested location should be
	// remembered so the login flow can offer a way back.
	CaptureLocation bool
}

// Decide applies the access policy for one route. It is pure: given the
// session snapshot and the route's requirement it returns what to do, leaving
// transports (HTTP middleware, UI shells) to carry the decision out.
func Decide(session Session, requirement Requirement) Decision {
	switch session.Status {
	case StatusLoading:
		return Decision{Action: ActionWait}
	case StatusAuthenticated:
		// fall through below
	default:
		return Decision{
			Action:          ActionRedirectLogin,
			Target:          LoginRoute,
			CaptureLocation: true,
		}
	}

	if len(requirement.Roles) == 0 || requirement.Roles.Contains(session.Identity.Role) {
		return Decision{Action: ActionRender}
	}

	return Decision{
		Action: ActionRedirectLanding,
		Target: session.Identity.Role.LandingRoute(),
	}
}
