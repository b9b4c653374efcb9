package access

import "slices"

const (
	DefaultLoginURL        = "/login"
	DefaultUnauthorizedURL = "/unauthorized"
)

// Evaluator decides whether an identity may render a guarded page.
type Evaluator struct {
	LoginURL        string
	UnauthorizedURL string
}

func NewEvaluator(loginURL, unauthorizedURL string) Evaluator {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	if unauthorizedURL == "" {
		unauthorizedURL = DefaultUnauthorizedURL
	}
	return Evaluator{LoginURL: loginURL, UnauthorizedURL: unauthorizedURL}
}

// Check runs a guard from the checking state to its final state
func (e Evaluator) Check(identity *Identity, profile Profile, guard Guard) Decision {
	c := NewCheck(e, guard)
	c.Resolve(identity, profile)
	return c.Decision()
}

// Check tracks one guard through checking → authorized | redirecting.
// Resolve may be called again whenever the identity changes.
type Check struct {
	evaluator Evaluator
	guard     Guard
	decision  Decision
}

func NewCheck(e Evaluator, guard Guard) *Check {
	return &Check{
		evaluator: e,
		guard:     guard,
		decision:  Decision{State: StateChecking},
	}
}

func (c *Check) Decision() Decision {
	return c.decision
}

// Resolve re-evaluates the guard for identity. A nil identity, or one with an
// empty uid, redirects to login.
func (c *Check) Resolve(identity *Identity, profile Profile) Decision {
	c.decision = Decision{State: StateChecking}

	switch {
	case identity == nil || identity.UID == "":
		c.redirect(ReasonUnauthenticated, c.evaluator.LoginURL)
	case len(c.guard.AllowedRoutes) > 0 && !anyRoute(profile, c.guard.AllowedRoutes):
		c.redirect(ReasonRouteDenied, c.evaluator.UnauthorizedURL)
	case len(c.guard.RequiredRoles) > 0 && !anyRole(profile, c.guard.RequiredRoles):
		c.redirect(ReasonRoleDenied, c.evaluator.UnauthorizedURL)
	default:
		c.decision = Decision{State: StateAuthorized}
	}

	return c.decision
}

func (c *Check) redirect(reason Reason, to string) {
	c.decision = Decision{State: StateRedirecting, Reason: reason, RedirectTo: to}
}

func anyRoute(p Profile, paths []string) bool {
	for _, path := range paths {
		if _, ok := p.AllowedRoutes[path]; ok {
			return true
		}
	}
	return false
}

func anyRole(p Profile, required []string) bool {
	for _, r := range required {
		if slices.Contains(p.Roles, r) {
			return true
		}
	}
	return false
}

// EnvironmentAllowed checks an environment key against the profile
func EnvironmentAllowed(p Profile, env string) bool {
	_, ok := p.AllowedEnvironments[env]
	return ok
}
