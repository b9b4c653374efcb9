package access

import (
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
)

// Identity is the authenticated subject as asserted by the identity provider
type Identity struct {
	UID   string
	Email string
}

// Profile is the slice of a user document the guard needs
type Profile struct {
	UID                 string            `json:"uid"`
	Roles               []string          `json:"roles"`
	AllowedRoutes       role.Routes       `json:"allowed_routes"`
	AllowedEnvironments map[string]string `json:"allowed_environments"`
}

// ProfileFromUser projects the access-relevant fields of u
func ProfileFromUser(u user.User) Profile {
	p := Profile{
		UID:                 u.UID,
		Roles:               u.Roles,
		AllowedRoutes:       u.AllowedRoutes,
		AllowedEnvironments: u.AllowedEnvironments,
	}
	if p.Roles == nil {
		p.Roles = []string{}
	}
	if p.AllowedRoutes == nil {
		p.AllowedRoutes = role.Routes{}
	}
	if p.AllowedEnvironments == nil {
		p.AllowedEnvironments = map[string]string{}
	}
	return p
}

// Guard is the constraint configured on a protected page or API group.
// Both lists are any-of; empty lists impose nothing.
type Guard struct {
	AllowedRoutes []string `json:"allowed_routes"`
	RequiredRoles []string `json:"required_roles"`
}

// State of a guard check
type State string

const (
	StateChecking    State = "checking"
	StateAuthorized  State = "authorized"
	StateRedirecting State = "redirecting"
)

// Reason explains a redirect
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonRouteDenied     Reason = "route_denied"
	ReasonRoleDenied      Reason = "role_denied"
)

// Decision is the outcome of a guard check
type Decision struct {
	State      State  `json:"state"`
	Reason     Reason `json:"reason,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

func (d Decision) Authorized() bool {
	return d.State == StateAuthorized
}
