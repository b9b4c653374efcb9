package role

import (
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
)

// Routes maps a dashboard route path to its display name.
type Routes map[string]string

// Clone returns a shallow copy; nil stays an empty map.
func (r Routes) Clone() Routes {
	out := make(Routes, len(r))
	for path, name := range r {
		out[path] = name
	}
	return out
}

// Role is a named bundle of route permissions. Name is the primary key.
type Role struct {
	Name        string                 `json:"name"`
	Description optional.Value[string] `json:"description,omitzero"`
	Routes      Routes                 `json:"routes"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// MergeRoutes returns the union of the routes of every role in roles, looked up
// in routesByRole. Roles missing from routesByRole contribute nothing. On a path
// collision the role merged last wins.
func MergeRoutes(roles []string, routesByRole map[string]Routes) Routes {
	merged := make(Routes)
	for _, name := range roles {
		for path, display := range routesByRole[name] {
			merged[path] = display
		}
	}
	return merged
}

// Without returns roles minus name, preserving order.
func Without(roles []string, name string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != name {
			out = append(out, r)
		}
	}
	return out
}
