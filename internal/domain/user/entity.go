package user

import (
	"slices"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
)

// User is the dashboard account keyed by the identity provider subject.
// AllowedRoutes is a cached projection: the union of the routes of every role
// in Roles as of the last role mutation. It is never computed on read.
type User struct {
	UID                 string                 `json:"uid"`
	Email               optional.Value[string] `json:"email,omitzero"`
	Roles               []string               `json:"roles"`
	AllowedRoutes       role.Routes            `json:"allowedRoutes"`
	AllowedEnvironments map[string]string      `json:"allowedEnvironments"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

// HasRole checks if the user holds the named role
func (u *User) HasRole(name string) bool {
	return slices.Contains(u.Roles, name)
}

