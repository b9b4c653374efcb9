package role

import (
	"context"
	"time"
)

type RoleRepository interface {
	// Upsert writes the role keyed by name, replacing any existing document
	Upsert(ctx context.Context, r Role) error

	GetByName(ctx context.Context, name string) (Role, error)

	// GetRoutes returns the stored routes of each named role that exists
	GetRoutes(ctx context.Context, names []string) (map[string]Routes, error)

	List(ctx context.Context) ([]Role, error)

	// NewBatch starts a unit of work spanning the roles and users collections
	NewBatch() Batch
}

// Batch stages role and user writes. Nothing is visible until Commit, and
// Commit applies either every staged write or none of them.
type Batch interface {
	UpdateRoutes(name string, routes Routes, at time.Time)
	Delete(name string)
	UpdateUserAccess(uid string, roles []string, allowedRoutes Routes, at time.Time)
	Commit(ctx context.Context) error
}
