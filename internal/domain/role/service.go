package role

import "context"

// RoleService defines the interface for role registry business logic
type RoleService interface {
	// Create upserts the role by name; existing holders are not re-synced
	Create(ctx context.Context, req CreateRequest) (Role, error)

	Get(ctx context.Context, name string) (Role, error)

	List(ctx context.Context) ([]Role, error)

	// UpdateRoutes replaces the role's routes and recomputes allowedRoutes for every holder in one batch
	UpdateRoutes(ctx context.Context, req UpdateRoutesRequest) (Role, error)

	// Delete removes the role and strips it from every holder in one batch
	Delete(ctx context.Context, name string) error
}
