package user

import "context"

type UserService interface {
	Get(ctx context.Context, uid string) (User, error)
	List(ctx context.Context) ([]User, error)

	// AssignRoles replaces the user's roles and recomputes allowedRoutes from the stored roles
	AssignRoles(ctx context.Context, req AssignRolesRequest) (User, error)

	SetEnvironments(ctx context.Context, req SetEnvironmentsRequest) (User, error)

	// Delete removes the user; actorUID must differ from uid
	Delete(ctx context.Context, uid, actorUID string) error
}
