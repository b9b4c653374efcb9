package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/database"
)

type UserServiceImpl struct {
	db            database.Transactor
	userRepo      user.UserRepository
	roleRepo      role.RoleRepository
	accessService access.AccessService
	now           func() time.Time
}

func NewUserService(
	db database.Transactor,
	userRepo user.UserRepository,
	roleRepo role.RoleRepository,
	accessService access.AccessService,
) user.UserService {
	return &UserServiceImpl{
		db:            db,
		userRepo:      userRepo,
		roleRepo:      roleRepo,
		accessService: accessService,
		now:           time.Now,
	}
}

// Get implements user.UserService.
func (s *UserServiceImpl) Get(ctx context.Context, uid string) (user.User, error) {
	if uid == "" {
		return user.User{}, user.ErrUIDRequired
	}

	u, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List implements user.UserService.
func (s *UserServiceImpl) List(ctx context.Context) ([]user.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// AssignRoles implements user.UserService.
func (s *UserServiceImpl) AssignRoles(ctx context.Context, req user.AssignRolesRequest) (user.User, error) {
	if err := req.Validate(); err != nil {
		return user.User{}, err
	}

	roles := dedupe(req.Roles)
	now := s.now().UTC()

	var updated user.User
	err := s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		u, err := s.userRepo.GetByUID(txCtx, req.UID)
		if err != nil {
			return err
		}

		routesByRole, err := s.roleRepo.GetRoutes(txCtx, roles)
		if err != nil {
			return fmt.Errorf("failed to load role routes: %w", err)
		}
		for _, name := range roles {
			if _, ok := routesByRole[name]; !ok {
				return fmt.Errorf("%w: %s", role.ErrUnknownRole, name)
			}
		}

		allowed := role.MergeRoutes(roles, routesByRole)
		if err := s.userRepo.UpdateAccess(txCtx, req.UID, roles, allowed, now); err != nil {
			return err
		}

		u.Roles = roles
		u.AllowedRoutes = allowed
		u.UpdatedAt = now
		updated = u
		return nil
	})
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) || errors.Is(err, role.ErrUnknownRole) {
			return user.User{}, err
		}
		slog.ErrorContext(ctx, "failed to assign roles", "uid", req.UID, "error", err)
		return user.User{}, user.ErrUserUpdateFailed
	}

	s.accessService.Invalidate(ctx, req.UID)
	return updated, nil
}

// SetEnvironments implements user.UserService.
func (s *UserServiceImpl) SetEnvironments(ctx context.Context, req user.SetEnvironmentsRequest) (user.User, error) {
	if err := req.Validate(); err != nil {
		return user.User{}, err
	}

	now := s.now().UTC()
	if err := s.userRepo.UpdateEnvironments(ctx, req.UID, req.Environments, now); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.User{}, err
		}
		slog.ErrorContext(ctx, "failed to set environments", "uid", req.UID, "error", err)
		return user.User{}, user.ErrUserUpdateFailed
	}

	s.accessService.Invalidate(ctx, req.UID)
	return s.Get(ctx, req.UID)
}

// Delete implements user.UserService.
func (s *UserServiceImpl) Delete(ctx context.Context, uid, actorUID string) error {
	if uid == "" {
		return user.ErrUIDRequired
	}
	if uid == actorUID {
		return user.ErrCannotDeleteSelf
	}

	if _, err := s.Get(ctx, uid); err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, uid); err != nil {
		slog.ErrorContext(ctx, "failed to delete user", "uid", uid, "error", err)
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.accessService.Invalidate(ctx, uid)
	return nil
}

// dedupe drops repeated role names, keeping the first occurrence
func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
