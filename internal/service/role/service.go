package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/database"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/metrics"
)

type RoleServiceImpl struct {
	db            database.Transactor
	roleRepo      role.RoleRepository
	userRepo      user.UserRepository
	accessService access.AccessService
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewRoleService(
	db database.Transactor,
	roleRepo role.RoleRepository,
	userRepo user.UserRepository,
	accessService access.AccessService,
	m *metrics.Metrics,
) role.RoleService {
	return &RoleServiceImpl{
		db:            db,
		roleRepo:      roleRepo,
		userRepo:      userRepo,
		accessService: accessService,
		metrics:       m,
		now:           time.Now,
	}
}

// Create implements role.RoleService.
func (s *RoleServiceImpl) Create(ctx context.Context, req role.CreateRequest) (role.Role, error) {
	if err := req.Validate(); err != nil {
		return role.Role{}, err
	}

	now := s.now().UTC()
	r := role.Role{
		Name:        req.Name,
		Description: req.Description,
		Routes:      req.Routes.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.roleRepo.Upsert(ctx, r); err != nil {
		slog.ErrorContext(ctx, "failed to create role", "role", req.Name, "error", err)
		s.metrics.RecordRoleMutation("create", 0, err)
		return role.Role{}, role.ErrRoleCreateFailed
	}

	s.metrics.RecordRoleMutation("create", 0, nil)
	return r, nil
}

// Get implements role.RoleService.
func (s *RoleServiceImpl) Get(ctx context.Context, name string) (role.Role, error) {
	r, err := s.roleRepo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, role.ErrRoleNotFound) {
			return role.Role{}, err
		}
		return role.Role{}, fmt.Errorf("failed to get role: %w", err)
	}
	return r, nil
}

// List implements role.RoleService.
func (s *RoleServiceImpl) List(ctx context.Context) ([]role.Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// UpdateRoutes implements role.RoleService.
func (s *RoleServiceImpl) UpdateRoutes(ctx context.Context, req role.UpdateRoutesRequest) (role.Role, error) {
	if err := req.Validate(); err != nil {
		return role.Role{}, err
	}

	now := s.now().UTC()
	routes := req.Routes.Clone()

	var (
		updated  role.Role
		affected []string
	)
	err := s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.roleRepo.GetByName(txCtx, req.Name)
		if err != nil {
			return err
		}

		batch := s.roleRepo.NewBatch()
		batch.UpdateRoutes(req.Name, routes, now)

		holders, err := s.userRepo.ListByRole(txCtx, req.Name)
		if err != nil {
			return fmt.Errorf("failed to list role holders: %w", err)
		}

		for _, u := range holders {
			// the stored routes of this role are stale until the batch commits
			routesByRole, err := s.roleRepo.GetRoutes(txCtx, role.Without(u.Roles, req.Name))
			if err != nil {
				return fmt.Errorf("failed to load routes for user %s: %w", u.UID, err)
			}
			routesByRole[req.Name] = routes

			batch.UpdateUserAccess(u.UID, u.Roles, role.MergeRoutes(u.Roles, routesByRole), now)
			affected = append(affected, u.UID)
		}

		if err := batch.Commit(txCtx); err != nil {
			return err
		}

		existing.Routes = routes
		existing.UpdatedAt = now
		updated = existing
		return nil
	})
	if err != nil {
		s.metrics.RecordRoleMutation("update", len(affected), err)
		if errors.Is(err, role.ErrRoleNotFound) {
			return role.Role{}, err
		}
		slog.ErrorContext(ctx, "failed to update role routes", "role", req.Name, "users", len(affected), "error", err)
		return role.Role{}, role.ErrRoleUpdateFailed
	}

	s.metrics.RecordRoleMutation("update", len(affected), nil)
	s.accessService.Invalidate(ctx, affected...)

	return updated, nil
}

// Delete implements role.RoleService.
func (s *RoleServiceImpl) Delete(ctx context.Context, name string) error {
	if name == "" {
		return role.ErrRoleNameRequired
	}

	now := s.now().UTC()

	var affected []string
	// deleting a missing role still strips it from any holder
	err := s.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		batch := s.roleRepo.NewBatch()
		batch.Delete(name)

		holders, err := s.userRepo.ListByRole(txCtx, name)
		if err != nil {
			return fmt.Errorf("failed to list role holders: %w", err)
		}

		for _, u := range holders {
			remaining := role.Without(u.Roles, name)
			routesByRole, err := s.roleRepo.GetRoutes(txCtx, remaining)
			if err != nil {
				return fmt.Errorf("failed to load routes for user %s: %w", u.UID, err)
			}

			batch.UpdateUserAccess(u.UID, remaining, role.MergeRoutes(remaining, routesByRole), now)
			affected = append(affected, u.UID)
		}

		return batch.Commit(txCtx)
	})
	if err != nil {
		s.metrics.RecordRoleMutation("delete", len(affected), err)
		slog.ErrorContext(ctx, "failed to delete role", "role", name, "users", len(affected), "error", err)
		return role.ErrRoleDeleteFailed
	}

	s.metrics.RecordRoleMutation("delete", len(affected), nil)
	s.accessService.Invalidate(ctx, affected...)

	return nil
}
