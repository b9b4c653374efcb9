package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
)

type userRepositoryImpl struct {
	store *Store
}

// NewUserRepository creates a user repository over the store
func NewUserRepository(store *Store) user.UserRepository {
	return &userRepositoryImpl{store: store}
}

// GetByUID implements user.UserRepository.
func (r *userRepositoryImpl) GetByUID(ctx context.Context, uid string) (user.User, error) {
	var u user.User
	ok, err := r.store.get(collectionUsers, uid, &u)
	if err != nil {
		return user.User{}, err
	}
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepositoryImpl) list(match func(u user.User) bool) ([]user.User, error) {
	users := []user.User{}
	err := each(r.store, collectionUsers, func(_ string, u user.User) {
		if match(u) {
			users = append(users, u)
		}
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(users, func(a, b user.User) int {
		return strings.Compare(a.UID, b.UID)
	})
	return users, nil
}

// List implements user.UserRepository.
func (r *userRepositoryImpl) List(ctx context.Context) ([]user.User, error) {
	return r.list(func(user.User) bool { return true })
}

// ListByRole implements user.UserRepository.
func (r *userRepositoryImpl) ListByRole(ctx context.Context, name string) ([]user.User, error) {
	return r.list(func(u user.User) bool { return u.HasRole(name) })
}

// Upsert implements user.UserRepository.
func (r *userRepositoryImpl) Upsert(ctx context.Context, u user.User) error {
	raw, err := encode(collectionUsers, u.UID, u)
	if err != nil {
		return err
	}
	return r.store.write(ctx, func(data collections) error {
		data[collectionUsers][u.UID] = raw
		return nil
	})
}

func (r *userRepositoryImpl) patch(ctx context.Context, uid string, fields map[string]any) error {
	return r.store.write(ctx, func(data collections) error {
		ok, err := mergeIn(data, collectionUsers, uid, fields)
		if err != nil {
			return err
		}
		if !ok {
			return user.ErrUserNotFound
		}
		return nil
	})
}

// UpdateAccess implements user.UserRepository.
func (r *userRepositoryImpl) UpdateAccess(ctx context.Context, uid string, roles []string, allowedRoutes role.Routes, at time.Time) error {
	return r.patch(ctx, uid, map[string]any{
		"roles":         roles,
		"allowedRoutes": allowedRoutes,
		"updatedAt":     at,
	})
}

// UpdateEnvironments implements user.UserRepository.
func (r *userRepositoryImpl) UpdateEnvironments(ctx context.Context, uid string, environments map[string]string, at time.Time) error {
	return r.patch(ctx, uid, map[string]any{
		"allowedEnvironments": environments,
		"updatedAt":           at,
	})
}

// Delete implements user.UserRepository.
func (r *userRepositoryImpl) Delete(ctx context.Context, uid string) error {
	return r.store.write(ctx, func(data collections) error {
		delete(data[collectionUsers], uid)
		return nil
	})
}
