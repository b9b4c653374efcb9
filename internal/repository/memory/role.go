package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
)

type roleRepositoryImpl struct {
	store *Store
}

// NewRoleRepository creates a role repository over the store
func NewRoleRepository(store *Store) role.RoleRepository {
	return &roleRepositoryImpl{store: store}
}

// Upsert implements role.RoleRepository.
func (r *roleRepositoryImpl) Upsert(ctx context.Context, rl role.Role) error {
	raw, err := encode(collectionRoles, rl.Name, rl)
	if err != nil {
		return err
	}
	return r.store.write(ctx, func(data collections) error {
		data[collectionRoles][rl.Name] = raw
		return nil
	})
}

// GetByName implements role.RoleRepository.
func (r *roleRepositoryImpl) GetByName(ctx context.Context, name string) (role.Role, error) {
	var rl role.Role
	ok, err := r.store.get(collectionRoles, name, &rl)
	if err != nil {
		return role.Role{}, err
	}
	if !ok {
		return role.Role{}, role.ErrRoleNotFound
	}
	return rl, nil
}

// GetRoutes implements role.RoleRepository.
func (r *roleRepositoryImpl) GetRoutes(ctx context.Context, names []string) (map[string]role.Routes, error) {
	result := make(map[string]role.Routes, len(names))
	for _, name := range names {
		var rl role.Role
		ok, err := r.store.get(collectionRoles, name, &rl)
		if err != nil {
			return nil, err
		}
		if ok {
			result[rl.Name] = rl.Routes
		}
	}
	return result, nil
}

// List implements role.RoleRepository.
func (r *roleRepositoryImpl) List(ctx context.Context) ([]role.Role, error) {
	roles := []role.Role{}
	err := each(r.store, collectionRoles, func(_ string, rl role.Role) {
		roles = append(roles, rl)
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(roles, func(a, b role.Role) int {
		return strings.Compare(a.Name, b.Name)
	})
	return roles, nil
}

// NewBatch implements role.RoleRepository.
func (r *roleRepositoryImpl) NewBatch() role.Batch {
	return &roleBatch{store: r.store}
}

// roleBatch records writes as functions over a copy of the collections. Commit
// swaps the copy in only when every write succeeded.
type roleBatch struct {
	store  *Store
	staged []func(data collections) error
}

func (b *roleBatch) UpdateRoutes(name string, routes role.Routes, at time.Time) {
	b.staged = append(b.staged, func(data collections) error {
		_, err := mergeIn(data, collectionRoles, name, map[string]any{
			"routes":    routes,
			"updatedAt": at,
		})
		return err
	})
}

func (b *roleBatch) Delete(name string) {
	b.staged = append(b.staged, func(data collections) error {
		delete(data[collectionRoles], name)
		return nil
	})
}

func (b *roleBatch) UpdateUserAccess(uid string, roles []string, allowedRoutes role.Routes, at time.Time) {
	b.staged = append(b.staged, func(data collections) error {
		_, err := mergeIn(data, collectionUsers, uid, map[string]any{
			"roles":         roles,
			"allowedRoutes": allowedRoutes,
			"updatedAt":     at,
		})
		return err
	})
}

// Commit implements role.Batch.
func (b *roleBatch) Commit(ctx context.Context) error {
	return b.store.write(ctx, func(data collections) error {
		if err := b.store.failCommit; err != nil {
			b.store.failCommit = nil
			return err
		}

		next := data.clone()
		for _, apply := range b.staged {
			if err := apply(next); err != nil {
				return err
			}
		}

		data[collectionRoles] = next[collectionRoles]
		data[collectionUsers] = next[collectionUsers]
		return nil
	})
}
