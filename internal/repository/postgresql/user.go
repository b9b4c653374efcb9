package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type userRepositoryImpl struct {
	db *database.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *database.DB) user.UserRepository {
	return &userRepositoryImpl{db: db}
}

// GetByUID implements user.UserRepository.
func (r *userRepositoryImpl) GetByUID(ctx context.Context, uid string) (user.User, error) {
	q := GetQuerier(ctx, r.db)

	u, err := scanDoc[user.User](q.QueryRow(ctx, `SELECT doc FROM users WHERE key = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return u, user.ErrUserNotFound
		}
		return u, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// List implements user.UserRepository.
func (r *userRepositoryImpl) List(ctx context.Context) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT doc FROM users ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return collectDocs[user.User](rows)
}

// ListByRole implements user.UserRepository.
func (r *userRepositoryImpl) ListByRole(ctx context.Context, name string) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT doc FROM users WHERE doc->'roles' ? $1 ORDER BY key`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}

	return collectDocs[user.User](rows)
}

// Upsert implements user.UserRepository.
func (r *userRepositoryImpl) Upsert(ctx context.Context, u user.User) error {
	q := GetQuerier(ctx, r.db)

	doc, err := marshalDoc(u)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (key, doc) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc
	`

	if _, err := q.Exec(ctx, query, u.UID, doc); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// UpdateAccess implements user.UserRepository.
func (r *userRepositoryImpl) UpdateAccess(ctx context.Context, uid string, roles []string, allowedRoutes role.Routes, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	rolesDoc, err := marshalDoc(roles)
	if err != nil {
		return err
	}
	routesDoc, err := marshalDoc(allowedRoutes)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET doc = doc || jsonb_build_object('roles', $2::jsonb, 'allowedRoutes', $3::jsonb, 'updatedAt', $4::text)
		WHERE key = $1
	`

	tag, err := q.Exec(ctx, query, uid, rolesDoc, routesDoc, jsonTime(at))
	if err != nil {
		return fmt.Errorf("failed to update user access: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// UpdateEnvironments implements user.UserRepository.
func (r *userRepositoryImpl) UpdateEnvironments(ctx context.Context, uid string, environments map[string]string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	envDoc, err := marshalDoc(environments)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET doc = doc || jsonb_build_object('allowedEnvironments', $2::jsonb, 'updatedAt', $3::text)
		WHERE key = $1
	`

	tag, err := q.Exec(ctx, query, uid, envDoc, jsonTime(at))
	if err != nil {
		return fmt.Errorf("failed to update user environments: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// Delete implements user.UserRepository.
func (r *userRepositoryImpl) Delete(ctx context.Context, uid string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM users WHERE key = $1`, uid); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}
