package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type roleRepositoryImpl struct {
	db *database.DB
}

// NewRoleRepository creates a new role repository instance
func NewRoleRepository(db *database.DB) role.RoleRepository {
	return &roleRepositoryImpl{db: db}
}

// Upsert implements role.RoleRepository.
func (r *roleRepositoryImpl) Upsert(ctx context.Context, rl role.Role) error {
	q := GetQuerier(ctx, r.db)

	doc, err := marshalDoc(rl)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO roles (key, doc) VALUES ($1, $2::jsonb)
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc
	`

	if _, err := q.Exec(ctx, query, rl.Name, doc); err != nil {
		return fmt.Errorf("failed to upsert role: %w", err)
	}

	return nil
}

// GetByName implements role.RoleRepository.
func (r *roleRepositoryImpl) GetByName(ctx context.Context, name string) (role.Role, error) {
	q := GetQuerier(ctx, r.db)

	rl, err := scanDoc[role.Role](q.QueryRow(ctx, `SELECT doc FROM roles WHERE key = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rl, role.ErrRoleNotFound
		}
		return rl, fmt.Errorf("failed to get role: %w", err)
	}

	return rl, nil
}

// GetRoutes implements role.RoleRepository.
func (r *roleRepositoryImpl) GetRoutes(ctx context.Context, names []string) (map[string]role.Routes, error) {
	q := GetQuerier(ctx, r.db)

	result := make(map[string]role.Routes, len(names))
	if len(names) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx, `SELECT doc FROM roles WHERE key = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to get role routes: %w", err)
	}

	roles, err := collectDocs[role.Role](rows)
	if err != nil {
		return nil, err
	}

	for _, rl := range roles {
		result[rl.Name] = rl.Routes
	}

	return result, nil
}

// List implements role.RoleRepository.
func (r *roleRepositoryImpl) List(ctx context.Context) ([]role.Role, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT doc FROM roles ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return collectDocs[role.Role](rows)
}

// NewBatch implements role.RoleRepository.
func (r *roleRepositoryImpl) NewBatch() role.Batch {
	return &roleBatch{db: r.db}
}

type stagedStatement struct {
	sql  string
	args []any
	err  error
}

// roleBatch queues statements and sends them as one pgx.Batch inside a
// transaction on Commit.
type roleBatch struct {
	db     *database.DB
	staged []stagedStatement
}

func (b *roleBatch) stage(sql string, args ...any) {
	b.staged = append(b.staged, stagedStatement{sql: sql, args: args})
}

func (b *roleBatch) stageErr(err error) {
	b.staged = append(b.staged, stagedStatement{err: err})
}

func (b *roleBatch) UpdateRoutes(name string, routes role.Routes, at time.Time) {
	doc, err := marshalDoc(routes)
	if err != nil {
		b.stageErr(err)
		return
	}
	b.stage(`
		UPDATE roles
		SET doc = doc || jsonb_build_object('routes', $2::jsonb, 'updatedAt', $3::text)
		WHERE key = $1
	`, name, doc, jsonTime(at))
}

func (b *roleBatch) Delete(name string) {
	b.stage(`DELETE FROM roles WHERE key = $1`, name)
}

func (b *roleBatch) UpdateUserAccess(uid string, roles []string, allowedRoutes role.Routes, at time.Time) {
	rolesDoc, err := marshalDoc(roles)
	if err != nil {
		b.stageErr(err)
		return
	}
	routesDoc, err := marshalDoc(allowedRoutes)
	if err != nil {
		b.stageErr(err)
		return
	}
	b.stage(`
		UPDATE users
		SET doc = doc || jsonb_build_object('roles', $2::jsonb, 'allowedRoutes', $3::jsonb, 'updatedAt', $4::text)
		WHERE key = $1
	`, uid, rolesDoc, routesDoc, jsonTime(at))
}

// Commit sends every staged statement in one transaction. Any failure rolls
// the whole batch back.
func (b *roleBatch) Commit(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, s := range b.staged {
		if s.err != nil {
			return s.err
		}
		batch.Queue(s.sql, s.args...)
	}

	send := func(q database.Querier) error {
		results := q.SendBatch(ctx, batch)
		for range b.staged {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("batch statement failed: %w", err)
			}
		}
		return results.Close()
	}

	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return send(tx)
	}

	return WithTransaction(ctx, b.db, func(tx pgx.Tx) error {
		return send(tx)
	})
}
