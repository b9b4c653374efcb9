package user

import (
	"context"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
)

type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (User, error)
	List(ctx context.Context) ([]User, error)

	// ListByRole returns every user whose roles contain name
	ListByRole(ctx context.Context, name string) ([]User, error)

	// Upsert writes the whole user document keyed by uid
	Upsert(ctx context.Context, u User) error

	UpdateAccess(ctx context.Context, uid string, roles []string, allowedRoutes role.Routes, at time.Time) error
	UpdateEnvironments(ctx context.Context, uid string, environments map[string]string, at time.Time) error
	Delete(ctx context.Context, uid string) error
}
