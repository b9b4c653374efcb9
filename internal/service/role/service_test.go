package role

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/cache"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/cmlabs-hris/dashboard-access-go/internal/repository/memory"
	accessservice "github.com/cmlabs-hris/dashboard-access-go/internal/service/access"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc     *RoleServiceImpl
	store   *memory.Store
	roles   role.RoleRepository
	users   user.UserRepository
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	roles := memory.NewRoleRepository(store)
	users := memory.NewUserRepository(store)
	m := metrics.NewMetrics(prometheus.NewRegistry())

	accessSvc := accessservice.NewAccessService(users, cache.NopCache{}, access.NewEvaluator("", ""), m)
	svc := NewRoleService(store, roles, users, accessSvc, m).(*RoleServiceImpl)
	svc.now = func() time.Time { return testNow }

	return &testEnv{svc: svc, store: store, roles: roles, users: users, metrics: m}
}

func (e *testEnv) seedRole(t *testing.T, name string, routes role.Routes) {
	t.Helper()
	_, err := e.svc.Create(context.Background(), role.CreateRequest{Name: name, Routes: routes})
	require.NoError(t, err)
}

func (e *testEnv) seedUser(t *testing.T, uid string, roles []string, allowed role.Routes) {
	t.Helper()
	require.NoError(t, e.users.Upsert(context.Background(), user.User{
		UID:                 uid,
		Roles:               roles,
		AllowedRoutes:       allowed,
		AllowedEnvironments: map[string]string{},
		CreatedAt:           testNow,
		UpdatedAt:           testNow,
	}))
}

func TestCreate_UpsertsWithoutFanout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedRole(t, "support", role.Routes{"/dashboard/support": "Support"})
	env.seedUser(t, "u1", []string{"support"}, role.Routes{"/dashboard/support": "Support"})

	later := testNow.Add(time.Hour)
	env.svc.now = func() time.Time { return later }

	r, err := env.svc.Create(ctx, role.CreateRequest{
		Name:        "support",
		Description: optional.Some("Support desk"),
		Routes:      role.Routes{"/dashboard/tickets": "Tickets"},
	})
	require.NoError(t, err)
	assert.True(t, later.Equal(r.CreatedAt))
	assert.True(t, later.Equal(r.UpdatedAt))

	stored, err := env.roles.GetByName(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, role.Routes{"/dashboard/tickets": "Tickets"}, stored.Routes)
	assert.Equal(t, "Support desk", stored.Description.OrElse(""))

	u, err := env.users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, role.Routes{"/dashboard/support": "Support"}, u.AllowedRoutes)
}

func TestUpdateRoutes_PropagatesToHolders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedRole(t, "support", role.Routes{"/dashboard/support": "Support"})
	env.seedUser(t, "u1", []string{"support"}, role.Routes{"/dashboard/support": "Support"})

	newRoutes := role.Routes{
		"/dashboard/support":         "Support",
		"/dashboard/support/tickets": "Tickets",
	}
	updated, err := env.svc.UpdateRoutes(ctx, role.UpdateRoutesRequest{Name: "support", Routes: newRoutes})
	require.NoError(t, err)
	assert.Equal(t, newRoutes, updated.Routes)

	u, err := env.users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, newRoutes, u.AllowedRoutes)
	assert.True(t, testNow.Equal(u.UpdatedAt))
}

func TestUpdateRoutes_UnionsOtherHeldRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedRole(t, "admin", role.Routes{"/dashboard/users": "Users"})
	env.seedRole(t, "support", role.Routes{"/dashboard/support": "Support"})
	env.seedRole(t, "viewer", role.Routes{"/dashboard": "Home"})
	env.seedUser(t, "u1", []string{"admin", "support"}, role.Routes{"/dashboard/users": "Users", "/dashboard/support": "Support"})
	env.seedUser(t, "u2", []string{"support"}, role.Routes{"/dashboard/support": "Support"})
	env.seedUser(t, "u3", []string{"viewer"}, role.Routes{"/dashboard": "Home"})

	newRoutes := role.Routes{"/dashboard/tickets": "Tickets"}
	_, err := env.svc.UpdateRoutes(ctx, role.UpdateRoutesRequest{Name: "support", Routes: newRoutes})
	require.NoError(t, err)

	u1, err := env.users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, role.Routes{"/dashboard/users": "Users", "/dashboard/tickets": "Tickets"}, u1.AllowedRoutes)

	u2, err := env.users.GetByUID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, newRoutes, u2.AllowedRoutes)

	u3, err := env.users.GetByUID(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, role.Routes{"/dashboard": "Home"}, u3.AllowedRoutes)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RoleMutations.WithLabelValues("update", "success")))
}

func TestUpdateRoutes_FailedCommitChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedRole(t, "support", role.Routes{"/dashboard/support": "Support"})
	env.seedUser(t, "u1", []string{"support"}, role.Routes{"/dashboard/support": "Support"})
	env.seedUser(t, "u2", []string{"support"}, role.Routes{"/dashboard/support": "Support"})

	beforeRole, err := env.roles.GetByName(ctx, "support")
	require.NoError(t, err)
	beforeUsers, err := env.users.List(ctx)
	require.NoError(t, err)

	env.store.FailNextCommit(errors.New("deadline exceeded"))
	env.svc.now = func() time.Time { return testNow.Add(time.Hour) }

	_, err = env.svc.UpdateRoutes(ctx, role.UpdateRoutesRequest{
		Name:   "support",
		Routes: role.Routes{"/dashboard/tickets": "Tickets"},
	})
	assert.ErrorIs(t, err, role.ErrRoleUpdateFailed)

	afterRole, err := env.roles.GetByName(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, beforeRole, afterRole)

	afterUsers, err := env.users.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, beforeUsers, afterUsers)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RoleMutations.WithLabelValues("update", "failure")))
}

func TestUpdateRoutes_UnknownRole(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UpdateRoutes(context.Background(), role.UpdateRoutesRequest{
		Name:   "ghost",
		Routes: role.Routes{"/x": "X"},
	})
	assert.ErrorIs(t, err, role.ErrRoleNotFound)
}

func TestUpdateRoutes_InvalidPath(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UpdateRoutes(context.Background(), role.UpdateRoutesRequest{
		Name:   "support",
		Routes: role.Routes{"no-slash": "X"},
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, role.ErrRoleUpdateFailed)
}

func TestDelete_StripsRoleFromHolders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedRole(t, "admin", role.Routes{"/dashboard/users": "Users", "/dashboard/support": "Admin support"})
	env.seedRole(t, "support", role.Routes{"/dashboard/support": "Support"})
	env.seedUser(t, "u1", []string{"admin", "support"}, role.Routes{"/dashboard/users": "Users", "/dashboard/support": "Support"})

	require.NoError(t, env.svc.Delete(ctx, "admin"))

	_, err := env.roles.GetByName(ctx, "admin")
	assert.ErrorIs(t, err, role.ErrRoleNotFound)

	u, err := env.users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"support"}, u.Roles)
	assert.Equal(t, role.Routes{"/dashboard/support": "Support"}, u.AllowedRoutes)
}

func TestDelete_FailedCommitChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedRole(t, "admin", role.Routes{"/dashboard/users": "Users"})
	env.seedUser(t, "u1", []string{"admin"}, role.Routes{"/dashboard/users": "Users"})

	env.store.FailNextCommit(errors.New("unavailable"))
	assert.ErrorIs(t, env.svc.Delete(ctx, "admin"), role.ErrRoleDeleteFailed)

	_, err := env.roles.GetByName(ctx, "admin")
	require.NoError(t, err)
	u, err := env.users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, u.Roles)
}

func TestListAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedRole(t, "support", role.Routes{})
	env.seedRole(t, "admin", role.Routes{})

	roles, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Name)

	_, err = env.svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, role.ErrRoleNotFound)
}
