package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/invitation"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/user"
	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/cmlabs-hris/dashboard-access-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newInvitation(email string, status invitation.Status) invitation.Invitation {
	return invitation.Invitation{
		Email:        email,
		Status:       status,
		Roles:        []string{},
		Environments: map[string]string{},
		InvitedAt:    now,
		History:      []invitation.HistoryEntry{},
		UpdatedAt:    now,
	}
}

func TestInvitationRepository_CreateAndStamp(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvitationRepository(memory.NewStore())

	key, err := repo.Create(ctx, newInvitation("a@x.com", invitation.StatusRequested))
	require.NoError(t, err)
	require.NotEmpty(t, key)

	_, err = repo.GetByID(ctx, key)
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)

	require.NoError(t, repo.StampID(ctx, key))

	got, err := repo.GetByID(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, got.ID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.False(t, got.Expiry.IsSome())

	_, err = repo.Create(ctx, newInvitation("a@x.com", invitation.StatusInvited))
	assert.ErrorIs(t, err, invitation.ErrDuplicateEmail)
}

func TestInvitationRepository_UpdateAppendsHistory(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvitationRepository(memory.NewStore())

	inv := newInvitation("a@x.com", invitation.StatusRequested)
	inv.History = []invitation.HistoryEntry{{Timestamp: now, Action: "User requested access", PerformedBy: "system"}}
	key, err := repo.Create(ctx, inv)
	require.NoError(t, err)
	require.NoError(t, repo.StampID(ctx, key))

	later := now.Add(time.Hour)
	err = repo.Update(ctx, key, invitation.Patch{Status: optional.Some(invitation.StatusRejected)}, later,
		optional.Some(invitation.HistoryEntry{Timestamp: later, Action: "Rejected", PerformedBy: "root"}))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusRejected, got.Status)
	assert.True(t, later.Equal(got.UpdatedAt))
	require.Len(t, got.History, 2)
	assert.Equal(t, "User requested access", got.History[0].Action)
	assert.Equal(t, "Rejected", got.History[1].Action)

	err = repo.Update(ctx, "missing", invitation.Patch{}, later, optional.None[invitation.HistoryEntry]())
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)
}

func TestInvitationRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvitationRepository(memory.NewStore())

	key, err := repo.Create(ctx, newInvitation("a@x.com", invitation.StatusInvited))
	require.NoError(t, err)
	require.NoError(t, repo.StampID(ctx, key))

	require.NoError(t, repo.Delete(ctx, key))
	require.NoError(t, repo.Delete(ctx, key))

	_, err = repo.GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, invitation.ErrInvitationNotFound)
}

func TestInvitationRepository_ListAndOverdue(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvitationRepository(memory.NewStore())

	old := newInvitation("old@x.com", invitation.StatusInvited)
	old.Expiry = optional.Some(now.Add(-time.Hour))
	fresh := newInvitation("fresh@x.com", invitation.StatusInvited)
	fresh.InvitedAt = now.Add(time.Minute)
	fresh.Expiry = optional.Some(now.Add(time.Hour))
	req := newInvitation("req@x.com", invitation.StatusRequested)
	req.InvitedAt = now.Add(2 * time.Minute)

	for _, inv := range []invitation.Invitation{old, fresh, req} {
		_, err := repo.Create(ctx, inv)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, invitation.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "req@x.com", all[0].Email)

	invited, err := repo.List(ctx, invitation.ListFilter{Status: optional.Some(invitation.StatusInvited)})
	require.NoError(t, err)
	assert.Len(t, invited, 2)

	overdue, err := repo.ListOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "old@x.com", overdue[0].Email)
}

func TestInvitationRepository_MarkExpiredIsConditional(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvitationRepository(memory.NewStore())
	entry := invitation.HistoryEntry{Timestamp: now, Action: "Invitation expired", PerformedBy: "system"}

	create := func(email string, status invitation.Status, expiry time.Time) string {
		inv := newInvitation(email, status)
		inv.Expiry = optional.Some(expiry)
		key, err := repo.Create(ctx, inv)
		require.NoError(t, err)
		require.NoError(t, repo.StampID(ctx, key))
		return key
	}
	overdue := create("old@x.com", invitation.StatusInvited, now.Add(-time.Hour))
	extended := create("ext@x.com", invitation.StatusInvited, now.Add(time.Hour))
	joined := create("joined@x.com", invitation.StatusJoined, now.Add(-time.Hour))

	changed, err := repo.MarkExpired(ctx, overdue, now, entry)
	require.NoError(t, err)
	assert.True(t, changed)
	got, err := repo.GetByID(ctx, overdue)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusExpired, got.Status)
	require.Len(t, got.History, 1)
	assert.Equal(t, "Invitation expired", got.History[0].Action)

	changed, err = repo.MarkExpired(ctx, overdue, now, entry)
	require.NoError(t, err)
	assert.False(t, changed)

	for _, key := range []string{extended, joined, "missing"} {
		changed, err := repo.MarkExpired(ctx, key, now, entry)
		require.NoError(t, err)
		assert.False(t, changed, key)
	}

	got, err = repo.GetByID(ctx, joined)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusJoined, got.Status)
	assert.Empty(t, got.History)
}

func seedRolesAndUsers(t *testing.T, ctx context.Context, roles role.RoleRepository, users user.UserRepository) {
	t.Helper()
	require.NoError(t, roles.Upsert(ctx, role.Role{Name: "admin", Routes: role.Routes{"/users": "Users"}, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, roles.Upsert(ctx, role.Role{Name: "support", Routes: role.Routes{"/tickets": "Tickets"}, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, users.Upsert(ctx, user.User{
		UID:                 "u1",
		Roles:               []string{"admin", "support"},
		AllowedRoutes:       role.Routes{"/users": "Users", "/tickets": "Tickets"},
		AllowedEnvironments: map[string]string{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}))
}

func TestRoleBatch_CommitAppliesEveryWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	roles := memory.NewRoleRepository(store)
	users := memory.NewUserRepository(store)
	seedRolesAndUsers(t, ctx, roles, users)

	later := now.Add(time.Hour)
	batch := roles.NewBatch()
	batch.UpdateRoutes("admin", role.Routes{"/settings": "Settings"}, later)
	batch.UpdateUserAccess("u1", []string{"admin", "support"}, role.Routes{"/settings": "Settings", "/tickets": "Tickets"}, later)
	require.NoError(t, batch.Commit(ctx))

	admin, err := roles.GetByName(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, role.Routes{"/settings": "Settings"}, admin.Routes)
	assert.True(t, later.Equal(admin.UpdatedAt))

	u, err := users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, role.Routes{"/settings": "Settings", "/tickets": "Tickets"}, u.AllowedRoutes)
}

func TestRoleBatch_FailedCommitWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	roles := memory.NewRoleRepository(store)
	users := memory.NewUserRepository(store)
	seedRolesAndUsers(t, ctx, roles, users)

	store.FailNextCommit(errors.New("unavailable"))

	batch := roles.NewBatch()
	batch.Delete("admin")
	batch.UpdateUserAccess("u1", []string{"support"}, role.Routes{"/tickets": "Tickets"}, now)
	require.Error(t, batch.Commit(ctx))

	_, err := roles.GetByName(ctx, "admin")
	require.NoError(t, err)
	u, err := users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "support"}, u.Roles)

	// the hook fires once
	require.NoError(t, batch.Commit(ctx))
	_, err = roles.GetByName(ctx, "admin")
	assert.ErrorIs(t, err, role.ErrRoleNotFound)
}

func TestRoleRepository_GetRoutesSkipsMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	roles := memory.NewRoleRepository(store)
	seedRolesAndUsers(t, ctx, roles, memory.NewUserRepository(store))

	routes, err := roles.GetRoutes(ctx, []string{"admin", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]role.Routes{"admin": {"/users": "Users"}}, routes)

	list, err := roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "admin", list[0].Name)
}

func TestUserRepository_ListByRoleAndUpdates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	seedRolesAndUsers(t, ctx, memory.NewRoleRepository(store), users)

	holders, err := users.ListByRole(ctx, "support")
	require.NoError(t, err)
	require.Len(t, holders, 1)

	holders, err = users.ListByRole(ctx, "viewer")
	require.NoError(t, err)
	assert.Empty(t, holders)

	require.NoError(t, users.UpdateEnvironments(ctx, "u1", map[string]string{"prod": "Production"}, now))
	u, err := users.GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, u.AllowedEnvironments, "prod")
	assert.Equal(t, []string{"admin", "support"}, u.Roles)

	err = users.UpdateAccess(ctx, "ghost", nil, role.Routes{}, now)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestStore_WithinTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)

	err := store.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, users.Upsert(ctx, user.User{UID: "u1", Roles: []string{}}))
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = users.GetByUID(ctx, "u1")
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	err = store.WithinTransaction(ctx, func(ctx context.Context) error {
		return users.Upsert(ctx, user.User{UID: "u1", Roles: []string{}})
	})
	require.NoError(t, err)

	_, err = users.GetByUID(ctx, "u1")
	assert.NoError(t, err)
}
