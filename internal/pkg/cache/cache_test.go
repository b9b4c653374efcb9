package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	c, err := NewRedisCache("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, mr
}

func testProfile() access.Profile {
	return access.Profile{
		UID:                 "u1",
		Roles:               []string{"admin"},
		AllowedRoutes:       role.Routes{"/users": "Users"},
		AllowedEnvironments: map[string]string{"prod": "Production"},
	}
}

func TestRedisCache_SetGet(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, testProfile(), 0))
	assert.True(t, mr.Exists("access:u1"))

	got, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testProfile(), got)
}

func TestRedisCache_Expires(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testProfile(), 0))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_Invalidate(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testProfile(), 0))
	require.NoError(t, c.Invalidate(ctx, "u1", "u2"))
	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists("access:u1"))

	gen, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestRedisCache_SetAfterInvalidateIsDropped(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	// the profile was loaded at gen, then the user document changed
	require.NoError(t, c.Invalidate(ctx, "u1"))

	err = c.Set(ctx, testProfile(), gen)
	assert.ErrorIs(t, err, ErrStaleProfile)
	assert.False(t, mr.Exists("access:u1"))

	gen, err = c.Generation(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, testProfile(), gen))
	assert.True(t, mr.Exists("access:u1"))
}

func TestRedisCache_CorruptEntryIsDropped(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("access:u1", "{not json"))

	_, ok, err := c.Get(ctx, "u1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("access:u1"))
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache("invalid://url", time.Minute)
	assert.Error(t, err)
}

func TestNopCache(t *testing.T) {
	var c AccessCache = NopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testProfile(), 0))
	_, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}
