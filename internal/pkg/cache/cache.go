// Package cache keeps access profiles close to the guard so a request does not
// read the user document every time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/domain/access"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "access:"
	generationPrefix = "access:gen:"
)

// AccessCache stores profiles by uid. A miss is (zero, false, nil).
type AccessCache interface {
	Get(ctx context.Context, uid string) (access.Profile, bool, error)

	// Generation returns the uid's invalidation counter. Read it before
	// loading the profile that is later passed to Set.
	Generation(ctx context.Context, uid string) (int64, error)

	// Set stores p unless the uid was invalidated after generation was read
	Set(ctx context.Context, p access.Profile, generation int64) error

	// Invalidate drops the profiles and bumps their generations
	Invalidate(ctx context.Context, uids ...string) error
	Close() error
}

// ErrStaleProfile is returned by Set when an invalidation raced the load
var ErrStaleProfile = errors.New("profile invalidated while loading")

// RedisCache is an AccessCache backed by redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to url and verifies the connection
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func key(uid string) string {
	return keyPrefix + uid
}

func generationKey(uid string) string {
	return generationPrefix + uid
}

// Get implements AccessCache.
func (c *RedisCache) Get(ctx context.Context, uid string) (access.Profile, bool, error) {
	data, err := c.client.Get(ctx, key(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return access.Profile{}, false, nil
	}
	if err != nil {
		return access.Profile{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var p access.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		c.client.Del(ctx, key(uid))
		return access.Profile{}, false, fmt.Errorf("failed to decode cached profile: %w", err)
	}

	return p, true, nil
}

// Generation implements AccessCache. A uid never invalidated is at generation 0.
func (c *RedisCache) Generation(ctx context.Context, uid string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(uid)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Set implements AccessCache. The write is a MULTI/EXEC guarded by WATCH on
// the generation key, so an Invalidate landing after the check aborts it.
func (c *RedisCache) Set(ctx context.Context, p access.Profile, generation int64) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	genKey := generationKey(p.UID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStaleProfile
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(p.UID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleProfile):
		return ErrStaleProfile
	case errors.Is(err, redis.TxFailedErr):
		return ErrStaleProfile
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Invalidate implements AccessCache.
func (c *RedisCache) Invalidate(ctx context.Context, uids ...string) error {
	if len(uids) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, uid := range uids {
			pipe.Del(ctx, key(uid))
			pipe.Incr(ctx, generationKey(uid))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NopCache never holds anything
type NopCache struct{}

func (NopCache) Get(context.Context, string) (access.Profile, bool, error) {
	return access.Profile{}, false, nil
}

func (NopCache) Generation(context.Context, string) (int64, error) { return 0, nil }

func (NopCache) Set(context.Context, access.Profile, int64) error { return nil }

func (NopCache) Invalidate(context.Context, ...string) error { return nil }

func (NopCache) Close() error { return nil }
