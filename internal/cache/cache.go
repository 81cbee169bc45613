package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jjinnspecs/authhub/internal/domain/user"
	"github.com/redis/go-redis/v9"
)

// ProfileCache is a read-through cache for GET /api/user. Profiles are
// never updated in place, so a short TTL only has to cover deletion.
type ProfileCache struct {
	redisdb *redis.Client
	ttl     time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func New(cfg Config) *ProfileCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}

	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &ProfileCache{redisdb: redisdb, ttl: cfg.TTL}
}

func key(userID string) string {
	return "authhub:profile:" + userID
}

// Get returns the cached profile, or false on a miss. Redis failures are
// reported as misses; the caller falls through to the store.
func (c *ProfileCache) Get(ctx context.Context, userID string) (user.Profile, bool) {
	raw, err := c.redisdb.Get(ctx, key(userID)).Bytes()

	if err != nil {
		return user.Profile{}, false
	}

	var p user.Profile

	if err := json.Unmarshal(raw, &p); err != nil {
		return user.Profile{}, false
	}

	return p, true
}

func (c *ProfileCache) Set(ctx context.Context, p user.Profile) {
	raw, err := json.Marshal(p)

	if err != nil {
		return
	}

	// best effort; a failed set just means the next read hits the store
	_ = c.redisdb.Set(ctx, key(p.ID), raw, c.ttl).Err()
}

func (c *ProfileCache) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *ProfileCache) Close() error {
	return c.redisdb.Close()
}
