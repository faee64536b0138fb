package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/betslipai/backend/internal/models"
)

// SnapshotKey holds the JSON-encoded fixture list.
const SnapshotKey = "fixtures:snapshot:v1"

// DefaultTTL bounds how stale a snapshot may be.
const DefaultTTL = 5 * time.Minute

// FixtureSource is the store the cache reads through to.
type FixtureSource interface {
	ListAll(ctx context.Context) ([]models.Fixture, error)
}

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// FixtureCache is a read-through snapshot of the fixture table. A Redis
// outage degrades to reading the source directly.
type FixtureCache struct {
	Source FixtureSource
	R      RedisClient
	TTL    time.Duration
	Logger *slog.Logger
}

func NewFixtureCache(src FixtureSource, r RedisClient, ttl time.Duration, logger *slog.Logger) *FixtureCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FixtureCache{Source: src, R: r, TTL: ttl, Logger: logger}
}

// ListAll returns the cached snapshot, loading and storing it on a miss.
func (c *FixtureCache) ListAll(ctx context.Context) ([]models.Fixture, error) {
	b, err := c.R.Get(ctx, SnapshotKey).Bytes()
	switch {
	case err == nil:
		var fixtures []models.Fixture
		if err := json.Unmarshal(b, &fixtures); err == nil {
			return fixtures, nil
		}
		c.Logger.Warn("discarding undecodable fixture snapshot", "key", SnapshotKey)
	case errors.Is(err, redis.Nil):
	default:
		c.Logger.Warn("fixture cache read failed", "error", err)
	}

	fixtures, err := c.Source.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	b, err = json.Marshal(fixtures)
	if err != nil {
		return fixtures, nil
	}
	if err := c.R.Set(ctx, SnapshotKey, b, c.TTL).Err(); err != nil {
		c.Logger.Warn("fixture cache write failed", "error", err)
	}
	return fixtures, nil
}

// Invalidate drops the snapshot so the next read goes to the source.
func (c *FixtureCache) Invalidate(ctx context.Context) error {
	return c.R.Del(ctx, SnapshotKey).Err()
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
