// Package cache provides the Redis-backed problem snapshot cache so
// repeated evaluations of the same problem do not refetch the suite
// from the catalog on every submission.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codeval/internal/eval/model"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	PoolSize     int           `yaml:"poolSize"`

	// SnapshotTTL bounds how stale a cached suite may get.
	SnapshotTTL time.Duration `yaml:"snapshotTTL"`
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.PoolSize == 0 {
		c.PoolSize = 20
	}
	if c.SnapshotTTL == 0 {
		c.SnapshotTTL = 10 * time.Minute
	}
	return c
}

// ProblemCache stores problem suite snapshots as JSON values keyed by
// problem id.
type ProblemCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProblemCache(cfg RedisConfig) (*ProblemCache, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &ProblemCache{client: client, ttl: cfg.SnapshotTTL}, nil
}

// NewProblemCacheWithClient wraps an existing client. Tests use this
// with miniredis.
func NewProblemCacheWithClient(client *redis.Client, ttl time.Duration) *ProblemCache {
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &ProblemCache{client: client, ttl: ttl}
}

func snapshotKey(problemID string) string {
	return "codeval:problem:" + problemID
}

// Get returns the cached snapshot, or found=false on a miss. Decode
// failures are treated as misses so a corrupt entry self-heals on the
// next Put.
func (c *ProblemCache) Get(ctx context.Context, problemID string) (model.Problem, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKey(problemID)).Bytes()
	if err == redis.Nil {
		return model.Problem{}, false, nil
	}
	if err != nil {
		return model.Problem{}, false, fmt.Errorf("redis get problem snapshot failed: %w", err)
	}
	var p model.Problem
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Problem{}, false, nil
	}
	return p, true, nil
}

func (c *ProblemCache) Put(ctx context.Context, p model.Problem) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode problem snapshot failed: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(p.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set problem snapshot failed: %w", err)
	}
	return nil
}

// Invalidate drops a snapshot, forcing the next evaluation to refetch.
func (c *ProblemCache) Invalidate(ctx context.Context, problemID string) error {
	return c.client.Del(ctx, snapshotKey(problemID)).Err()
}

func (c *ProblemCache) Close() error {
	return c.client.Close()
}
