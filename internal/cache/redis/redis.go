// Package redis implements the cache.Client interface on go-redis.
package redis

import (
	"context"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dayoff-kr/moimlink/internal/cache"
)

type Cache struct {
	c      *rdb.Client
	prefix string
}

// New creates a redis-backed cache client.
func New(cfg cache.Config) *Cache {
	return &Cache{
		c: rdb.NewClient(&rdb.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.Prefix,
	}
}

// Client exposes the underlying go-redis client for components that need
// redis primitives directly (the rate limiter uses INCR pipelines).
func (r *Cache) Client() *rdb.Client { return r.c }

func (r *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.c.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, rdb.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.c.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *Cache) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, r.prefix+key).Err()
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }
func (r *Cache) Close() error                   { return r.c.Close() }
