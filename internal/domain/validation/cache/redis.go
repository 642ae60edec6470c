package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"stayonboard-server-go/internal/domain/validation/repository"
	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
)

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	group  singleflight.Group
}

// NewRedis constructs a redis-backed verdict cache. Single-flight collapsing
// is process-local; distinct instances may compute the same key once each.
func NewRedis(cfg config.RedisConfig, ttl time.Duration) (repository.Cache, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.KindConfig, "cache.redis", "redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "cache.redis", "redis ping failed", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "verdict:"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(errors.KindStorage, "cache.get", "read cache entry", err)
	}
	return value, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "cache.set", "write cache entry", err)
	}
	return nil
}

func (c *redisCache) ComputeOnce(
	ctx context.Context,
	key string,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, bool, error) {
	if value, ok, err := c.Get(ctx, key); err == nil && ok {
		return value, true, nil
	}

	type result struct {
		value []byte
		hit   bool
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok, err := c.Get(ctx, key); err == nil && ok {
			return result{value: value, hit: true}, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, key, value); err != nil {
			return nil, err
		}
		return result{value: value}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.value, r.hit, nil
}

func (c *redisCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "cache.invalidate", "delete cache entry", err)
	}
	return nil
}

func (c *redisCache) Close(_ context.Context) error {
	return c.client.Close()
}
