package imagestore

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a redis-backed image store. Handles and payloads live
// under separate keys so Resolve never pulls image bytes over the wire.
func NewRedis(cfg config.RedisConfig, ttl time.Duration) (Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.KindConfig, "imagestore.redis", "redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "imagestore.redis", "redis ping failed", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "image:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

func (s *redisStore) metaKey(id string) string { return s.prefix + "meta:" + id }
func (s *redisStore) dataKey(id string) string { return s.prefix + "data:" + id }

func (s *redisStore) Save(ctx context.Context, raw []byte, handle Handle) (Handle, error) {
	const op = "imagestore.save"
	if len(raw) == 0 {
		return Handle{}, errors.New(errors.KindInvalidParameters, op, "empty payload")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Handle{}, errors.Wrap(errors.KindStorage, op, "generate storage id", err)
	}
	handle.StorageID = id.String()
	handle.StoredAt = time.Now()

	meta, err := sonic.Marshal(handle)
	if err != nil {
		return Handle{}, errors.Wrap(errors.KindStorage, op, "encode handle", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.metaKey(handle.StorageID), meta, s.ttl)
	pipe.Set(ctx, s.dataKey(handle.StorageID), raw, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return Handle{}, errors.Wrap(errors.KindStorage, op, "store image", err)
	}
	return handle, nil
}

func (s *redisStore) Resolve(ctx context.Context, storageID string) (Handle, error) {
	const op = "imagestore.resolve"
	raw, err := s.client.Get(ctx, s.metaKey(storageID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Handle{}, errors.New(errors.KindImageUnavailable, op,
				"image no longer available: "+storageID)
		}
		return Handle{}, errors.Wrap(errors.KindStorage, op, "load handle", err)
	}

	var handle Handle
	if err := sonic.Unmarshal(raw, &handle); err != nil {
		return Handle{}, errors.Wrap(errors.KindStorage, op, "decode handle", err)
	}
	return handle, nil
}

func (s *redisStore) Load(ctx context.Context, storageID string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.dataKey(storageID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.New(errors.KindImageUnavailable, "imagestore.load",
				"image no longer available: "+storageID)
		}
		return nil, errors.Wrap(errors.KindStorage, "imagestore.load", "load image", err)
	}
	return raw, nil
}

func (s *redisStore) Remove(ctx context.Context, storageID string) error {
	if err := s.client.Del(ctx, s.metaKey(storageID), s.dataKey(storageID)).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "imagestore.remove", "delete image", err)
	}
	return nil
}

func (s *redisStore) Close(_ context.Context) error {
	return s.client.Close()
}
