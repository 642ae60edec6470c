package cache

import (
	"stayonboard-server-go/internal/domain/validation/repository"
	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
)

// Driver identifiers supported by the verdict cache.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// New creates a verdict cache based on the provided configuration.
func New(cfg config.CacheConfig) (repository.Cache, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg.Capacity, cfg.TTL), nil
	case DriverRedis:
		return NewRedis(cfg.Redis, cfg.TTL)
	default:
		return nil, errors.New(errors.KindConfig, "cache.new",
			"unsupported cache driver: "+driver)
	}
}
