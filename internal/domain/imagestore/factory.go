package imagestore

import (
	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
)

// Driver identifiers supported by the image store.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// New creates an image store based on the provided configuration.
func New(cfg config.StoreConfig) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg.TTL), nil
	case DriverRedis:
		return NewRedis(cfg.Redis, cfg.TTL)
	default:
		return nil, errors.New(errors.KindConfig, "imagestore.new",
			"unsupported image store driver: "+driver)
	}
}
