package history

import (
	"stayonboard-server-go/internal/domain/validation/repository"
	"stayonboard-server-go/internal/platform/config"
	"stayonboard-server-go/internal/platform/errors"
	"stayonboard-server-go/internal/platform/storage"
)

// Driver identifiers supported by the history store.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// New creates a history store based on the provided configuration.
func New(cfg config.HistoryConfig) (repository.HistoryStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		dsn := cfg.SQLite.DSN
		if dsn == "" {
			return nil, errors.New(errors.KindConfig, "history.new", "sqlite dsn required")
		}
		db, err := storage.Open(dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLite(db)
	default:
		return nil, errors.New(errors.KindConfig, "history.new",
			"unsupported history driver: "+driver)
	}
}
