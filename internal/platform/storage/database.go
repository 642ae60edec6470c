package storage

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stayonboard-server-go/internal/platform/errors"
)

// Open opens the SQLite database at dsn and migrates the history schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.open", "open sqlite database", err)
	}

	if err := db.AutoMigrate(&ValidationRecord{}); err != nil {
		return nil, errors.Wrap(errors.KindStorage, "storage.migrate", "migrate history schema", err)
	}
	return db, nil
}
