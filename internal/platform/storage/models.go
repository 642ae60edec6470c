package storage

import (
	"time"

	"gorm.io/datatypes"
)

// ValidationRecord is the database model backing the validation history.
// Records are insert-only; nothing updates a row after creation.
type ValidationRecord struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Principal string         `gorm:"index:idx_validation_principal_id;not null" json:"principal"`
	Kind      string         `gorm:"index;not null" json:"kind"`
	Request   datatypes.JSON `gorm:"not null" json:"request"`
	Verdict   datatypes.JSON `gorm:"not null" json:"verdict"`
	FromCache bool           `json:"from_cache"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// TableName pins the table name independent of gorm's pluralisation.
func (ValidationRecord) TableName() string {
	return "validation_records"
}
