package postgres

import "time"

// Record is one JSON blob under a fixed key. Saves upsert by key, so the
// table carries only the latest value per key (last-write-wins).
type Record struct {
	Key       string    `gorm:"type:text;primaryKey"`
	Value     []byte    `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (Record) TableName() string {
	return "kv_record"
}
