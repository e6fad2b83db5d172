package model

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry backs the postgres key-value driver.
type KVEntry struct {
	Key       string         `gorm:"type:varchar(255);primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
