package schema

import "time"

// Version is bumped whenever the ledger tables change shape.
const Version = "1"

const KeySchemaVersion = "schema_version"

type Meta struct {
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (Meta) TableName() string {
	return "meta"
}
