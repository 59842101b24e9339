package model

type Device struct {
	Serial        string  `gorm:"column:serial;type:text;primaryKey"`
	DeviceType    *string `gorm:"column:device_type;type:text"`
	LastTestedAt  string  `gorm:"column:last_tested_at;type:text;not null;index:ix_devices_last_tested_at;index:ix_devices_result_tested,priority:2"`
	LastResult    string  `gorm:"column:last_result;type:text;not null;index:ix_devices_last_result;index:ix_devices_result_tested,priority:1"`
	LastUpdatedAt string  `gorm:"column:last_updated_at;type:text;not null"`
}

func (Device) TableName() string {
	return "devices"
}
