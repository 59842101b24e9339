package model

// TestEvent timestamps are stored as fixed-width UTC text (see
// repository.formatTime) so that string comparison is chronological.
type TestEvent struct {
	ID          uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	Serial      string  `gorm:"column:serial;type:text;not null;index"`
	DeviceType  *string `gorm:"column:device_type;type:text"`
	TestedAt    string  `gorm:"column:tested_at;type:text;not null;index"`
	Result      string  `gorm:"column:result;type:text;not null;index"`
	FilePath    string  `gorm:"column:file_path;type:text;not null"`
	ImportedAt  string  `gorm:"column:imported_at;type:text;not null"`
	ParseStatus string  `gorm:"column:parse_status;type:text;not null;default:'ok'"`
	ParseError  *string `gorm:"column:parse_error;type:text"`
}

func (TestEvent) TableName() string {
	return "tests"
}
