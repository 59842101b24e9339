package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gasdock/internal/errs"
	"gasdock/internal/infrastructure/persistence/sqlite/model"
	"gasdock/internal/ports"
)

// timeLayout is fixed width and always UTC, so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type LedgerRepository struct {
	db *gorm.DB
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *LedgerRepository) AppendEvent(ctx context.Context, input ports.TestEventCreate) (ports.TestEvent, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.TestEvent{}, err
	}

	row := model.TestEvent{
		Serial:      input.Serial,
		DeviceType:  optionalString(input.DeviceType),
		TestedAt:    formatTime(input.TestedAt),
		Result:      input.Result,
		FilePath:    input.SourceFilePath,
		ImportedAt:  formatTime(input.ImportedAt),
		ParseStatus: input.ParseStatus,
		ParseError:  optionalString(input.ParseError),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.TestEvent{}, errs.Wrap(err, "insert test event")
	}
	return mapTestEvent(row)
}

func (r *LedgerRepository) ApplySnapshot(ctx context.Context, snapshot ports.DeviceSnapshot) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.Device{
		Serial:        snapshot.Serial,
		DeviceType:    optionalString(snapshot.DeviceType),
		LastTestedAt:  formatTime(snapshot.LastTestedAt),
		LastResult:    snapshot.LastResult,
		LastUpdatedAt: formatTime(snapshot.LastUpdatedAt),
	}

	// Compare-and-swap on last_tested_at; ties go to the later write.
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "serial"}},
		DoUpdates: clause.Set{
			{Column: clause.Column{Name: "device_type"}, Value: gorm.Expr("COALESCE(excluded.device_type, devices.device_type)")},
			{Column: clause.Column{Name: "last_tested_at"}, Value: gorm.Expr("excluded.last_tested_at")},
			{Column: clause.Column{Name: "last_result"}, Value: gorm.Expr("excluded.last_result")},
			{Column: clause.Column{Name: "last_updated_at"}, Value: gorm.Expr("excluded.last_updated_at")},
		},
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("excluded.last_tested_at >= devices.last_tested_at"),
		}},
	}).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "upsert device snapshot")
	}
	return result.RowsAffected > 0, nil
}

func (r *LedgerRepository) ListEvents(ctx context.Context, filter ports.TestEventFilter) ([]ports.TestEvent, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.TestEvent{})
	if serial := normalizeSerialFilter(filter.Serial); serial != "" {
		query = query.Where("serial = ?", serial)
	}
	if serial := normalizeSerialFilter(filter.SerialContains); serial != "" {
		query = query.Where("instr(serial, ?) > 0", serial)
	}
	if result := strings.TrimSpace(filter.Result); result != "" {
		query = query.Where("result = ?", result)
	}
	if filter.TestedFrom != nil {
		query = query.Where("tested_at >= ?", formatTime(*filter.TestedFrom))
	}
	if filter.TestedTo != nil {
		query = query.Where("tested_at <= ?", formatTime(*filter.TestedTo))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.TestEvent
	if err := query.Order("tested_at desc").Order("id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query test events")
	}

	items := make([]ports.TestEvent, 0, len(rows))
	for _, row := range rows {
		item, err := mapTestEvent(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *LedgerRepository) ListDevices(ctx context.Context, filter ports.DeviceFilter) ([]ports.DeviceSnapshot, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Device{})
	if serial := normalizeSerialFilter(filter.SerialContains); serial != "" {
		query = query.Where("instr(serial, ?) > 0", serial)
	}
	if result := strings.TrimSpace(filter.LastResult); result != "" {
		query = query.Where("last_result = ?", result)
	}
	if filter.TestedFrom != nil {
		query = query.Where("last_tested_at >= ?", formatTime(*filter.TestedFrom))
	}
	if filter.TestedTo != nil {
		query = query.Where("last_tested_at <= ?", formatTime(*filter.TestedTo))
	}

	var rows []model.Device
	if err := query.Order("last_tested_at desc").Order("serial asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query devices")
	}

	items := make([]ports.DeviceSnapshot, 0, len(rows))
	for _, row := range rows {
		item, err := mapDevice(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *LedgerRepository) GetDevice(ctx context.Context, serial string) (ports.DeviceSnapshot, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.DeviceSnapshot{}, err
	}

	var row model.Device
	if err := db.Where("serial = ?", strings.ToUpper(strings.TrimSpace(serial))).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.DeviceSnapshot{}, ports.ErrDeviceNotFound
		}
		return ports.DeviceSnapshot{}, errs.Wrap(err, "query device")
	}
	return mapDevice(row)
}

func (r *LedgerRepository) CountDevices(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Device{}).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count devices")
	}
	return count, nil
}

func (r *LedgerRepository) CountEvents(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.TestEvent{}).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count test events")
	}
	return count, nil
}

func (r *LedgerRepository) CountEventsSince(ctx context.Context, result string, since time.Time) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.TestEvent{}).
		Where("result = ? AND tested_at >= ?", result, formatTime(since)).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count test events since")
	}
	return count, nil
}

func mapTestEvent(row model.TestEvent) (ports.TestEvent, error) {
	testedAt, err := parseTime(row.TestedAt)
	if err != nil {
		return ports.TestEvent{}, errs.Wrapf(err, "parse tested_at of test event %d", row.ID)
	}
	importedAt, err := parseTime(row.ImportedAt)
	if err != nil {
		return ports.TestEvent{}, errs.Wrapf(err, "parse imported_at of test event %d", row.ID)
	}

	return ports.TestEvent{
		ID:             row.ID,
		Serial:         row.Serial,
		DeviceType:     derefString(row.DeviceType),
		TestedAt:       testedAt,
		Result:         row.Result,
		SourceFilePath: row.FilePath,
		ImportedAt:     importedAt,
		ParseStatus:    row.ParseStatus,
		ParseError:     derefString(row.ParseError),
	}, nil
}

func mapDevice(row model.Device) (ports.DeviceSnapshot, error) {
	lastTestedAt, err := parseTime(row.LastTestedAt)
	if err != nil {
		return ports.DeviceSnapshot{}, errs.Wrapf(err, "parse last_tested_at of device %s", row.Serial)
	}
	lastUpdatedAt, err := parseTime(row.LastUpdatedAt)
	if err != nil {
		return ports.DeviceSnapshot{}, errs.Wrapf(err, "parse last_updated_at of device %s", row.Serial)
	}

	return ports.DeviceSnapshot{
		Serial:        row.Serial,
		DeviceType:    derefString(row.DeviceType),
		LastTestedAt:  lastTestedAt,
		LastResult:    row.LastResult,
		LastUpdatedAt: lastUpdatedAt,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

func normalizeSerialFilter(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
