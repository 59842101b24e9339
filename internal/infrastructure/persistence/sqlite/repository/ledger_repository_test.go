package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"gasdock/internal/infrastructure/persistence/sqlite/model"
	"gasdock/internal/ports"
)

func setupLedgerRepository(t *testing.T) *LedgerRepository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ledger.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.TestEvent{}, &model.Device{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewLedgerRepository(db)
}

func snapshotAt(serial string, result string, deviceType string, testedAt time.Time) ports.DeviceSnapshot {
	return ports.DeviceSnapshot{
		Serial:        serial,
		DeviceType:    deviceType,
		LastTestedAt:  testedAt,
		LastResult:    result,
		LastUpdatedAt: time.Now().UTC(),
	}
}

func TestApplySnapshotIsMonotonicInTestedAt(t *testing.T) {
	t1 := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	orders := [][]ports.DeviceSnapshot{
		{snapshotAt("ARRJ3290", "FAIL", "X-am 2500", t1), snapshotAt("ARRJ3290", "PASS", "X-am 2500", t2)},
		{snapshotAt("ARRJ3290", "PASS", "X-am 2500", t2), snapshotAt("ARRJ3290", "FAIL", "X-am 2500", t1)},
	}

	for i, order := range orders {
		repo := setupLedgerRepository(t)
		ctx := context.Background()

		for _, snap := range order {
			if _, err := repo.ApplySnapshot(ctx, snap); err != nil {
				t.Fatalf("order %d: ApplySnapshot() error = %v", i, err)
			}
		}

		got, err := repo.GetDevice(ctx, "ARRJ3290")
		if err != nil {
			t.Fatalf("order %d: GetDevice() error = %v", i, err)
		}
		if got.LastResult != "PASS" || !got.LastTestedAt.Equal(t2) {
			t.Fatalf("order %d: GetDevice() = %+v, want PASS at %s", i, got, t2)
		}
	}
}

func TestApplySnapshotReportsSkippedOlderWrite(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	newer := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	applied, err := repo.ApplySnapshot(ctx, snapshotAt("ABCD1234", "PASS", "", newer))
	if err != nil || !applied {
		t.Fatalf("ApplySnapshot(first) = %v, %v; want true, nil", applied, err)
	}

	applied, err = repo.ApplySnapshot(ctx, snapshotAt("ABCD1234", "FAIL", "", newer.Add(-time.Minute)))
	if err != nil {
		t.Fatalf("ApplySnapshot(older) error = %v", err)
	}
	if applied {
		t.Fatalf("ApplySnapshot(older) applied = true, want false")
	}
}

func TestApplySnapshotTieFavorsLaterWrite(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	if _, err := repo.ApplySnapshot(ctx, snapshotAt("ABCD1234", "PASS", "Pac 8000", at)); err != nil {
		t.Fatalf("ApplySnapshot(first) error = %v", err)
	}
	applied, err := repo.ApplySnapshot(ctx, snapshotAt("ABCD1234", "FAIL", "", at))
	if err != nil || !applied {
		t.Fatalf("ApplySnapshot(tie) = %v, %v; want true, nil", applied, err)
	}

	got, err := repo.GetDevice(ctx, "abcd1234")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.LastResult != "FAIL" {
		t.Fatalf("GetDevice() last_result = %q, want FAIL", got.LastResult)
	}
	if got.DeviceType != "Pac 8000" {
		t.Fatalf("GetDevice() device_type = %q, want previous value kept", got.DeviceType)
	}
}

func TestGetDeviceNotFound(t *testing.T) {
	repo := setupLedgerRepository(t)

	_, err := repo.GetDevice(context.Background(), "NOPE0000")
	if !errors.Is(err, ports.ErrDeviceNotFound) {
		t.Fatalf("GetDevice() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestListEventsFiltersAndOrder(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	inputs := []ports.TestEventCreate{
		{Serial: "ARRJ3290", Result: "PASS", TestedAt: base, SourceFilePath: "/a", ParseStatus: "ok"},
		{Serial: "ARRJ3290", Result: "FAIL", TestedAt: base.Add(48 * time.Hour), SourceFilePath: "/b", ParseStatus: "ok", DeviceType: "X-am 2500"},
		{Serial: "ZZTOP123", Result: "FAIL", TestedAt: base.Add(24 * time.Hour), SourceFilePath: "/c", ParseStatus: "ok"},
		{Serial: "UNKNOWN", Result: "UNKNOWN", TestedAt: base.Add(72 * time.Hour), SourceFilePath: "/q", ParseStatus: "parse_error", ParseError: "unsupported filename"},
	}
	for _, input := range inputs {
		input.ImportedAt = base
		if _, err := repo.AppendEvent(ctx, input); err != nil {
			t.Fatalf("AppendEvent(%s) error = %v", input.SourceFilePath, err)
		}
	}

	all, err := repo.ListEvents(ctx, ports.TestEventFilter{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(all) != 4 || all[0].SourceFilePath != "/q" || all[3].SourceFilePath != "/a" {
		t.Fatalf("ListEvents() order = %+v", all)
	}
	if all[0].ParseError != "unsupported filename" || all[0].DeviceType != "" {
		t.Fatalf("ListEvents() first = %+v", all[0])
	}

	from := base.Add(time.Hour)
	to := base.Add(50 * time.Hour)
	filtered, err := repo.ListEvents(ctx, ports.TestEventFilter{
		SerialContains: "rrj",
		Result:         "FAIL",
		TestedFrom:     &from,
		TestedTo:       &to,
	})
	if err != nil {
		t.Fatalf("ListEvents(filtered) error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].SourceFilePath != "/b" || filtered[0].DeviceType != "X-am 2500" {
		t.Fatalf("ListEvents(filtered) = %+v", filtered)
	}

	failures, err := repo.CountEventsSince(ctx, "FAIL", base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("CountEventsSince() error = %v", err)
	}
	if failures != 1 {
		t.Fatalf("CountEventsSince() = %d, want 1", failures)
	}

	total, err := repo.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if total != 4 {
		t.Fatalf("CountEvents() = %d, want 4", total)
	}
}

func TestListDevicesFilters(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for _, snap := range []ports.DeviceSnapshot{
		snapshotAt("ARRJ3290", "PASS", "X-am 2500", base),
		snapshotAt("ARRJ9999", "FAIL", "X-am 2500", base.Add(time.Hour)),
		snapshotAt("ZZTOP123", "FAIL", "Pac 8000", base.Add(2*time.Hour)),
	} {
		if _, err := repo.ApplySnapshot(ctx, snap); err != nil {
			t.Fatalf("ApplySnapshot(%s) error = %v", snap.Serial, err)
		}
	}

	devices, err := repo.ListDevices(ctx, ports.DeviceFilter{LastResult: "FAIL"})
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 || devices[0].Serial != "ZZTOP123" || devices[1].Serial != "ARRJ9999" {
		t.Fatalf("ListDevices() = %+v", devices)
	}

	to := base.Add(30 * time.Minute)
	devices, err = repo.ListDevices(ctx, ports.DeviceFilter{SerialContains: "arrj", TestedTo: &to})
	if err != nil {
		t.Fatalf("ListDevices(serial) error = %v", err)
	}
	if len(devices) != 1 || devices[0].Serial != "ARRJ3290" {
		t.Fatalf("ListDevices(serial) = %+v", devices)
	}

	count, err := repo.CountDevices(ctx)
	if err != nil {
		t.Fatalf("CountDevices() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("CountDevices() = %d, want 3", count)
	}
}

func TestFormatTimeIsLexicallyOrdered(t *testing.T) {
	a := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	c := a.In(time.FixedZone("EST", -5*3600)).Add(time.Second)

	if !(formatTime(a) < formatTime(b) && formatTime(b) < formatTime(c)) {
		t.Fatalf("formatTime order broken: %s %s %s", formatTime(a), formatTime(b), formatTime(c))
	}
}

func TestListEventsExactSerial(t *testing.T) {
	repo := setupLedgerRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for i, serial := range []string{"ARRJ3290", "XARRJ329", "ARRJ3290"} {
		if _, err := repo.AppendEvent(ctx, ports.TestEventCreate{
			Serial:      serial,
			Result:      "PASS",
			TestedAt:    base.Add(time.Duration(i) * time.Hour),
			ImportedAt:  base,
			ParseStatus: "ok",
		}); err != nil {
			t.Fatalf("AppendEvent(%s) error = %v", serial, err)
		}
	}

	got, err := repo.ListEvents(ctx, ports.TestEventFilter{Serial: "arrj3290", Limit: 1})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(got) != 1 || got[0].Serial != "ARRJ3290" || !got[0].TestedAt.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("ListEvents(exact) = %+v", got)
	}
}
