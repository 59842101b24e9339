package ports

import (
	"context"
	"errors"
	"time"
)

var ErrDeviceNotFound = errors.New("device snapshot not found")

// TestEvent is one processed certificate. Rows are append-only.
type TestEvent struct {
	ID             uint64
	Serial         string
	DeviceType     string
	TestedAt       time.Time
	Result         string
	SourceFilePath string
	ImportedAt     time.Time
	ParseStatus    string
	ParseError     string
}

type TestEventCreate struct {
	Serial         string
	DeviceType     string
	TestedAt       time.Time
	Result         string
	SourceFilePath string
	ImportedAt     time.Time
	ParseStatus    string
	ParseError     string
}

// DeviceSnapshot is the latest known state of one serial.
type DeviceSnapshot struct {
	Serial        string
	DeviceType    string
	LastTestedAt  time.Time
	LastResult    string
	LastUpdatedAt time.Time
}

// TestEventFilter selects events; zero values disable a predicate.
type TestEventFilter struct {
	Serial         string
	SerialContains string
	Result         string
	TestedFrom     *time.Time
	TestedTo       *time.Time
	Limit          int
}

// DeviceFilter selects snapshots; zero values disable a predicate.
type DeviceFilter struct {
	SerialContains string
	LastResult     string
	TestedFrom     *time.Time
	TestedTo       *time.Time
}

type LedgerReadRepository interface {
	ListEvents(ctx context.Context, filter TestEventFilter) ([]TestEvent, error)
	ListDevices(ctx context.Context, filter DeviceFilter) ([]DeviceSnapshot, error)
	GetDevice(ctx context.Context, serial string) (DeviceSnapshot, error)
	CountDevices(ctx context.Context) (int64, error)
	CountEvents(ctx context.Context) (int64, error)
	CountEventsSince(ctx context.Context, result string, since time.Time) (int64, error)
}

type LedgerRepository interface {
	LedgerReadRepository
	AppendEvent(ctx context.Context, input TestEventCreate) (TestEvent, error)
	// ApplySnapshot creates the snapshot for a new serial, or overwrites an
	// existing one when snapshot.LastTestedAt is not older than the stored
	// value. It reports whether the row was written.
	ApplySnapshot(ctx context.Context, snapshot DeviceSnapshot) (bool, error)
}
