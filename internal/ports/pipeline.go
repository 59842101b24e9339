package ports

import (
	"context"
	"time"
)

// Clock supplies wall-clock time for imported_at and quarantine fallbacks.
type Clock interface {
	Now() time.Time
}

// TextExtractor returns the readable text of each page of a document.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) ([]string, error)
}

// StabilityDetector blocks until a file has stopped growing.
type StabilityDetector interface {
	WaitForStable(ctx context.Context, path string) error
}

// SortedDestination identifies where a classified certificate belongs.
type SortedDestination struct {
	Result   string
	TestedAt time.Time
	Serial   string
}

// Archive relocates certificates out of the import directory and returns
// their final path.
type Archive interface {
	MoveSorted(src string, dest SortedDestination) (string, error)
	MoveQuarantine(src string) (string, error)
}

// Incident is a per-file failure that needs manual remediation.
type Incident struct {
	IngestID   string
	Path       string
	Stage      string
	Cause      string
	OccurredAt time.Time
}

type IncidentReporter interface {
	Report(ctx context.Context, incident Incident) error
}

// DirectoryWatcher reports files created in the import directory.
type DirectoryWatcher interface {
	Start(ctx context.Context) error
	Created() <-chan string
	Stop() error
}
