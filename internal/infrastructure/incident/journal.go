package incident

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gasdock/internal/errs"
	"gasdock/internal/ports"
)

// Journal appends incidents that need an operator to a JSON-lines file.
type Journal struct {
	mu   sync.Mutex
	path string
}

var _ ports.IncidentReporter = (*Journal)(nil)

type record struct {
	IngestID   string `json:"ingest_id"`
	Path       string `json:"path"`
	Stage      string `json:"stage"`
	Cause      string `json:"cause"`
	OccurredAt string `json:"occurred_at"`
}

func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

func (j *Journal) Report(ctx context.Context, incident ports.Incident) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	occurredAt := incident.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	line, err := json.Marshal(record{
		IngestID:   incident.IngestID,
		Path:       incident.Path,
		Stage:      incident.Stage,
		Cause:      incident.Cause,
		OccurredAt: occurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return errs.Wrap(err, "marshal incident")
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return errs.Wrap(err, "create incident directory")
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(err, "open incident journal")
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return errs.Wrap(err, "append incident")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errs.Wrap(err, "sync incident journal")
	}
	return errs.Wrap(f.Close(), "close incident journal")
}
