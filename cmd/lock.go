package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
)

var errAlreadyRunning = errors.New("another gasdock ingest process holds the lock")

// acquireIngestLock keeps the watcher and manual ingests from moving files at
// the same time.
func acquireIngestLock(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(err, "create lock directory")
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", errAlreadyRunning, path)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			logging.Warn(ctx, "release lock failed", slog.String("path", path), slog.Any("err", errs.Loggable(err)))
		}
	}, nil
}
