package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gasdock/internal/domain/certificate"
	"gasdock/internal/errs"
	"gasdock/internal/ports"
)

// StabilityDetector decides a file is fully written once its size has been
// non-zero and unchanged for a number of consecutive polls.
type StabilityDetector struct {
	checks   int
	interval time.Duration
	stat     func(string) (os.FileInfo, error)
}

var _ ports.StabilityDetector = (*StabilityDetector)(nil)

func NewStabilityDetector(checks int, interval time.Duration) *StabilityDetector {
	if checks < 1 {
		checks = 1
	}
	return &StabilityDetector{
		checks:   checks,
		interval: interval,
		stat:     os.Stat,
	}
}

// WaitForStable returns nil once path is stable, an ErrFileVanished error when
// the file cannot be inspected, or the context error.
func (d *StabilityDetector) WaitForStable(ctx context.Context, path string) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	stable := 0
	lastSize := int64(-1)
	for {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(err, "wait for stable file")
		}

		info, err := d.stat(path)
		if err != nil {
			return fmt.Errorf("%w: stat %s: %w", certificate.ErrFileVanished, path, err)
		}

		size := info.Size()
		if size > 0 && size == lastSize {
			stable++
		} else {
			stable = 0
			lastSize = size
		}
		if stable >= d.checks {
			return nil
		}

		timer := time.NewTimer(d.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errs.Wrap(ctx.Err(), "wait for stable file")
		case <-timer.C:
		}
	}
}
