package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
	"gasdock/internal/ports"
)

// ErrForcedStop is returned by Run when in-flight certificates did not finish
// within the shutdown grace period.
var ErrForcedStop = errors.New("shutdown grace period exceeded, in-flight certificates abandoned")

// Run processes files reported by watcher until ctx is cancelled. Files
// already sitting in the import directory are processed first. Once
// cancelled it stops accepting new files and lets in-flight ones finish
// within the configured grace period. Files that were reported but not
// started stay in the import directory and are picked up on the next start.
func (s *Service) Run(ctx context.Context, watcher ports.DirectoryWatcher) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if watcher == nil {
		return errors.New("directory watcher is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.ingest.run"))

	// Started before the scan so nothing created in between is missed.
	if err := watcher.Start(ctx); err != nil {
		return errs.Wrap(err, "start watcher")
	}
	stopWatcher := func() {
		if err := watcher.Stop(); err != nil {
			logging.Warn(logCtx, "stop watcher failed", slog.Any("err", errs.Loggable(err)))
		}
	}

	// Workers keep running after ctx is cancelled; only a forced stop
	// interrupts them.
	workCtx, forceStop := context.WithCancel(context.WithoutCancel(logCtx))
	defer forceStop()

	jobs := make(chan string)
	group := new(errgroup.Group)
	for i := 0; i < s.cfg.Workers; i++ {
		group.Go(func() error {
			for path := range jobs {
				// Fatal outcomes are logged and journaled by ProcessFile; one
				// bad file must not stop the loop.
				_, _ = s.ProcessFile(workCtx, path)
				s.inflight.Remove(path)
			}
			return nil
		})
	}

	deferred := 0
	// dispatch hands path to a free worker. It reports false once ctx is
	// cancelled; the path is then left for the next start.
	dispatch := func(path string) bool {
		if !s.Accepts(path) {
			logging.Debug(logCtx, "ignoring file", slog.String("path", path))
			return true
		}
		if !s.inflight.TryAdd(path) {
			logging.Debug(logCtx, "file already in flight", slog.String("path", path))
			return true
		}
		select {
		case jobs <- path:
			return true
		case <-ctx.Done():
			s.inflight.Remove(path)
			deferred++
			return false
		}
	}

	logging.Info(
		logCtx,
		"ingest loop started",
		slog.String("import_dir", s.cfg.ImportDir),
		slog.String("extension", s.cfg.Extension),
		slog.Int("workers", s.cfg.Workers),
	)

	existing, err := s.existingFiles()
	if err != nil {
		logging.Warn(logCtx, "scan import directory failed", slog.Any("err", errs.Loggable(err)))
	}
	// The watcher may also report a scanned file if it was created after
	// Start. Such a report is skipped when the file is already gone.
	scanned := make(map[string]struct{}, len(existing))
	for _, path := range existing {
		if !dispatch(path) {
			break
		}
		scanned[path] = struct{}{}
	}

	var loopErr error
	created := watcher.Created()
loop:
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			break loop
		case path, ok := <-created:
			if !ok {
				if ctx.Err() == nil {
					loopErr = errors.New("directory watcher closed unexpectedly")
				}
				break loop
			}
			if ctx.Err() != nil {
				if s.Accepts(path) {
					deferred++
				}
				break loop
			}
			if _, ok := scanned[path]; ok {
				delete(scanned, path)
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					logging.Debug(logCtx, "file already handled by startup scan", slog.String("path", path))
					continue
				}
			}
			if !dispatch(path) {
				break loop
			}
		}
	}

	close(jobs)
	stopWatcher()
	deferred += s.countPending(created)
	logging.Info(
		logCtx,
		"no longer accepting files, draining in-flight certificates",
		slog.Int("in_flight", s.inflight.Len()),
		slog.Int("left_for_next_start", deferred),
	)

	if err := s.drain(logCtx, group, forceStop); err != nil {
		return errors.Join(loopErr, err)
	}
	logging.Info(logCtx, "ingest loop stopped")
	return loopErr
}

func (s *Service) drain(ctx context.Context, group *errgroup.Group, forceStop context.CancelFunc) error {
	done := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.cfg.ShutdownGrace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
	}

	abandoned := s.inflight.Len()
	forceStop()
	<-done

	err := errs.Fatal(fmt.Errorf("%w: %d after %s", ErrForcedStop, abandoned, s.cfg.ShutdownGrace))
	logging.Error(ctx, "forced stop", slog.Int("abandoned", abandoned), slog.Any("err", errs.Loggable(err)))
	return err
}

// countPending drains reports the watcher buffered but Run never took.
func (s *Service) countPending(created <-chan string) int {
	n := 0
	for {
		select {
		case path, ok := <-created:
			if !ok {
				return n
			}
			if s.Accepts(path) {
				n++
			}
		default:
			return n
		}
	}
}

// Accepts reports whether path has the configured certificate extension.
func (s *Service) Accepts(path string) bool {
	return strings.EqualFold(filepath.Ext(path), s.cfg.Extension)
}

func (s *Service) existingFiles() ([]string, error) {
	if strings.TrimSpace(s.cfg.ImportDir) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.cfg.ImportDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errs.Wrapf(err, "read import directory %q", s.cfg.ImportDir)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(s.cfg.ImportDir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
