package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"gasdock/internal/bootstrap/logging"
	"gasdock/internal/errs"
)

// Watcher reports files created directly inside one directory. Sub-directories
// are not watched and directory creations are dropped.
type Watcher struct {
	mu      sync.Mutex
	dir     string
	watcher *fsnotify.Watcher
	created chan string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stat    func(string) (os.FileInfo, error)
}

func NewWatcher(dir string) (*Watcher, error) {
	if dir == "" {
		return nil, errors.New("watch directory is required")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(err, "create fsnotify watcher")
	}

	return &Watcher{
		dir:     dir,
		watcher: fw,
		created: make(chan string, 64),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		stat:    os.Stat,
	}, nil
}

// Created yields paths of new entries that are not directories, including
// entries that disappeared before they could be inspected. It is closed when
// the watcher stops.
func (w *Watcher) Created() <-chan string {
	return w.created
}

// Start begins watching without blocking.
func (w *Watcher) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errs.Wrapf(err, "create watch directory %q", w.dir)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return errs.Wrapf(err, "watch directory %q", w.dir)
	}
	w.running = true

	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.watch"))
	logging.Info(logCtx, "watching directory", slog.String("dir", w.dir))

	go w.run(logCtx)
	return nil
}

// Stop ends the event loop and releases the OS watch. Safe to call twice.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.created)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			info, err := w.stat(event.Name)
			if err == nil && info.IsDir() {
				continue
			}
			if err != nil {
				// Forwarded anyway so the pipeline records the vanished file.
				logging.Warn(
					ctx,
					"created entry vanished before stat",
					slog.String("path", event.Name),
					slog.Any("err", errs.Loggable(err)),
				)
			}
			select {
			case w.created <- event.Name:
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn(ctx, "filesystem watch error", slog.Any("err", errs.Loggable(err)))
		}
	}
}
