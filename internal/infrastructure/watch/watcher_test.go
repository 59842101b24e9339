package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsCreatedFilesOnly(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(dir, "cert.pdf")
	if err := os.WriteFile(file, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-w.Created():
		if got != file {
			t.Fatalf("Created() = %q, want %q", got, file)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for create event")
	}
}

func TestWatcherStopClosesChannel(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "import"))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case _, ok := <-w.Created():
		if ok {
			t.Fatal("Created() yielded after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("Created() not closed after Stop")
	}
}

func TestWatcherForwardsEntriesThatVanish(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.stat = func(name string) (os.FileInfo, error) {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	file := filepath.Join(dir, "gone.pdf")
	if err := os.WriteFile(file, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-w.Created():
		if got != file {
			t.Fatalf("Created() = %q, want %q", got, file)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for vanished entry")
	}
}
