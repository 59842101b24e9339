package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gasdock/internal/domain/certificate"
)

type fakeInfo struct {
	os.FileInfo
	size int64
}

func (f fakeInfo) Size() int64 { return f.size }

func scriptedStat(sizes ...int64) (func(string) (os.FileInfo, error), *int) {
	calls := 0
	return func(string) (os.FileInfo, error) {
		idx := calls
		if idx >= len(sizes) {
			idx = len(sizes) - 1
		}
		calls++
		if sizes[idx] < 0 {
			return nil, fs.ErrNotExist
		}
		return fakeInfo{size: sizes[idx]}, nil
	}, &calls
}

func TestWaitForStableResetsOnGrowthAndZero(t *testing.T) {
	d := NewStabilityDetector(2, time.Millisecond)
	stat, calls := scriptedStat(0, 0, 10, 20, 20, 20)
	d.stat = stat

	if err := d.WaitForStable(context.Background(), "x.pdf"); err != nil {
		t.Fatalf("WaitForStable() error = %v", err)
	}
	// 0 and 0 never count, 10 -> 20 resets, then two unchanged polls.
	if *calls != 6 {
		t.Fatalf("stat calls = %d, want 6", *calls)
	}
}

func TestWaitForStableVanished(t *testing.T) {
	d := NewStabilityDetector(3, time.Millisecond)
	stat, _ := scriptedStat(10, -1)
	d.stat = stat

	err := d.WaitForStable(context.Background(), "x.pdf")
	if !errors.Is(err, certificate.ErrFileVanished) {
		t.Fatalf("WaitForStable() error = %v, want ErrFileVanished", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("WaitForStable() error = %v, want fs.ErrNotExist in chain", err)
	}
}

func TestWaitForStableHonorsCancellation(t *testing.T) {
	d := NewStabilityDetector(3, time.Hour)
	stat, _ := scriptedStat(0)
	d.stat = stat

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := d.WaitForStable(ctx, "x.pdf"); !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitForStable() error = %v, want context.Canceled", err)
	}
}

func TestWaitForStableRealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "done.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	d := NewStabilityDetector(2, time.Millisecond)
	if err := d.WaitForStable(context.Background(), path); err != nil {
		t.Fatalf("WaitForStable() error = %v", err)
	}
}
