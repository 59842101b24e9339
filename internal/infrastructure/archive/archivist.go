package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"gasdock/internal/domain/certificate"
	"gasdock/internal/ports"
)

// Archivist relocates certificates into the sorted tree
// (<root>/<result>/<yyyy>/<mm>/<dd>/<serial>/<name>) or into the flat
// quarantine directory. Existing files are never overwritten.
type Archivist struct {
	sortedRoot     string
	quarantineRoot string
	loc            *time.Location

	// mu covers picking a free destination name and renaming into it.
	mu sync.Mutex
}

var _ ports.Archive = (*Archivist)(nil)

func New(sortedRoot string, quarantineRoot string, loc *time.Location) *Archivist {
	if loc == nil {
		loc = time.UTC
	}
	return &Archivist{
		sortedRoot:     sortedRoot,
		quarantineRoot: quarantineRoot,
		loc:            loc,
	}
}

// SortedDir returns the directory a classified certificate is filed under.
func (a *Archivist) SortedDir(dest ports.SortedDestination) string {
	testedAt := dest.TestedAt.In(a.loc)
	return filepath.Join(
		a.sortedRoot,
		dest.Result,
		testedAt.Format("2006"),
		testedAt.Format("01"),
		testedAt.Format("02"),
		dest.Serial,
	)
}

func (a *Archivist) MoveSorted(src string, dest ports.SortedDestination) (string, error) {
	if strings.TrimSpace(dest.Result) == "" || strings.TrimSpace(dest.Serial) == "" {
		return "", fmt.Errorf("%w: result and serial are required", certificate.ErrRelocationFailed)
	}
	return a.moveInto(src, a.SortedDir(dest))
}

func (a *Archivist) MoveQuarantine(src string) (string, error) {
	return a.moveInto(src, a.quarantineRoot)
}

func (a *Archivist) moveInto(src string, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create directory %s: %w", certificate.ErrRelocationFailed, dir, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	target, err := freeTarget(dir, filepath.Base(src))
	if err != nil {
		return "", fmt.Errorf("%w: %w", certificate.ErrRelocationFailed, err)
	}
	if err := moveFile(src, target); err != nil {
		return "", fmt.Errorf("%w: move %s to %s: %w", certificate.ErrRelocationFailed, src, target, err)
	}
	return target, nil
}

// freeTarget returns dir/name, or dir/<stem>_<n><ext> when name is taken.
func freeTarget(dir string, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, name)
	for n := 1; ; n++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, stem+"_"+strconv.Itoa(n)+ext)
	}
}

func moveFile(src string, target string) error {
	err := os.Rename(src, target)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	if err := copyIntoPlace(src, target); err != nil {
		return fmt.Errorf("copy across devices: %w", err)
	}
	if err := os.Remove(src); err != nil {
		// Keep exactly one copy: the source is still where it was.
		_ = os.Remove(target)
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// copyIntoPlace writes a temp file next to target and renames it, so target
// either does not exist or is complete.
func copyIntoPlace(src string, target string) error {
	source, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := io.Copy(tmp, source); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
