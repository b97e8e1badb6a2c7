// Package fs stores each table as a text file, one encoded record per line,
// inside a data directory guarded by an advisory lock file.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juju/fslock"

	"stockroom/pkg/domain"
)

var _ domain.TableStore = (*Store)(nil)

const (
	defaultDir   = "./data"
	lockFileName = ".lock"
	tableExt     = ".txt"
)

// Store persists tables under a directory. Writes go to a temporary file that
// is synced and renamed over the table, so readers never see a partial file.
type Store struct {
	dir  string
	lock *fslock.Lock
	mu   sync.Mutex
}

// Open creates dir when needed and takes its lock. A directory already held by
// another process fails with domain.ErrBusy.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	lck := fslock.New(filepath.Join(dir, lockFileName))
	if err := lck.TryLock(); err != nil {
		if errors.Is(err, fslock.ErrLocked) {
			return nil, fmt.Errorf("data dir %s is in use: %w", dir, domain.ErrBusy)
		}
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	return &Store{dir: dir, lock: lck}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the table file for kind.
func (s *Store) Path(kind domain.Kind) string {
	return filepath.Join(s.dir, string(kind)+tableExt)
}

// Load reads the table file for kind. A missing file is an empty table.
func (s *Store) Load(_ context.Context, kind domain.Kind) ([]string, error) {
	data, err := os.ReadFile(s.Path(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	return splitLines(string(data)), nil
}

// Save atomically replaces the table file for kind.
func (s *Store) Save(ctx context.Context, kind domain.Kind, lines []string) (retErr error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, "."+string(kind)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", kind, err)
	}
	defer func() {
		if retErr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", kind, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(kind)); err != nil {
		return fmt.Errorf("replace %s: %w", kind, err)
	}
	return nil
}

// Close releases the directory lock.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}

// splitLines tolerates CRLF files written on other platforms.
func splitLines(data string) []string {
	if data == "" {
		return nil
	}
	raw := strings.Split(strings.TrimSuffix(data, "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		out = append(out, strings.TrimSuffix(line, "\r"))
	}
	return out
}
