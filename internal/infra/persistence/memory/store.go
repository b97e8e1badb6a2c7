// Package memory provides an in-process table store used for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sync"

	"stockroom/pkg/domain"
)

var _ domain.TableStore = (*Store)(nil)

// Snapshot maps each saved kind to its encoded lines.
type Snapshot map[domain.Kind][]string

// Store keeps every table in memory. Saved slices are copied so callers may
// reuse their buffers.
type Store struct {
	mu     sync.RWMutex
	tables Snapshot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tables: make(Snapshot)}
}

// NewStoreFromSnapshot returns a store pre-populated with snapshot.
func NewStoreFromSnapshot(snapshot Snapshot) *Store {
	s := NewStore()
	s.ImportState(snapshot)
	return s
}

// Load returns a copy of the lines saved for kind.
func (s *Store) Load(_ context.Context, kind domain.Kind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines, ok := s.tables[kind]
	if !ok {
		return nil, nil
	}
	return cloneLines(lines), nil
}

// Save replaces the lines for kind.
func (s *Store) Save(ctx context.Context, kind domain.Kind, lines []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[kind] = cloneLines(lines)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ExportState returns a deep copy of every table.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, len(s.tables))
	for kind, lines := range s.tables {
		out[kind] = cloneLines(lines)
	}
	return out
}

// ImportState replaces every table with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(Snapshot, len(snapshot))
	for kind, lines := range snapshot {
		s.tables[kind] = cloneLines(lines)
	}
}

func cloneLines(lines []string) []string {
	if lines == nil {
		return nil
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
