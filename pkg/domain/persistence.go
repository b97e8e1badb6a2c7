package domain

import "context"

// TableStore persists one encoded table per record kind. Implementations must
// replace a table atomically: a concurrent Load observes either the previous
// or the new lines, never a mix.
type TableStore interface {
	// Load returns the stored lines for kind, or nil when nothing was saved yet.
	Load(ctx context.Context, kind Kind) ([]string, error)
	// Save replaces the stored lines for kind.
	Save(ctx context.Context, kind Kind, lines []string) error
	// Close releases resources held by the store.
	Close() error
}
