// Package sqlite persists tables in an embedded SQLite database. Each record
// kind is one row whose payload holds the encoded lines.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"stockroom/pkg/domain"
)

var _ domain.TableStore = (*Store)(nil)

const defaultPath = "stockroom.db"

// Store snapshots whole tables into a single SQLite table.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (and creates when missing) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS record_tables (
		kind TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create record_tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Load returns the lines stored for kind.
func (s *Store) Load(ctx context.Context, kind domain.Kind) ([]string, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM record_tables WHERE kind = ?`, string(kind)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	return decodePayload(payload), nil
}

// Save upserts the payload for kind inside a transaction.
func (s *Store) Save(ctx context.Context, kind domain.Kind, lines []string) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO record_tables(kind, payload) VALUES(?, ?) ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload`,
		string(kind), encodePayload(lines)); err != nil {
		return fmt.Errorf("upsert %s: %w", kind, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func encodePayload(lines []string) string { return strings.Join(lines, "\n") }

func decodePayload(payload string) []string {
	if payload == "" {
		return nil
	}
	return strings.Split(payload, "\n")
}
