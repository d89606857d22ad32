// Package history stores a record of every build in SQLite so rebuild
// determinism can be observed across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Record is one build outcome.
type Record struct {
	BuildID     string        `json:"buildId"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Outcome     string        `json:"outcome"`
	Docs        int           `json:"docs"`
	Routes      int           `json:"routes"`
	BrokenLinks int           `json:"brokenLinks"`
	InputHash   string        `json:"inputHash"`
	OutputHash  string        `json:"outputHash"`
	Error       string        `json:"error,omitempty"`
}

// Store is the build history.
type Store interface {
	Record(ctx context.Context, r Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Last(ctx context.Context) (Record, bool, error)
	LastWithInput(ctx context.Context, inputHash string) (Record, bool, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the history database at path. Use MemoryPath for an
// in-memory database.
func Open(path string) (*SQLiteStore, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		docs INTEGER NOT NULL,
		routes INTEGER NOT NULL,
		broken_links INTEGER NOT NULL,
		input_hash TEXT NOT NULL,
		output_hash TEXT NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_input_hash ON builds(input_hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends a build.
func (s *SQLiteStore) Record(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, started_at, duration_ms, outcome, docs, routes, broken_links, input_hash, output_hash, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BuildID, r.StartedAt.UnixMilli(), r.Duration.Milliseconds(), r.Outcome,
		r.Docs, r.Routes, r.BrokenLinks, r.InputHash, r.OutputHash, nullable(r.Error),
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

const selectColumns = `SELECT build_id, started_at, duration_ms, outcome, docs, routes, broken_links, input_hash, output_hash, error FROM builds`

// List returns up to limit builds, newest first. A non-positive limit returns all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Last returns the most recent build.
func (s *SQLiteStore) Last(ctx context.Context) (Record, bool, error) {
	return s.queryOne(ctx, selectColumns+` ORDER BY id DESC LIMIT 1`)
}

// LastWithInput returns the most recent successful build of the given input hash.
func (s *SQLiteStore) LastWithInput(ctx context.Context, inputHash string) (Record, bool, error) {
	return s.queryOne(ctx, selectColumns+` WHERE input_hash = ? AND output_hash != '' ORDER BY id DESC LIMIT 1`, inputHash)
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, args ...any) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r          Record
		startedMS  int64
		durationMS int64
		errText    sql.NullString
	)
	err := row.Scan(&r.BuildID, &startedMS, &durationMS, &r.Outcome, &r.Docs, &r.Routes,
		&r.BrokenLinks, &r.InputHash, &r.OutputHash, &errText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan build: %w", err)
	}
	r.StartedAt = time.UnixMilli(startedMS).UTC()
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.Error = errText.String
	return r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
