// Package storage keeps the generation history in SQLite. Only metadata is
// stored: never report HTML and never credentials.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Storage provides database operations for the generation history.
type Storage struct {
	db           *sql.DB
	path         string
	writeMu      sync.Mutex
	queryTimeout time.Duration

	stmtInsertGeneration *sql.Stmt
}

// Options configures the Storage instance.
type Options struct {
	MaxConnections int
	QueryTimeout   time.Duration
}

// New creates a new Storage instance with default options.
// For custom options, use NewWithOptions.
func New(dbPath string) (*Storage, error) {
	return NewWithOptions(dbPath, Options{
		MaxConnections: 1,
		QueryTimeout:   30 * time.Second,
	})
}

// NewWithOptions creates a new Storage instance with the given options.
func NewWithOptions(dbPath string, opts Options) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=30000&_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, err
	}

	maxConns := opts.MaxConnections
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}

	s := &Storage{
		db:           db,
		path:         dbPath,
		queryTimeout: queryTimeout,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *Storage) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS generations (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	zone_id TEXT NOT NULL,
	zone_name TEXT NOT NULL DEFAULT '',
	range_start TEXT NOT NULL,
	range_end TEXT NOT NULL,
	status TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
CREATE INDEX IF NOT EXISTS idx_generations_zone ON generations(zone_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Requester columns arrived after the first schema.
	migrations := []string{
		"ALTER TABLE generations ADD COLUMN client_browser TEXT DEFAULT ''",
		"ALTER TABLE generations ADD COLUMN client_os TEXT DEFAULT ''",
		"ALTER TABLE generations ADD COLUMN client_country TEXT DEFAULT ''",
	}
	for _, m := range migrations {
		// Ignore errors - column may already exist
		_, _ = s.db.Exec(m)
	}
	return nil
}

func (s *Storage) prepareStatements() error {
	var err error
	s.stmtInsertGeneration, err = s.db.Prepare(`
INSERT INTO generations (id, template_id, zone_id, zone_name, range_start, range_end, status, status_code, error, duration_ms, size_bytes, client_browser, client_os, client_country, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare insert generation: %w", err)
	}
	return nil
}

// Close closes the database connection and prepared statements.
func (s *Storage) Close() error {
	if s.stmtInsertGeneration != nil {
		s.stmtInsertGeneration.Close()
	}
	return s.db.Close()
}

// QueryTimeout returns the configured query timeout duration.
func (s *Storage) QueryTimeout() time.Duration {
	return s.queryTimeout
}
