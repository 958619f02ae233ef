package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

// DB returns the underlying database connection.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Health checks database connectivity.
func (s *Storage) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, "SELECT 1")
	var n int
	if err := row.Scan(&n); err != nil {
		return err
	}
	if n != 1 {
		return errors.New("unexpected ping result")
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DBPath returns the database file path.
func (s *Storage) DBPath() string {
	return s.path
}

// DBFileSize returns the database file size in bytes.
func (s *Storage) DBFileSize() (int64, error) {
	if s.path == "" || s.path == ":memory:" {
		return 0, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Status summarizes the history database.
type Status struct {
	DBSizeBytes int64  `json:"db_size_bytes"`
	DBSizeHuman string `json:"db_size_human"`
	Generations int64  `json:"generations"`
}

// GetStatus returns the database size and row count.
func (s *Storage) GetStatus(ctx context.Context) (Status, error) {
	var status Status
	if size, err := s.DBFileSize(); err == nil {
		status.DBSizeBytes = size
		status.DBSizeHuman = humanize.IBytes(uint64(size))
	}

	n, err := s.CountGenerations(ctx)
	if err != nil {
		return status, fmt.Errorf("getting generation count: %w", err)
	}
	status.Generations = n
	return status, nil
}
