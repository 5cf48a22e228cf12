// Package store persists per-run lane telemetry to a SQLite database.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store represents a SQLite database connection holding processing runs
// and their per-frame lane measurements.
type Store struct {
	db   *sql.DB
	path string
}

// dsn appends the connection pragmas to the database path. Foreign keys
// are off by default in SQLite and the frames table relies on cascade
// deletes working.
func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)"
}

// New opens (or creates) the database at the given path and brings its
// schema up to date.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}
