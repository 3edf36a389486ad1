// Package store keeps the generation history in SQLite: batch runs, the
// certificates they produced, skipped rows and the audit log.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a batch or generation does not exist.
var ErrNotFound = errors.New("not found")

// Batch statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Store wraps the history database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path and applies the schema.
func Open(path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=1")
	if err != nil {
		return nil, err
	}

	// SQLite handles one writer and many readers in WAL mode.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	// Set explicitly; some driver versions ignore the DSN parameters.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies the schema.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running','completed','cancelled')),
			generated INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			actor TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS generations (
			id TEXT PRIMARY KEY,
			batch_id TEXT,
			row_number INTEGER NOT NULL DEFAULT 0,
			code TEXT NOT NULL,
			batch_no TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			moisture REAL NOT NULL DEFAULT 0,
			policy TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL,
			record TEXT NOT NULL DEFAULT '{}',
			components TEXT NOT NULL DEFAULT '{}',
			fields TEXT NOT NULL DEFAULT '{}',
			actor TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS batch_skips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			row_number INTEGER NOT NULL,
			code TEXT NOT NULL DEFAULT '',
			batch_no TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			module TEXT NOT NULL,
			record_id TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, t := range tables {
		if _, err := s.db.Exec(t); err != nil {
			return fmt.Errorf("migration error: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_generations_batch ON generations(batch_id)",
		"CREATE INDEX IF NOT EXISTS idx_generations_file ON generations(file_name, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_batch_skips_batch ON batch_skips(batch_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)",
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("index error: %w", err)
		}
	}
	return nil
}
