package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures required tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}
	if err := validateSQLiteFilesystem(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + apply a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
  id             TEXT PRIMARY KEY,
  mode           TEXT NOT NULL,
  executable     TEXT NOT NULL,
  pid            INTEGER,
  started_at     TEXT NOT NULL,
  ended_at       TEXT,
  disabled       INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE TABLE IF NOT EXISTS session_exits (
  id          TEXT PRIMARY KEY,
  session_id  TEXT NOT NULL REFERENCES sessions(id),
  exited_at   TEXT NOT NULL,
  exit_code   INTEGER,
  signal      TEXT,
  expected    INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE TABLE IF NOT EXISTS session_errors (
  id          TEXT PRIMARY KEY,
  session_id  TEXT,
  occurred_at TEXT NOT NULL,
  kind        TEXT NOT NULL,
  message     TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS sessions_started_at_idx ON sessions(started_at);`,
		`CREATE INDEX IF NOT EXISTS session_exits_session_idx ON session_exits(session_id, exited_at);`,
		`CREATE INDEX IF NOT EXISTS session_errors_session_idx ON session_errors(session_id, occurred_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
