package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history", "kgbridge.db")

	db, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"sessions", "session_exits", "session_errors"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenSQLiteIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "kgbridge.db")

	db, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	db, err = OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	db.Close()
}
