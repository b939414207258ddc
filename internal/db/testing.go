package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// OpenTestSQLite opens a migrated write/read pool pair backed by a temp file
// and registers cleanup on t. Intended for integration tests.
func OpenTestSQLite(t *testing.T) (writeDB, readDB *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "arkiva_test.sqlite")
	writeDB, readDB, err := OpenSQLitePair(path, 2)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if err := RunMigrations(writeDB); err != nil {
		t.Fatalf("migrate test sqlite: %v", err)
	}
	return writeDB, readDB
}
