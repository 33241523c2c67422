package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a fully configured in-memory SQLite database for testing.
//
// The database includes:
//   - Foreign key constraints enabled (required for cascade deletes)
//   - Full schema created
//   - Automatic cleanup registered with t.Cleanup()
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    db := storage.NewTestDB(t)
//	    // ... test code ...
//	}
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	require.NoError(t, CreateSchema(db))
	return db
}
