// Package storage persists per-file definition/reference graphs in SQLite so
// that runs can be queried after the fact.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a database or run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSchemaMismatch is returned when a database was written by an
	// incompatible version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// Open opens the graph database at dbPath.
// If readOnly is true, the database must already exist.
// If readOnly is false, the parent directory and schema are created as needed.
func Open(dbPath string, readOnly bool) (*sql.DB, error) {
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database %s: %w, run 'autogen graph' first", dbPath, ErrNotFound)
		}
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _foreign_keys applies to every pooled connection, not just the first.
	dsn := "file:" + dbPath + "?_foreign_keys=on"
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}
	switch {
	case version == "0" && !readOnly:
		if err := CreateSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	case version != SchemaVersion:
		db.Close()
		return nil, fmt.Errorf("%w: database has %q, want %q", ErrSchemaMismatch, version, SchemaVersion)
	}
	return db, nil
}
