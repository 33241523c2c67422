package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever a table definition changes.
const SchemaVersion = "1"

// CreateSchema creates all tables and indexes for the graph database.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// Schema includes:
//   - runs: one row per pipeline run, keyed by a UUID
//   - files, requires, definitions, refs: the per-file graphs of a run
//   - metadata: schema version bookkeeping
//
// Every graph table cascades from runs, so deleting a run removes its graphs.
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"files", createFilesTable},
		{"requires", createRequiresTable},
		{"definitions", createDefinitionsTable},
		{"refs", createRefsTable},
		{"metadata", createMetadataTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		"INSERT INTO metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)",
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createRunsTable = `
CREATE TABLE runs (
    run_id TEXT PRIMARY KEY,                     -- UUID
    root_dir TEXT NOT NULL,
    started_at TEXT NOT NULL,                    -- ISO 8601
    file_count INTEGER NOT NULL DEFAULT 0,
    definition_count INTEGER NOT NULL DEFAULT 0,
    reference_count INTEGER NOT NULL DEFAULT 0
)
`

const createFilesTable = `
CREATE TABLE files (
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,                     -- relative path from project root
    checksum INTEGER NOT NULL,                   -- CRC-32 of the source
    PRIMARY KEY (run_id, file_path),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)
`

const createRequiresTable = `
CREATE TABLE requires (
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    position INTEGER NOT NULL,                   -- order of appearance
    require_path TEXT NOT NULL,
    PRIMARY KEY (run_id, file_path, position),
    FOREIGN KEY (run_id, file_path) REFERENCES files(run_id, file_path) ON DELETE CASCADE
)
`

const createDefinitionsTable = `
CREATE TABLE definitions (
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    def_id INTEGER NOT NULL,
    kind TEXT NOT NULL,                          -- module, class, casgn, alias
    full_name TEXT NOT NULL,                     -- A::B::C, empty for the file root
    defines_behavior INTEGER NOT NULL DEFAULT 0,
    is_empty INTEGER NOT NULL DEFAULT 0,
    defining_ref INTEGER,                        -- NULL when absent
    parent_ref INTEGER,
    aliased_ref INTEGER,
    PRIMARY KEY (run_id, file_path, def_id),
    FOREIGN KEY (run_id, file_path) REFERENCES files(run_id, file_path) ON DELETE CASCADE
)
`

const createRefsTable = `
CREATE TABLE refs (
    run_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    ref_id INTEGER NOT NULL,
    scope INTEGER NOT NULL,                      -- def_id of the enclosing definition
    nesting TEXT NOT NULL,                       -- comma separated def_ids, innermost first
    name TEXT NOT NULL,                          -- path as written
    resolved TEXT,                               -- fully qualified path, NULL when unresolved
    begin_line INTEGER NOT NULL,
    end_line INTEGER NOT NULL,
    begin_pos INTEGER NOT NULL,
    end_pos INTEGER NOT NULL,
    def_begin_line INTEGER NOT NULL,
    def_end_line INTEGER NOT NULL,
    def_begin_pos INTEGER NOT NULL,
    def_end_pos INTEGER NOT NULL,
    is_resolved_statically INTEGER NOT NULL DEFAULT 0,
    is_defining_ref INTEGER NOT NULL DEFAULT 0,
    parent_of INTEGER,
    PRIMARY KEY (run_id, file_path, ref_id),
    FOREIGN KEY (run_id, file_path) REFERENCES files(run_id, file_path) ON DELETE CASCADE
)
`

const createMetadataTable = `
CREATE TABLE metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

var indexes = []string{
	"CREATE INDEX idx_runs_started_at ON runs(started_at)",
	"CREATE INDEX idx_definitions_full_name ON definitions(run_id, full_name)",
	"CREATE INDEX idx_definitions_kind ON definitions(run_id, kind)",
	"CREATE INDEX idx_refs_resolved ON refs(run_id, resolved)",
}
