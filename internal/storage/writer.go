package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// timeFormat is fixed width so started_at sorts lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// GraphWriter writes pipeline runs to SQLite.
type GraphWriter struct {
	db  *sql.DB
	now func() time.Time
}

// NewGraphWriter creates a GraphWriter instance.
// DB must have schema already created via CreateSchema().
func NewGraphWriter(db *sql.DB) *GraphWriter {
	return &GraphWriter{db: db, now: time.Now}
}

var (
	fileColumns = []string{"run_id", "file_path", "checksum"}

	requireColumns = []string{"run_id", "file_path", "position", "require_path"}

	definitionColumns = []string{
		"run_id", "file_path", "def_id", "kind", "full_name",
		"defines_behavior", "is_empty", "defining_ref", "parent_ref", "aliased_ref",
	}

	refColumns = []string{
		"run_id", "file_path", "ref_id", "scope", "nesting", "name", "resolved",
		"begin_line", "end_line", "begin_pos", "end_pos",
		"def_begin_line", "def_end_line", "def_begin_pos", "def_end_pos",
		"is_resolved_statically", "is_defining_ref", "parent_of",
	}
)

// insertSQL builds a single-row INSERT for columns, for use with Prepare.
func insertSQL(table string, columns []string) (string, error) {
	placeholders := make([]any, len(columns))
	sqlStr, _, err := sq.Insert(table).Columns(columns...).Values(placeholders...).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build SQL for %s: %w", table, err)
	}
	return sqlStr, nil
}

// WriteRun stores the graphs of one run in a single transaction and returns
// the new run's id.
func (w *GraphWriter) WriteRun(rootDir string, files []*autogen.ParsedFile) (string, error) {
	runID := uuid.NewString()

	defs, refs := 0, 0
	for _, pf := range files {
		defs += len(pf.Defs)
		refs += len(pf.Refs)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("runs").
		Columns("run_id", "root_dir", "started_at", "file_count", "definition_count", "reference_count").
		Values(runID, rootDir, w.now().UTC().Format(timeFormat), len(files), defs, refs).
		RunWith(tx).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to write run: %w", err)
	}

	stmts, err := prepareInserts(tx)
	if err != nil {
		return "", err
	}
	defer stmts.close()

	for _, pf := range files {
		if err := stmts.writeFile(runID, pf); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", pf.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// DeleteRun removes a run and, by cascade, all of its graphs.
func (w *GraphWriter) DeleteRun(runID string) error {
	res, err := sq.Delete("runs").Where(sq.Eq{"run_id": runID}).RunWith(w.db).Exec()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// deleted.
func (w *GraphWriter) PruneRuns(keep int) (int, error) {
	rows, err := sq.Select("run_id").
		From("runs").
		OrderBy("started_at DESC", "rowid DESC").
		Offset(uint64(max(keep, 0))).
		Limit(1 << 31).
		RunWith(w.db).
		Query()
	if err != nil {
		return 0, fmt.Errorf("failed to list old runs: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan run id: %w", err)
		}
		stale = append(stale, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to list old runs: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if _, err := sq.Delete("runs").Where(sq.Eq{"run_id": stale}).RunWith(w.db).Exec(); err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return len(stale), nil
}

type insertStmts struct {
	file, require, definition, ref *sql.Stmt
}

func prepareInserts(tx *sql.Tx) (*insertStmts, error) {
	s := &insertStmts{}
	targets := []struct {
		table   string
		columns []string
		stmt    **sql.Stmt
	}{
		{"files", fileColumns, &s.file},
		{"requires", requireColumns, &s.require},
		{"definitions", definitionColumns, &s.definition},
		{"refs", refColumns, &s.ref},
	}
	for _, target := range targets {
		sqlStr, err := insertSQL(target.table, target.columns)
		if err != nil {
			s.close()
			return nil, err
		}
		stmt, err := tx.Prepare(sqlStr)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to prepare %s insert: %w", target.table, err)
		}
		*target.stmt = stmt
	}
	return s, nil
}

func (s *insertStmts) close() {
	for _, stmt := range []*sql.Stmt{s.file, s.require, s.definition, s.ref} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (s *insertStmts) writeFile(runID string, pf *autogen.ParsedFile) error {
	if _, err := s.file.Exec(runID, pf.Path, int64(pf.Checksum)); err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	for i, req := range pf.Requires {
		if _, err := s.require.Exec(runID, pf.Path, i, req); err != nil {
			return fmt.Errorf("failed to insert require %q: %w", req, err)
		}
	}

	for _, def := range pf.Defs {
		_, err := s.definition.Exec(
			runID,
			pf.Path,
			int32(def.ID),
			def.Kind.String(),
			strings.Join(pf.FullName(def.ID), "::"),
			def.DefinesBehavior,
			def.IsEmpty,
			nullRef(int32(def.DefiningRef)),
			nullRef(int32(def.ParentRef)),
			nullRef(int32(def.AliasedRef)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert definition %d: %w", def.ID, err)
		}
	}

	for _, ref := range pf.Refs {
		var resolved any
		if len(ref.Resolved) > 0 {
			resolved = strings.Join(ref.Resolved, "::")
		}
		_, err := s.ref.Exec(
			runID,
			pf.Path,
			int32(ref.ID),
			int32(ref.Scope),
			joinNesting(ref.Nesting),
			strings.Join(ref.Name, "::"),
			resolved,
			ref.Loc.BeginLine,
			ref.Loc.EndLine,
			ref.Loc.BeginPos,
			ref.Loc.EndPos,
			ref.DefinitionLoc.BeginLine,
			ref.DefinitionLoc.EndLine,
			ref.DefinitionLoc.BeginPos,
			ref.DefinitionLoc.EndPos,
			ref.IsResolvedStatically,
			ref.IsDefiningRef,
			nullRef(int32(ref.ParentOf)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert reference %d: %w", ref.ID, err)
		}
	}
	return nil
}

// nullRef maps absent ids to NULL.
func nullRef(id int32) any {
	if id < 0 {
		return nil
	}
	return id
}

func joinNesting(nesting []autogen.DefinitionRef) string {
	parts := make([]string, len(nesting))
	for i, def := range nesting {
		parts[i] = strconv.Itoa(int(def))
	}
	return strings.Join(parts, ",")
}
