package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// Run summarizes one stored pipeline run.
type Run struct {
	ID              string
	RootDir         string
	StartedAt       time.Time
	FileCount       int
	DefinitionCount int
	ReferenceCount  int
}

// DefinitionRow is a definition joined with the location of its defining
// reference.
type DefinitionRow struct {
	FilePath        string
	ID              autogen.DefinitionRef
	Kind            string
	FullName        string
	DefinesBehavior bool
	IsEmpty         bool
	BeginLine       int
	EndLine         int
}

// ReferenceRow is one use of a constant.
type ReferenceRow struct {
	FilePath string
	Name     string
	Resolved string
	Line     int
}

// GraphReader reads stored runs from SQLite.
type GraphReader struct {
	db *sql.DB
}

// NewGraphReader creates a GraphReader instance.
func NewGraphReader(db *sql.DB) *GraphReader {
	return &GraphReader{db: db}
}

func selectRuns() sq.SelectBuilder {
	return sq.Select("run_id", "root_dir", "started_at", "file_count", "definition_count", "reference_count").
		From("runs")
}

// Runs returns every stored run, newest first.
func (r *GraphReader) Runs() ([]*Run, error) {
	rows, err := selectRuns().OrderBy("started_at DESC", "rowid DESC").RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the newest run, or ErrNotFound when none is stored.
func (r *GraphReader) LatestRun() (*Run, error) {
	row := selectRuns().OrderBy("started_at DESC", "rowid DESC").Limit(1).RunWith(r.db).QueryRow()
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no runs stored: %w", ErrNotFound)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var startedAt string
	err := s.Scan(&run.ID, &run.RootDir, &startedAt, &run.FileCount, &run.DefinitionCount, &run.ReferenceCount)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt, _ = time.Parse(timeFormat, startedAt)
	return run, nil
}

// Files returns the paths stored for a run, sorted.
func (r *GraphReader) Files(runID string) ([]string, error) {
	rows, err := sq.Select("file_path").
		From("files").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("file_path").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// ClassList returns the distinct qualified names of every class defined in
// the run, sorted.
func (r *GraphReader) ClassList(runID string) ([]string, error) {
	rows, err := sq.Select("full_name").
		Distinct().
		From("definitions").
		Where(sq.Eq{"run_id": runID, "kind": autogen.Class.String()}).
		OrderBy("full_name").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query class list: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan class name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FindDefinitions returns every definition of fullName in the run, ordered by
// file and line.
func (r *GraphReader) FindDefinitions(runID, fullName string) ([]*DefinitionRow, error) {
	rows, err := sq.Select(
		"d.file_path", "d.def_id", "d.kind", "d.full_name", "d.defines_behavior", "d.is_empty",
		"COALESCE(r.def_begin_line, 0)", "COALESCE(r.def_end_line, 0)",
	).
		From("definitions d").
		LeftJoin("refs r ON r.run_id = d.run_id AND r.file_path = d.file_path AND r.ref_id = d.defining_ref").
		Where(sq.Eq{"d.run_id": runID, "d.full_name": fullName}).
		OrderBy("d.file_path", "r.def_begin_line").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions of %s: %w", fullName, err)
	}
	defer rows.Close()

	var out []*DefinitionRow
	for rows.Next() {
		row := &DefinitionRow{}
		if err := rows.Scan(&row.FilePath, &row.ID, &row.Kind, &row.FullName,
			&row.DefinesBehavior, &row.IsEmpty, &row.BeginLine, &row.EndLine); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ReferencesTo returns the non-defining references that resolve to fullName.
func (r *GraphReader) ReferencesTo(runID, fullName string) ([]*ReferenceRow, error) {
	rows, err := sq.Select("file_path", "name", "resolved", "begin_line").
		From("refs").
		Where(sq.Eq{"run_id": runID, "resolved": fullName, "is_defining_ref": false}).
		OrderBy("file_path", "begin_line", "ref_id").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query references to %s: %w", fullName, err)
	}
	defer rows.Close()

	var out []*ReferenceRow
	for rows.Next() {
		row := &ReferenceRow{}
		if err := rows.Scan(&row.FilePath, &row.Name, &row.Resolved, &row.Line); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadFile reconstructs the stored graph of one file.
func (r *GraphReader) LoadFile(runID, path string) (*autogen.ParsedFile, error) {
	pf := &autogen.ParsedFile{Path: path}
	var checksum int64
	err := sq.Select("checksum").
		From("files").
		Where(sq.Eq{"run_id": runID, "file_path": path}).
		RunWith(r.db).
		QueryRow().
		Scan(&checksum)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("file %s in run %s: %w", path, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file %s: %w", path, err)
	}
	pf.Checksum = uint32(checksum)

	if pf.Requires, err = r.loadRequires(runID, path); err != nil {
		return nil, err
	}
	if pf.Defs, err = r.loadDefinitions(runID, path); err != nil {
		return nil, err
	}
	if pf.Refs, err = r.loadRefs(runID, path); err != nil {
		return nil, err
	}
	return pf, nil
}

func (r *GraphReader) loadRequires(runID, path string) ([]string, error) {
	rows, err := sq.Select("require_path").
		From("requires").
		Where(sq.Eq{"run_id": runID, "file_path": path}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query requires: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var req string
		if err := rows.Scan(&req); err != nil {
			return nil, fmt.Errorf("failed to scan require: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *GraphReader) loadDefinitions(runID, path string) ([]autogen.Definition, error) {
	rows, err := sq.Select("def_id", "kind", "defines_behavior", "is_empty", "defining_ref", "parent_ref", "aliased_ref").
		From("definitions").
		Where(sq.Eq{"run_id": runID, "file_path": path}).
		OrderBy("def_id").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}
	defer rows.Close()

	var out []autogen.Definition
	for rows.Next() {
		var (
			def                       autogen.Definition
			kind                      string
			defining, parent, aliased sql.NullInt32
		)
		if err := rows.Scan(&def.ID, &kind, &def.DefinesBehavior, &def.IsEmpty, &defining, &parent, &aliased); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		if def.Kind, err = parseKind(kind); err != nil {
			return nil, err
		}
		def.DefiningRef = refOrNone(defining)
		def.ParentRef = refOrNone(parent)
		def.AliasedRef = refOrNone(aliased)
		out = append(out, def)
	}
	return out, rows.Err()
}

func (r *GraphReader) loadRefs(runID, path string) ([]autogen.Reference, error) {
	rows, err := sq.Select(
		"ref_id", "scope", "nesting", "name", "resolved",
		"begin_line", "end_line", "begin_pos", "end_pos",
		"def_begin_line", "def_end_line", "def_begin_pos", "def_end_pos",
		"is_resolved_statically", "is_defining_ref", "parent_of",
	).
		From("refs").
		Where(sq.Eq{"run_id": runID, "file_path": path}).
		OrderBy("ref_id").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query references: %w", err)
	}
	defer rows.Close()

	var out []autogen.Reference
	for rows.Next() {
		var (
			ref           autogen.Reference
			nesting, name string
			resolved      sql.NullString
			parentOf      sql.NullInt32
		)
		if err := rows.Scan(&ref.ID, &ref.Scope, &nesting, &name, &resolved,
			&ref.Loc.BeginLine, &ref.Loc.EndLine, &ref.Loc.BeginPos, &ref.Loc.EndPos,
			&ref.DefinitionLoc.BeginLine, &ref.DefinitionLoc.EndLine,
			&ref.DefinitionLoc.BeginPos, &ref.DefinitionLoc.EndPos,
			&ref.IsResolvedStatically, &ref.IsDefiningRef, &parentOf); err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		if ref.Nesting, err = splitNesting(nesting); err != nil {
			return nil, err
		}
		ref.Name = strings.Split(name, "::")
		if resolved.Valid {
			ref.Resolved = strings.Split(resolved.String, "::")
		}
		ref.ParentOf = autogen.NoDefinition
		if parentOf.Valid {
			ref.ParentOf = autogen.DefinitionRef(parentOf.Int32)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func parseKind(kind string) (autogen.DefinitionKind, error) {
	for _, k := range []autogen.DefinitionKind{autogen.Module, autogen.Class, autogen.Casgn, autogen.Alias} {
		if k.String() == kind {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown definition kind %q", kind)
}

func refOrNone(v sql.NullInt32) autogen.ReferenceRef {
	if !v.Valid {
		return autogen.NoReference
	}
	return autogen.ReferenceRef(v.Int32)
}

func splitNesting(s string) ([]autogen.DefinitionRef, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]autogen.DefinitionRef, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid nesting %q: %w", s, err)
		}
		out[i] = autogen.DefinitionRef(n)
	}
	return out, nil
}
