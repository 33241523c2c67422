package mcp

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
	"github.com/mvp-joe/rb-autogen/internal/depgraph"
)

// DefinitionInfo locates one definition of a constant.
type DefinitionInfo struct {
	FilePath        string `json:"file_path"`
	Kind            string `json:"kind"`
	BeginLine       int    `json:"begin_line"`
	EndLine         int    `json:"end_line"`
	DefinesBehavior bool   `json:"defines_behavior"`
}

// ReferenceInfo locates one use of a constant.
type ReferenceInfo struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Written  string `json:"written"`
}

// Snapshot is the queryable state of one analysis.
type Snapshot struct {
	Files []*autogen.ParsedFile
	Deps  *depgraph.Graph
	Index *ConstantIndex

	definitions map[string][]DefinitionInfo
	references  map[string][]ReferenceInfo
}

// NewSnapshot indexes files for querying.
func NewSnapshot(ctx context.Context, files []*autogen.ParsedFile) (*Snapshot, error) {
	deps, err := depgraph.Build(files)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	index, err := NewConstantIndex(ctx, files)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		Files:       files,
		Deps:        deps,
		Index:       index,
		definitions: make(map[string][]DefinitionInfo),
		references:  make(map[string][]ReferenceInfo),
	}
	for _, pf := range files {
		for _, def := range pf.Defs {
			if !def.DefiningRef.Exists() {
				continue
			}
			loc := pf.Ref(def.DefiningRef).DefinitionLoc
			name := strings.Join(pf.FullName(def.ID), "::")
			s.definitions[name] = append(s.definitions[name], DefinitionInfo{
				FilePath:        pf.Path,
				Kind:            def.Kind.String(),
				BeginLine:       int(loc.BeginLine),
				EndLine:         int(loc.EndLine),
				DefinesBehavior: def.DefinesBehavior,
			})
		}
		for _, ref := range pf.Refs {
			if ref.IsDefiningRef || ref.Resolved == nil {
				continue
			}
			name := strings.Join(ref.Resolved, "::")
			s.references[name] = append(s.references[name], ReferenceInfo{
				FilePath: pf.Path,
				Line:     int(ref.Loc.BeginLine),
				Written:  strings.Join(ref.Name, "::"),
			})
		}
	}
	for _, refs := range s.references {
		sort.SliceStable(refs, func(i, j int) bool {
			if refs[i].FilePath != refs[j].FilePath {
				return refs[i].FilePath < refs[j].FilePath
			}
			return refs[i].Line < refs[j].Line
		})
	}
	return s, nil
}

// Definitions returns a copy of where name is defined, in file order.
func (s *Snapshot) Definitions(name string) []DefinitionInfo {
	return slices.Clone(s.definitions[strings.TrimPrefix(name, "::")])
}

// References returns a copy of the uses resolving to name, ordered by file
// and line.
func (s *Snapshot) References(name string) []ReferenceInfo {
	return slices.Clone(s.references[strings.TrimPrefix(name, "::")])
}

// Close releases the search index.
func (s *Snapshot) Close() error {
	return s.Index.Close()
}
