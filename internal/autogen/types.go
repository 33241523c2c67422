// Package autogen extracts the definition/reference graph of a single Ruby
// file and projects its definitions into file-independent named definitions.
package autogen

import "github.com/mvp-joe/rb-autogen/internal/ast"

// DefinitionRef identifies a Definition within its file's graph.
type DefinitionRef int32

// ReferenceRef identifies a Reference within its file's graph.
type ReferenceRef int32

const (
	// NoDefinition is the absent DefinitionRef.
	NoDefinition DefinitionRef = -1
	// NoReference is the absent ReferenceRef.
	NoReference ReferenceRef = -1
)

// Exists reports whether the ref points at a definition.
func (r DefinitionRef) Exists() bool { return r >= 0 }

// Exists reports whether the ref points at a reference.
func (r ReferenceRef) Exists() bool { return r >= 0 }

// DefinitionKind is the kind of a Definition. The numeric values are part of
// the serialized format.
type DefinitionKind uint8

const (
	Module DefinitionKind = iota
	Class
	Casgn
	Alias
)

func (k DefinitionKind) String() string {
	switch k {
	case Module:
		return "module"
	case Class:
		return "class"
	case Casgn:
		return "casgn"
	case Alias:
		return "alias"
	default:
		return "unknown"
	}
}

// Definition is one namespace, constant assignment, or alias declared in a file.
type Definition struct {
	ID              DefinitionRef
	Kind            DefinitionKind
	DefinesBehavior bool
	IsEmpty         bool
	DefiningRef     ReferenceRef
	ParentRef       ReferenceRef
	AliasedRef      ReferenceRef
}

// Reference is one occurrence of a constant path.
type Reference struct {
	ID    ReferenceRef
	Scope DefinitionRef
	// Nesting lists the enclosing definitions other than Scope, innermost first.
	Nesting []DefinitionRef
	// Name is the path as written, outermost qualifier first.
	Name []string
	// Resolved is the fully qualified path, nil when unresolved.
	Resolved             []string
	Loc                  ast.Loc
	DefinitionLoc        ast.Loc
	IsResolvedStatically bool
	IsDefiningRef        bool
	ParentOf             DefinitionRef
}

// ParsedFile is the graph extracted from one file.
type ParsedFile struct {
	Path     string
	Checksum uint32
	Requires []string
	Defs     []Definition
	Refs     []Reference
}

// Def returns the definition with the given id.
func (pf *ParsedFile) Def(id DefinitionRef) *Definition {
	return &pf.Defs[id]
}

// Ref returns the reference with the given id.
func (pf *ParsedFile) Ref(id ReferenceRef) *Reference {
	return &pf.Refs[id]
}
