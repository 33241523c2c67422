package autogen

import (
	"fmt"
	"hash/crc32"
	"slices"

	"github.com/mvp-joe/rb-autogen/internal/ast"
)

const rootDefinition DefinitionRef = 0

// walker accumulates the graph of one file. It is not safe for concurrent
// use; every call to Generate owns its own walker.
type walker struct {
	defs     []Definition
	refs     []Reference
	requires []string
	nesting  []DefinitionRef
}

// Generate walks a resolved file and extracts its definition/reference graph.
func Generate(file *ast.File) (*ParsedFile, error) {
	w := &walker{}
	w.defs = append(w.defs, Definition{
		ID:          rootDefinition,
		Kind:        Module,
		DefiningRef: NoReference,
		ParentRef:   NoReference,
		AliasedRef:  NoReference,
	})
	w.nesting = append(w.nesting, rootDefinition)

	for _, e := range file.Body {
		if _, err := w.walk(e, false); err != nil {
			return nil, fmt.Errorf("%s: %w", file.Path, err)
		}
	}

	return &ParsedFile{
		Path:     file.Path,
		Checksum: crc32.ChecksumIEEE(file.Source),
		Requires: w.requires,
		Defs:     w.defs,
		Refs:     w.refs,
	}, nil
}

// walk visits e and returns the reference created for it, if e is a constant
// path that produced one.
func (w *walker) walk(e ast.Expr, ignoring bool) (ReferenceRef, error) {
	switch n := e.(type) {
	case nil, *ast.EmptyTree, *ast.Cbase, *ast.UnresolvedIdent, *ast.Literal:
		return NoReference, nil
	case *ast.ClassDef:
		return NoReference, w.classDef(n, ignoring)
	case *ast.ConstantLit:
		return w.constantLit(n, ignoring)
	case *ast.Assign:
		return NoReference, w.assign(n, ignoring)
	case *ast.Send:
		return NoReference, w.send(n, ignoring)
	case *ast.InsSeq:
		if err := w.walkAll(n.Stats, ignoring); err != nil {
			return NoReference, err
		}
		_, err := w.walk(n.Expr, ignoring)
		return NoReference, err
	case *ast.MethodDef:
		_, err := w.walk(n.Body, ignoring)
		return NoReference, err
	case *ast.Node:
		return NoReference, w.walkAll(n.Children, ignoring)
	default:
		return NoReference, nil
	}
}

func (w *walker) walkAll(es []ast.Expr, ignoring bool) error {
	for _, e := range es {
		if _, err := w.walk(e, ignoring); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) newDefinition(kind DefinitionKind) DefinitionRef {
	id := DefinitionRef(len(w.defs))
	w.defs = append(w.defs, Definition{
		ID:          id,
		Kind:        kind,
		DefiningRef: NoReference,
		ParentRef:   NoReference,
		AliasedRef:  NoReference,
	})
	return id
}

// markDefining ties a definition to the reference naming it.
func (w *walker) markDefining(def DefinitionRef, ref ReferenceRef, declLoc ast.Loc) {
	w.defs[def].DefiningRef = ref
	w.refs[ref].IsDefiningRef = true
	w.refs[ref].DefinitionLoc = declLoc
}

func staticConstant(e ast.Expr) (*ast.ConstantLit, bool) {
	c, ok := e.(*ast.ConstantLit)
	if !ok || !c.Static() {
		return nil, false
	}
	return c, true
}

func (w *walker) classDef(n *ast.ClassDef, ignoring bool) error {
	if _, ok := staticConstant(n.Name); !ok || ignoring {
		// Dynamic names and suppressed declarations define nothing, but
		// the constants they mention are still walked.
		if _, err := w.walk(n.Name, ignoring); err != nil {
			return err
		}
		if err := w.walkAll(n.Ancestors, ignoring); err != nil {
			return err
		}
		if err := w.walkAll(n.SingletonAncestors, ignoring); err != nil {
			return err
		}
		return w.walkAll(n.RHS, ignoring)
	}

	kind := Module
	if n.Kind == ast.KindClass {
		kind = Class
	}
	def := w.newDefinition(kind)
	w.defs[def].IsEmpty = !slices.ContainsFunc(n.RHS, func(e ast.Expr) bool { return !Ignorable(e) })
	w.defs[def].DefinesBehavior = hasStaticAncestor(n) || slices.ContainsFunc(n.RHS, DefinesBehavior)

	nameRef, err := w.walk(n.Name, false)
	if err != nil {
		return err
	}
	if !nameRef.Exists() {
		return fmt.Errorf("%w: declaration at line %d produced no name reference", ErrInvariant, n.Loc.BeginLine)
	}
	w.markDefining(def, nameRef, n.Loc)

	ancestors := n.Ancestors
	superRef := NoReference
	if kind == Class && len(ancestors) > 0 {
		if superRef, err = w.walk(ancestors[0], false); err != nil {
			return err
		}
		ancestors = ancestors[1:]
	}

	w.nesting = append(w.nesting, def)
	defer func() { w.nesting = w.nesting[:len(w.nesting)-1] }()

	var ancestorRefs []ReferenceRef
	for _, a := range ancestors {
		ref, err := w.walk(a, false)
		if err != nil {
			return err
		}
		ancestorRefs = append(ancestorRefs, ref)
	}
	for _, a := range n.SingletonAncestors {
		ref, err := w.walk(a, false)
		if err != nil {
			return err
		}
		ancestorRefs = append(ancestorRefs, ref)
	}

	if superRef.Exists() {
		w.defs[def].ParentRef = superRef
		w.refs[superRef].ParentOf = def
	}
	for _, ref := range ancestorRefs {
		if ref.Exists() {
			w.refs[ref].ParentOf = def
		}
	}

	return w.walkAll(n.RHS, false)
}

func hasStaticAncestor(n *ast.ClassDef) bool {
	for _, list := range [][]ast.Expr{n.Ancestors, n.SingletonAncestors} {
		for _, a := range list {
			if _, ok := staticConstant(a); ok {
				return true
			}
		}
	}
	return false
}

func (w *walker) constantLit(n *ast.ConstantLit, ignoring bool) (ReferenceRef, error) {
	if ignoring || n.Synthetic {
		return NoReference, nil
	}
	name, ok := n.Path()
	if !ok {
		_, err := w.walk(n.DynamicScope(), ignoring)
		return NoReference, err
	}

	ref := Reference{
		ID:                   ReferenceRef(len(w.refs)),
		Name:                 name,
		Loc:                  n.Loc,
		DefinitionLoc:        n.Loc,
		IsResolvedStatically: n.Symbol != nil,
		ParentOf:             NoDefinition,
	}
	if n.Rooted() {
		ref.Scope = w.nesting[0]
	} else {
		top := len(w.nesting) - 1
		ref.Scope = w.nesting[top]
		for i := top - 1; i >= 0; i-- {
			ref.Nesting = append(ref.Nesting, w.nesting[i])
		}
	}
	if !n.Symbol.IsStub() {
		ref.Resolved = slices.Clone(n.Symbol.FullName)
	}

	w.refs = append(w.refs, ref)
	return ref.ID, nil
}

func (w *walker) assign(n *ast.Assign, ignoring bool) error {
	if _, ok := staticConstant(n.LHS); !ok || ignoring {
		if _, err := w.walk(n.LHS, ignoring); err != nil {
			return err
		}
		_, err := w.walk(n.RHS, ignoring)
		return err
	}

	lhsRef, err := w.walk(n.LHS, false)
	if err != nil {
		return err
	}
	rhsRef, err := w.walk(n.RHS, false)
	if err != nil {
		return err
	}
	if !lhsRef.Exists() {
		return fmt.Errorf("%w: constant assignment at line %d produced no name reference", ErrInvariant, n.Loc.BeginLine)
	}

	kind := Casgn
	if aliasTarget(n.RHS) {
		if !rhsRef.Exists() {
			return fmt.Errorf("%w: alias at line %d produced no target reference", ErrInvariant, n.Loc.BeginLine)
		}
		kind = Alias
	}

	def := w.newDefinition(kind)
	if kind == Alias {
		w.defs[def].AliasedRef = rhsRef
	}
	w.defs[def].DefinesBehavior = true
	w.defs[def].IsEmpty = false
	w.markDefining(def, lhsRef, n.Loc)
	return nil
}

// aliasTarget reports whether rhs is a constant path resolved to a real,
// non-type-alias symbol.
func aliasTarget(rhs ast.Expr) bool {
	c, ok := rhs.(*ast.ConstantLit)
	if !ok || c.Synthetic {
		return false
	}
	return !c.Symbol.IsStub() && c.Symbol.Kind != ast.SymbolTypeAlias
}

func (w *walker) send(n *ast.Send, ignoring bool) error {
	if n.PrivateOK && n.Fun == "require" && len(n.Args) == 1 {
		if lit, ok := n.Args[0].(*ast.Literal); ok && lit.String {
			w.requires = append(w.requires, lit.Value)
		}
	}

	ignoring = ignoring || n.Fun == KeepForIDE
	if _, err := w.walk(n.Recv, ignoring); err != nil {
		return err
	}
	if err := w.walkAll(n.Args, ignoring); err != nil {
		return err
	}
	_, err := w.walk(n.Block, ignoring)
	return err
}
