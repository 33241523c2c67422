// Package ast defines the desugared Ruby syntax tree consumed by the resolver
// and the autogen walk.
//
// The tree is deliberately small: only the constructs that matter for
// namespace analysis (class/module declarations, constant paths, assignments,
// calls, literals) get their own node type. Everything else is a Node that
// merely carries its children so that constant references nested inside
// arbitrary code are still visited.
package ast

// Loc is a source range within one file.
type Loc struct {
	BeginPos  uint32 // byte offset, inclusive
	EndPos    uint32 // byte offset, exclusive
	BeginLine uint32 // 1-indexed
	EndLine   uint32 // 1-indexed
}

// Expr is any node of the tree.
type Expr interface {
	Location() Loc
}

// File is one parsed source file.
type File struct {
	Path   string
	Source []byte
	Body   []Expr
}

// EmptyTree is the absence of an expression (empty body, `nil` branch, `;`).
type EmptyTree struct {
	Loc Loc
}

// InsSeq is a statement sequence followed by a trailing expression.
type InsSeq struct {
	Loc   Loc
	Stats []Expr
	Expr  Expr
}

// ClassKind distinguishes `class` from `module`.
type ClassKind uint8

const (
	KindModule ClassKind = iota
	KindClass
)

// SingletonName is the name of the UnresolvedIdent used for `class << self`.
const SingletonName = "<singleton>"

// ClassDef is a class, module or singleton class declaration.
//
// For classes Ancestors[0] is always the superclass slot; a class without an
// explicit superclass carries a synthetic ConstantLit there. Remaining
// ancestors are the included modules, SingletonAncestors the extended ones.
type ClassDef struct {
	Loc                Loc
	DeclLoc            Loc
	Kind               ClassKind
	Name               Expr
	Ancestors          []Expr
	SingletonAncestors []Expr
	RHS                []Expr
}

// ConstantLit is a constant path segment: `Name` qualified by `Scope`.
//
// Scope is nil for a bare constant, *Cbase for `::Name`, another *ConstantLit
// for `A::Name`, and any other expression for a dynamic qualifier.
// Symbol is filled in by the resolver; nil means resolution never ran or the
// path is dynamic.
type ConstantLit struct {
	Loc       Loc
	Name      string
	Scope     Expr
	Synthetic bool
	Symbol    *Symbol
}

// Cbase is the global root qualifier of `::Name`.
type Cbase struct {
	Loc Loc
}

// UnresolvedIdent is a name that is not a constant (e.g. the `self` of
// `class << self`).
type UnresolvedIdent struct {
	Loc  Loc
	Name string
}

// Assign is `LHS = RHS`.
type Assign struct {
	Loc Loc
	LHS Expr
	RHS Expr
}

// Send is a method call. PrivateOK is set for receiverless calls.
type Send struct {
	Loc       Loc
	Recv      Expr
	Fun       string
	Args      []Expr
	Block     Expr
	PrivateOK bool
}

// Literal is a literal value. Only plain strings set String.
type Literal struct {
	Loc    Loc
	String bool
	Value  string
}

// MethodDef is `def name ... end` or `def self.name ... end`.
type MethodDef struct {
	Loc       Loc
	Name      string
	Singleton bool
	Body      Expr
}

// Node is any other construct, kept only for its children.
type Node struct {
	Loc      Loc
	Kind     string
	Children []Expr
}

func (e *EmptyTree) Location() Loc       { return e.Loc }
func (e *InsSeq) Location() Loc          { return e.Loc }
func (e *ClassDef) Location() Loc        { return e.Loc }
func (e *ConstantLit) Location() Loc     { return e.Loc }
func (e *Cbase) Location() Loc           { return e.Loc }
func (e *UnresolvedIdent) Location() Loc { return e.Loc }
func (e *Assign) Location() Loc          { return e.Loc }
func (e *Send) Location() Loc            { return e.Loc }
func (e *Literal) Location() Loc         { return e.Loc }
func (e *MethodDef) Location() Loc       { return e.Loc }
func (e *Node) Location() Loc            { return e.Loc }

// IsSingleton reports whether the declaration is `class << self`.
func (c *ClassDef) IsSingleton() bool {
	id, ok := c.Name.(*UnresolvedIdent)
	return ok && id.Name == SingletonName
}

// Path returns the written components of the constant path, outermost first.
// ok is false when some qualifier is not itself a constant (dynamic scope).
func (c *ConstantLit) Path() (names []string, ok bool) {
	var cur Expr = c
	for {
		switch n := cur.(type) {
		case *ConstantLit:
			names = append(names, n.Name)
			cur = n.Scope
			continue
		case nil, *Cbase:
			ok = true
		}
		break
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names, ok
}

// Rooted reports whether the path starts at `::`.
func (c *ConstantLit) Rooted() bool {
	var cur Expr = c
	for {
		n, ok := cur.(*ConstantLit)
		if !ok {
			_, rooted := cur.(*Cbase)
			return rooted
		}
		cur = n.Scope
	}
}

// Static reports whether the constant path is written entirely with
// constants, i.e. it could be resolved without running code.
func (c *ConstantLit) Static() bool {
	if c.Synthetic {
		return false
	}
	_, ok := c.Path()
	return ok
}

// DynamicScope returns the innermost qualifier that is not a constant, if any.
func (c *ConstantLit) DynamicScope() Expr {
	var cur Expr = c
	for {
		switch n := cur.(type) {
		case *ConstantLit:
			cur = n.Scope
		case nil, *Cbase:
			return nil
		default:
			return n
		}
	}
}
