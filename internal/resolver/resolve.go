package resolver

import (
	"github.com/mvp-joe/rb-autogen/internal/ast"
)

// Resolve annotates every constant literal in file with its symbol.
// The table must already contain every file of the project. Resolve only
// reads the table, so files may be resolved concurrently.
func Resolve(t *Table, file *ast.File) {
	r := &resolver{table: t}
	for _, stmt := range file.Body {
		r.visit(stmt, nil)
	}
}

type resolver struct {
	table *Table
}

func (r *resolver) visit(e ast.Expr, nesting [][]string) {
	switch n := e.(type) {
	case *ast.ClassDef:
		r.classDef(n, nesting)
	case *ast.ConstantLit:
		r.reference(n, nesting)
	case *ast.Assign:
		if lhs, ok := n.LHS.(*ast.ConstantLit); ok && lhs.Static() {
			r.definition(lhs, nesting, ast.SymbolConstant)
		} else {
			r.visit(n.LHS, nesting)
		}
		r.visit(n.RHS, nesting)
	case *ast.InsSeq:
		r.visitAll(n.Stats, nesting)
		r.visit(n.Expr, nesting)
	case *ast.Send:
		r.visit(n.Recv, nesting)
		r.visitAll(n.Args, nesting)
		r.visit(n.Block, nesting)
	case *ast.MethodDef:
		r.visit(n.Body, nesting)
	case *ast.Node:
		r.visitAll(n.Children, nesting)
	}
}

func (r *resolver) visitAll(es []ast.Expr, nesting [][]string) {
	for _, e := range es {
		r.visit(e, nesting)
	}
}

func (r *resolver) classDef(n *ast.ClassDef, nesting [][]string) {
	name, ok := n.Name.(*ast.ConstantLit)
	if !ok || !name.Static() {
		r.visit(n.Name, nesting)
		r.visitAll(n.Ancestors, nesting)
		r.visitAll(n.SingletonAncestors, nesting)
		r.visitAll(n.RHS, nesting)
		return
	}

	kind := ast.SymbolModule
	if n.Kind == ast.KindClass {
		kind = ast.SymbolClass
	}
	sym := r.definition(name, nesting, kind)

	ancestors := n.Ancestors
	if n.Kind == ast.KindClass && len(ancestors) > 0 {
		// The superclass is evaluated before the class body is entered.
		r.visit(ancestors[0], nesting)
		ancestors = ancestors[1:]
	}
	inner := append(nesting[:len(nesting):len(nesting)], sym.FullName)
	r.visitAll(ancestors, inner)
	r.visitAll(n.SingletonAncestors, inner)
	r.visitAll(n.RHS, inner)
}

// definition resolves the name at a declaration site.
func (r *resolver) definition(c *ast.ConstantLit, nesting [][]string, kind ast.SymbolKind) *ast.Symbol {
	if scope, ok := c.Scope.(*ast.ConstantLit); ok {
		r.reference(scope, nesting)
	}
	full := definitionName(r.table, nesting, c)
	sym := r.table.Lookup(full)
	if sym == nil {
		// Not collected (the file was not added to the table); treat it as a
		// fresh declaration local to this resolution.
		sym = &ast.Symbol{Kind: kind, FullName: full}
	}
	c.Symbol = sym
	return sym
}

// reference resolves a constant use.
func (r *resolver) reference(c *ast.ConstantLit, nesting [][]string) *ast.Symbol {
	if c.Synthetic {
		return nil
	}
	switch scope := c.Scope.(type) {
	case nil:
		c.Symbol = orStub(lookupLexical(r.table, nesting, c.Name))
	case *ast.Cbase:
		c.Symbol = orStub(r.table.Lookup([]string{c.Name}))
	case *ast.ConstantLit:
		owner := r.reference(scope, nesting)
		if owner == nil {
			// Dynamic qualifier further up: not statically resolvable.
			c.Symbol = nil
			return nil
		}
		if !owner.IsClassOrModule() {
			c.Symbol = ast.StubModule
			return c.Symbol
		}
		c.Symbol = orStub(r.table.Lookup(append(append([]string(nil), owner.FullName...), c.Name)))
	default:
		r.visit(scope, nesting)
		c.Symbol = nil
	}
	return c.Symbol
}

func orStub(sym *ast.Symbol) *ast.Symbol {
	if sym == nil {
		return ast.StubModule
	}
	return sym
}
