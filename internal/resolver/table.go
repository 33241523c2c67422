// Package resolver builds a project-wide table of declared constants and
// annotates each constant literal with the symbol it statically refers to.
//
// Lookup is lexical: a bare constant is searched in every enclosing namespace
// from the innermost outwards, then at the root. Ancestor chains are not
// searched. Constants that cannot be found resolve to ast.StubModule.
package resolver

import (
	"strings"
	"sync"

	"github.com/mvp-joe/rb-autogen/internal/ast"
)

// Table maps fully qualified names to symbols. It is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	symbols map[string]*ast.Symbol
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{symbols: make(map[string]*ast.Symbol)}
}

func key(fullName []string) string {
	return strings.Join(fullName, "::")
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.symbols)
}

// Lookup returns the symbol with the given fully qualified name, or nil.
func (t *Table) Lookup(fullName []string) *ast.Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.symbols[key(fullName)]
}

func (t *Table) define(fullName []string, kind ast.SymbolKind) *ast.Symbol {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(fullName)
	if sym, ok := t.symbols[k]; ok {
		// Reopening a namespace as a constant (or vice versa) keeps the
		// namespace; the first declaration otherwise wins.
		if !sym.IsClassOrModule() && (kind == ast.SymbolClass || kind == ast.SymbolModule) {
			sym.Kind = kind
		}
		return sym
	}
	sym := &ast.Symbol{Kind: kind, FullName: append([]string(nil), fullName...)}
	t.symbols[k] = sym

	// Implicitly declare missing enclosing namespaces so that `class A::B`
	// makes `A` resolvable.
	for i := len(fullName) - 1; i > 0; i-- {
		pk := key(fullName[:i])
		if _, ok := t.symbols[pk]; ok {
			break
		}
		t.symbols[pk] = &ast.Symbol{Kind: ast.SymbolModule, FullName: append([]string(nil), fullName[:i]...)}
	}
	return sym
}

// Add records every namespace and constant declared in file.
func (t *Table) Add(file *ast.File) {
	c := &collector{table: t}
	for _, stmt := range file.Body {
		c.visit(stmt, nil)
	}
}

// collector walks a file declaring symbols.
type collector struct {
	table *Table
}

func (c *collector) visit(e ast.Expr, nesting [][]string) {
	switch n := e.(type) {
	case *ast.ClassDef:
		name, ok := n.Name.(*ast.ConstantLit)
		if !ok || !name.Static() {
			c.visitAll(n.RHS, nesting)
			return
		}
		kind := ast.SymbolModule
		if n.Kind == ast.KindClass {
			kind = ast.SymbolClass
		}
		full := definitionName(c.table, nesting, name)
		c.table.define(full, kind)
		c.visitAll(n.RHS, append(nesting[:len(nesting):len(nesting)], full))
	case *ast.Assign:
		if lhs, ok := n.LHS.(*ast.ConstantLit); ok && lhs.Static() {
			kind := ast.SymbolConstant
			if isTypeAlias(n.RHS) {
				kind = ast.SymbolTypeAlias
			}
			c.table.define(definitionName(c.table, nesting, lhs), kind)
		}
		c.visit(n.RHS, nesting)
	case *ast.InsSeq:
		c.visitAll(n.Stats, nesting)
		c.visit(n.Expr, nesting)
	case *ast.Send:
		c.visit(n.Recv, nesting)
		c.visitAll(n.Args, nesting)
		c.visit(n.Block, nesting)
	case *ast.MethodDef:
		c.visit(n.Body, nesting)
	case *ast.Node:
		c.visitAll(n.Children, nesting)
	}
}

func (c *collector) visitAll(es []ast.Expr, nesting [][]string) {
	for _, e := range es {
		c.visit(e, nesting)
	}
}

// isTypeAlias reports whether rhs is `T.type_alias { ... }`.
func isTypeAlias(rhs ast.Expr) bool {
	send, ok := rhs.(*ast.Send)
	if !ok || send.Fun != "type_alias" {
		return false
	}
	recv, ok := send.Recv.(*ast.ConstantLit)
	if !ok {
		return false
	}
	path, ok := recv.Path()
	return ok && len(path) == 1 && path[0] == "T"
}

// definitionName computes the fully qualified name a declaration of c
// defines: bare names are defined in the innermost namespace, qualified names
// inside whatever their qualifier resolves to.
func definitionName(t *Table, nesting [][]string, c *ast.ConstantLit) []string {
	path, _ := c.Path()
	if c.Rooted() {
		return path
	}
	var top []string
	if len(nesting) > 0 {
		top = nesting[len(nesting)-1]
	}
	if len(path) > 1 {
		if sym := lookupPath(t, nesting, path[:len(path)-1]); sym != nil {
			return append(append([]string(nil), sym.FullName...), path[len(path)-1])
		}
	}
	return append(append([]string(nil), top...), path...)
}

// lookupPath resolves a relative constant path lexically.
func lookupPath(t *Table, nesting [][]string, path []string) *ast.Symbol {
	sym := lookupLexical(t, nesting, path[0])
	for _, name := range path[1:] {
		if sym == nil || !sym.IsClassOrModule() {
			return nil
		}
		sym = t.Lookup(append(append([]string(nil), sym.FullName...), name))
	}
	return sym
}

func lookupLexical(t *Table, nesting [][]string, name string) *ast.Symbol {
	for i := len(nesting) - 1; i >= 0; i-- {
		candidate := append(append([]string(nil), nesting[i]...), name)
		if sym := t.Lookup(candidate); sym != nil {
			return sym
		}
	}
	return t.Lookup([]string{name})
}
