package resolver

// Test Plan for the resolver:
// - Add declares classes, modules, constants and type aliases with their kinds
// - `class A::B` implicitly declares A; reopening keeps the namespace kind
// - Bare references search enclosing namespaces innermost first, then the root
// - Rooted and qualified references resolve through the table
// - Unknown constants resolve to the stub; dynamic qualifiers stay unresolved
// - Superclasses resolve outside the class body, mixins inside it

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/rb-autogen/internal/ast"
	"github.com/mvp-joe/rb-autogen/internal/parser"
)

func parseAll(t *testing.T, sources ...string) (*Table, []*ast.File) {
	t.Helper()
	p := parser.New()
	table := NewTable()
	var files []*ast.File
	for i, src := range sources {
		f, err := p.Parse(context.Background(), string(rune('a'+i))+".rb", []byte(src))
		require.NoError(t, err)
		table.Add(f)
		files = append(files, f)
	}
	for _, f := range files {
		Resolve(table, f)
	}
	return table, files
}

// constants collects every constant literal of file in source order.
func constants(file *ast.File) []*ast.ConstantLit {
	var out []*ast.ConstantLit
	var visit func(e ast.Expr)
	visitAll := func(es []ast.Expr) {
		for _, e := range es {
			visit(e)
		}
	}
	visit = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.ClassDef:
			visit(n.Name)
			visitAll(n.Ancestors)
			visitAll(n.SingletonAncestors)
			visitAll(n.RHS)
		case *ast.ConstantLit:
			visit(n.Scope)
			if !n.Synthetic {
				out = append(out, n)
			}
		case *ast.Assign:
			visit(n.LHS)
			visit(n.RHS)
		case *ast.InsSeq:
			visitAll(n.Stats)
			visit(n.Expr)
		case *ast.Send:
			visit(n.Recv)
			visitAll(n.Args)
			visit(n.Block)
		case *ast.MethodDef:
			visit(n.Body)
		case *ast.Node:
			visitAll(n.Children)
		}
	}
	visitAll(file.Body)
	return out
}

// resolved maps each written constant path to the name it resolved to.
func resolved(file *ast.File) map[string]string {
	out := make(map[string]string)
	for _, c := range constants(file) {
		path, _ := c.Path()
		written := c.Name
		if len(path) > 0 {
			written = strings.Join(path, "::")
		}
		if c.Rooted() {
			written = "::" + written
		}
		if c.Symbol == nil {
			out[written] = ""
			continue
		}
		out[written] = c.Symbol.String()
	}
	return out
}

func TestTable_Add(t *testing.T) {
	t.Parallel()

	table, _ := parseAll(t,
		"module Foo\n  class Bar\n    LIMIT = 3\n    Alias = T.type_alias { Integer }\n  end\nend\n",
		"class A::B\nend\n",
		"A = 1\nmodule A\nend\n",
	)

	tests := []struct {
		name string
		kind ast.SymbolKind
	}{
		{name: "Foo", kind: ast.SymbolModule},
		{name: "Foo::Bar", kind: ast.SymbolClass},
		{name: "Foo::Bar::LIMIT", kind: ast.SymbolConstant},
		{name: "Foo::Bar::Alias", kind: ast.SymbolTypeAlias},
		{name: "A", kind: ast.SymbolModule},
		{name: "A::B", kind: ast.SymbolClass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym := table.Lookup(strings.Split(tt.name, "::"))
			require.NotNil(t, sym)
			assert.Equal(t, tt.kind, sym.Kind)
			assert.Equal(t, tt.name, sym.String())
		})
	}
	assert.Equal(t, len(tests), table.Len())
	assert.Nil(t, table.Lookup([]string{"Missing"}))
}

func TestResolve_Lexical(t *testing.T) {
	t.Parallel()

	_, files := parseAll(t,
		"module Foo\n  class Bar\n  end\nend\nclass Bar\nend\n",
		"module Foo\n  module Inner\n    X = Bar\n  end\n  Y = ::Bar\n  Z = Foo::Bar\n  W = Nope\n  V = Bar::Missing\nend\n",
	)

	got := resolved(files[1])
	assert.Equal(t, "Foo::Bar", got["Bar"], "innermost enclosing namespace wins")
	assert.Equal(t, "Foo::Inner::X", got["X"])
	assert.Equal(t, "Bar", got["::Bar"])
	assert.Equal(t, "Foo::Bar", got["Foo::Bar"])
	assert.Equal(t, "Foo::W", got["W"])
	assert.Equal(t, "<stub>", got["Nope"])
	assert.Equal(t, "<stub>", got["Bar::Missing"])
}

func TestResolve_DynamicScope(t *testing.T) {
	t.Parallel()

	bar := &ast.ConstantLit{Name: "Bar", Scope: &ast.Node{Kind: "identifier"}}
	f := &ast.File{Path: "a.rb", Body: []ast.Expr{
		&ast.Assign{LHS: &ast.ConstantLit{Name: "X"}, RHS: bar},
	}}
	table := NewTable()
	table.Add(f)
	Resolve(table, f)

	assert.False(t, bar.Static())
	assert.Nil(t, bar.Symbol, "dynamic qualifier is not resolvable")
	assert.NotNil(t, table.Lookup([]string{"X"}))
}

func TestResolve_SuperclassOutsideBody(t *testing.T) {
	t.Parallel()

	_, files := parseAll(t,
		"module Foo\n  module Helper\n  end\n  class Child\n    module Helper\n    end\n  end\nend\n",
		"module Foo\n  class Child < Helper\n    include Helper\n  end\nend\n",
	)

	var helpers []*ast.ConstantLit
	for _, c := range constants(files[1]) {
		if c.Name == "Helper" {
			helpers = append(helpers, c)
		}
	}
	require.Len(t, helpers, 2)
	assert.Equal(t, "Foo::Helper", helpers[0].Symbol.String(), "superclass")
	assert.Equal(t, "Foo::Child::Helper", helpers[1].Symbol.String(), "mixins see the class namespace")
}

func TestResolve_UntabledFile(t *testing.T) {
	t.Parallel()

	f, err := parser.New().Parse(context.Background(), "x.rb", []byte("module Lonely\nend\n"))
	require.NoError(t, err)
	table := NewTable()
	Resolve(table, f)

	def := f.Body[0].(*ast.ClassDef)
	name := def.Name.(*ast.ConstantLit)
	require.NotNil(t, name.Symbol)
	assert.Equal(t, "Lonely", name.Symbol.String())
	assert.Zero(t, table.Len(), "resolution never writes the table")
}
