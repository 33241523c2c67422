package parser

// Test Plan for the Ruby parser:
// - Nested class/module declarations lower to ClassDef with kind, name and body
// - A class without a superclass gets a synthetic Object ancestor
// - Constant paths keep their qualifiers; `::Name` is rooted
// - Static include/extend move into the ancestor lists
// - `class << self` lowers to a singleton ClassDef
// - Constant assignment, require calls and singleton methods keep their shape
// - Line numbers are 1-indexed
// - Syntax errors do not fail the parse; cancellation and missing files do

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/rb-autogen/internal/ast"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	f, err := New().Parse(context.Background(), "test.rb", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func classDef(t *testing.T, e ast.Expr) *ast.ClassDef {
	t.Helper()
	def, ok := e.(*ast.ClassDef)
	require.True(t, ok, "expected ClassDef, got %T", e)
	return def
}

func constPath(t *testing.T, e ast.Expr) []string {
	t.Helper()
	lit, ok := e.(*ast.ConstantLit)
	require.True(t, ok, "expected ConstantLit, got %T", e)
	path, ok := lit.Path()
	require.True(t, ok)
	return path
}

func TestParse_NestedDeclarations(t *testing.T) {
	t.Parallel()

	f := parse(t, "module Foo\n  class Bar < Baz\n    def run\n    end\n  end\nend\n")
	assert.Equal(t, "test.rb", f.Path)
	require.Len(t, f.Body, 1)

	foo := classDef(t, f.Body[0])
	assert.Equal(t, ast.KindModule, foo.Kind)
	assert.Equal(t, []string{"Foo"}, constPath(t, foo.Name))
	assert.Empty(t, foo.Ancestors)
	assert.Equal(t, uint32(1), foo.Loc.BeginLine)
	assert.Equal(t, uint32(6), foo.Loc.EndLine)
	require.Len(t, foo.RHS, 1)

	bar := classDef(t, foo.RHS[0])
	assert.Equal(t, ast.KindClass, bar.Kind)
	assert.Equal(t, []string{"Bar"}, constPath(t, bar.Name))
	require.Len(t, bar.Ancestors, 1)
	assert.Equal(t, []string{"Baz"}, constPath(t, bar.Ancestors[0]))
	assert.Equal(t, uint32(2), bar.Loc.BeginLine)
	assert.Equal(t, uint32(5), bar.Loc.EndLine)
	assert.Equal(t, uint32(2), bar.DeclLoc.EndLine, "declaration ends with the superclass")

	require.Len(t, bar.RHS, 1)
	method, ok := bar.RHS[0].(*ast.MethodDef)
	require.True(t, ok)
	assert.Equal(t, "run", method.Name)
	assert.False(t, method.Singleton)
}

func TestParse_ImplicitSuperclass(t *testing.T) {
	t.Parallel()

	def := classDef(t, parse(t, "class Foo\nend\n").Body[0])
	require.Len(t, def.Ancestors, 1)
	object, ok := def.Ancestors[0].(*ast.ConstantLit)
	require.True(t, ok)
	assert.True(t, object.Synthetic)
	assert.Equal(t, "Object", object.Name)
	assert.False(t, object.Static())
}

func TestParse_ConstantPaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		path   []string
		rooted bool
	}{
		{name: "bare", src: "Foo", path: []string{"Foo"}},
		{name: "qualified", src: "A::B::C", path: []string{"A", "B", "C"}},
		{name: "rooted", src: "::Foo", path: []string{"Foo"}, rooted: true},
		{name: "rooted qualified", src: "::Foo::Bar", path: []string{"Foo", "Bar"}, rooted: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := parse(t, tt.src+"\n")
			require.Len(t, f.Body, 1)
			lit, ok := f.Body[0].(*ast.ConstantLit)
			require.True(t, ok, "expected ConstantLit, got %T", f.Body[0])
			assert.Equal(t, tt.path, constPath(t, lit))
			assert.Equal(t, tt.rooted, lit.Rooted())
			assert.True(t, lit.Static())
		})
	}
}

func TestParse_Mixins(t *testing.T) {
	t.Parallel()

	src := "class Foo\n  include Bar\n  extend Baz\n  include helper\nend\n"
	def := classDef(t, parse(t, src).Body[0])

	require.Len(t, def.Ancestors, 2)
	assert.Equal(t, []string{"Bar"}, constPath(t, def.Ancestors[1]))
	require.Len(t, def.SingletonAncestors, 1)
	assert.Equal(t, []string{"Baz"}, constPath(t, def.SingletonAncestors[0]))

	require.Len(t, def.RHS, 3)
	assert.IsType(t, &ast.EmptyTree{}, def.RHS[0])
	assert.IsType(t, &ast.EmptyTree{}, def.RHS[1])
	send, ok := def.RHS[2].(*ast.Send)
	require.True(t, ok, "dynamic include stays in the body")
	assert.Equal(t, "include", send.Fun)
}

func TestParse_SingletonClass(t *testing.T) {
	t.Parallel()

	foo := classDef(t, parse(t, "class Foo\n  class << self\n    def x\n    end\n  end\nend\n").Body[0])
	require.Len(t, foo.RHS, 1)
	singleton := classDef(t, foo.RHS[0])
	assert.True(t, singleton.IsSingleton())
	assert.False(t, foo.IsSingleton())
	require.Len(t, singleton.RHS, 1)
	assert.IsType(t, &ast.MethodDef{}, singleton.RHS[0])
}

func TestParse_Statements(t *testing.T) {
	t.Parallel()

	f := parse(t, "require \"set\"\nLIMIT = 3\ndef self.x\nend\n")
	require.Len(t, f.Body, 3)

	send, ok := f.Body[0].(*ast.Send)
	require.True(t, ok)
	assert.Equal(t, "require", send.Fun)
	assert.True(t, send.PrivateOK)
	require.Len(t, send.Args, 1)
	assert.Equal(t, &ast.Literal{Loc: send.Args[0].Location(), String: true, Value: "set"}, send.Args[0])

	assign, ok := f.Body[1].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, []string{"LIMIT"}, constPath(t, assign.LHS))
	lit, ok := assign.RHS.(*ast.Literal)
	require.True(t, ok)
	assert.False(t, lit.String)
	assert.Equal(t, "3", lit.Value)
	assert.Equal(t, uint32(2), assign.Loc.BeginLine)

	method, ok := f.Body[2].(*ast.MethodDef)
	require.True(t, ok)
	assert.True(t, method.Singleton)
	assert.Equal(t, "x", method.Name)
}

func TestParse_InterpolatedStringIsNotLiteral(t *testing.T) {
	t.Parallel()

	f := parse(t, "require \"a/#{b}\"\n")
	send, ok := f.Body[0].(*ast.Send)
	require.True(t, ok)
	require.Len(t, send.Args, 1)
	_, isLiteral := send.Args[0].(*ast.Literal)
	assert.False(t, isLiteral)
}

func TestParse_SyntaxErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	f, err := New().Parse(context.Background(), "broken.rb", []byte("class Foo\n  def\n"))
	require.NoError(t, err)
	assert.Equal(t, "broken.rb", f.Path)
}

func TestParse_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Parse(ctx, "test.rb", []byte("Foo\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "foo.rb")
	require.NoError(t, os.WriteFile(path, []byte("module Foo\nend\n"), 0644))

	f, err := New().ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	require.Len(t, f.Body, 1)

	_, err = New().ParseFile(context.Background(), filepath.Join(dir, "missing.rb"))
	assert.Error(t, err)
}
