package autogen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvp-joe/rb-autogen/internal/ast"
)

// Test Plan for the behavior classifier:
// - Empty trees, keep_for_ide calls and sequences of them are ignorable
// - Any other statement inside a sequence makes it non-ignorable
// - Ignorable expressions never define behavior
// - Nested namespaces and constant assignments do not define behavior
// - `class << self`, method definitions, calls and non-constant assignments do

func keepForIDE(args ...ast.Expr) *ast.Send {
	return &ast.Send{Fun: KeepForIDE, Args: args, PrivateOK: true}
}

func TestIgnorable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr ast.Expr
		want bool
	}{
		{"nil", nil, true},
		{"empty tree", &ast.EmptyTree{}, true},
		{"keep_for_ide", keepForIDE(ast.Const("Foo")), true},
		{"sequence of ignorables", ast.Seq(&ast.EmptyTree{}, keepForIDE(), &ast.EmptyTree{}), true},
		{"nested sequence", ast.Seq(ast.Seq(keepForIDE(), keepForIDE()), &ast.EmptyTree{}), true},
		{"sequence with a call", ast.Seq(keepForIDE(), &ast.Send{Fun: "puts"}), false},
		{"sequence with trailing constant", ast.Seq(&ast.EmptyTree{}, ast.Const("A")), false},
		{"constant", ast.Const("A"), false},
		{"other call", &ast.Send{Fun: "require"}, false},
		{"class", &ast.ClassDef{Name: ast.Const("A")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Ignorable(tt.expr))
		})
	}
}

func TestDefinesBehavior(t *testing.T) {
	t.Parallel()

	singleton := &ast.ClassDef{
		Kind: ast.KindClass,
		Name: &ast.UnresolvedIdent{Name: ast.SingletonName},
	}
	nested := &ast.ClassDef{Kind: ast.KindModule, Name: ast.Const("Inner")}
	casgn := &ast.Assign{LHS: ast.Const("X"), RHS: &ast.Literal{Value: "1"}}
	ivar := &ast.Assign{LHS: &ast.Node{Kind: "instance_variable"}, RHS: &ast.Literal{Value: "1"}}
	method := &ast.MethodDef{Name: "call"}

	tests := []struct {
		name string
		expr ast.Expr
		want bool
	}{
		{"empty", &ast.EmptyTree{}, false},
		{"keep_for_ide", keepForIDE(&ast.Send{Fun: "puts"}), false},
		{"nested namespace", nested, false},
		{"class << self", singleton, true},
		{"constant assignment", casgn, false},
		{"non-constant assignment", ivar, true},
		{"method", method, true},
		{"call", &ast.Send{Fun: "attr_reader"}, true},
		{"sequence of namespaces and constants", ast.Seq(nested, casgn, keepForIDE()), false},
		{"sequence containing a method", ast.Seq(nested, casgn, method), true},
		{"sequence with behavior in trailing expr", ast.Seq(nested, singleton), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DefinesBehavior(tt.expr)
			assert.Equal(t, tt.want, got)
			if Ignorable(tt.expr) {
				assert.False(t, got, "ignorable expressions never define behavior")
			}
		})
	}
}
