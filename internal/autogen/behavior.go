package autogen

import "github.com/mvp-joe/rb-autogen/internal/ast"

// KeepForIDE is the marker call whose arguments are invisible to analysis.
const KeepForIDE = "keep_for_ide"

// Ignorable reports whether e contributes nothing to analysis: an empty
// tree, a keep_for_ide marker, or a sequence made only of those.
func Ignorable(e ast.Expr) bool {
	switch n := e.(type) {
	case nil, *ast.EmptyTree:
		return true
	case *ast.Send:
		return n.Fun == KeepForIDE
	case *ast.InsSeq:
		for _, stat := range n.Stats {
			if !Ignorable(stat) {
				return false
			}
		}
		return Ignorable(n.Expr)
	default:
		return false
	}
}

// DefinesBehavior reports whether evaluating e while its namespace loads has
// an observable effect beyond declaring nested namespaces.
func DefinesBehavior(e ast.Expr) bool {
	if Ignorable(e) {
		return false
	}

	switch n := e.(type) {
	case *ast.ClassDef:
		// `class << self` is never used purely for namespacing.
		return n.IsSingleton()
	case *ast.Assign:
		_, isConst := n.LHS.(*ast.ConstantLit)
		return !isConst
	case *ast.InsSeq:
		for _, stat := range n.Stats {
			if DefinesBehavior(stat) {
				return true
			}
		}
		return DefinesBehavior(n.Expr)
	default:
		return true
	}
}
