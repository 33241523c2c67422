package ast

// Const builds a constant path from its written components, e.g.
// Const("A", "B") for `A::B`.
func Const(names ...string) *ConstantLit {
	var scope Expr
	var lit *ConstantLit
	for _, name := range names {
		lit = &ConstantLit{Name: name, Scope: scope}
		scope = lit
	}
	return lit
}

// RootConst builds `::A::B` style constant paths.
func RootConst(names ...string) *ConstantLit {
	var scope Expr = &Cbase{}
	var lit *ConstantLit
	for _, name := range names {
		lit = &ConstantLit{Name: name, Scope: scope}
		scope = lit
	}
	return lit
}

// SyntheticConst is a compiler-inserted constant with no source counterpart.
func SyntheticConst(name string) *ConstantLit {
	return &ConstantLit{Name: name, Synthetic: true}
}

// Seq builds an InsSeq from statements, the last one being the trailing
// expression. Zero statements produce an EmptyTree and one statement is
// returned as is.
func Seq(stats ...Expr) Expr {
	switch len(stats) {
	case 0:
		return &EmptyTree{}
	case 1:
		return stats[0]
	}
	return &InsSeq{Stats: stats[:len(stats)-1], Expr: stats[len(stats)-1]}
}
