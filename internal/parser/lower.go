package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/rb-autogen/internal/ast"
)

// lowerer converts tree-sitter-ruby nodes into ast expressions.
type lowerer struct {
	source []byte
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(l.source[n.StartByte():n.EndByte()])
}

func loc(n *sitter.Node) ast.Loc {
	return ast.Loc{
		BeginPos:  uint32(n.StartByte()),
		EndPos:    uint32(n.EndByte()),
		BeginLine: uint32(n.StartPosition().Row) + 1,
		EndLine:   uint32(n.EndPosition().Row) + 1,
	}
}

// span covers from the start of a to the end of b.
func span(a, b *sitter.Node) ast.Loc {
	out := loc(a)
	end := loc(b)
	out.EndPos = end.EndPos
	out.EndLine = end.EndLine
	return out
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// statements lowers every statement directly under n.
func (l *lowerer) statements(n *sitter.Node) []ast.Expr {
	var out []ast.Expr
	for _, child := range namedChildren(n) {
		switch child.Kind() {
		case "uninterpreted":
			continue
		case "body_statement", "statements":
			out = append(out, l.statements(child)...)
			continue
		}
		out = append(out, l.expr(child))
	}
	return out
}

// body lowers a statement container into a single expression.
func (l *lowerer) body(n *sitter.Node) ast.Expr {
	if n == nil {
		return &ast.EmptyTree{}
	}
	stats := l.statements(n)
	seq := ast.Seq(stats...)
	if s, ok := seq.(*ast.InsSeq); ok {
		s.Loc = loc(n)
	}
	return seq
}

func (l *lowerer) expr(n *sitter.Node) ast.Expr {
	if n == nil {
		return &ast.EmptyTree{}
	}

	switch n.Kind() {
	case "class":
		return l.classDef(n, ast.KindClass)
	case "module":
		return l.classDef(n, ast.KindModule)
	case "singleton_class":
		return l.singletonClass(n)
	case "constant", "scope_resolution":
		return l.constant(n)
	case "assignment":
		return &ast.Assign{
			Loc: loc(n),
			LHS: l.expr(n.ChildByFieldName("left")),
			RHS: l.expr(n.ChildByFieldName("right")),
		}
	case "call":
		return l.call(n)
	case "string":
		return l.str(n)
	case "integer", "float", "simple_symbol", "true", "false", "nil", "rational", "complex":
		return &ast.Literal{Loc: loc(n), Value: l.text(n)}
	case "method":
		return l.method(n, false)
	case "singleton_method":
		return l.method(n, true)
	case "empty_statement":
		return &ast.EmptyTree{Loc: loc(n)}
	case "parenthesized_statements", "body_statement", "statements":
		return l.body(n)
	}

	// Anything else is opaque: keep the children so nested constants are seen.
	node := &ast.Node{Loc: loc(n), Kind: n.Kind()}
	for _, child := range namedChildren(n) {
		node.Children = append(node.Children, l.expr(child))
	}
	return node
}

// constant lowers `Foo`, `A::B` and `::C`.
func (l *lowerer) constant(n *sitter.Node) ast.Expr {
	if n.Kind() == "constant" {
		return &ast.ConstantLit{Loc: loc(n), Name: l.text(n)}
	}

	name := n.ChildByFieldName("name")
	if name == nil || name.Kind() != "constant" {
		return &ast.Node{Loc: loc(n), Kind: n.Kind(), Children: l.lowerAll(namedChildren(n))}
	}

	lit := &ast.ConstantLit{Loc: loc(n), Name: l.text(name)}
	if scope := n.ChildByFieldName("scope"); scope != nil {
		lit.Scope = l.expr(scope)
	} else {
		lit.Scope = &ast.Cbase{Loc: loc(n)}
	}
	return lit
}

func (l *lowerer) lowerAll(nodes []*sitter.Node) []ast.Expr {
	out := make([]ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, l.expr(n))
	}
	return out
}

func (l *lowerer) classDef(n *sitter.Node, kind ast.ClassKind) ast.Expr {
	nameNode := n.ChildByFieldName("name")
	def := &ast.ClassDef{
		Loc:     loc(n),
		DeclLoc: loc(n),
		Kind:    kind,
		Name:    l.expr(nameNode),
	}
	if nameNode != nil {
		def.DeclLoc = span(n, nameNode)
	}

	if kind == ast.KindClass {
		superNode := n.ChildByFieldName("superclass")
		if superNode != nil && superNode.NamedChildCount() > 0 {
			def.Ancestors = append(def.Ancestors, l.expr(superNode.NamedChild(0)))
			def.DeclLoc = span(n, superNode)
		} else {
			def.Ancestors = append(def.Ancestors, ast.SyntheticConst("Object"))
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		body = findBody(n, nameNode, n.ChildByFieldName("superclass"))
	}
	if body != nil {
		def.RHS = l.statements(body)
	}
	l.moveMixins(def)
	return def
}

func (l *lowerer) singletonClass(n *sitter.Node) ast.Expr {
	value := n.ChildByFieldName("value")
	def := &ast.ClassDef{
		Loc:       loc(n),
		DeclLoc:   loc(n),
		Kind:      ast.KindClass,
		Name:      &ast.UnresolvedIdent{Loc: loc(n), Name: ast.SingletonName},
		Ancestors: []ast.Expr{ast.SyntheticConst("Object")},
	}
	if value != nil {
		def.DeclLoc = span(n, value)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		body = findBody(n, value, nil)
	}
	if body != nil {
		def.RHS = l.statements(body)
	}
	return def
}

// findBody locates the body of older grammar versions that do not expose a
// `body` field: the first named child that is neither the name nor the
// superclass.
func findBody(n *sitter.Node, skip ...*sitter.Node) *sitter.Node {
	for _, child := range namedChildren(n) {
		skipped := false
		for _, s := range skip {
			if s != nil && s.StartByte() == child.StartByte() && s.Kind() == child.Kind() {
				skipped = true
				break
			}
		}
		if !skipped && child.Kind() == "body_statement" {
			return child
		}
	}
	return nil
}

// moveMixins moves receiverless `include`/`extend` calls whose arguments are
// all static constants out of the body and into the ancestor lists.
func (l *lowerer) moveMixins(def *ast.ClassDef) {
	for i, stmt := range def.RHS {
		send, ok := stmt.(*ast.Send)
		if !ok || !send.PrivateOK || len(send.Args) == 0 || send.Block != nil {
			continue
		}
		if send.Fun != "include" && send.Fun != "extend" {
			continue
		}
		allStatic := true
		for _, arg := range send.Args {
			c, ok := arg.(*ast.ConstantLit)
			if !ok || !c.Static() {
				allStatic = false
				break
			}
		}
		if !allStatic {
			continue
		}
		if send.Fun == "include" {
			def.Ancestors = append(def.Ancestors, send.Args...)
		} else {
			def.SingletonAncestors = append(def.SingletonAncestors, send.Args...)
		}
		def.RHS[i] = &ast.EmptyTree{Loc: send.Loc}
	}
}

func (l *lowerer) call(n *sitter.Node) ast.Expr {
	send := &ast.Send{Loc: loc(n)}
	if recv := n.ChildByFieldName("receiver"); recv != nil {
		send.Recv = l.expr(recv)
	} else {
		send.PrivateOK = true
	}
	send.Fun = l.text(n.ChildByFieldName("method"))
	if args := n.ChildByFieldName("arguments"); args != nil {
		send.Args = l.lowerAll(namedChildren(args))
	}
	if block := n.ChildByFieldName("block"); block != nil {
		send.Block = l.expr(block)
	}
	return send
}

// str lowers a string literal. Only strings made of plain content are
// literals; interpolated strings keep their parts as children.
func (l *lowerer) str(n *sitter.Node) ast.Expr {
	children := namedChildren(n)
	var sb strings.Builder
	for _, child := range children {
		if child.Kind() != "string_content" {
			return &ast.Node{Loc: loc(n), Kind: "dstring", Children: l.lowerAll(children)}
		}
		sb.WriteString(l.text(child))
	}
	return &ast.Literal{Loc: loc(n), String: true, Value: sb.String()}
}

func (l *lowerer) method(n *sitter.Node, singleton bool) ast.Expr {
	def := &ast.MethodDef{
		Loc:       loc(n),
		Name:      l.text(n.ChildByFieldName("name")),
		Singleton: singleton,
	}
	if body := n.ChildByFieldName("body"); body != nil {
		def.Body = l.body(body)
		return def
	}

	// Older grammars put the statements directly under the method node.
	skip := map[string]bool{"name": true, "parameters": true, "object": true}
	var stats []ast.Expr
	for _, child := range namedChildren(n) {
		if isField(n, child, skip) {
			continue
		}
		stats = append(stats, l.expr(child))
	}
	def.Body = ast.Seq(stats...)
	return def
}

func isField(parent, child *sitter.Node, fields map[string]bool) bool {
	for field := range fields {
		f := parent.ChildByFieldName(field)
		if f != nil && f.StartByte() == child.StartByte() && f.EndByte() == child.EndByte() {
			return true
		}
	}
	return false
}
