package ast

import "strings"

// SymbolKind classifies a resolved constant.
type SymbolKind uint8

const (
	SymbolModule SymbolKind = iota
	SymbolClass
	SymbolConstant
	SymbolTypeAlias
	SymbolStub
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolModule:
		return "module"
	case SymbolClass:
		return "class"
	case SymbolConstant:
		return "constant"
	case SymbolTypeAlias:
		return "type_alias"
	case SymbolStub:
		return "stub"
	default:
		return "unknown"
	}
}

// Symbol is the resolver's view of a constant: its fully qualified name and
// what kind of thing it names.
type Symbol struct {
	Kind     SymbolKind
	FullName []string
}

// StubModule is the placeholder a constant resolves to when no definition
// could be found for it.
var StubModule = &Symbol{Kind: SymbolStub}

// IsStub reports whether s is the unresolvable placeholder.
func (s *Symbol) IsStub() bool {
	return s == nil || s.Kind == SymbolStub
}

// IsClassOrModule reports whether s names a namespace.
func (s *Symbol) IsClassOrModule() bool {
	return s != nil && (s.Kind == SymbolModule || s.Kind == SymbolClass)
}

// String returns the `::`-joined qualified name.
func (s *Symbol) String() string {
	if s == nil {
		return ""
	}
	if s.Kind == SymbolStub {
		return "<stub>"
	}
	return strings.Join(s.FullName, "::")
}
