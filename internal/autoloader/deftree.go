package autoloader

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// DefTree is a node of the namespace trie. The root has no name parts.
type DefTree struct {
	Name      string
	NameParts []string
	Children  map[string]*DefTree
	// NamedDefs are the behavior-defining definitions at this node.
	NamedDefs []autogen.NamedDefinition
	// NonBehaviorDefs are the definitions that only declare the namespace.
	NonBehaviorDefs []autogen.NamedDefinition
}

// New returns an empty trie root.
func New() *DefTree {
	return &DefTree{Children: make(map[string]*DefTree)}
}

// Root reports whether t is the trie root.
func (t *DefTree) Root() bool {
	return len(t.NameParts) == 0
}

// AddDefinition places nd at the node for its qualified name, creating
// intermediate nodes. Definitions rejected by cfg are ignored.
func (t *DefTree) AddDefinition(cfg *Config, nd autogen.NamedDefinition) {
	if !cfg.Include(nd) {
		return
	}
	node := t
	for _, part := range nd.NameParts {
		child, ok := node.Children[part]
		if !ok {
			child = &DefTree{
				Name:      part,
				NameParts: append(slices.Clip(node.NameParts), part),
				Children:  make(map[string]*DefTree),
			}
			node.Children[part] = child
		}
		node = child
	}
	if nd.Def.DefinesBehavior {
		node.NamedDefs = append(node.NamedDefs, nd)
	} else {
		node.NonBehaviorDefs = append(node.NonBehaviorDefs, nd)
	}
}

// AddFile places every definition of pf.
func (t *DefTree) AddFile(cfg *Config, pf *autogen.ParsedFile) {
	for _, nd := range pf.NamedDefinitions() {
		t.AddDefinition(cfg, nd)
	}
}

// Merge folds rhs into t. Definition lists are concatenated, so their order
// depends on merge order. rhs must not be used afterwards: unmatched
// children are moved, not copied.
func (t *DefTree) Merge(rhs *DefTree) error {
	if !slices.Equal(t.NameParts, rhs.NameParts) {
		return fmt.Errorf("%w: %q vs %q", ErrNameMismatch,
			strings.Join(t.NameParts, "::"), strings.Join(rhs.NameParts, "::"))
	}
	t.NamedDefs = append(t.NamedDefs, rhs.NamedDefs...)
	t.NonBehaviorDefs = append(t.NonBehaviorDefs, rhs.NonBehaviorDefs...)
	if t.Children == nil {
		t.Children = make(map[string]*DefTree)
	}
	for name, child := range rhs.Children {
		mine, ok := t.Children[name]
		if !ok {
			t.Children[name] = child
			continue
		}
		if err := mine.Merge(child); err != nil {
			return err
		}
	}
	rhs.NamedDefs, rhs.NonBehaviorDefs, rhs.Children = nil, nil, nil
	return nil
}

// File returns the file owning this node: the first behavior-defining
// definition's file, else the first declaring definition's file, else "".
func (t *DefTree) File() string {
	if len(t.NamedDefs) > 0 {
		return t.NamedDefs[0].Path
	}
	if len(t.NonBehaviorDefs) > 0 {
		return t.NonBehaviorDefs[0].Path
	}
	return ""
}

// HasDefinition reports whether any definition sits at this node.
func (t *DefTree) HasDefinition() bool {
	return len(t.NamedDefs) > 0 || len(t.NonBehaviorDefs) > 0
}

// Definition returns the node's definition: its sole behavior-defining one,
// else its first declaring one.
func (t *DefTree) Definition() (*autogen.NamedDefinition, error) {
	switch {
	case len(t.NamedDefs) == 1:
		return &t.NamedDefs[0], nil
	case len(t.NamedDefs) > 1:
		return nil, fmt.Errorf("%w for %q (size=%d)", ErrAmbiguousDefinition, t.Name, len(t.NamedDefs))
	case len(t.NonBehaviorDefs) > 0:
		return &t.NonBehaviorDefs[0], nil
	default:
		return nil, fmt.Errorf("%w for %q", ErrNoDefinition, t.Name)
	}
}

// DefinitionKind returns the kind of the node's definition, Module when it
// has none.
func (t *DefTree) DefinitionKind() (autogen.DefinitionKind, error) {
	if !t.HasDefinition() {
		return autogen.Module, nil
	}
	def, err := t.Definition()
	if err != nil {
		return 0, err
	}
	return def.Def.Kind, nil
}

// HasDifferentFile reports whether some node in the subtree is owned by a
// file other than file. Nodes owned by no file never differ.
func (t *DefTree) HasDifferentFile(file string) bool {
	differs := false
	t.visit(func(node *DefTree) bool {
		if f := node.File(); f != file && f != "" {
			differs = true
			return false
		}
		return true
	})
	return differs
}

// visit walks the subtree pre-order until fn returns false.
func (t *DefTree) visit(fn func(*DefTree) bool) bool {
	if !fn(t) {
		return false
	}
	for _, child := range t.Children {
		if !child.visit(fn) {
			return false
		}
	}
	return true
}

// Prune removes children whose whole subtree lives in this node's own
// defining file. Children of protected nodes are left alone, and a protected
// child is never removed.
func (t *DefTree) Prune(cfg *Config) {
	definingFile := ""
	if len(t.NamedDefs) > 0 {
		definingFile = t.File()
	}
	if !cfg.prunable(t.NameParts) {
		return
	}
	for name, child := range t.Children {
		if child.HasDifferentFile(definingFile) || !cfg.prunable(child.NameParts) {
			child.Prune(cfg)
			continue
		}
		delete(t.Children, name)
	}
}

// Path is the stub path of the node relative to the output directory.
func (t *DefTree) Path() string {
	return strings.Join(t.NameParts, "/") + ".rb"
}

// Count returns the number of nodes in the subtree, t included.
func (t *DefTree) Count() int {
	n := 0
	t.visit(func(*DefTree) bool {
		n++
		return true
	})
	return n
}

func (t *DefTree) sortedChildren() []string {
	return slices.Sorted(maps.Keys(t.Children))
}

// PrettyPrint writes an indented outline of the subtree with the files of
// each node's behavior-defining definitions.
func (t *DefTree) PrettyPrint(w io.Writer, level int) {
	files := make([]string, 0, len(t.NamedDefs))
	for _, nd := range t.NamedDefs {
		files = append(files, nd.Path)
	}
	fmt.Fprintf(w, "%s [%s]\n", t.Name, strings.Join(files, ", "))
	for _, name := range t.sortedChildren() {
		fmt.Fprint(w, strings.Repeat("  ", level))
		t.Children[name].PrettyPrint(w, level+1)
	}
}

// SortDefinitions orders every node's definition lists by file path so the
// result no longer depends on merge order.
func (t *DefTree) SortDefinitions() {
	t.visit(func(node *DefTree) bool {
		byPath := func(a, b autogen.NamedDefinition) int { return strings.Compare(a.Path, b.Path) }
		slices.SortStableFunc(node.NamedDefs, byPath)
		slices.SortStableFunc(node.NonBehaviorDefs, byPath)
		return true
	})
}
