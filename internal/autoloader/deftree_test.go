package autoloader

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// Test Plan for DefTree:
// - AddDefinition honors the top-level allow-list, eager suffixes and exclude patterns
// - AddDefinition splits behavior and non-behavior definitions
// - Merge rejects mismatched names, concatenates lists and moves unmatched children
// - Merge order does not change children or list contents
// - HasDifferentFile ignores nodes without a file
// - Prune removes same-file children, keeps different-file ones
// - Prune respects protection on the node and on the child
// - Prune is idempotent
// - Definition reports ambiguity when several behavior definitions share a node

func named(path string, behavior bool, kind autogen.DefinitionKind, parts ...string) autogen.NamedDefinition {
	return autogen.NamedDefinition{
		Def:       autogen.Definition{Kind: kind, DefinesBehavior: behavior},
		Name:      strings.Join(parts, "::"),
		NameParts: parts,
		Path:      path,
	}
}

func testConfig() *Config {
	return &Config{
		TopLevelNamespaces: []string{"A", "Foo"},
		EagerSuffixes:      []string{".rbi"},
	}
}

func TestConfig_Include(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ExcludePatterns = []*regexp.Regexp{regexp.MustCompile(`^test/`)}

	tests := []struct {
		name string
		nd   autogen.NamedDefinition
		want bool
	}{
		{"allowed", named("lib/a.rb", true, autogen.Module, "A"), true},
		{"nested allowed", named("lib/a.rb", true, autogen.Module, "A", "B"), true},
		{"top level not allowed", named("lib/z.rb", true, autogen.Module, "Z"), false},
		{"root", named("lib/a.rb", true, autogen.Module), false},
		{"eager suffix", named("rbi/a.rbi", true, autogen.Module, "A"), false},
		{"excluded path", named("test/a.rb", true, autogen.Module, "A"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cfg.Include(tt.nd))
		})
	}

	assert.False(t, (&Config{}).Include(named("lib/a.rb", true, autogen.Module, "A")), "empty allow-list rejects everything")
}

func TestAddDefinition(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	root := New()
	root.AddDefinition(cfg, named("a.rb", false, autogen.Module, "A"))
	root.AddDefinition(cfg, named("b.rb", true, autogen.Class, "A", "B"))
	root.AddDefinition(cfg, named("z.rb", true, autogen.Class, "Z"))

	require.Contains(t, root.Children, "A")
	assert.NotContains(t, root.Children, "Z")
	a := root.Children["A"]
	assert.Equal(t, []string{"A"}, a.NameParts)
	assert.Len(t, a.NonBehaviorDefs, 1)
	assert.Empty(t, a.NamedDefs)

	b := a.Children["B"]
	require.NotNil(t, b)
	assert.Equal(t, "B", b.Name)
	assert.Equal(t, []string{"A", "B"}, b.NameParts)
	assert.Len(t, b.NamedDefs, 1)
	assert.Equal(t, "A/B.rb", b.Path())
	assert.Equal(t, 3, root.Count())
}

func TestMerge(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	left := New()
	left.AddDefinition(cfg, named("a.rb", true, autogen.Module, "A"))
	left.AddDefinition(cfg, named("b.rb", true, autogen.Class, "A", "B"))
	right := New()
	right.AddDefinition(cfg, named("a2.rb", false, autogen.Module, "A"))
	right.AddDefinition(cfg, named("c.rb", true, autogen.Class, "A", "C"))

	require.NoError(t, left.Merge(right))
	a := left.Children["A"]
	assert.Len(t, a.NamedDefs, 1)
	assert.Len(t, a.NonBehaviorDefs, 1)
	assert.Contains(t, a.Children, "B")
	assert.Contains(t, a.Children, "C")
	assert.Nil(t, right.Children, "merge consumes its argument")

	err := left.Merge(left.Children["A"].Children["B"])
	assert.ErrorIs(t, err, ErrNameMismatch)
}

func TestMerge_OrderIndependent(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	build := func(nd autogen.NamedDefinition) *DefTree {
		tree := New()
		tree.AddDefinition(cfg, nd)
		return tree
	}
	defs := []autogen.NamedDefinition{
		named("a.rb", true, autogen.Module, "A"),
		named("b.rb", false, autogen.Module, "A"),
		named("c.rb", true, autogen.Class, "A", "C"),
	}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}
	var results []*DefTree
	for _, order := range orders {
		root := New()
		for _, i := range order {
			require.NoError(t, root.Merge(build(defs[i])))
		}
		results = append(results, root)
	}

	for _, root := range results[1:] {
		a, first := root.Children["A"], results[0].Children["A"]
		assert.ElementsMatch(t, first.sortedChildren(), a.sortedChildren())
		assert.ElementsMatch(t, first.NamedDefs, a.NamedDefs)
		assert.ElementsMatch(t, first.NonBehaviorDefs, a.NonBehaviorDefs)
		assert.ElementsMatch(t, first.Children["C"].NamedDefs, a.Children["C"].NamedDefs)
	}
}

func TestHasDifferentFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	root := New()
	root.AddDefinition(cfg, named("a.rb", true, autogen.Class, "A", "B", "C"))
	a := root.Children["A"]

	assert.Equal(t, "", a.File(), "intermediate nodes have no file")
	assert.False(t, a.HasDifferentFile("a.rb"))
	assert.True(t, a.HasDifferentFile("other.rb"))
	assert.True(t, a.HasDifferentFile(""))
}

func pruneFixture(cfg *Config) *DefTree {
	root := New()
	root.AddDefinition(cfg, named("a/b.rb", true, autogen.Module, "A", "B"))
	root.AddDefinition(cfg, named("a/b.rb", true, autogen.Class, "A", "B", "C"))
	root.AddDefinition(cfg, named("a/d.rb", true, autogen.Class, "A", "D"))
	return root
}

func TestPrune_SameFileChildRemoved(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	root := pruneFixture(cfg)
	root.Prune(cfg)

	a := root.Children["A"]
	require.NotNil(t, a)
	b := a.Children["B"]
	require.NotNil(t, b, "B differs from A's (empty) defining file")
	assert.NotContains(t, b.Children, "C", "C lives in B's file")
	assert.Contains(t, a.Children, "D")
}

func TestPrune_Protection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		protected []string
	}{
		{"protected parent", []string{"A", "B"}},
		{"protected child", []string{"A", "B", "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			cfg.SameFileModules = [][]string{tt.protected}
			root := pruneFixture(cfg)
			root.Prune(cfg)
			assert.Contains(t, root.Children["A"].Children["B"].Children, "C")
		})
	}
}

func TestPrune_ProtectionIsExact(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SameFileModules = [][]string{{"A"}}
	root := New()
	root.AddDefinition(cfg, named("a.rb", true, autogen.Module, "A"))
	root.AddDefinition(cfg, named("b.rb", true, autogen.Module, "A", "B"))
	root.AddDefinition(cfg, named("b.rb", true, autogen.Class, "A", "B", "C"))
	root.Prune(cfg)

	assert.Contains(t, root.Children["A"].Children, "B")
	assert.Contains(t, root.Children["A"].Children["B"].Children, "C", "A is protected so nothing below it is pruned")

	cfg.SameFileModules = nil
	root.Prune(cfg)
	assert.NotContains(t, root.Children["A"].Children["B"].Children, "C")
}

func TestPrune_Idempotent(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	once := pruneFixture(cfg)
	once.Prune(cfg)

	twice := pruneFixture(cfg)
	twice.Prune(cfg)
	twice.Prune(cfg)

	var a, b bytes.Buffer
	once.PrettyPrint(&a, 0)
	twice.PrettyPrint(&b, 0)
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, once.Count(), twice.Count())
}

func TestDefinition(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	root := New()
	root.AddDefinition(cfg, named("a.rb", false, autogen.Module, "A"))
	a := root.Children["A"]

	def, err := a.Definition()
	require.NoError(t, err)
	assert.Equal(t, "a.rb", def.Path)

	root.AddDefinition(cfg, named("b.rb", true, autogen.Class, "A"))
	def, err = a.Definition()
	require.NoError(t, err)
	assert.Equal(t, "b.rb", def.Path, "behavior definitions win")
	assert.Equal(t, "b.rb", a.File())

	root.AddDefinition(cfg, named("c.rb", true, autogen.Class, "A"))
	_, err = a.Definition()
	assert.ErrorIs(t, err, ErrAmbiguousDefinition)

	kind, err := New().DefinitionKind()
	require.NoError(t, err)
	assert.Equal(t, autogen.Module, kind)
}
