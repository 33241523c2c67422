package mcp

// Test Plan for the MCP server:
// - ConstantIndex finds definitions by name, filtered by kind and file
// - Snapshot indexes definitions and resolved references by qualified name
// - Lookup results are copies; changing them leaves the snapshot intact
// - autogen_search returns ranked hits and rejects bad arguments
// - autogen_constant returns definitions and references, errors for unknown names
// - autogen_dependencies answers traversals, cycles and load order
// - Replace swaps the snapshot and releases the old one

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/rb-autogen/internal/ast"
	"github.com/mvp-joe/rb-autogen/internal/autogen"
	"github.com/mvp-joe/rb-autogen/internal/parser"
	"github.com/mvp-joe/rb-autogen/internal/resolver"
)

var project = map[string]string{
	"lib/foo.rb":     "module Foo\n  def self.x\n  end\nend\n",
	"lib/foo/bar.rb": "module Foo\n  class Bar\n    def run\n    end\n  end\nend\n",
	"lib/baz.rb":     "class Baz < Foo::Bar\n  LIMIT = 3\nend\n",
	"lib/qux.rb":     "class Qux\n  def go\n    Baz::LIMIT\n  end\nend\n",
}

func analyze(t *testing.T) []*autogen.ParsedFile {
	t.Helper()

	paths := make([]string, 0, len(project))
	for path := range project {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	p := parser.New()
	table := resolver.NewTable()
	parsed := make([]*ast.File, 0, len(paths))
	for _, path := range paths {
		f, err := p.Parse(context.Background(), path, []byte(project[path]))
		require.NoError(t, err)
		table.Add(f)
		parsed = append(parsed, f)
	}

	files := make([]*autogen.ParsedFile, 0, len(parsed))
	for _, f := range parsed {
		resolver.Resolve(table, f)
		pf, err := autogen.Generate(f)
		require.NoError(t, err)
		files = append(files, pf)
	}
	return files
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	snap, err := NewSnapshot(context.Background(), analyze(t))
	require.NoError(t, err)
	s := NewServer(snap, "test")
	t.Cleanup(func() { s.Close() })
	return s
}

func call(t *testing.T, h toolHandler, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := h(context.Background(), request)
	require.NoError(t, err, "should not return system error")
	require.NotNil(t, result)
	return result
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error")
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	var out T
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestConstantIndex_Search(t *testing.T) {
	t.Parallel()

	index, err := NewConstantIndex(context.Background(), analyze(t))
	require.NoError(t, err)
	defer index.Close()

	count, err := index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), count)

	tests := []struct {
		name  string
		query string
		opts  *SearchOptions
		want  []string
	}{
		{name: "by segment", query: "Bar", want: []string{"Foo::Bar"}},
		{name: "constant assignment", query: "LIMIT", want: []string{"Baz::LIMIT"}},
		{name: "kind filter", query: "Foo", opts: &SearchOptions{Kind: "module"}, want: []string{"Foo", "Foo"}},
		{name: "file filter", query: "Foo", opts: &SearchOptions{FilePath: "lib/foo/*"}, want: []string{"Foo", "Foo::Bar"}},
		{name: "no match", query: "Nothing", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := index.Search(context.Background(), tt.query, tt.opts)
			require.NoError(t, err)
			var names []string
			for _, h := range hits {
				names = append(names, h.Name)
			}
			sort.Strings(names)
			assert.Equal(t, tt.want, names)
		})
	}

	hits, err := index.Search(context.Background(), "Bar", nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "class", hits[0].Kind)
	assert.Equal(t, "lib/foo/bar.rb", hits[0].FilePath)
	assert.Equal(t, 2, hits[0].Line)
}

func TestSnapshot_Lookup(t *testing.T) {
	t.Parallel()

	snap, err := NewSnapshot(context.Background(), analyze(t))
	require.NoError(t, err)
	defer snap.Close()

	assert.Equal(t, []DefinitionInfo{
		{FilePath: "lib/foo.rb", Kind: "module", BeginLine: 1, EndLine: 4, DefinesBehavior: true},
		{FilePath: "lib/foo/bar.rb", Kind: "module", BeginLine: 1, EndLine: 6, DefinesBehavior: false},
	}, snap.Definitions("Foo"))
	assert.Equal(t, snap.Definitions("Foo::Bar"), snap.Definitions("::Foo::Bar"))
	assert.Equal(t, []ReferenceInfo{
		{FilePath: "lib/qux.rb", Line: 3, Written: "Baz::LIMIT"},
	}, snap.References("Baz::LIMIT"))
	assert.Empty(t, snap.Definitions("Missing"))
}

func TestSnapshot_LookupReturnsCopies(t *testing.T) {
	t.Parallel()

	snap, err := NewSnapshot(context.Background(), analyze(t))
	require.NoError(t, err)
	defer snap.Close()

	defs := snap.Definitions("Foo")
	require.Len(t, defs, 2)
	defs[0].FilePath = "changed.rb"
	sort.Slice(defs, func(i, j int) bool { return defs[i].BeginLine > defs[j].BeginLine })
	_ = append(defs[:1], DefinitionInfo{FilePath: "extra.rb"})

	refs := snap.References("Baz::LIMIT")
	require.Len(t, refs, 1)
	refs[0].Line = 99

	assert.Equal(t, "lib/foo.rb", snap.Definitions("Foo")[0].FilePath)
	assert.Equal(t, "lib/foo/bar.rb", snap.Definitions("Foo")[1].FilePath)
	assert.Equal(t, 3, snap.References("Baz::LIMIT")[0].Line)
}

func TestSearchHandler(t *testing.T) {
	t.Parallel()

	h := createSearchHandler(newTestServer(t))

	resp := decode[SearchResponse](t, call(t, h, map[string]interface{}{"query": "Qux", "limit": float64(5)}))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "Qux", resp.Results[0].Name)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "missing query", args: map[string]interface{}{}},
		{name: "bad kind", args: map[string]interface{}{"query": "Foo", "kind": "method"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, call(t, h, tt.args).IsError)
		})
	}
}

func TestConstantHandler(t *testing.T) {
	t.Parallel()

	h := createConstantHandler(newTestServer(t))

	resp := decode[ConstantResponse](t, call(t, h, map[string]interface{}{"name": "Foo::Bar"}))
	assert.Equal(t, []DefinitionInfo{
		{FilePath: "lib/foo/bar.rb", Kind: "class", BeginLine: 2, EndLine: 5, DefinesBehavior: true},
	}, resp.Definitions)
	assert.Equal(t, []ReferenceInfo{
		{FilePath: "lib/baz.rb", Line: 1, Written: "Foo::Bar"},
	}, resp.References)

	assert.True(t, call(t, h, map[string]interface{}{"name": "Nope"}).IsError)
	assert.True(t, call(t, h, map[string]interface{}{}).IsError)
}

func TestDependencyHandler(t *testing.T) {
	t.Parallel()

	h := createDependencyHandler(newTestServer(t))

	resp := decode[DependencyResponse](t, call(t, h, map[string]interface{}{
		"operation": "dependents",
		"file":      "lib/foo/bar.rb",
		"depth":     float64(2),
	}))
	assert.Equal(t, []FileDepth{{File: "lib/baz.rb", Depth: 1}, {File: "lib/qux.rb", Depth: 2}}, resp.Results)

	resp = decode[DependencyResponse](t, call(t, h, map[string]interface{}{"operation": "dependencies", "file": "lib/qux.rb"}))
	assert.Equal(t, []FileDepth{{File: "lib/baz.rb", Depth: 1}}, resp.Results)

	resp = decode[DependencyResponse](t, call(t, h, map[string]interface{}{"operation": "cycles"}))
	assert.Empty(t, resp.Groups)

	resp = decode[DependencyResponse](t, call(t, h, map[string]interface{}{"operation": "load_order"}))
	var order []string
	for _, group := range resp.Groups {
		order = append(order, group...)
	}
	assert.ElementsMatch(t, []string{"lib/baz.rb", "lib/foo.rb", "lib/foo/bar.rb", "lib/qux.rb"}, order)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "unknown operation", args: map[string]interface{}{"operation": "callers"}},
		{name: "missing file", args: map[string]interface{}{"operation": "dependencies"}},
		{name: "unknown file", args: map[string]interface{}{"operation": "dependents", "file": "lib/nope.rb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, call(t, h, tt.args).IsError)
		})
	}
}

func TestServer_Replace(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	var old *Snapshot
	require.NoError(t, s.WithSnapshot(func(snap *Snapshot) error {
		old = snap
		return nil
	}))

	next, err := NewSnapshot(context.Background(), analyze(t)[:1])
	require.NoError(t, err)
	s.Replace(next)

	assert.Nil(t, old.Index.index, "previous snapshot is closed")
	require.NoError(t, s.WithSnapshot(func(snap *Snapshot) error {
		assert.Len(t, snap.Files, 1)
		return nil
	}))

	require.NoError(t, s.Close())
	assert.Error(t, s.WithSnapshot(func(*Snapshot) error { return nil }))
}
