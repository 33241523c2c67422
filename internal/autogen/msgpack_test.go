package autogen

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/rb-autogen/internal/ast"
)

// Test Plan for the msgpack record:
// - Versions outside [MinVersion, MaxVersion] are rejected before encoding
// - The header reserves the first four symbols for definition kinds
// - The header advertises counts and attribute layout
// - Decoding the record recovers names, flags, nullable refs and packed ranges
// - Requires are written sorted while the parsed file keeps source order

func sampleFile(t *testing.T) *ParsedFile {
	t.Helper()
	pf, err := Generate(&ast.File{
		Path:   "lib/foo.rb",
		Source: []byte("module Foo; class Bar < Base; end; end"),
		Body: []ast.Expr{
			&ast.Send{Fun: "require", PrivateOK: true, Args: []ast.Expr{&ast.Literal{String: true, Value: "base"}}},
			&ast.ClassDef{
				Loc:  ast.Loc{BeginPos: 0, EndPos: 38, BeginLine: 1, EndLine: 1},
				Kind: ast.KindModule,
				Name: resolved(&ast.ConstantLit{Name: "Foo", Loc: ast.Loc{BeginPos: 7, EndPos: 10, BeginLine: 1, EndLine: 1}}, ast.SymbolModule, "Foo"),
				RHS: []ast.Expr{&ast.ClassDef{
					Loc:       ast.Loc{BeginPos: 12, EndPos: 33, BeginLine: 2, EndLine: 4},
					Kind:      ast.KindClass,
					Name:      resolved(&ast.ConstantLit{Name: "Bar", Loc: ast.Loc{BeginPos: 18, EndPos: 21, BeginLine: 2, EndLine: 2}}, ast.SymbolClass, "Foo", "Bar"),
					Ancestors: []ast.Expr{resolved(&ast.ConstantLit{Name: "Base", Loc: ast.Loc{BeginPos: 24, EndPos: 28, BeginLine: 2, EndLine: 2}}, ast.SymbolClass, "Base")},
				}},
			},
		},
	})
	require.NoError(t, err)
	return pf
}

func TestToMsgpack_RejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	pf := sampleFile(t)
	for _, v := range []int{0, 1, 3} {
		_, err := pf.ToMsgpack(v)
		assert.ErrorIs(t, err, ErrUnsupportedVersion, "version %d", v)
	}
}

func TestToMsgpack_Header(t *testing.T) {
	t.Parallel()

	pf := sampleFile(t)
	data, err := pf.ToMsgpack(2)
	require.NoError(t, err)

	h, err := ReadHeader(bytes.NewReader(data))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(h.Symbols), 4)
	assert.Equal(t, []string{"module", "class", "casgn", "alias"}, h.Symbols[:4])
	assert.ElementsMatch(t, []string{"Foo", "Bar", "Base"}, h.Symbols[4:])
	assert.Equal(t, uint32(len(pf.Refs)), h.RefCount)
	assert.Equal(t, uint32(len(pf.Defs)), h.DefCount)
	assert.Equal(t, refAttrs[2], h.RefAttrs)
	assert.Equal(t, defAttrs[2], h.DefAttrs)
}

func TestToMsgpack_Decode(t *testing.T) {
	t.Parallel()

	pf := sampleFile(t)
	data, err := pf.ToMsgpack(MaxVersion)
	require.NoError(t, err)

	rec, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.True(t, rec.DidResolution)
	assert.Equal(t, "lib/foo.rb", rec.Path)
	assert.Equal(t, pf.Checksum, rec.Checksum)
	assert.Equal(t, []string{"base"}, rec.Requires)

	require.Len(t, rec.Defs, 3)
	assert.Empty(t, rec.Defs[0].FullName)
	assert.Equal(t, Module, rec.Defs[0].Kind)
	assert.Equal(t, NoReference, rec.Defs[0].DefiningRef)

	bar := rec.Defs[2]
	assert.Equal(t, []string{"Foo", "Bar"}, bar.FullName)
	assert.Equal(t, Class, bar.Kind)
	assert.True(t, bar.DefinesBehavior)
	assert.True(t, bar.IsEmpty)
	assert.Equal(t, ReferenceRef(2), bar.ParentRef)
	assert.Equal(t, NoReference, bar.AliasedRef)
	assert.Equal(t, ReferenceRef(1), bar.DefiningRef)

	require.Len(t, rec.Refs, 3)
	barRef := rec.Refs[1]
	assert.Equal(t, DefinitionRef(1), barRef.Scope)
	assert.Equal(t, []string{"Bar"}, barRef.Name)
	assert.Equal(t, []DefinitionRef{0}, barRef.Nesting)
	assert.Equal(t, uint64(2)<<32|4, barRef.ExpressionRange, "definition lines")
	assert.Equal(t, uint64(18)<<32|21, barRef.PositionRange, "reference bytes")
	assert.Equal(t, []string{"Foo", "Bar"}, barRef.Resolved)
	assert.True(t, barRef.IsDefiningRef)
	assert.Equal(t, NoDefinition, barRef.ParentOf)

	baseRef := rec.Refs[2]
	assert.False(t, baseRef.IsDefiningRef)
	assert.Equal(t, DefinitionRef(2), baseRef.ParentOf)
	assert.Equal(t, uint64(2)<<32|2, baseRef.ExpressionRange)
}

func TestToMsgpack_SortsRequires(t *testing.T) {
	t.Parallel()

	req := func(path string) ast.Expr {
		return &ast.Send{Fun: "require", PrivateOK: true, Args: []ast.Expr{&ast.Literal{String: true, Value: path}}}
	}
	pf, err := Generate(&ast.File{
		Path:   "lib/foo.rb",
		Source: []byte("require 'zeta'\nrequire 'alpha'\nrequire 'mid'\n"),
		Body:   []ast.Expr{req("zeta"), req("alpha"), req("mid")},
	})
	require.NoError(t, err)

	data, err := pf.ToMsgpack(MaxVersion)
	require.NoError(t, err)
	rec, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, rec.Requires)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, pf.Requires)
}

func TestDecode_TruncatedRecord(t *testing.T) {
	t.Parallel()

	data, err := sampleFile(t).ToMsgpack(2)
	require.NoError(t, err)

	_, err = Decode(bytes.NewReader(data[:len(data)-3]))
	assert.Error(t, err)
}
