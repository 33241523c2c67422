// Package parser lowers Ruby source into the ast package's tree using
// tree-sitter.
package parser

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/tree-sitter/go-tree-sitter"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"github.com/mvp-joe/rb-autogen/internal/ast"
)

// Parser parses Ruby files into ast.File values.
// A Parser is safe for concurrent use; every call gets its own tree-sitter parser.
type Parser struct {
	language *sitter.Language
}

// New creates a new Ruby parser.
func New() *Parser {
	return &Parser{language: sitter.NewLanguage(ruby.Language())}
}

// ParseFile reads and parses a Ruby source file.
func (p *Parser) ParseFile(ctx context.Context, filePath string) (*ast.File, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return p.Parse(ctx, filePath, source)
}

// Parse parses source, recording filePath as the file's path.
// Syntax errors do not fail the parse; erroneous regions become opaque nodes.
func (p *Parser) Parse(ctx context.Context, filePath string, source []byte) (*ast.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set ruby language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse ruby file: %s", filePath)
	}
	defer tree.Close()

	l := &lowerer{source: source}
	return &ast.File{
		Path:   filePath,
		Source: source,
		Body:   l.statements(tree.RootNode()),
	}, nil
}
