package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// ConstantDoc is one indexed definition.
type ConstantDoc struct {
	ID       string `json:"-"`
	Name     string `json:"name"`
	Short    string `json:"-"`
	Kind     string `json:"kind"`
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
}

// SearchOptions narrows a constant search.
type SearchOptions struct {
	Kind     string // exact kind: module, class, casgn or alias
	FilePath string // wildcard pattern over the defining file
	Limit    int
}

// SearchHit is one search result.
type SearchHit struct {
	ConstantDoc
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights,omitempty"`
}

// ConstantIndex is an in-memory full-text index over the definitions of a
// project.
type ConstantIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewConstantIndex indexes every declared definition of files.
func NewConstantIndex(ctx context.Context, files []*autogen.ParsedFile) (*ConstantIndex, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	if err := indexDocs(ctx, index, constantDocs(files)); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index constants: %w", err)
	}
	return &ConstantIndex{index: index}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	text := func() *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = "standard"
		m.Store = true
		return m
	}
	keyword := func() *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = "keyword"
		m.Store = true
		return m
	}

	line := bleve.NewNumericFieldMapping()
	line.Store = true
	line.Index = false

	nameMapping := text()
	nameMapping.IncludeTermVectors = true // highlighting

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("short", text())
	docMapping.AddFieldMappingsAt("kind", keyword())
	docMapping.AddFieldMappingsAt("file_path", keyword())
	docMapping.AddFieldMappingsAt("line", line)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// constantDocs lists the definitions that have a declaration site.
func constantDocs(files []*autogen.ParsedFile) []*ConstantDoc {
	var docs []*ConstantDoc
	for _, pf := range files {
		for _, def := range pf.Defs {
			if !def.DefiningRef.Exists() {
				continue
			}
			name := pf.FullName(def.ID)
			docs = append(docs, &ConstantDoc{
				ID:       fmt.Sprintf("%s#%d", pf.Path, def.ID),
				Name:     strings.Join(name, "::"),
				Short:    name[len(name)-1],
				Kind:     def.Kind.String(),
				FilePath: pf.Path,
				Line:     int(pf.Ref(def.DefiningRef).DefinitionLoc.BeginLine),
			})
		}
	}
	return docs
}

func indexDocs(ctx context.Context, index bleve.Index, docs []*ConstantDoc) error {
	const batchSize = 1000

	batch := index.NewBatch()
	for i, doc := range docs {
		if i%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := batch.Index(doc.ID, map[string]any{
			"name":      doc.Name,
			"short":     doc.Short,
			"kind":      doc.Kind,
			"file_path": doc.FilePath,
			"line":      doc.Line,
		}); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", doc.ID, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

// Search runs a bleve query-string query over constant names.
func (ci *ConstantIndex) Search(ctx context.Context, queryStr string, opts *SearchOptions) ([]*SearchHit, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 15
	}

	queries := []query.Query{bleve.NewQueryStringQuery(queryStr)}
	if opts.Kind != "" {
		q := bleve.NewTermQuery(opts.Kind)
		q.SetField("kind")
		queries = append(queries, q)
	}
	if opts.FilePath != "" {
		q := bleve.NewWildcardQuery(opts.FilePath)
		q.SetField("file_path")
		queries = append(queries, q)
	}
	var final query.Query = queries[0]
	if len(queries) > 1 {
		final = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(final, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.Fields = []string{"name"}
	req.Fields = []string{"name", "kind", "file_path", "line"}
	req.SortBy([]string{"-_score", "_id"})

	ci.mu.RLock()
	defer ci.mu.RUnlock()

	res, err := ci.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]*SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := &SearchHit{Score: h.Score}
		hit.ID = h.ID
		hit.Name, _ = h.Fields["name"].(string)
		hit.Kind, _ = h.Fields["kind"].(string)
		hit.FilePath, _ = h.Fields["file_path"].(string)
		if line, ok := h.Fields["line"].(float64); ok {
			hit.Line = int(line)
		}
		for _, fragments := range h.Fragments {
			hit.Highlights = append(hit.Highlights, fragments...)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed definitions.
func (ci *ConstantIndex) Count() (uint64, error) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.index.DocCount()
}

// Close releases the index.
func (ci *ConstantIndex) Close() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	if ci.index == nil {
		return nil
	}
	err := ci.index.Close()
	ci.index = nil
	return err
}
