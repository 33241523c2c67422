// Package pipeline runs the whole analysis over a project: parse, build the
// symbol table, resolve and walk every file, and fold the results into one
// pruned namespace trie.
package pipeline

import (
	"context"
	"fmt"
	"hash/crc32"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maypok86/otter"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/rb-autogen/internal/ast"
	"github.com/mvp-joe/rb-autogen/internal/autogen"
	"github.com/mvp-joe/rb-autogen/internal/autoloader"
	"github.com/mvp-joe/rb-autogen/internal/parser"
	"github.com/mvp-joe/rb-autogen/internal/resolver"
)

// Result is the output of one run.
type Result struct {
	// Files holds every successfully analyzed file, sorted by path.
	Files []*autogen.ParsedFile
	// Tree is the pruned project trie.
	Tree  *autoloader.DefTree
	Stats Stats
}

// cachedFile is a parsed AST keyed by the checksum of the source it came from.
type cachedFile struct {
	checksum uint32
	file     *ast.File
}

// Pipeline analyzes a project rooted at a directory.
type Pipeline struct {
	rootDir  string
	cfg      *autoloader.Config
	parser   *parser.Parser
	cache    otter.Cache[string, cachedFile]
	progress ProgressReporter
	workers  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress configures progress reporting. nil keeps the no-op reporter.
func WithProgress(progress ProgressReporter) Option {
	return func(p *Pipeline) {
		if progress != nil {
			p.progress = progress
		}
	}
}

// WithWorkers bounds the number of files processed concurrently. Zero or
// less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// New creates a pipeline. cacheSize bounds the number of parsed files kept
// between runs.
func New(rootDir string, cfg *autoloader.Config, cacheSize int, opts ...Option) (*Pipeline, error) {
	cache, err := otter.MustBuilder[string, cachedFile](max(cacheSize, 1)).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}

	p := &Pipeline{
		rootDir:  rootDir,
		cfg:      cfg,
		parser:   parser.New(),
		cache:    cache,
		progress: &NoOpProgressReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers <= 0 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	return p, nil
}

// SetProgress replaces the progress reporter for later runs; nil disables
// reporting.
func (p *Pipeline) SetProgress(progress ProgressReporter) {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	p.progress = progress
}

// Close releases the parse cache.
func (p *Pipeline) Close() {
	p.cache.Close()
}

// Run analyzes files, given as paths relative to the root directory.
// Unreadable and unparsable files are skipped with a warning; an internal
// invariant violation aborts the run.
func (p *Pipeline) Run(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	stats := Stats{}

	parseStart := time.Now()
	parsed, hits, err := p.parseAll(ctx, files)
	if err != nil {
		return nil, err
	}
	stats.CacheHits = hits
	stats.Skipped = len(files) - len(parsed)
	log.Printf("[TIMING] Parse: %v (%d files, %d cached)", time.Since(parseStart), len(parsed), hits)

	tableStart := time.Now()
	table := resolver.NewTable()
	for _, f := range parsed {
		table.Add(f)
	}
	stats.Symbols = table.Len()
	log.Printf("[TIMING] Symbol table: %v (%d symbols)", time.Since(tableStart), stats.Symbols)

	walkStart := time.Now()
	graphs, tree, err := p.walkAll(ctx, table, parsed)
	if err != nil {
		return nil, err
	}
	log.Printf("[TIMING] Resolve and walk: %v", time.Since(walkStart))

	pruneStart := time.Now()
	tree.SortDefinitions()
	tree.Prune(p.cfg)
	log.Printf("[TIMING] Prune: %v", time.Since(pruneStart))

	for _, pf := range graphs {
		stats.Definitions += len(pf.Defs)
		stats.References += len(pf.Refs)
	}
	stats.Files = len(graphs)
	stats.TrieNodes = tree.Count()
	stats.Duration = time.Since(start)
	p.progress.OnComplete(&stats)

	return &Result{Files: graphs, Tree: tree, Stats: stats}, nil
}

// parseAll parses every file, reusing cached ASTs whose source is unchanged.
// The returned slice keeps the order of files minus skipped ones.
func (p *Pipeline) parseAll(ctx context.Context, files []string) ([]*ast.File, int, error) {
	p.progress.OnParseStart(len(files))

	results := make([]*ast.File, len(files))
	var hits atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, rel := range files {
		g.Go(func() error {
			defer p.progress.OnFileParsed(rel)
			if err := gctx.Err(); err != nil {
				return err
			}

			file, hit, err := p.parse(gctx, rel)
			if err != nil {
				log.Printf("Warning: skipping %s: %v\n", rel, err)
				return nil
			}
			if hit {
				hits.Add(1)
			}
			results[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	out := make([]*ast.File, 0, len(results))
	for _, f := range results {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, int(hits.Load()), nil
}

func (p *Pipeline) parse(ctx context.Context, rel string) (*ast.File, bool, error) {
	source, err := os.ReadFile(filepath.Join(p.rootDir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read file: %w", err)
	}
	checksum := crc32.ChecksumIEEE(source)
	if cached, ok := p.cache.Get(rel); ok && cached.checksum == checksum {
		return cached.file, true, nil
	}

	file, err := p.parser.Parse(ctx, rel, source)
	if err != nil {
		return nil, false, err
	}
	p.cache.Set(rel, cachedFile{checksum: checksum, file: file})
	return file, false, nil
}

// walkAll resolves and walks files across workers. Each worker folds its
// files into a private trie that is merged into the project trie when the
// worker finishes.
func (p *Pipeline) walkAll(ctx context.Context, table *resolver.Table, files []*ast.File) ([]*autogen.ParsedFile, *autoloader.DefTree, error) {
	p.progress.OnWalkStart(len(files))

	graphs := make([]*autogen.ParsedFile, len(files))
	project := autoloader.New()
	var mu sync.Mutex

	workers := min(p.workers, max(len(files), 1))
	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			local := autoloader.New()
			for i := w; i < len(files); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				f := files[i]
				resolver.Resolve(table, f)
				pf, err := autogen.Generate(f)
				if err != nil {
					return fmt.Errorf("failed to analyze %s: %w", f.Path, err)
				}
				graphs[i] = pf
				local.AddFile(p.cfg, pf)
				p.progress.OnFileWalked(f.Path)
			}

			mu.Lock()
			defer mu.Unlock()
			return project.Merge(local)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.Slice(graphs, func(i, j int) bool { return graphs[i].Path < graphs[j].Path })
	return graphs, project, nil
}
