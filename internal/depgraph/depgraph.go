// Package depgraph derives file-to-file dependencies from per-file graphs.
//
// A file depends on another when it references a constant that the other
// file defines with behavior. Namespaces that are merely reopened do not
// create dependencies.
package depgraph

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// Edge says From depends on To because of the listed constants.
type Edge struct {
	From      string
	To        string
	Constants []string
}

// Result is a file reached by a traversal.
type Result struct {
	File  string
	Depth int
}

// Graph is a directed file dependency graph.
type Graph struct {
	g            graph.Graph[string, string]
	files        []string
	edges        []Edge
	dependencies map[string][]string // file -> files it depends on
	dependents   map[string][]string // file -> files depending on it
}

// Build creates the dependency graph of files.
func Build(files []*autogen.ParsedFile) (*Graph, error) {
	providers := providers(files)

	g := &Graph{
		g:            graph.New(graph.StringHash, graph.Directed()),
		dependencies: make(map[string][]string),
		dependents:   make(map[string][]string),
	}
	for _, pf := range files {
		if err := g.g.AddVertex(pf.Path); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add file %s: %w", pf.Path, err)
		}
		g.files = append(g.files, pf.Path)
	}
	slices.Sort(g.files)
	g.files = slices.Compact(g.files)

	for _, pf := range files {
		for _, dep := range dependenciesOf(pf, providers) {
			err := g.g.AddEdge(dep.From, dep.To,
				graph.EdgeWeight(len(dep.Constants)),
				graph.EdgeAttribute("label", strings.Join(dep.Constants, ",")),
				graph.EdgeData(dep.Constants),
			)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to add dependency %s -> %s: %w", dep.From, dep.To, err)
			}
			g.edges = append(g.edges, dep)
			g.dependencies[dep.From] = append(g.dependencies[dep.From], dep.To)
			g.dependents[dep.To] = append(g.dependents[dep.To], dep.From)
		}
	}

	slices.SortFunc(g.edges, func(a, b Edge) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	for _, m := range []map[string][]string{g.dependencies, g.dependents} {
		for k := range m {
			slices.Sort(m[k])
		}
	}
	return g, nil
}

// providers maps each qualified name to the files defining it with behavior.
func providers(files []*autogen.ParsedFile) map[string][]string {
	out := make(map[string][]string)
	for _, pf := range files {
		for _, def := range pf.Defs {
			if !def.DefiningRef.Exists() || !def.DefinesBehavior {
				continue
			}
			name := strings.Join(pf.FullName(def.ID), "::")
			if !slices.Contains(out[name], pf.Path) {
				out[name] = append(out[name], pf.Path)
			}
		}
	}
	return out
}

// dependenciesOf returns one edge per file pf references, sorted by target.
func dependenciesOf(pf *autogen.ParsedFile, providers map[string][]string) []Edge {
	constants := make(map[string][]string)
	for _, ref := range pf.Refs {
		if ref.IsDefiningRef || len(ref.Resolved) == 0 {
			continue
		}
		name := strings.Join(ref.Resolved, "::")
		for _, file := range providers[name] {
			if file == pf.Path || slices.Contains(constants[file], name) {
				continue
			}
			constants[file] = append(constants[file], name)
		}
	}

	out := make([]Edge, 0, len(constants))
	for file, names := range constants {
		slices.Sort(names)
		out = append(out, Edge{From: pf.Path, To: file, Constants: names})
	}
	slices.SortFunc(out, func(a, b Edge) int { return strings.Compare(a.To, b.To) })
	return out
}

// Files returns every file in the graph, sorted.
func (g *Graph) Files() []string {
	return g.files
}

// Edges returns every dependency, sorted by source then target.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Dependencies returns the files file depends on, up to depth hops away.
func (g *Graph) Dependencies(file string, depth int) []Result {
	return traverse(g.dependencies, file, depth)
}

// Dependents returns the files depending on file, up to depth hops away.
func (g *Graph) Dependents(file string, depth int) []Result {
	return traverse(g.dependents, file, depth)
}

// traverse walks index breadth first, reporting each file at its shallowest
// depth.
func traverse(index map[string][]string, start string, depth int) []Result {
	if depth <= 0 {
		depth = 1
	}
	visited := map[string]bool{start: true}
	var results []Result
	frontier := []string{start}
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, id := range frontier {
			for _, dep := range index[id] {
				if visited[dep] {
					continue
				}
				visited[dep] = true
				results = append(results, Result{File: dep, Depth: d})
				next = append(next, dep)
			}
		}
		frontier = next
	}
	return results
}

// Cycles returns every group of files that depend on each other, each group
// sorted and the groups ordered by their first file.
func (g *Graph) Cycles() ([][]string, error) {
	sccs, err := graph.StronglyConnectedComponents(g.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute strongly connected components: %w", err)
	}
	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		slices.Sort(scc)
		cycles = append(cycles, scc)
	}
	slices.SortFunc(cycles, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	return cycles, nil
}

// LoadOrder groups files so that every group only depends on earlier groups
// or on itself. Files in a cycle share a group; ties are broken by name.
func (g *Graph) LoadOrder() ([][]string, error) {
	sccs, err := graph.StronglyConnectedComponents(g.g)
	if err != nil {
		return nil, fmt.Errorf("failed to compute strongly connected components: %w", err)
	}

	component := make(map[string]string, len(g.files))
	members := make(map[string][]string, len(sccs))
	for _, scc := range sccs {
		slices.Sort(scc)
		for _, file := range scc {
			component[file] = scc[0]
		}
		members[scc[0]] = scc
	}

	// Edges of the condensation run from dependency to dependent, so a
	// topological order loads dependencies first.
	dag := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic())
	for id := range members {
		if err := dag.AddVertex(id); err != nil {
			return nil, fmt.Errorf("failed to add component %s: %w", id, err)
		}
	}
	for _, e := range g.edges {
		from, to := component[e.To], component[e.From]
		if from == to {
			continue
		}
		if err := dag.AddEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add component edge %s -> %s: %w", from, to, err)
		}
	}

	order, err := graph.StableTopologicalSort(dag, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("failed to sort components: %w", err)
	}
	groups := make([][]string, 0, len(order))
	for _, id := range order {
		groups = append(groups, members[id])
	}
	return groups, nil
}

// WriteDOT renders the graph in Graphviz DOT format.
func (g *Graph) WriteDOT(w io.Writer) error {
	return draw.DOT(g.g, w)
}
