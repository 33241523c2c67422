package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/depgraph"
)

var (
	depsDepthFlag   int
	depsReverseFlag bool
	depsCyclesFlag  bool
	depsOrderFlag   bool
	depsDOTFlag     bool
)

// depsCmd represents the deps command
var depsCmd = &cobra.Command{
	Use:   "deps [file]",
	Short: "Show file dependencies derived from constant references",
	Long: `Deps analyzes the project and reports which files depend on which.
A file depends on another when it references a constant the other file
defines with behavior; reopening a namespace does not create a dependency.

Without arguments every dependency edge is printed.

Examples:
  # What lib/foo.rb needs, two levels deep
  autogen deps lib/foo.rb --depth 2

  # Who needs lib/foo.rb
  autogen deps lib/foo.rb --reverse

  # Files that depend on each other
  autogen deps --cycles

  # Groups of files in a valid load order
  autogen deps --order

  # Graphviz output
  autogen deps --dot | dot -Tsvg > deps.svg
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.Flags().IntVarP(&depsDepthFlag, "depth", "d", 1, "traversal depth for a file")
	depsCmd.Flags().BoolVarP(&depsReverseFlag, "reverse", "r", false, "show dependents instead of dependencies")
	depsCmd.Flags().BoolVar(&depsCyclesFlag, "cycles", false, "report mutually dependent files")
	depsCmd.Flags().BoolVar(&depsOrderFlag, "order", false, "print files grouped in load order")
	depsCmd.Flags().BoolVar(&depsDOTFlag, "dot", false, "write the graph in Graphviz DOT format")
	depsCmd.MarkFlagsMutuallyExclusive("cycles", "order", "dot")
}

// depsOptions selects one report of writeDeps.
type depsOptions struct {
	file    string
	depth   int
	reverse bool
	cycles  bool
	order   bool
	dot     bool
}

func runDeps(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	proj, err := loadProject(NewCLIProgressReporter(true))
	if err != nil {
		return err
	}
	defer proj.Close()

	result, err := proj.analyze(ctx)
	if err != nil {
		return err
	}
	g, err := depgraph.Build(result.Files)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}

	opts := depsOptions{
		depth:   depsDepthFlag,
		reverse: depsReverseFlag,
		cycles:  depsCyclesFlag,
		order:   depsOrderFlag,
		dot:     depsDOTFlag,
	}
	if len(args) == 1 {
		opts.file = filepath.ToSlash(filepath.Clean(args[0]))
	}
	return writeDeps(cmd.OutOrStdout(), g, opts)
}

func writeDeps(w io.Writer, g *depgraph.Graph, opts depsOptions) error {
	switch {
	case opts.dot:
		return g.WriteDOT(w)

	case opts.cycles:
		cycles, err := g.Cycles()
		if err != nil {
			return err
		}
		if len(cycles) == 0 {
			fmt.Fprintln(w, "No cycles")
			return nil
		}
		for i, cycle := range cycles {
			fmt.Fprintf(w, "Cycle %d: %s\n", i+1, strings.Join(cycle, ", "))
		}
		return nil

	case opts.order:
		groups, err := g.LoadOrder()
		if err != nil {
			return err
		}
		for i, group := range groups {
			fmt.Fprintf(w, "%d: %s\n", i+1, strings.Join(group, " "))
		}
		return nil

	case opts.file != "":
		if !slices.Contains(g.Files(), opts.file) {
			return fmt.Errorf("file %s is not part of the project", opts.file)
		}
		var results []depgraph.Result
		if opts.reverse {
			results = g.Dependents(opts.file, opts.depth)
		} else {
			results = g.Dependencies(opts.file, opts.depth)
		}
		for _, r := range results {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", r.Depth-1), r.File)
		}
		return nil

	default:
		for _, e := range g.Edges() {
			fmt.Fprintf(w, "%s -> %s (%s)\n", e.From, e.To, strings.Join(e.Constants, ", "))
		}
		return nil
	}
}
