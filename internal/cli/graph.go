package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/pipeline"
	"github.com/mvp-joe/rb-autogen/internal/storage"
)

var (
	graphOutFlag     string
	graphDBFlag      string
	graphVersionFlag int
	graphKeepFlag    int
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Write the constant graph of every source file",
	Long: `Graph analyzes the project and writes each file's constant graph
(definitions, references and their resolutions).

Graphs are written as one <path>.msgpack record per source file under
graph.output_dir, and as one run in the SQLite database at graph.database.
Either output is skipped when its setting is empty.

Examples:
  # Write msgpack records to .autogen/graphs
  autogen graph --out .autogen/graphs

  # Store the run in SQLite, keeping the five newest runs
  autogen graph --db .autogen/graph.db --keep 5
`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVarP(&graphOutFlag, "out", "o", "", "directory for .msgpack records (overrides graph.output_dir)")
	graphCmd.Flags().StringVar(&graphDBFlag, "db", "", "SQLite database path (overrides graph.database)")
	graphCmd.Flags().IntVar(&graphVersionFlag, "msgpack-version", 0, "msgpack format version (overrides graph.msgpack_version)")
	graphCmd.Flags().IntVar(&graphKeepFlag, "keep", 0, "number of stored runs to keep, 0 keeps all")
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	proj, err := loadProject(NewCLIProgressReporter(quiet))
	if err != nil {
		return err
	}
	defer proj.Close()

	if graphOutFlag != "" {
		proj.cfg.Graph.OutputDir = graphOutFlag
	}
	if graphDBFlag != "" {
		proj.cfg.Graph.Database = graphDBFlag
	}
	if graphVersionFlag != 0 {
		proj.cfg.Graph.MsgpackVersion = graphVersionFlag
	}
	if proj.cfg.Graph.OutputDir == "" && proj.cfg.Graph.Database == "" {
		return fmt.Errorf("no graph output configured: set graph.output_dir, graph.database, --out or --db")
	}

	result, err := proj.analyze(ctx)
	if err != nil {
		return err
	}

	runID, err := writeGraphOutputs(proj, result, graphKeepFlag)
	if err != nil {
		return err
	}
	if !quiet {
		if proj.cfg.Graph.OutputDir != "" {
			fmt.Printf("✓ Wrote %d graph records to %s\n", len(result.Files), proj.cfg.Graph.OutputDir)
		}
		if runID != "" {
			fmt.Printf("✓ Stored run %s in %s\n", runID, proj.cfg.Graph.Database)
		}
	}
	return nil
}

// writeGraphOutputs writes the enabled graph outputs of result and returns
// the id of the stored run, if any.
func writeGraphOutputs(proj *project, result *pipeline.Result, keep int) (string, error) {
	if dir := proj.cfg.Graph.OutputDir; dir != "" {
		if err := proj.pipeline.WriteGraphs(result, dir, proj.cfg.Graph.MsgpackVersion); err != nil {
			return "", fmt.Errorf("failed to write graph records: %w", err)
		}
	}

	if proj.cfg.Graph.Database == "" {
		return "", nil
	}
	db, err := storage.Open(resolvePath(proj.rootDir, proj.cfg.Graph.Database), false)
	if err != nil {
		return "", err
	}
	defer db.Close()

	writer := storage.NewGraphWriter(db)
	runID, err := writer.WriteRun(proj.rootDir, result.Files)
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}
	if keep > 0 {
		pruned, err := writer.PruneRuns(keep)
		if err != nil {
			return "", fmt.Errorf("failed to prune runs: %w", err)
		}
		if pruned > 0 {
			log.Printf("Pruned %d old run(s)", pruned)
		}
	}
	return runID, nil
}
