package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/storage"
)

var (
	runsDeleteFlag string
	runsPruneFlag  int
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List or remove runs stored in the graph database",
	Long: `Runs lists the runs stored by 'autogen graph' in graph.database, newest
first.

Examples:
  autogen runs
  autogen runs --delete 3f0c...
  autogen runs --prune 3
`,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsDeleteFlag, "delete", "", "delete the run with this id")
	runsCmd.Flags().IntVar(&runsPruneFlag, "prune", 0, "keep only this many newest runs")
}

func runRuns(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if runsDeleteFlag != "" || runsPruneFlag > 0 {
		db, err := openGraphDB(false)
		if err != nil {
			return err
		}
		defer db.Close()

		writer := storage.NewGraphWriter(db)
		if runsDeleteFlag != "" {
			if err := writer.DeleteRun(runsDeleteFlag); err != nil {
				return fmt.Errorf("failed to delete run %s: %w", runsDeleteFlag, err)
			}
			fmt.Fprintf(out, "✓ Deleted run %s\n", runsDeleteFlag)
		}
		if runsPruneFlag > 0 {
			n, err := writer.PruneRuns(runsPruneFlag)
			if err != nil {
				return fmt.Errorf("failed to prune runs: %w", err)
			}
			fmt.Fprintf(out, "✓ Pruned %d run(s)\n", n)
		}
		return nil
	}

	db, reader, err := openGraphReader()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := reader.Runs()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return writeRuns(out, runs)
}

func writeRuns(w io.Writer, runs []*storage.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs stored")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tFILES\tDEFINITIONS\tREFERENCES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			formatNumber(r.FileCount),
			formatNumber(r.DefinitionCount),
			formatNumber(r.ReferenceCount),
		)
	}
	return tw.Flush()
}

// openGraphDB opens the configured graph database.
func openGraphDB(readOnly bool) (*sql.DB, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if cfg.Graph.Database == "" {
		return nil, fmt.Errorf("no graph database configured: set graph.database")
	}
	db, err := storage.Open(resolvePath(root, cfg.Graph.Database), readOnly)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("graph database %s does not exist, run 'autogen graph' first", cfg.Graph.Database)
	}
	return db, err
}

func openGraphReader() (*sql.DB, *storage.GraphReader, error) {
	db, err := openGraphDB(true)
	if err != nil {
		return nil, nil, err
	}
	return db, storage.NewGraphReader(db), nil
}

// selectRun returns runID, or the latest run's id when empty.
func selectRun(reader *storage.GraphReader, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	run, err := reader.LatestRun()
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("no runs stored, run 'autogen graph' first")
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest run: %w", err)
	}
	return run.ID, nil
}
