package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

var (
	classlistDBFlag  bool
	classlistRunFlag string
)

// classlistCmd represents the classlist command
var classlistCmd = &cobra.Command{
	Use:   "classlist",
	Short: "Print every class defined in the project",
	Long: `Classlist prints the qualified name of every class defined in the
project, one per line, sorted and deduplicated.

With --from-db the names are read from a run stored by 'autogen graph'
instead of analyzing the sources again.

Examples:
  autogen classlist
  autogen classlist --from-db
  autogen classlist --from-db --run 3f0c...
`,
	RunE: runClasslist,
}

func init() {
	rootCmd.AddCommand(classlistCmd)
	classlistCmd.Flags().BoolVar(&classlistDBFlag, "from-db", false, "read classes from the graph database")
	classlistCmd.Flags().StringVar(&classlistRunFlag, "run", "", "stored run id (default is the latest run)")
}

func runClasslist(cmd *cobra.Command, args []string) error {
	if classlistDBFlag {
		return classlistFromDB(cmd.OutOrStdout())
	}

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
	return writeClassList(cmd.OutOrStdout(), classList(result.Files))
}

func classlistFromDB(w io.Writer) error {
	db, reader, err := openGraphReader()
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := selectRun(reader, classlistRunFlag)
	if err != nil {
		return err
	}
	names, err := reader.ClassList(runID)
	if err != nil {
		return fmt.Errorf("failed to read class list: %w", err)
	}
	return writeClassList(w, names)
}

// classList merges the classes of every file, sorted and deduplicated.
func classList(files []*autogen.ParsedFile) []string {
	var names []string
	for _, pf := range files {
		names = append(names, pf.ClassList()...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func writeClassList(w io.Writer, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
