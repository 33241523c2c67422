package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/storage"
)

var queryRunFlag string

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <Constant>",
	Short: "Show where a constant is defined and used",
	Long: `Query looks up a fully qualified constant in a run stored by
'autogen graph' and prints its definitions followed by every reference that
resolves to it.

Examples:
  autogen query Foo::Bar
  autogen query ::Foo::Bar --run 3f0c...
`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryRunFlag, "run", "", "stored run id (default is the latest run)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	name := strings.TrimPrefix(args[0], "::")

	db, reader, err := openGraphReader()
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := selectRun(reader, queryRunFlag)
	if err != nil {
		return err
	}
	defs, err := reader.FindDefinitions(runID, name)
	if err != nil {
		return err
	}
	refs, err := reader.ReferencesTo(runID, name)
	if err != nil {
		return err
	}
	return writeQuery(cmd.OutOrStdout(), name, defs, refs)
}

func writeQuery(w io.Writer, name string, defs []*storage.DefinitionRow, refs []*storage.ReferenceRow) error {
	if len(defs) == 0 && len(refs) == 0 {
		_, err := fmt.Fprintf(w, "%s: not found\n", name)
		return err
	}

	fmt.Fprintf(w, "Definitions of %s (%d):\n", name, len(defs))
	for _, d := range defs {
		var flags []string
		if d.DefinesBehavior {
			flags = append(flags, "behavior")
		}
		if d.IsEmpty {
			flags = append(flags, "empty")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}
		fmt.Fprintf(w, "  %s:%d-%d %s%s\n", d.FilePath, d.BeginLine, d.EndLine, d.Kind, suffix)
	}

	_, err := fmt.Fprintf(w, "References to %s (%d):\n", name, len(refs))
	for _, r := range refs {
		fmt.Fprintf(w, "  %s:%d %s\n", r.FilePath, r.Line, r.Name)
	}
	return err
}
