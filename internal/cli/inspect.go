package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

var inspectHeaderFlag bool

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file.msgpack>",
	Short: "Decode and print a graph record",
	Long: `Inspect decodes a .msgpack record written by 'autogen graph' and prints
its definitions and references in readable form.

Examples:
  autogen inspect .autogen/graphs/lib/foo.rb.msgpack
  autogen inspect --header .autogen/graphs/lib/foo.rb.msgpack
`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectHeaderFlag, "header", false, "print only the record header")
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open record: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if inspectHeaderFlag {
		h, err := autogen.ReadHeader(r)
		if err != nil {
			return err
		}
		writeHeader(cmd.OutOrStdout(), h)
		return nil
	}

	rec, err := autogen.Decode(r)
	if err != nil {
		return err
	}
	writeRecord(cmd.OutOrStdout(), rec)
	return nil
}

func writeHeader(w io.Writer, h *autogen.Header) {
	fmt.Fprintf(w, "symbols:     %d\n", len(h.Symbols))
	fmt.Fprintf(w, "definitions: %d\n", h.DefCount)
	fmt.Fprintf(w, "references:  %d\n", h.RefCount)
	fmt.Fprintf(w, "def_attrs:   %s\n", strings.Join(h.DefAttrs, ", "))
	fmt.Fprintf(w, "ref_attrs:   %s\n", strings.Join(h.RefAttrs, ", "))
}

func writeRecord(w io.Writer, rec *autogen.Record) {
	fmt.Fprintf(w, "%s (checksum %08x)\n", rec.Path, rec.Checksum)
	if len(rec.Requires) > 0 {
		fmt.Fprintf(w, "requires: %s\n", strings.Join(rec.Requires, ", "))
	}

	fmt.Fprintf(w, "definitions (%d):\n", len(rec.Defs))
	for i, d := range rec.Defs {
		fmt.Fprintf(w, "  [%d] %s %s behavior=%t empty=%t defining_ref=%s\n",
			i, d.Kind, qualified(d.FullName), d.DefinesBehavior, d.IsEmpty, optionalID(int32(d.DefiningRef)))
	}

	fmt.Fprintf(w, "references (%d):\n", len(rec.Refs))
	for i, r := range rec.Refs {
		resolved := "-"
		if r.Resolved != nil {
			resolved = qualified(r.Resolved)
		}
		begin, end := unpackRange(r.PositionRange)
		fmt.Fprintf(w, "  [%d] %s -> %s scope=%s at %d..%d defining=%t\n",
			i, qualified(r.Name), resolved, optionalID(int32(r.Scope)), begin, end, r.IsDefiningRef)
	}
}

func qualified(name []string) string {
	if len(name) == 0 {
		return "<root>"
	}
	return strings.Join(name, "::")
}

func optionalID(id int32) string {
	if id < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", id)
}

// unpackRange splits a range packed as begin<<32 | end.
func unpackRange(packed uint64) (uint32, uint32) {
	return uint32(packed >> 32), uint32(packed)
}
