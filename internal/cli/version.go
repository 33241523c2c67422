package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print version information including build details and supported record formats.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "autogen version %s\n", Version)
		fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Built: %s\n", BuildDate)
		fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  Msgpack versions: %d-%d\n", autogen.MinVersion, autogen.MaxVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
