package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	rootDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autogen",
	Short: "Autogen - constant graphs and autoloaders for Ruby projects",
	Long: `Autogen parses the Ruby sources of a project, resolves every constant
reference, and produces per-file constant graphs, a class list, file
dependencies, and a tree of generated autoloader files.

Configuration is read from .autogen/config.yml in the project directory,
with AUTOGEN_* environment variables taking precedence.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet && !verbose {
			log.SetOutput(io.Discard)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <dir>/.autogen/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "disable progress bars and non-error output")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "C", "", "project directory (default is the working directory)")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
}

// initConfig resolves the global flags, letting AUTOGEN_CONFIG and AUTOGEN_DIR
// stand in for --config and --dir.
func initConfig() {
	viper.SetEnvPrefix("AUTOGEN")
	viper.AutomaticEnv()

	cfgFile = viper.GetString("config")
	rootDir = viper.GetString("dir")
	verbose = viper.GetBool("verbose")
	quiet = viper.GetBool("quiet")

	if verbose && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
	}
}
