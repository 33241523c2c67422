package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/watcher"
)

var (
	autoloadOutFlag   string
	autoloadWatchFlag bool
)

// autoloadCmd represents the autoload command
var autoloadCmd = &cobra.Command{
	Use:   "autoload",
	Short: "Generate the autoloader file tree",
	Long: `Autoload analyzes the project and regenerates the autoloader directory:
one Ruby file per namespace that registers autoloads for its children and
requires what the defining file needs.

The output directory is removed and rewritten on every run. An existing
directory is only removed when it holds nothing but generated stubs, and it
may not contain the project root or any analyzed source file.

Examples:
  # Generate into autoloader.output_dir
  autogen autoload

  # Keep the tree up to date while editing
  autogen autoload --watch
`,
	RunE: runAutoload,
}

func init() {
	rootCmd.AddCommand(autoloadCmd)
	autoloadCmd.Flags().StringVarP(&autoloadOutFlag, "out", "o", "", "output directory (overrides autoloader.output_dir)")
	autoloadCmd.Flags().BoolVarP(&autoloadWatchFlag, "watch", "w", false, "watch for file changes and regenerate")
}

func runAutoload(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	root, err := projectRoot()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if autoloadOutFlag != "" {
		cfg.Autoloader.OutputDir = autoloadOutFlag
	}

	proj, err := openProject(root, cfg, NewCLIProgressReporter(quiet))
	if err != nil {
		return err
	}
	defer proj.Close()

	gen := &autoloadGenerator{proj: proj}
	if err := gen.Regenerate(ctx, nil); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("generation cancelled")
		}
		return err
	}
	if !quiet {
		fmt.Printf("✓ Wrote autoloader tree to %s\n", cfg.Autoloader.OutputDir)
	}
	if !autoloadWatchFlag {
		return nil
	}

	// Bars would interleave with watch output.
	proj.pipeline.SetProgress(nil)

	fw, err := watcher.NewFileWatcher(root, proj.discovery)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if !quiet {
		log.Println("Starting watch mode...")
	}
	if err := watcher.NewWatchCoordinator(fw, gen).Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch mode failed: %w", err)
	}
	if !quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}

// autoloadGenerator reruns the whole project through the pipeline. Its parse
// cache makes reruns only reparse changed files.
type autoloadGenerator struct {
	proj *project
}

func (g *autoloadGenerator) Regenerate(ctx context.Context, changed []string) error {
	result, err := g.proj.analyze(ctx)
	if err != nil {
		return err
	}
	if err := g.proj.pipeline.WriteAutoloads(result, g.proj.cfg.Autoloader.OutputDir); err != nil {
		return fmt.Errorf("failed to write autoloader tree: %w", err)
	}
	if g.proj.cfg.Graph.OutputDir != "" || g.proj.cfg.Graph.Database != "" {
		if _, err := writeGraphOutputs(g.proj, result, 0); err != nil {
			return err
		}
	}
	return nil
}
