package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/rb-autogen/internal/mcp"
	"github.com/mvp-joe/rb-autogen/internal/watcher"
)

var mcpWatchFlag bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the constant graph to MCP clients over stdio",
	Long: `MCP analyzes the project and starts a Model Context Protocol server on
stdio. It provides three tools:

  autogen_search        search constant definitions by name
  autogen_constant      definitions and references of a qualified constant
  autogen_dependencies  file dependencies, dependents, cycles and load order

With --watch the analysis is refreshed whenever a source file changes.
Logs go to stderr so they never mix with the protocol stream.
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVarP(&mcpWatchFlag, "watch", "w", false, "refresh the analysis when files change")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	proj, err := loadProject(nil)
	if err != nil {
		return err
	}
	defer proj.Close()

	result, err := proj.analyze(ctx)
	if err != nil {
		return err
	}
	snap, err := mcp.NewSnapshot(ctx, result.Files)
	if err != nil {
		return fmt.Errorf("failed to index project: %w", err)
	}
	srv := mcp.NewServer(snap, Version)
	defer srv.Close()

	if mcpWatchFlag {
		fw, err := watcher.NewFileWatcher(proj.rootDir, proj.discovery)
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		coordinator := watcher.NewWatchCoordinator(fw, &snapshotRefresher{proj: proj, srv: srv})
		go func() {
			if err := coordinator.Start(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Warning: watch mode stopped: %v", err)
			}
		}()
	}

	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// snapshotRefresher reanalyzes the project and swaps the served snapshot.
type snapshotRefresher struct {
	proj *project
	srv  *mcp.Server
}

func (r *snapshotRefresher) Regenerate(ctx context.Context, changed []string) error {
	result, err := r.proj.analyze(ctx)
	if err != nil {
		return err
	}
	snap, err := mcp.NewSnapshot(ctx, result.Files)
	if err != nil {
		return err
	}
	r.srv.Replace(snap)
	return nil
}
