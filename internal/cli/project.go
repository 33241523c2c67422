package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/mvp-joe/rb-autogen/internal/autoloader"
	"github.com/mvp-joe/rb-autogen/internal/config"
	"github.com/mvp-joe/rb-autogen/internal/discovery"
	"github.com/mvp-joe/rb-autogen/internal/pipeline"
)

// project bundles what every command needs to analyze one directory.
type project struct {
	rootDir    string
	cfg        *config.Config
	autoloader *autoloader.Config
	discovery  *discovery.FileDiscovery
	pipeline   *pipeline.Pipeline
}

// projectRoot returns --dir as an absolute path, or the working directory.
func projectRoot() (string, error) {
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", rootDir, err)
	}
	return abs, nil
}

// loadConfig loads the project configuration, honoring --config.
func loadConfig(root string) (*config.Config, error) {
	var loader config.Loader
	if cfgFile != "" {
		loader = config.NewFileLoader(root, cfgFile)
	} else {
		loader = config.NewLoader(root)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// openProject loads configuration for root and prepares a pipeline.
func openProject(root string, cfg *config.Config, progress pipeline.ProgressReporter) (*project, error) {
	ac, err := cfg.ToAutoloaderConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid autoloader configuration: %w", err)
	}

	fd, err := discovery.NewFileDiscovery(root, cfg.Paths.Include, ignorePatterns(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	p, err := pipeline.New(root, ac, cfg.CacheSize,
		pipeline.WithProgress(progress),
		pipeline.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &project{
		rootDir:    root,
		cfg:        cfg,
		autoloader: ac,
		discovery:  fd,
		pipeline:   p,
	}, nil
}

// ignorePatterns extends the configured ignores with the output directories
// living inside the project, so generated files are never analyzed.
func ignorePatterns(cfg *config.Config) []string {
	patterns := append([]string{}, cfg.Paths.Ignore...)
	for _, dir := range []string{cfg.Autoloader.OutputDir, cfg.Graph.OutputDir} {
		if dir == "" || filepath.IsAbs(dir) {
			continue
		}
		patterns = append(patterns, path.Join(filepath.ToSlash(filepath.Clean(dir)), "**"))
	}
	return patterns
}

// analyze discovers the project's sources and runs the pipeline over them.
func (p *project) analyze(ctx context.Context) (*pipeline.Result, error) {
	files, err := p.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no source files found under %s", p.rootDir)
	}
	return p.pipeline.Run(ctx, files)
}

func (p *project) Close() {
	p.pipeline.Close()
}

// loadProject resolves the project directory and configuration from the
// global flags.
func loadProject(progress pipeline.ProgressReporter) (*project, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	return openProject(root, cfg, progress)
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// resolvePath makes a configured path absolute relative to root.
func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
