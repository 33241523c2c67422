package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/rb-autogen/internal/autoloader"
)

// ErrUnsafeOutput is returned when an output directory would contain the
// project root or an analyzed source file.
var ErrUnsafeOutput = errors.New("output directory overlaps project sources")

// WriteAutoloads replaces outDir with the stub tree of the result.
func (p *Pipeline) WriteAutoloads(result *Result, outDir string) error {
	start := time.Now()
	outDir = p.abs(outDir)
	if err := p.checkOutputDir(outDir, result); err != nil {
		return err
	}
	if err := autoloader.WriteTree(result.Tree, p.cfg, outDir); err != nil {
		return err
	}
	log.Printf("[TIMING] Write autoloads: %v (%d stubs)", time.Since(start), result.Stats.TrieNodes)
	return nil
}

// WriteGraphs writes one `<path>.msgpack` record per analyzed file under
// outDir, mirroring the source layout.
func (p *Pipeline) WriteGraphs(result *Result, outDir string, version int) error {
	start := time.Now()
	outDir = p.abs(outDir)
	for _, pf := range result.Files {
		data, err := pf.ToMsgpack(version)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", pf.Path, err)
		}
		target := filepath.Join(outDir, filepath.FromSlash(pf.Path)+".msgpack")
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", target, err)
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
	}
	log.Printf("[TIMING] Write graphs: %v (%d records)", time.Since(start), len(result.Files))
	return nil
}

// checkOutputDir rejects an outDir that is the project root, one of its
// ancestors, or a directory holding an analyzed file.
func (p *Pipeline) checkOutputDir(outDir string, result *Result) error {
	if within(outDir, p.rootDir) {
		return fmt.Errorf("%w: %s contains the project root", ErrUnsafeOutput, outDir)
	}
	for _, pf := range result.Files {
		if within(outDir, p.abs(filepath.FromSlash(pf.Path))) {
			return fmt.Errorf("%w: %s contains %s", ErrUnsafeOutput, outDir, pf.Path)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (p *Pipeline) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.rootDir, path)
}
