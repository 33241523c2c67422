package autoloader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by WriteTree when another process is writing the
// same output directory.
var ErrLocked = errors.New("output directory is locked by another process")

// ErrNotGenerated is returned by WriteTree when outDir exists but holds
// files that are not generated stubs.
var ErrNotGenerated = errors.New("output directory contains files not generated by autogen")

// WriteAutoloads writes the stub of this node into dir and recurses into
// children in sorted order. A node with children gets a subdirectory named
// after it; that directory must not exist yet.
func (t *DefTree) WriteAutoloads(cfg *Config, dir string) error {
	filename := t.Name + ".rb"
	if t.Root() {
		filename = "root.rb"
	}
	content, err := t.Autoloads(cfg)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Join(dir, filename), err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write stub: %w", err)
	}

	if len(t.Children) == 0 {
		return nil
	}
	subdir := dir
	if t.Name != "" {
		subdir = filepath.Join(dir, t.Name)
		if err := os.Mkdir(subdir, 0775); err != nil {
			return fmt.Errorf("%w %s: %w", ErrCreateDir, subdir, err)
		}
	}
	for _, name := range t.sortedChildren() {
		if err := t.Children[name].WriteAutoloads(cfg, subdir); err != nil {
			return err
		}
	}
	return nil
}

// WriteTree replaces outDir with the stubs of the trie rooted at t. An
// exclusive lock file next to outDir is held for the duration of the write.
// An existing outDir is only removed when every file in it is a generated
// stub; anything else fails with ErrNotGenerated and leaves it untouched.
func WriteTree(t *DefTree, cfg *Config, outDir string) error {
	outDir = filepath.Clean(outDir)
	if err := os.MkdirAll(filepath.Dir(outDir), 0775); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", outDir, err)
	}

	lock := flock.New(outDir + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer lock.Unlock()

	if err := checkGenerated(outDir); err != nil {
		return err
	}
	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", outDir, err)
	}
	if err := os.Mkdir(outDir, 0775); err != nil {
		return fmt.Errorf("%w %s: %w", ErrCreateDir, outDir, err)
	}
	return t.WriteAutoloads(cfg, outDir)
}

// checkGenerated verifies that dir is missing or holds only directories and
// `.rb` files starting with Preamble.
func checkGenerated(dir string) error {
	info, err := os.Lstat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNotGenerated, dir)
	}

	preamble := []byte(Preamble)
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() || filepath.Ext(path) != ".rb" {
			return fmt.Errorf("%w: %s", ErrNotGenerated, path)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !bytes.HasPrefix(content, preamble) {
			return fmt.Errorf("%w: %s", ErrNotGenerated, path)
		}
		return nil
	})
}
