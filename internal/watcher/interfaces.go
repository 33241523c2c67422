// Package watcher regenerates outputs when Ruby sources change.
package watcher

import "context"

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced, sorted relative paths.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// PathFilter decides which relative paths are watched.
// *discovery.FileDiscovery satisfies it.
type PathFilter interface {
	// Matches reports whether a file is a source to analyze.
	Matches(relPath string) bool

	// ShouldIgnore reports whether a file or directory is excluded.
	ShouldIgnore(relPath string) bool
}

// Regenerator rebuilds outputs after a batch of changes.
type Regenerator interface {
	// Regenerate reruns the analysis. changed lists the paths that triggered it.
	Regenerate(ctx context.Context, changed []string) error
}
