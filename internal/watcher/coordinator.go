package watcher

import (
	"context"
	"log"
)

// WatchCoordinator routes debounced file changes to a Regenerator.
type WatchCoordinator struct {
	files FileWatcher
	regen Regenerator
	ctx   context.Context
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, regen Regenerator) *WatchCoordinator {
	return &WatchCoordinator{
		files: files,
		regen: regen,
	}
}

// Start begins routing changes to the regenerator.
// Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// handleFileChange regenerates once per batch. Watching is paused meanwhile
// so changes made during the run are folded into the next batch.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	c.files.Pause()
	defer c.files.Resume()

	log.Printf("Processing %d file change(s)...", len(files))
	if err := c.regen.Regenerate(c.ctx, files); err != nil {
		log.Printf("Error: regeneration failed: %v", err)
		return
	}
	log.Printf("✓ Regenerated after %d change(s)", len(files))
}
