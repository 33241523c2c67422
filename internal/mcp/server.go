// Package mcp serves the constant graph of a project to MCP clients over
// stdio: constant search, definition and reference lookup, and file
// dependency queries.
package mcp

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/server"
)

// Server owns the MCP server and the snapshot its tools read. The snapshot
// can be replaced while serving.
type Server struct {
	mu   sync.RWMutex
	snap *Snapshot
	mcp  *server.MCPServer
}

// NewServer creates a server answering from snap.
func NewServer(snap *Snapshot, version string) *Server {
	s := &Server{snap: snap}
	s.mcp = server.NewMCPServer(
		"autogen-mcp",
		version,
		server.WithToolCapabilities(true),
	)
	AddSearchTool(s.mcp, s)
	AddConstantTool(s.mcp, s)
	AddDependencyTool(s.mcp, s)
	return s
}

// WithSnapshot calls fn with the current snapshot. Replace waits for fn to
// return before releasing the snapshot.
func (s *Server) WithSnapshot(fn func(*Snapshot) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return fmt.Errorf("no analysis available")
	}
	return fn(s.snap)
}

// Replace swaps in snap and closes the previous snapshot.
func (s *Server) Replace(snap *Snapshot) {
	s.mu.Lock()
	old := s.snap
	s.snap = snap
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("Warning: failed to close previous snapshot: %v", err)
		}
	}
}

// Serve answers requests on stdio until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the current snapshot.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil
	}
	err := s.snap.Close()
	s.snap = nil
	return err
}
