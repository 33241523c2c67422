package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for WatchCoordinator:
// - File change event triggers Regenerate with the changed paths
// - Watching is paused during regeneration and resumed afterwards
// - Empty change lists are ignored
// - Regeneration errors are logged and watching continues
// - File watcher Start() errors are propagated
// - Context cancellation stops the file watcher

// mockFileWatcher implements FileWatcher for testing.
type mockFileWatcher struct {
	mu          sync.Mutex
	startErr    error
	stopErr     error
	callback    func(files []string)
	started     chan struct{}
	pauseCount  int
	resumeCount int
	stopCalled  bool
}

func newMockFileWatcher() *mockFileWatcher {
	return &mockFileWatcher{started: make(chan struct{})}
}

func (m *mockFileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.callback = callback
	close(m.started)
	return nil
}

func (m *mockFileWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
	return m.stopErr
}

func (m *mockFileWatcher) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCount++
}

func (m *mockFileWatcher) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCount++
}

func (m *mockFileWatcher) trigger(files []string) {
	m.mu.Lock()
	callback := m.callback
	m.mu.Unlock()
	callback(files)
}

// mockRegenerator implements Regenerator for testing.
type mockRegenerator struct {
	mu     sync.Mutex
	err    error
	calls  [][]string
	onCall func()
}

func (m *mockRegenerator) Regenerate(ctx context.Context, changed []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, changed)
	if m.onCall != nil {
		m.onCall()
	}
	return m.err
}

func startCoordinator(t *testing.T, files *mockFileWatcher, regen *mockRegenerator) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewWatchCoordinator(files, regen).Start(ctx)
	}()
	select {
	case <-files.started:
	case <-time.After(2 * time.Second):
		t.Fatal("file watcher not started")
	}
	return cancel, done
}

func TestWatchCoordinator_FileChangeTriggersRegenerate(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	regen := &mockRegenerator{}
	regen.onCall = func() {
		files.mu.Lock()
		defer files.mu.Unlock()
		assert.Equal(t, 1, files.pauseCount, "paused during regeneration")
		assert.Equal(t, 0, files.resumeCount)
	}
	cancel, done := startCoordinator(t, files, regen)
	defer cancel()

	files.trigger([]string{"lib/a.rb", "lib/b.rb"})

	regen.mu.Lock()
	assert.Equal(t, [][]string{{"lib/a.rb", "lib/b.rb"}}, regen.calls)
	regen.mu.Unlock()
	files.mu.Lock()
	assert.Equal(t, 1, files.resumeCount)
	files.mu.Unlock()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchCoordinator_EmptyFileChangeList(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	regen := &mockRegenerator{}
	cancel, _ := startCoordinator(t, files, regen)
	defer cancel()

	files.trigger(nil)

	regen.mu.Lock()
	defer regen.mu.Unlock()
	assert.Empty(t, regen.calls)
}

func TestWatchCoordinator_RegenerateErrorDoesNotStop(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	regen := &mockRegenerator{err: errors.New("boom")}
	cancel, done := startCoordinator(t, files, regen)
	defer cancel()

	files.trigger([]string{"a.rb"})
	files.trigger([]string{"b.rb"})

	regen.mu.Lock()
	assert.Len(t, regen.calls, 2)
	regen.mu.Unlock()
	files.mu.Lock()
	assert.Equal(t, 2, files.resumeCount)
	files.mu.Unlock()

	select {
	case err := <-done:
		t.Fatalf("coordinator stopped early: %v", err)
	default:
	}
}

func TestWatchCoordinator_FileWatcherStartError(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	files.startErr = errors.New("cannot watch")

	err := NewWatchCoordinator(files, &mockRegenerator{}).Start(context.Background())
	assert.EqualError(t, err, "cannot watch")
	assert.True(t, files.stopCalled)
}

func TestWatchCoordinator_ContextCancellation(t *testing.T) {
	t.Parallel()

	files := newMockFileWatcher()
	files.stopErr = errors.New("stop failed")
	cancel, done := startCoordinator(t, files, &mockRegenerator{})

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
	}

	files.mu.Lock()
	defer files.mu.Unlock()
	require.True(t, files.stopCalled)
}
