package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileDiscovery:
// - Include patterns match files at the root and in subdirectories
// - Ignore patterns skip whole directories and single files
// - The .autogen directory is always skipped
// - Results are relative, slash separated and sorted
// - Invalid glob patterns are rejected at construction

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("# ruby\n"), 0644))
	}
}

func TestDiscoverFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root,
		"boot.rb",
		"lib/foo.rb",
		"lib/foo/bar.rb",
		"lib/foo/bar.rbi",
		"lib/README.md",
		"vendor/gem/lib/gem.rb",
		"lib/generated_test.rb",
		".autogen/hook.rb",
	)

	fd, err := NewFileDiscovery(root, []string{"**/*.rb"}, []string{"vendor/**", "**/*_test.rb"})
	require.NoError(t, err)

	files, err := fd.DiscoverFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"boot.rb", "lib/foo.rb", "lib/foo/bar.rb"}, files)
}

func TestMatches(t *testing.T) {
	t.Parallel()

	fd, err := NewFileDiscovery("/", []string{"lib/**/*.rb", "*.rb"}, []string{"tmp/**"})
	require.NoError(t, err)

	assert.True(t, fd.Matches("lib/a/b.rb"))
	assert.True(t, fd.Matches("boot.rb"))
	assert.False(t, fd.Matches("app/a.rb"))
	assert.False(t, fd.Matches("tmp/a.rb"))
	assert.False(t, fd.Matches(".autogen/a.rb"))
	assert.True(t, fd.ShouldIgnore("tmp"))
}

func TestNewFileDiscovery_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFileDiscovery(t.TempDir(), []string{"[unclosed"}, nil)
	assert.Error(t, err)
}
