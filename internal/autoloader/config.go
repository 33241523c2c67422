// Package autoloader assembles named definitions from many files into a
// namespace trie and writes one lazy-load stub file per retained node.
package autoloader

import (
	"regexp"
	"slices"
	"strings"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// DefaultRegistryModule is the module whose methods the generated stubs call.
const DefaultRegistryModule = "Opus::Require"

// Config is the policy consulted by the trie builder. It is never mutated
// once built.
type Config struct {
	// TopLevelNamespaces is the allow-list of first name components.
	TopLevelNamespaces []string
	// ExcludePatterns reject definitions whose file path matches.
	ExcludePatterns []*regexp.Regexp
	// ExcludedRequires are never emitted as require lines.
	ExcludedRequires []string
	// SameFileModules are qualified names whose children are never pruned.
	SameFileModules [][]string
	// EagerSuffixes reject definitions from files with these suffixes.
	EagerSuffixes []string
	// RegistryModule receives on_autoload, autoload_map and for_autoload.
	RegistryModule string
}

// Include reports whether nd belongs in the trie.
func (c *Config) Include(nd autogen.NamedDefinition) bool {
	return len(nd.NameParts) > 0 &&
		slices.Contains(c.TopLevelNamespaces, nd.NameParts[0]) &&
		c.IncludePath(nd.Path)
}

// IncludePath reports whether definitions from path may be autoloaded.
func (c *Config) IncludePath(path string) bool {
	for _, suffix := range c.EagerSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	for _, pat := range c.ExcludePatterns {
		if pat.MatchString(path) {
			return false
		}
	}
	return true
}

// IncludeRequire reports whether require may be emitted in a stub.
func (c *Config) IncludeRequire(require string) bool {
	return !slices.Contains(c.ExcludedRequires, require)
}

// prunable reports whether the children of the node at nameParts may be
// collapsed. Only exact matches are protected.
func (c *Config) prunable(nameParts []string) bool {
	for _, parts := range c.SameFileModules {
		if slices.Equal(parts, nameParts) {
			return false
		}
	}
	return true
}

func (c *Config) registry() string {
	if c.RegistryModule == "" {
		return DefaultRegistryModule
	}
	return c.RegistryModule
}
