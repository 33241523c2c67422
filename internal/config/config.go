package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mvp-joe/rb-autogen/internal/autoloader"
	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

// Config represents the complete autogen configuration.
// It can be loaded from .autogen/config.yml with environment variable overrides.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Autoloader AutoloaderConfig `yaml:"autoloader" mapstructure:"autoloader"`
	Graph      GraphConfig      `yaml:"graph" mapstructure:"graph"`
	Workers    int              `yaml:"workers" mapstructure:"workers"`       // 0 means GOMAXPROCS
	CacheSize  int              `yaml:"cache_size" mapstructure:"cache_size"` // parsed-file cache entries
}

// PathsConfig defines which files to analyze and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for Ruby sources
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// AutoloaderConfig controls the generated autoload tree.
type AutoloaderConfig struct {
	TopLevelNamespaces []string `yaml:"top_level_namespaces" mapstructure:"top_level_namespaces"`
	ExcludePatterns    []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`   // regular expressions over file paths
	ExcludedRequires   []string `yaml:"excluded_requires" mapstructure:"excluded_requires"` // never emitted as require lines
	SameFileModules    []string `yaml:"same_file_modules" mapstructure:"same_file_modules"` // e.g. "Foo::Bar"
	EagerSuffixes      []string `yaml:"eager_suffixes" mapstructure:"eager_suffixes"`
	RegistryModule     string   `yaml:"registry_module" mapstructure:"registry_module"`
	OutputDir          string   `yaml:"output_dir" mapstructure:"output_dir"`
}

// GraphConfig controls the per-file graph outputs.
type GraphConfig struct {
	MsgpackVersion int    `yaml:"msgpack_version" mapstructure:"msgpack_version"`
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"` // empty disables .msgpack records
	Database       string `yaml:"database" mapstructure:"database"`     // SQLite path, empty disables
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{"**/*.rb"},
			Ignore: []string{
				".git/**",
				"vendor/**",
				"node_modules/**",
				"tmp/**",
				"autoloader/**",
			},
		},
		Autoloader: AutoloaderConfig{
			TopLevelNamespaces: []string{},
			ExcludePatterns:    []string{},
			ExcludedRequires:   []string{},
			SameFileModules:    []string{},
			EagerSuffixes:      []string{".rbi"},
			RegistryModule:     autoloader.DefaultRegistryModule,
			OutputDir:          "autoloader",
		},
		Graph: GraphConfig{
			MsgpackVersion: autogen.MaxVersion,
		},
		Workers:   0,
		CacheSize: 10000,
	}
}

// ToAutoloaderConfig compiles the autoloader section into the policy used by
// the trie builder.
func (c *Config) ToAutoloaderConfig() (*autoloader.Config, error) {
	out := &autoloader.Config{
		TopLevelNamespaces: c.Autoloader.TopLevelNamespaces,
		ExcludedRequires:   c.Autoloader.ExcludedRequires,
		EagerSuffixes:      c.Autoloader.EagerSuffixes,
		RegistryModule:     c.Autoloader.RegistryModule,
	}
	for _, pattern := range c.Autoloader.ExcludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
		}
		out.ExcludePatterns = append(out.ExcludePatterns, re)
	}
	for _, name := range c.Autoloader.SameFileModules {
		out.SameFileModules = append(out.SameFileModules, strings.Split(name, "::"))
	}
	return out, nil
}
