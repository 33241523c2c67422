package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// NewFileLoader creates a loader reading an explicit config file instead of
// searching .autogen/ under rootDir.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{
		rootDir:    rootDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (AUTOGEN_*)
// 2. Config file (.autogen/config.yml or .autogen/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".autogen"))
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("AUTOGEN")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., AUTOGEN_GRAPH_DATABASE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("autoloader.registry_module")
	v.BindEnv("autoloader.output_dir")
	v.BindEnv("graph.msgpack_version")
	v.BindEnv("graph.output_dir")
	v.BindEnv("graph.database")
	v.BindEnv("workers")
	v.BindEnv("cache_size")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("autoloader.top_level_namespaces", defaults.Autoloader.TopLevelNamespaces)
	v.SetDefault("autoloader.exclude_patterns", defaults.Autoloader.ExcludePatterns)
	v.SetDefault("autoloader.excluded_requires", defaults.Autoloader.ExcludedRequires)
	v.SetDefault("autoloader.same_file_modules", defaults.Autoloader.SameFileModules)
	v.SetDefault("autoloader.eager_suffixes", defaults.Autoloader.EagerSuffixes)
	v.SetDefault("autoloader.registry_module", defaults.Autoloader.RegistryModule)
	v.SetDefault("autoloader.output_dir", defaults.Autoloader.OutputDir)

	v.SetDefault("graph.msgpack_version", defaults.Graph.MsgpackVersion)
	v.SetDefault("graph.output_dir", defaults.Graph.OutputDir)
	v.SetDefault("graph.database", defaults.Graph.Database)

	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("cache_size", defaults.CacheSize)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
