package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mvp-joe/rb-autogen/internal/autogen"
)

var (
	// ErrInvalidPattern indicates an exclude pattern that is not a valid regular expression
	ErrInvalidPattern = errors.New("invalid exclude pattern")

	// ErrInvalidNamespace indicates a malformed namespace name
	ErrInvalidNamespace = errors.New("invalid namespace name")

	// ErrEmptyOutputDir indicates a missing autoloader output directory
	ErrEmptyOutputDir = errors.New("empty output directory")

	// ErrEmptyRegistry indicates a missing registry module
	ErrEmptyRegistry = errors.New("empty registry module")

	// ErrInvalidVersion indicates an unsupported graph record version
	ErrInvalidVersion = errors.New("invalid msgpack version")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCacheSize indicates a negative cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")
)

var constantName = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAutoloader(&cfg.Autoloader); err != nil {
		errs = append(errs, err)
	}

	if err := validateGraph(&cfg.Graph); err != nil {
		errs = append(errs, err)
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateAutoloader(cfg *AutoloaderConfig) error {
	var errs []error

	for _, ns := range cfg.TopLevelNamespaces {
		if !constantName.MatchString(ns) {
			errs = append(errs, fmt.Errorf("%w: top level namespace '%s'", ErrInvalidNamespace, ns))
		}
	}

	for _, name := range cfg.SameFileModules {
		for _, part := range strings.Split(name, "::") {
			if !constantName.MatchString(part) {
				errs = append(errs, fmt.Errorf("%w: same file module '%s'", ErrInvalidNamespace, name))
				break
			}
		}
	}

	for _, pattern := range cfg.ExcludePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%w: '%s': %v", ErrInvalidPattern, pattern, err))
		}
	}

	if strings.TrimSpace(cfg.OutputDir) == "" {
		errs = append(errs, fmt.Errorf("%w: autoloader.output_dir is required", ErrEmptyOutputDir))
	}

	if strings.TrimSpace(cfg.RegistryModule) == "" {
		errs = append(errs, fmt.Errorf("%w: autoloader.registry_module is required", ErrEmptyRegistry))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateGraph(cfg *GraphConfig) error {
	if cfg.MsgpackVersion < autogen.MinVersion || cfg.MsgpackVersion > autogen.MaxVersion {
		return fmt.Errorf("%w: must be in [%d, %d], got %d",
			ErrInvalidVersion, autogen.MinVersion, autogen.MaxVersion, cfg.MsgpackVersion)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear
// formatting. Every input stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	args := make([]any, len(errs))
	for i, err := range errs {
		args[i] = err
	}
	return fmt.Errorf("validation failed:"+strings.Repeat("\n  - %w", len(errs)), args...)
}
