package autoloader

import "errors"

var (
	// ErrNameMismatch is returned when merging nodes with different
	// qualified names.
	ErrNameMismatch = errors.New("name mismatch for merge")

	// ErrAmbiguousDefinition is returned when a node carries more than one
	// behavior-defining definition.
	ErrAmbiguousDefinition = errors.New("cannot determine definition")

	// ErrNoDefinition is returned when a definition is requested from a
	// node that has none.
	ErrNoDefinition = errors.New("no definition")

	// ErrCreateDir is returned when a stub subdirectory cannot be created,
	// including when it already exists.
	ErrCreateDir = errors.New("failed to create directory")
)
