package autogen

import "errors"

var (
	// ErrInvariant is wrapped by every internal consistency violation
	// detected while building a graph.
	ErrInvariant = errors.New("autogen invariant violated")

	// ErrUnsupportedVersion is returned when a serialization version outside
	// [MinVersion, MaxVersion] is requested.
	ErrUnsupportedVersion = errors.New("unsupported msgpack version")
)
