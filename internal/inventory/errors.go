package inventory

import "errors"

// Hard failures returned by Store operations. Callers discriminate with
// errors.Is; the concrete message carries the offending name.
var (
	// ErrInvalidName is returned when an empty name is supplied to
	// AddGroup or AddHost.
	ErrInvalidName = errors.New("invalid name")

	// ErrUnknownEntity is returned when an operation references a host or
	// group that is not registered.
	ErrUnknownEntity = errors.New("unknown host or group")

	// ErrRecursiveDependency is returned by AddChild when attaching the
	// child would create a cycle in the group ancestry.
	ErrRecursiveDependency = errors.New("recursive group dependency")
)
