package importer

import "errors"

// The failure vocabulary of the engine. Every failed key in a session
// summary wraps exactly one of these, so callers can classify failures with
// errors.Is without string matching.
var (
	// ErrNotFound reports that no search path could supply the asset's bytes.
	ErrNotFound = errors.New("asset not found")

	// ErrDecode reports that the importer could not interpret the bytes.
	ErrDecode = errors.New("decode error")

	// ErrCycle reports a request that would make a node transitively depend
	// on itself. The edge is rejected and the offending branch fails; the
	// rest of the graph is unaffected.
	ErrCycle = errors.New("dependency cycle detected")

	// ErrCancelled marks nodes that were never started because the session
	// was cancelled. In-flight importers are allowed to finish.
	ErrCancelled = errors.New("import cancelled")

	// ErrDependencyFailed marks nodes failed in strict propagation mode
	// because one of their dependencies failed.
	ErrDependencyFailed = errors.New("dependency failed")
)
