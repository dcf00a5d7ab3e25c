package graph

import (
	"sync"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
)

// State is the lifecycle state of one node. Transitions only move forward:
// Pending -> InProgress -> {Resolved, Failed}. Terminal states are sinks.
type State int32

const (
	// Pending is the initial state of every registered key.
	Pending State = iota
	// InProgress begins when a worker claims the node. Exactly one worker
	// ever claims a given key. The state covers both the importer run and
	// the wait for discovered dependencies to settle.
	InProgress
	// Resolved means the artifact is available and every frozen dependency
	// has settled.
	Resolved
	// Failed means the error is recorded. A failed dependency does not block
	// its dependents from settling.
	Failed
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in_progress"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// PropagationMode selects what happens to a node whose dependency failed.
type PropagationMode int

const (
	// PropagateDegrade resolves the node anyway and reports the failed
	// dependencies alongside the artifact, preferring partial results over
	// total failure. This matches best-effort import semantics: a material
	// missing one texture is still worth applying.
	PropagateDegrade PropagationMode = iota
	// PropagateStrict fails the node with ErrDependencyFailed instead.
	PropagateStrict
)

// node is the graph's record of one asset. It is owned exclusively by the
// Graph and only ever touched under the graph mutex.
type node struct {
	key   assetid.Key
	state State

	// deps only grows while the node's importer is running; frozen is set
	// the moment the importer returns and no edge may be added afterwards.
	deps   map[assetid.Key]struct{}
	frozen bool

	// dependents are back-references used for settle propagation, never for
	// lifetime.
	dependents map[assetid.Key]struct{}

	artifact importer.Artifact
	err      error
}

// Event describes one node reaching a terminal state. Events are produced in
// settle order, which is by construction a valid topological order of the
// frozen graph: a node settles strictly after all of its dependencies.
type Event struct {
	Key      assetid.Key
	Artifact importer.Artifact

	// Err is non-nil when the node failed.
	Err error

	// FailedDeps lists the failed dependencies of a resolved node, so the
	// sink can degrade gracefully.
	FailedDeps []assetid.Key

	// DependentsAffected snapshots the dependents of a failed node at the
	// time of failure.
	DependentsAffected []assetid.Key
}

// Graph is the concurrent registry of nodes keyed by asset identity. All
// operations are safe for concurrent use.
type Graph struct {
	mu    sync.Mutex
	cond  *sync.Cond
	nodes map[assetid.Key]*node

	// ready holds claimable keys in arrival order. Arrival order is the
	// tie-break among simultaneously ready nodes, which keeps test runs
	// deterministic.
	ready  []assetid.Key
	closed bool

	mode PropagationMode
}

// New creates an empty graph with the given failure propagation mode.
func New(mode PropagationMode) *Graph {
	g := &Graph{
		nodes: make(map[assetid.Key]*node),
		mode:  mode,
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}
