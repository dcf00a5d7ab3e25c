package graph

import (
	"fmt"
	"sort"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
)

// NextReady blocks until a claimable key is available and atomically claims
// it, transitioning the node from Pending to InProgress. No two callers ever
// claim the same key. It returns ok=false once the graph has been closed and
// the ready queue is drained.
//
// A worker claiming from here never waits on another worker: nodes enter the
// queue the moment they are registered (a freshly discovered asset has no
// known dependencies yet, so it is immediately runnable) and all cross-node
// coordination happens through settle propagation instead of blocking.
func (g *Graph) NextReady() (assetid.Key, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		for len(g.ready) > 0 {
			key := g.ready[0]
			g.ready = g.ready[1:]
			n := g.nodes[key]
			// Queued keys may have been failed by cancellation in the
			// meantime; they are simply skipped.
			if n.state != Pending {
				continue
			}
			n.state = InProgress
			return key, true
		}
		if g.closed {
			return assetid.Key{}, false
		}
		g.cond.Wait()
	}
}

// Close marks the ready queue as final, waking every blocked NextReady
// caller once the remaining queued keys are drained.
func (g *Graph) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cond.Broadcast()
}

// Complete records a successful importer run for an InProgress node. The
// node's dependency set is frozen at this point. If every frozen dependency
// has already settled the node settles now; otherwise it settles later, when
// its last outstanding dependency does; the worker slot is returned either
// way, nothing blocks.
//
// The returned events are every node that reached a terminal state as a
// consequence, in settle order (dependencies strictly before dependents).
func (g *Graph) Complete(key assetid.Key, artifact importer.Artifact) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[key]
	if !ok || n.state != InProgress {
		return nil
	}
	n.frozen = true
	n.artifact = artifact
	return g.settleFromLocked(n)
}

// Fail records a failure for a node in any non-terminal state and propagates
// settlement to its dependents. Used for importer errors, cycle rejections
// and cancellation.
func (g *Graph) Fail(key assetid.Key, err error) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[key]
	if !ok || n.state == Resolved || n.state == Failed {
		return nil
	}
	events := []Event{g.failLocked(n, err)}
	return append(events, g.settleDependentsLocked(n)...)
}

// CancelPending fails every node that has not been claimed yet with
// importer.ErrCancelled, so dependents still reach a terminal state instead
// of hanging. In-flight nodes are left alone; cooperative cancellation never
// preempts a running importer. Safe to call repeatedly; the executor sweeps
// again after each importer that finishes past the cancellation point, to
// catch nodes the importer discovered too late to run.
func (g *Graph) CancelPending() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()

	var events []Event
	// Sweep the ready queue in arrival order first so cancellation events
	// stay deterministic, then catch any pending stragglers.
	for _, key := range g.ready {
		if n := g.nodes[key]; n.state == Pending {
			events = append(events, g.failLocked(n, importer.ErrCancelled))
		}
	}
	for _, n := range g.nodes {
		if n.state == Pending {
			events = append(events, g.failLocked(n, importer.ErrCancelled))
		}
	}
	// Dependent settlement runs after all pendings are failed, so a parent
	// waiting on two cancelled children settles exactly once.
	var settled []Event
	for _, ev := range events {
		settled = append(settled, g.settleDependentsLocked(g.nodes[ev.Key])...)
	}
	return append(events, settled...)
}

// failLocked transitions a node to Failed and builds its event.
func (g *Graph) failLocked(n *node, err error) Event {
	n.state = Failed
	n.frozen = true
	n.err = err
	affected := keySetToSlice(n.dependents)
	sortKeys(affected)
	return Event{Key: n.key, Err: err, DependentsAffected: affected}
}

// settleFromLocked attempts to settle the given node and then propagates to
// dependents of everything that settled.
func (g *Graph) settleFromLocked(n *node) []Event {
	var events []Event
	work := []*node{n}
	for len(work) > 0 {
		m := work[0]
		work = work[1:]

		ev, settled := g.trySettleLocked(m)
		if !settled {
			continue
		}
		events = append(events, ev)
		for dep := range m.dependents {
			work = append(work, g.nodes[dep])
		}
	}
	return events
}

// settleDependentsLocked propagates settlement to the dependents of an
// already-settled node.
func (g *Graph) settleDependentsLocked(n *node) []Event {
	var events []Event
	for dep := range n.dependents {
		events = append(events, g.settleFromLocked(g.nodes[dep])...)
	}
	return events
}

// trySettleLocked settles a node whose importer has finished and whose
// frozen dependencies have all reached a terminal state. The failure
// propagation mode decides the outcome when some dependencies failed.
func (g *Graph) trySettleLocked(n *node) (Event, bool) {
	if n.state != InProgress || !n.frozen {
		return Event{}, false
	}

	var failedDeps []assetid.Key
	for dep := range n.deps {
		switch g.nodes[dep].state {
		case Pending, InProgress:
			return Event{}, false
		case Failed:
			failedDeps = append(failedDeps, dep)
		}
	}
	sortKeys(failedDeps)

	if len(failedDeps) > 0 && g.mode == PropagateStrict {
		return g.failLocked(n, fmt.Errorf("%w: %s", importer.ErrDependencyFailed, failedDeps[0])), true
	}

	n.state = Resolved
	return Event{Key: n.key, Artifact: n.artifact, FailedDeps: failedDeps}, true
}

func sortKeys(keys []assetid.Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}
