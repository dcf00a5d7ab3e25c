package graph

import (
	"fmt"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
)

// Register folds a request into the graph. It is idempotent: the first
// registration of a key inserts a Pending node and queues it for claiming,
// later registrations of the same key return isNew=false and only record the
// additional requester edge. This is the deduplication point: concurrent
// registrations of one key from different workers yield exactly one node and
// one eventual importer run.
//
// When the request carries a parent, the parent->key dependency edge is
// recorded. An edge that would close a cycle is rejected with an error
// wrapping importer.ErrCycle, and the graph is left unmodified apart from
// the node insertion itself.
func (g *Graph) Register(req assetid.Request) (isNew bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[req.Key]; !exists {
		g.nodes[req.Key] = &node{
			key:        req.Key,
			deps:       make(map[assetid.Key]struct{}),
			dependents: make(map[assetid.Key]struct{}),
		}
		g.ready = append(g.ready, req.Key)
		g.cond.Signal()
		isNew = true
	}

	if req.RequestedBy != nil {
		if err := g.addDependencyLocked(*req.RequestedBy, req.Key); err != nil {
			return isNew, err
		}
	}
	return isNew, nil
}

// AddDependency records that parent depends on child. Both keys must already
// be registered, and the parent's dependency set must not be frozen yet (it
// freezes when the parent's importer returns). Edges that would make child
// transitively depend on parent are rejected with importer.ErrCycle.
func (g *Graph) AddDependency(parent, child assetid.Key) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addDependencyLocked(parent, child)
}

func (g *Graph) addDependencyLocked(parent, child assetid.Key) error {
	p, ok := g.nodes[parent]
	if !ok {
		return fmt.Errorf("dependency parent not registered: %s", parent)
	}
	c, ok := g.nodes[child]
	if !ok {
		return fmt.Errorf("dependency child not registered: %s", child)
	}

	if p.frozen {
		return fmt.Errorf("dependencies of %s are frozen", parent)
	}
	if _, dup := p.deps[child]; dup {
		return nil
	}

	if parent == child || g.reachableLocked(c, parent) {
		return fmt.Errorf("%w: %s -> %s", importer.ErrCycle, parent, child)
	}

	p.deps[child] = struct{}{}
	c.dependents[parent] = struct{}{}
	return nil
}

// reachableLocked reports whether target can be reached from start by
// following dependency edges. Used to reject cycle-closing edges before they
// are inserted, so the graph stays acyclic at every observed instant.
func (g *Graph) reachableLocked(start *node, target assetid.Key) bool {
	seen := map[assetid.Key]struct{}{start.key: {}}
	stack := []*node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dep := range n.deps {
			if dep == target {
				return true
			}
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			stack = append(stack, g.nodes[dep])
		}
	}
	return false
}

// Dependencies returns the current dependency keys of a node.
func (g *Graph) Dependencies(key assetid.Key) []assetid.Key {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	return keySetToSlice(n.deps)
}

// Dependents returns the current dependent keys of a node.
func (g *Graph) Dependents(key assetid.Key) []assetid.Key {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[key]
	if !ok {
		return nil
	}
	return keySetToSlice(n.dependents)
}

// State returns the current state of a node and whether the key is known.
func (g *Graph) State(key assetid.Key) (State, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[key]
	if !ok {
		return Pending, false
	}
	return n.state, true
}

// Artifact returns the cached artifact of a resolved node. All current and
// future dependents of a resolved key observe the same artifact reference;
// the importer is never re-run.
func (g *Graph) Artifact(key assetid.Key) (importer.Artifact, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[key]
	if !ok || n.state != Resolved {
		return nil, false
	}
	return n.artifact, true
}

func keySetToSlice(set map[assetid.Key]struct{}) []assetid.Key {
	out := make([]assetid.Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
