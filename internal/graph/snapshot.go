package graph

import "github.com/vk/assetforge/internal/assetid"

// Counts is a point-in-time census of node states, used for progress
// reporting and the end-of-session summary.
type Counts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Failed     int `json:"failed"`
}

// Total returns the number of nodes in the census.
func (c Counts) Total() int {
	return c.Pending + c.InProgress + c.Resolved + c.Failed
}

// Settled reports whether no node is pending or in flight.
func (c Counts) Settled() bool {
	return c.Pending == 0 && c.InProgress == 0
}

// FailedInfo describes one failed node for the session summary.
type FailedInfo struct {
	Err error
	// Requesters are the keys that depended on this node, so callers can
	// tell which branches were degraded by the failure.
	Requesters []assetid.Key
}

// CountStates tallies the current node states.
func (g *Graph) CountStates() Counts {
	g.mu.Lock()
	defer g.mu.Unlock()

	var c Counts
	for _, n := range g.nodes {
		switch n.state {
		case Pending:
			c.Pending++
		case InProgress:
			c.InProgress++
		case Resolved:
			c.Resolved++
		case Failed:
			c.Failed++
		}
	}
	return c
}

// FailedDetail returns every failed key with its recorded reason and
// requesters. No failure is silently swallowed: anything that transitioned
// to Failed shows up here.
func (g *Graph) FailedDetail() map[assetid.Key]FailedInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[assetid.Key]FailedInfo)
	for key, n := range g.nodes {
		if n.state != Failed {
			continue
		}
		requesters := keySetToSlice(n.dependents)
		sortKeys(requesters)
		out[key] = FailedInfo{Err: n.err, Requesters: requesters}
	}
	return out
}

// UnsettledKeys returns the keys still pending or in flight. At clean
// session completion this is empty.
func (g *Graph) UnsettledKeys() []assetid.Key {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []assetid.Key
	for key, n := range g.nodes {
		if n.state == Pending || n.state == InProgress {
			out = append(out, key)
		}
	}
	sortKeys(out)
	return out
}
