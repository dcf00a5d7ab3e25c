// Package session binds one dependency graph and one executor into a
// single-use import run and reports the overall outcome.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/executor"
	"github.com/vk/assetforge/internal/graph"
	"github.com/vk/assetforge/internal/importer"
	"github.com/vk/assetforge/internal/sink"
)

// Options configure one import session.
type Options struct {
	// Workers bounds the importer pool. <= 0 selects hardware parallelism.
	Workers int
	// Mode selects how dependency failures propagate to dependents.
	Mode graph.PropagationMode
}

// Summary is the overall outcome of a session.
type Summary struct {
	// Resolved counts assets that were imported and delivered.
	Resolved int
	// Failed maps every failed key to its reason and the requesters that
	// depended on it.
	Failed map[assetid.Key]graph.FailedInfo
	// Unsettled lists keys that never reached a terminal state. Empty at
	// clean completion; non-empty indicates an engine bug.
	Unsettled []assetid.Key
	// Cancelled reports that the run was cut short by cancellation.
	Cancelled bool
}

// FailedRoots counts failures among the given root keys, which is what the
// CLI exit code is based on.
func (s *Summary) FailedRoots(roots []assetid.Request) int {
	n := 0
	for _, root := range roots {
		if _, ok := s.Failed[root.Key]; ok {
			n++
		}
	}
	return n
}

// Session is the top-level façade over one import run. Create one per run;
// Run may only be called once.
type Session struct {
	graph *graph.Graph
	exec  *executor.Executor

	mu  sync.Mutex
	ran bool
}

// New assembles a session from an importer registry and a result sink.
func New(reg *importer.Registry, snk sink.ResultSink, opts Options) *Session {
	g := graph.New(opts.Mode)
	return &Session{
		graph: g,
		exec:  executor.New(g, reg, snk, opts.Workers),
	}
}

// Run submits the root batch and blocks until every reachable node has
// settled and been delivered. Duplicate keys across the batch dedupe exactly
// like internally discovered duplicates. The call is synchronous from the
// caller's perspective; internally it is parallel.
func (s *Session) Run(ctx context.Context, roots []assetid.Request) (*Summary, error) {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return nil, errors.New("session is single-use: Run called twice")
	}
	s.ran = true
	s.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Info("Import session starting.", "roots", len(roots))

	if err := s.exec.Run(ctx, roots); err != nil {
		return nil, err
	}

	failed := s.graph.FailedDetail()
	counts := s.graph.CountStates()
	summary := &Summary{
		Resolved:  counts.Resolved,
		Failed:    failed,
		Cancelled: ctx.Err() != nil,
	}
	if !counts.Settled() {
		summary.Unsettled = s.graph.UnsettledKeys()
	}
	if !summary.Cancelled {
		for _, info := range failed {
			if errors.Is(info.Err, importer.ErrCancelled) {
				summary.Cancelled = true
				break
			}
		}
	}

	logger.Info("Import session finished.",
		"resolved", summary.Resolved,
		"failed", len(summary.Failed),
		"cancelled", summary.Cancelled,
	)
	return summary, nil
}

// Progress returns a live census of node states. Safe to call from other
// goroutines while Run is in flight; the status endpoint uses it.
func (s *Session) Progress() graph.Counts {
	return s.graph.CountStates()
}
