// Package executor drives nodes of the dependency graph from Pending to a
// terminal state using two distinct execution contexts: a bounded worker
// pool that runs importers (file access, decoding, discovery of further
// requests) and exactly one delivery goroutine that applies finished
// artifacts to the result sink. The split buys parallel decoding throughput
// while honoring the host constraint that scene mutation must come from a
// single logical thread of control.
package executor

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/graph"
	"github.com/vk/assetforge/internal/importer"
	"github.com/vk/assetforge/internal/sink"
)

// deliveryBuffer bounds the queue between settling workers and the delivery
// goroutine. A slow sink backpressures workers rather than growing the queue
// without limit.
const deliveryBuffer = 64

// Executor owns one run over one graph. It is single-use.
type Executor struct {
	graph    *graph.Graph
	registry *importer.Registry
	sink     sink.ResultSink
	workers  int

	// unsettled counts nodes registered but not yet terminal. It reaches
	// zero exactly when the run is complete.
	unsettled sync.WaitGroup

	// dispatchMu makes a graph transition and the enqueue of its settle
	// events atomic with respect to other workers. Without it a worker could
	// be preempted after settling a node but before queueing the event while
	// another worker settles and queues a dependent, inverting delivery
	// order at the sink.
	dispatchMu sync.Mutex

	ran bool
}

// New creates an executor. workers <= 0 selects the available hardware
// parallelism.
func New(g *graph.Graph, reg *importer.Registry, snk sink.ResultSink, workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{
		graph:    g,
		registry: reg,
		sink:     snk,
		workers:  workers,
	}
}

// Run registers the root requests and executes the graph to completion. It
// returns once every node has settled and every settle event has been
// delivered to the sink. Cancelling ctx is cooperative: in-flight importers
// finish and their results are still delivered, while unstarted nodes are
// failed with importer.ErrCancelled so their dependents terminate too.
func (e *Executor) Run(ctx context.Context, roots []assetid.Request) error {
	if e.ran {
		return errors.New("executor is single-use: Run called twice")
	}
	e.ran = true

	logger := ctxlog.FromContext(ctx)
	deliveries := make(chan graph.Event, deliveryBuffer)

	logger.Debug("Registering root requests.", "count", len(roots))
	for _, root := range roots {
		isNew, err := e.graph.Register(root)
		if err != nil {
			// Roots carry no parent, so registration cannot fail
			// structurally; a parented "root" is caller misuse.
			return err
		}
		if isNew {
			e.unsettled.Add(1)
		}
	}

	var deliveryWG sync.WaitGroup
	deliveryWG.Add(1)
	go func() {
		defer deliveryWG.Done()
		e.deliver(ctx, deliveries)
	}()

	logger.Debug("Starting worker pool.", "workers", e.workers)
	var workerWG sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			e.worker(ctx, workerID, deliveries)
		}(i)
	}

	// Nothing here blocks a worker: unsettled hits zero through settle
	// propagation alone, even with failing or cancelled branches.
	e.unsettled.Wait()
	e.graph.Close()
	workerWG.Wait()
	close(deliveries)
	deliveryWG.Wait()

	logger.Debug("Executor run complete.", "counts", e.graph.CountStates())
	return nil
}

// dispatch runs one graph transition and forwards its settle events to the
// delivery queue, both under dispatchMu. Events are produced in settle order
// and the queue is FIFO with a single consumer, so delivery order stays a
// valid topological order of the frozen graph across all workers. A worker
// blocked here on a full queue only stalls other dispatchers; the delivery
// goroutine never takes dispatchMu, so the queue always drains.
func (e *Executor) dispatch(transition func() []graph.Event, deliveries chan<- graph.Event) {
	e.dispatchMu.Lock()
	events := transition()
	for _, ev := range events {
		deliveries <- ev
	}
	e.dispatchMu.Unlock()

	for range events {
		e.unsettled.Done()
	}
}

// deliver is the single delivery goroutine. The sink is only ever called
// from here, in topological order; it needs no locking of its own. Results
// of importers that were already in flight at cancellation time are still
// delivered, so cancellation never leaves the host half-applied.
func (e *Executor) deliver(ctx context.Context, deliveries <-chan graph.Event) {
	logger := ctxlog.FromContext(ctx)
	for ev := range deliveries {
		if ev.Err != nil {
			logger.Debug("Delivering failure.", "key", ev.Key.String(), "error", ev.Err)
			e.sink.Fail(ctx, ev.Key, ev.Err, ev.DependentsAffected)
			continue
		}
		logger.Debug("Delivering artifact.", "key", ev.Key.String())
		e.sink.Deliver(ctx, ev.Key, ev.Artifact, ev.FailedDeps)
	}
}
