package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/graph"
	"github.com/vk/assetforge/internal/importer"
)

// worker is the processing loop of one pool slot. It claims ready keys, runs
// their importers and folds discovered requests back into the graph. A slot
// is returned the moment the importer finishes; a node whose dependencies
// are still unsettled is delivered later, asynchronously, when the last one
// settles.
func (e *Executor) worker(ctx context.Context, workerID int, deliveries chan<- graph.Event) {
	logger := ctxlog.FromContext(ctx).With("worker_id", workerID)
	logger.Debug("Worker started.")

	for {
		key, ok := e.graph.NextReady()
		if !ok {
			logger.Debug("Worker finished.")
			return
		}

		// Cooperative cancellation, checked before starting any claimed
		// node. The bulk sweep catches queued nodes without claiming each.
		if ctx.Err() != nil {
			logger.Debug("Cancellation observed, failing claimed node.", "key", key.String())
			e.dispatch(func() []graph.Event { return e.graph.Fail(key, importer.ErrCancelled) }, deliveries)
			e.dispatch(e.graph.CancelPending, deliveries)
			continue
		}

		e.runNode(ctx, logger, key, deliveries)
	}
}

// runNode executes the importer for one claimed key and applies the outcome
// to the graph.
func (e *Executor) runNode(ctx context.Context, logger *slog.Logger, key assetid.Key, deliveries chan<- graph.Event) {
	imp, err := e.registry.Lookup(key.Kind)
	if err != nil {
		e.dispatch(func() []graph.Event { return e.graph.Fail(key, err) }, deliveries)
		return
	}

	logger.Debug("Running importer.", "key", key.String())
	artifact, requests, err := safeImport(ctx, imp, key)
	if err != nil {
		logger.Warn("Importer failed.", "key", key.String(), "error", err)
		e.dispatch(func() []graph.Event { return e.graph.Fail(key, err) }, deliveries)
		return
	}

	// Fold the discovered requests into the graph. The importer returned
	// them as data; the executor is the only graph writer. A request that
	// would close a cycle is fatal for this node only.
	for _, req := range requests {
		req.RequestedBy = &key
		isNew, err := e.graph.Register(req)
		if isNew {
			e.unsettled.Add(1)
		}
		if err != nil {
			logger.Warn("Discovered request rejected.", "key", key.String(), "child", req.Key.String(), "error", err)
			failErr := fmt.Errorf("registering dependency %s: %w", req.Key, err)
			e.dispatch(func() []graph.Event { return e.graph.Fail(key, failErr) }, deliveries)
			return
		}
	}

	// Freezes the dependency set; the node settles now or when its last
	// dependency does.
	e.dispatch(func() []graph.Event { return e.graph.Complete(key, artifact) }, deliveries)
}

// safeImport runs an importer and converts a panic (a decoder tripping over
// crafted bytes, say) into a failure of that node alone, preserving per-asset
// isolation for the rest of the session.
func safeImport(ctx context.Context, imp importer.Importer, key assetid.Key) (artifact importer.Artifact, requests []assetid.Request, err error) {
	defer func() {
		if r := recover(); r != nil {
			artifact, requests = nil, nil
			err = fmt.Errorf("importer panic: %v", r)
		}
	}()
	return imp.Import(ctx, key)
}
