// Package sink defines the host-side delivery interface. The host
// environment the engine feeds (a scene editor, a DCC tool) is typically not
// safe to mutate from multiple goroutines, so the executor invokes a
// ResultSink from exactly one delivery goroutine, in topological order:
// an asset's dependencies are always delivered before the asset itself.
package sink

import (
	"context"
	"log/slog"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/importer"
)

// ResultSink receives finished artifacts. Implementations need no internal
// locking: both methods are only ever called from the delivery goroutine.
type ResultSink interface {
	// Deliver hands over the artifact for a resolved asset. FailedDeps lists
	// the dependencies of this asset that failed, so the host can degrade
	// (e.g. apply a material without its missing texture) instead of
	// cascading the failure.
	Deliver(ctx context.Context, key assetid.Key, artifact importer.Artifact, failedDeps []assetid.Key)

	// Fail reports a failed asset along with the dependents affected by the
	// failure, so the host can surface which requesters will be degraded.
	Fail(ctx context.Context, key assetid.Key, err error, dependentsAffected []assetid.Key)
}

// LogSink is a ResultSink that only logs. The CLI uses it; real hosts supply
// their own implementation.
type LogSink struct{}

// Deliver implements ResultSink.
func (LogSink) Deliver(ctx context.Context, key assetid.Key, _ importer.Artifact, failedDeps []assetid.Key) {
	logger := ctxlog.FromContext(ctx)
	if len(failedDeps) > 0 {
		logger.Warn("Asset imported with missing dependencies.", "key", key.String(), "missing", keyStrings(failedDeps))
		return
	}
	logger.Info("Asset imported.", "key", key.String())
}

// Fail implements ResultSink.
func (LogSink) Fail(ctx context.Context, key assetid.Key, err error, dependentsAffected []assetid.Key) {
	logger := ctxlog.FromContext(ctx)
	attrs := []any{"key", key.String(), "error", err}
	if len(dependentsAffected) > 0 {
		attrs = append(attrs, slog.Any("dependents_affected", keyStrings(dependentsAffected)))
	}
	logger.Error("Asset import failed.", attrs...)
}

func keyStrings(keys []assetid.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
