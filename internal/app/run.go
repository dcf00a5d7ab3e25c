package app

import (
	"context"
	"fmt"

	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/graph"
	"github.com/vk/assetforge/internal/kinds"
	"github.com/vk/assetforge/internal/session"
)

// Run executes one import session against the configured game. It returns an
// error when the run could not execute or when any root asset failed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	resolver, err := a.game.FileSystem.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open game filesystem: %w", err)
	}
	defer resolver.Close()
	a.logger.Debug("Game filesystem opened.", "game", a.game.Name)

	registry := kinds.NewRegistry(resolver, a.options)

	mode := graph.PropagateDegrade
	if a.config.Strict {
		mode = graph.PropagateStrict
	}
	sess := session.New(registry, a.sink, session.Options{
		Workers: a.config.Workers,
		Mode:    mode,
	})
	a.progress.track(sess)

	if a.config.StatusPort > 0 {
		stop := a.startStatusServer(a.config.StatusPort)
		defer stop()
	}

	a.logger.Info("🚀 Starting import...", "game", a.game.Name, "profile", a.config.Profile, "roots", len(a.roots))
	summary, err := sess.Run(ctx, a.roots)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	a.logger.Info("🏁 Import finished.",
		"resolved", summary.Resolved,
		"failed", len(summary.Failed),
		"cancelled", summary.Cancelled,
	)

	if failed := summary.FailedRoots(a.roots); failed > 0 {
		return fmt.Errorf("%d of %d root assets failed", failed, len(a.roots))
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}
