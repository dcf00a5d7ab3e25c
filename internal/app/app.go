package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/gamedef"
	"github.com/vk/assetforge/internal/kinds"
	"github.com/vk/assetforge/internal/sink"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. Construct one with New, run it once with Run.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	game    *gamedef.Game
	options assetid.Options
	sink    sink.ResultSink
	roots   []assetid.Request

	progress *progressTracker
}

// New is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, or an error
// when the game definitions or asset paths do not hold up.
func New(outW io.Writer, config *Config, resultSink sink.ResultSink) (*App, error) {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	defs, err := gamedef.NewLoader().Load(ctx, config.GameDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load game definitions: %w", err)
	}
	logger.Debug("Game definitions loaded.", "games", len(defs.Games), "profiles", len(defs.Profiles))

	game, err := selectGame(defs, config.GameName)
	if err != nil {
		return nil, err
	}

	options, ok := defs.Profile(config.Profile)
	if !ok {
		return nil, fmt.Errorf("unknown import profile %q", config.Profile)
	}

	roots, err := rootRequests(config.Assets, options)
	if err != nil {
		return nil, err
	}

	if resultSink == nil {
		resultSink = sink.LogSink{}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   config,
		game:     game,
		options:  options,
		sink:     resultSink,
		roots:    roots,
		progress: &progressTracker{},
	}, nil
}

// selectGame resolves which defined game the run targets. An explicit name
// must exist; without one the definitions must name exactly one game.
func selectGame(defs *gamedef.Definitions, name string) (*gamedef.Game, error) {
	if name != "" {
		game, ok := defs.Game(name)
		if !ok {
			return nil, fmt.Errorf("unknown game %q", name)
		}
		return game, nil
	}
	if len(defs.Games) == 1 {
		for _, game := range defs.Games {
			return game, nil
		}
	}
	return nil, fmt.Errorf("definitions declare %d games, select one with -game-name", len(defs.Games))
}

// rootRequests turns the CLI asset paths into root requests, inferring each
// asset's kind from its extension.
func rootRequests(assets []string, options assetid.Options) ([]assetid.Request, error) {
	roots := make([]assetid.Request, 0, len(assets))
	for _, raw := range assets {
		kind, ok := kinds.KindForPath(raw)
		if !ok {
			return nil, fmt.Errorf("cannot infer asset kind of %q from its extension", raw)
		}
		roots = append(roots, assetid.RootRequest(kinds.KeyFor(kind, raw, options)))
	}
	return roots, nil
}

// Game returns the selected game. This is primarily for testing.
func (a *App) Game() *gamedef.Game {
	return a.game
}

// Roots returns the root requests built from the configured asset paths.
func (a *App) Roots() []assetid.Request {
	return a.roots
}
