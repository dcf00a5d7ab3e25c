// Package importer defines the capability the engine is polymorphic over:
// a per-kind decoder that turns raw bytes into an artifact plus the further
// requests that artifact depends on. The engine never inspects artifacts and
// has no idea what a "material" or a "model" is; it only schedules.
package importer

import (
	"context"

	"github.com/vk/assetforge/internal/assetid"
)

// Artifact is the opaque payload an importer produces. The engine hands it
// to the result sink without looking inside.
type Artifact any

// Importer decodes one asset kind.
//
// Import runs on a worker goroutine, off the delivery goroutine. It must not
// touch the dependency graph: assets it discovers are returned as requests
// and folded into the graph by the executor, which is the only writer.
// Implementations consult the raw input resolver (virtual filesystem)
// themselves; a missing file is reported by wrapping ErrNotFound.
type Importer interface {
	Kind() assetid.Kind
	Import(ctx context.Context, key assetid.Key) (Artifact, []assetid.Request, error)
}

// Func adapts a plain function to the Importer interface, mostly for tests.
type Func struct {
	ForKind assetid.Kind
	Fn      func(ctx context.Context, key assetid.Key) (Artifact, []assetid.Request, error)
}

// Kind implements Importer.
func (f Func) Kind() assetid.Kind { return f.ForKind }

// Import implements Importer.
func (f Func) Import(ctx context.Context, key assetid.Key) (Artifact, []assetid.Request, error) {
	return f.Fn(ctx, key)
}
