package importer

import (
	"context"
	"fmt"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
)

// Registry maps asset kinds to their importers. It is populated once during
// startup and read-only afterwards, so it needs no locking.
type Registry struct {
	importers map[assetid.Kind]Importer
}

// NewRegistry creates an empty importer registry.
func NewRegistry() *Registry {
	return &Registry{importers: make(map[assetid.Kind]Importer)}
}

// Register adds an importer for its kind. Registering the same kind twice is
// a wiring mistake and panics, mirroring how duplicate module registration is
// treated as a programmer error at startup.
func (r *Registry) Register(imp Importer) {
	kind := imp.Kind()
	if _, exists := r.importers[kind]; exists {
		panic(fmt.Sprintf("importer for kind %q registered twice", kind))
	}
	r.importers[kind] = imp
}

// Lookup returns the importer for a kind, or an error naming the kind when
// none is registered.
func (r *Registry) Lookup(kind assetid.Kind) (Importer, error) {
	imp, ok := r.importers[kind]
	if !ok {
		return nil, fmt.Errorf("no importer registered for kind %q", kind)
	}
	return imp, nil
}

// Kinds returns the registered kinds, for logging and validation.
func (r *Registry) Kinds() []assetid.Kind {
	kinds := make([]assetid.Kind, 0, len(r.importers))
	for k := range r.importers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Validate checks the registry against the kinds a caller expects to submit.
func (r *Registry) Validate(ctx context.Context, required ...assetid.Kind) error {
	logger := ctxlog.FromContext(ctx)
	for _, kind := range required {
		if _, ok := r.importers[kind]; !ok {
			return fmt.Errorf("required importer missing for kind %q", kind)
		}
	}
	logger.Debug("Importer registry validated.", "count", len(r.importers))
	return nil
}
