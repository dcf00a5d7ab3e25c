// Package graph implements the concurrent dependency graph at the core of
// the import engine.
//
// Unlike a build system's graph, this one is not known up front: it is
// revealed incrementally as each importer runs and reports the assets it
// depends on. The graph is the single source of truth for node state and the
// only shared mutable structure in the engine; all mutation goes through its
// synchronized operations, and importers never touch it directly.
package graph
