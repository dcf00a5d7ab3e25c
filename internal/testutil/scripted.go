package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
)

// ScriptEntry describes the canned outcome for one asset path.
type ScriptEntry struct {
	// Artifact is returned on success. Defaults to the asset path.
	Artifact importer.Artifact
	// Deps are emitted as discovered requests, as kind:path pairs.
	Deps []assetid.Key
	// Err, when set, fails the import.
	Err error
	// Delay simulates decode time before returning.
	Delay time.Duration
}

// ScriptedImporter is an Importer driven by a per-path script. It records
// how often each path was imported, so tests can assert the run-at-most-once
// guarantee under concurrency.
type ScriptedImporter struct {
	ForKind assetid.Kind
	Script  map[string]ScriptEntry

	mu   sync.Mutex
	runs map[string]int
}

// NewScriptedImporter creates a scripted importer for one kind.
func NewScriptedImporter(kind assetid.Kind, script map[string]ScriptEntry) *ScriptedImporter {
	return &ScriptedImporter{
		ForKind: kind,
		Script:  script,
		runs:    make(map[string]int),
	}
}

// Kind implements importer.Importer.
func (s *ScriptedImporter) Kind() assetid.Kind { return s.ForKind }

// Import implements importer.Importer.
func (s *ScriptedImporter) Import(ctx context.Context, key assetid.Key) (importer.Artifact, []assetid.Request, error) {
	s.mu.Lock()
	s.runs[key.Path]++
	entry, ok := s.Script[key.Path]
	s.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", importer.ErrNotFound, key.Path)
	}
	if entry.Delay > 0 {
		select {
		case <-time.After(entry.Delay):
		case <-ctx.Done():
		}
	}
	if entry.Err != nil {
		return nil, nil, entry.Err
	}

	artifact := entry.Artifact
	if artifact == nil {
		artifact = key.Path
	}
	requests := make([]assetid.Request, len(entry.Deps))
	for i, dep := range entry.Deps {
		requests[i] = assetid.ChildRequest(dep, key)
	}
	return artifact, requests, nil
}

// Runs returns how many times the given path was imported.
func (s *ScriptedImporter) Runs(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[assetid.NormalizePath(path)]
}
