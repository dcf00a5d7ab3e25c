// Package vfs implements the search-path virtual filesystem game assets are
// resolved against. A game ships its content spread over loose directories
// and packed archives; a logical path like "materials/brick/wall.vmt" is
// looked up in each search path in order, first hit wins. Importers consult
// the resolver for raw bytes; the engine core never does.
package vfs

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/ctxlog"
	"github.com/vk/assetforge/internal/importer"
)

// defaultCacheSize bounds the read-through byte cache. Asset trees reference
// the same materials and textures from many parents, so a modest LRU saves a
// lot of repeated archive reads.
const defaultCacheSize = 512

// Reader is the raw input resolver importers depend on. ReadFile reports a
// missing asset by wrapping importer.ErrNotFound.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// SearchPath is one entry of a filesystem definition: either a loose
// directory or a zip archive. Exactly one field is set.
type SearchPath struct {
	Dir     string
	Archive string
}

// FileSystem describes a game's content layout before it is opened.
type FileSystem struct {
	Name        string
	SearchPaths []SearchPath
}

// Open materializes the filesystem: archives are opened and indexed
// concurrently, then a shared byte cache is attached. The returned Resolver
// is safe for concurrent use by many importer workers.
func (fs FileSystem) Open(ctx context.Context) (*Resolver, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Opening file system.", "game", fs.Name, "search_paths", len(fs.SearchPaths))

	entries := make([]searchEntry, len(fs.SearchPaths))
	eg, _ := errgroup.WithContext(ctx)
	for i, sp := range fs.SearchPaths {
		i, sp := i, sp
		eg.Go(func() error {
			entry, err := openSearchPath(sp)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		for _, entry := range entries {
			if entry != nil {
				entry.close()
			}
		}
		return nil, fmt.Errorf("opening file system %q: %w", fs.Name, err)
	}

	cache, err := lru.New[string, []byte](defaultCacheSize)
	if err != nil {
		return nil, err
	}

	logger.Debug("File system opened.", "game", fs.Name)
	return &Resolver{name: fs.Name, entries: entries, cache: cache}, nil
}

// Resolver is an opened filesystem. It implements Reader.
type Resolver struct {
	name    string
	entries []searchEntry
	cache   *lru.Cache[string, []byte]

	closeOnce sync.Once
}

// Name returns the name of the game this resolver serves.
func (r *Resolver) Name() string { return r.name }

// ReadFile resolves a logical asset path to bytes. The path is normalized
// the same way asset keys are, search paths are consulted in definition
// order and results are cached.
func (r *Resolver) ReadFile(path string) ([]byte, error) {
	path = assetid.NormalizePath(path)
	if data, ok := r.cache.Get(path); ok {
		return data, nil
	}

	for _, entry := range r.entries {
		data, err := entry.read(path)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		r.cache.Add(path, data)
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", importer.ErrNotFound, path)
}

// Close releases archive handles. The resolver must not be used afterwards.
func (r *Resolver) Close() error {
	var firstErr error
	r.closeOnce.Do(func() {
		for _, entry := range r.entries {
			if err := entry.close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// errSkip signals "not in this search path, try the next one".
var errSkip = errors.New("not in search path")

type searchEntry interface {
	read(path string) ([]byte, error)
	close() error
}

func openSearchPath(sp SearchPath) (searchEntry, error) {
	switch {
	case sp.Dir != "":
		info, err := os.Stat(sp.Dir)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("search path %q is not a directory", sp.Dir)
		}
		return dirEntry{root: sp.Dir}, nil
	case sp.Archive != "":
		return openArchive(sp.Archive)
	default:
		return nil, errors.New("search path has neither dir nor archive")
	}
}

// dirEntry serves files from a loose content directory. Game paths are
// case-insensitive but the host filesystem may not be, so a miss falls back
// to a case-insensitive scan of the target directory.
type dirEntry struct {
	root string
}

func (d dirEntry) read(path string) ([]byte, error) {
	full := filepath.Join(d.root, filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if resolved, ok := d.resolveInsensitive(path); ok {
		return os.ReadFile(resolved)
	}
	return nil, errSkip
}

func (d dirEntry) close() error { return nil }

func (d dirEntry) resolveInsensitive(path string) (string, bool) {
	current := d.root
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		listing, err := os.ReadDir(current)
		if err != nil {
			return "", false
		}
		found := ""
		for _, entry := range listing {
			if strings.EqualFold(entry.Name(), segment) {
				if i < len(segments)-1 && !entry.IsDir() {
					continue
				}
				found = entry.Name()
				break
			}
		}
		if found == "" {
			return "", false
		}
		current = filepath.Join(current, found)
	}
	return current, true
}

// archiveEntry serves files from a zip archive, indexed once at open time by
// normalized member path.
type archiveEntry struct {
	rc      *zip.ReadCloser
	members map[string]*zip.File
}

func openArchive(path string) (*archiveEntry, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %q: %w", path, err)
	}
	members := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		members[assetid.NormalizePath(f.Name)] = f
	}
	return &archiveEntry{rc: rc, members: members}, nil
}

func (a *archiveEntry) read(path string) ([]byte, error) {
	f, ok := a.members[path]
	if !ok {
		return nil, errSkip
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (a *archiveEntry) close() error {
	return a.rc.Close()
}
