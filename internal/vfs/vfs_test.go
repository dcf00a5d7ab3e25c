package vfs

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/assetforge/internal/importer"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func writeArchive(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestSearchPathPrecedence(t *testing.T) {
	override := t.TempDir()
	base := t.TempDir()
	writeFile(t, override, "materials/wall.vmt", "override")
	writeFile(t, base, "materials/wall.vmt", "base")
	writeFile(t, base, "materials/floor.vmt", "floor")

	fs := FileSystem{
		Name: "testgame",
		SearchPaths: []SearchPath{
			{Dir: override},
			{Dir: base},
		},
	}
	r, err := fs.Open(context.Background())
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadFile("materials/wall.vmt")
	require.NoError(t, err)
	assert.Equal(t, "override", string(data))

	data, err = r.ReadFile("materials/floor.vmt")
	require.NoError(t, err)
	assert.Equal(t, "floor", string(data))
}

func TestArchiveFallback(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "content.zip")
	writeFile(t, dir, "materials/loose.vmt", "loose")
	writeArchive(t, archive, map[string]string{
		"materials/Packed.vmt": "packed",
	})

	fs := FileSystem{
		Name: "testgame",
		SearchPaths: []SearchPath{
			{Dir: dir},
			{Archive: archive},
		},
	}
	r, err := fs.Open(context.Background())
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadFile("materials/packed.vmt")
	require.NoError(t, err)
	assert.Equal(t, "packed", string(data))

	_, err = r.ReadFile("materials/absent.vmt")
	assert.ErrorIs(t, err, importer.ErrNotFound)
}

func TestPathNormalizationAndCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Materials/Brick/Wall001.vmt", "bricks")

	fs := FileSystem{Name: "testgame", SearchPaths: []SearchPath{{Dir: dir}}}
	r, err := fs.Open(context.Background())
	require.NoError(t, err)
	defer r.Close()

	// Backslashes and case differences resolve to the same file.
	data, err := r.ReadFile(`materials\brick\wall001.vmt`)
	require.NoError(t, err)
	assert.Equal(t, "bricks", string(data))
}

func TestReadThroughCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "materials/cached.vmt", "v1")

	fs := FileSystem{Name: "testgame", SearchPaths: []SearchPath{{Dir: dir}}}
	r, err := fs.Open(context.Background())
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadFile("materials/cached.vmt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	// The second read is served from cache within one session.
	writeFile(t, dir, "materials/cached.vmt", "v2")
	data, err = r.ReadFile("materials/cached.vmt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestOpenFailsOnMissingSearchPath(t *testing.T) {
	fs := FileSystem{
		Name:        "broken",
		SearchPaths: []SearchPath{{Dir: filepath.Join(t.TempDir(), "does-not-exist")}},
	}
	_, err := fs.Open(context.Background())
	assert.Error(t, err)
}
