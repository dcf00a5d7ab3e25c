package kinds

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
)

// fakeReader serves canned bytes by normalized path.
type fakeReader map[string][]byte

func (f fakeReader) ReadFile(path string) ([]byte, error) {
	if data, ok := f[assetid.NormalizePath(path)]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", importer.ErrNotFound, path)
}

func requestPaths(requests []assetid.Request) []string {
	out := make([]string, len(requests))
	for i, req := range requests {
		out[i] = string(req.Key.Kind) + ":" + req.Key.Path
	}
	return out
}

func TestKindForPath(t *testing.T) {
	cases := map[string]assetid.Kind{
		"maps/de_test.vmf":         assetid.KindMap,
		"models/props/Barrel.MDL":  assetid.KindModel,
		"materials/brick/wall.vmt": assetid.KindMaterial,
		"materials/brick/wall.vtf": assetid.KindTexture,
	}
	for path, want := range cases {
		kind, ok := KindForPath(path)
		require.True(t, ok, path)
		assert.Equal(t, want, kind)
	}

	_, ok := KindForPath("readme.txt")
	assert.False(t, ok)
}

func TestKeyForKeepsOnlyRelevantOptions(t *testing.T) {
	opts := assetid.Options{"texture_format": "png", "scale": "0.01", "unrelated": "x"}

	// A texture format change must not split map nodes.
	a := KeyFor(assetid.KindMap, "maps/a.vmf", opts)
	b := KeyFor(assetid.KindMap, "maps/a.vmf", assetid.Options{"texture_format": "tga", "scale": "0.01"})
	assert.Equal(t, a, b)

	// But it does split texture nodes.
	c := KeyFor(assetid.KindTexture, "materials/t.vtf", opts)
	d := KeyFor(assetid.KindTexture, "materials/t.vtf", assetid.Options{"texture_format": "tga"})
	assert.NotEqual(t, c, d)
}

func TestMapImporter(t *testing.T) {
	vmf := `
world
{
	solid
	{
		side { "material" "CONCRETE/FLOOR01" }
		side { "material" "concrete/wall01" }
		side { "material" "TOOLS/TOOLSNODRAW" }
	}
}
entity
{
	"classname" "prop_static"
	"model" "models/props/Barrel.mdl"
}
entity
{
	"classname" "info_overlay"
	"material" "decals/splatter01"
}
entity
{
	"classname" "func_detail"
	solid
	{
		side { "material" "concrete/floor01" }
	}
}
`
	key := KeyFor(assetid.KindMap, "maps/test.vmf", nil)
	imp := &MapImporter{Reader: fakeReader{"maps/test.vmf": []byte(vmf)}}

	artifact, requests, err := imp.Import(context.Background(), key)
	require.NoError(t, err)

	ma := artifact.(*MapArtifact)
	assert.Equal(t, 2, ma.Solids)
	assert.Equal(t, 3, ma.Entities)
	assert.Equal(t, 1, ma.Overlays)
	assert.Equal(t, []string{
		"materials/concrete/floor01.vmt",
		"materials/concrete/wall01.vmt",
		"materials/decals/splatter01.vmt",
	}, ma.Materials)
	assert.Equal(t, []string{"models/props/barrel.mdl"}, ma.Models)

	assert.ElementsMatch(t, []string{
		"material:materials/concrete/floor01.vmt",
		"material:materials/concrete/wall01.vmt",
		"material:materials/decals/splatter01.vmt",
		"model:models/props/barrel.mdl",
	}, requestPaths(requests))
	for _, req := range requests {
		require.NotNil(t, req.RequestedBy)
		assert.Equal(t, key, *req.RequestedBy)
	}
}

func TestMapImporterOptions(t *testing.T) {
	vmf := `
entity
{
	"classname" "prop_physics"
	"model" "models/junk/can.mdl"
}
entity
{
	"classname" "info_overlay"
	"material" "decals/d1"
}
`
	key := KeyFor(assetid.KindMap, "maps/test.vmf", nil)
	imp := &MapImporter{
		Reader:  fakeReader{"maps/test.vmf": []byte(vmf)},
		Options: assetid.Options{"import_props": "false", "import_overlays": "false"},
	}

	_, requests, err := imp.Import(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestMaterialImporter(t *testing.T) {
	vmt := `
"LightmappedGeneric"
{
	"$basetexture" "brick/wall003a"
	"$bumpmap" "brick/wall003a_normal"
	"$surfaceprop" "brick"
}
`
	key := KeyFor(assetid.KindMaterial, "materials/brick/wall003a.vmt", nil)
	imp := &MaterialImporter{Reader: fakeReader{key.Path: []byte(vmt)}}

	artifact, requests, err := imp.Import(context.Background(), key)
	require.NoError(t, err)

	ma := artifact.(*MaterialArtifact)
	assert.Equal(t, "LightmappedGeneric", ma.Shader)
	assert.Equal(t, []string{
		"materials/brick/wall003a.vtf",
		"materials/brick/wall003a_normal.vtf",
	}, ma.Textures)
	assert.ElementsMatch(t, []string{
		"texture:materials/brick/wall003a.vtf",
		"texture:materials/brick/wall003a_normal.vtf",
	}, requestPaths(requests))
}

func TestMaterialImporterSimpleMode(t *testing.T) {
	vmt := `
"VertexLitGeneric"
{
	"$basetexture" "models/props/barrel"
	"$bumpmap" "models/props/barrel_normal"
}
`
	key := KeyFor(assetid.KindMaterial, "materials/models/props/barrel.vmt", nil)
	imp := &MaterialImporter{
		Reader:  fakeReader{key.Path: []byte(vmt)},
		Options: assetid.Options{"simple_materials": "true"},
	}

	_, requests, err := imp.Import(context.Background(), key)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"texture:materials/models/props/barrel.vtf"}, requestPaths(requests))
}

func TestMaterialImporterPatch(t *testing.T) {
	vmt := `
patch
{
	include "materials/nature/grass.vmt"
	replace { "$basetexture" "nature/grass_dry" }
}
`
	key := KeyFor(assetid.KindMaterial, "materials/nature/grass_dry.vmt", nil)
	imp := &MaterialImporter{Reader: fakeReader{key.Path: []byte(vmt)}}

	artifact, requests, err := imp.Import(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "patch", artifact.(*MaterialArtifact).Shader)
	assert.ElementsMatch(t, []string{"material:materials/nature/grass.vmt"}, requestPaths(requests))
}

// buildMDL assembles a minimal studio model file: header, texture records
// and the cdtexture directory table.
func buildMDL(name string, textures, cdDirs []string) []byte {
	headerSize := mdlMinHeaderSize
	recordBase := headerSize
	cdTableBase := recordBase + len(textures)*mdlTextureRecordSize
	stringBase := cdTableBase + len(cdDirs)*4

	var strings []byte
	stringOffsets := make([]int, 0, len(textures)+len(cdDirs))
	for _, s := range append(append([]string{}, textures...), cdDirs...) {
		stringOffsets = append(stringOffsets, stringBase+len(strings))
		strings = append(strings, []byte(s)...)
		strings = append(strings, 0)
	}

	buf := make([]byte, stringBase+len(strings))
	copy(buf, mdlMagic)
	binary.LittleEndian.PutUint32(buf[4:], 48) // version
	copy(buf[mdlNameOffset:], name)
	binary.LittleEndian.PutUint32(buf[mdlNumTexturesOffset:], uint32(len(textures)))
	binary.LittleEndian.PutUint32(buf[mdlTextureIndexOffset:], uint32(recordBase))
	binary.LittleEndian.PutUint32(buf[mdlNumCdTexturesOffset:], uint32(len(cdDirs)))
	binary.LittleEndian.PutUint32(buf[mdlCdTextureIndex:], uint32(cdTableBase))
	binary.LittleEndian.PutUint32(buf[mdlNumSkinRefOffset:], 1)

	for i := range textures {
		record := recordBase + i*mdlTextureRecordSize
		binary.LittleEndian.PutUint32(buf[record:], uint32(stringOffsets[i]-record))
	}
	for i := range cdDirs {
		entry := cdTableBase + i*4
		binary.LittleEndian.PutUint32(buf[entry:], uint32(stringOffsets[len(textures)+i]))
	}
	copy(buf[stringBase:], strings)
	return buf
}

func TestModelImporter(t *testing.T) {
	mdl := buildMDL("props/barrel.mdl", []string{"barrel", "barrel_rim"}, []string{"models/props/", "models/fallback/"})

	reader := fakeReader{
		"models/props/barrel.mdl": mdl,
		// Only barrel resolves under the first cdtexture dir; barrel_rim
		// resolves nowhere and falls back to the first candidate.
		"materials/models/props/barrel.vmt": []byte(`"VertexLitGeneric" {}`),
	}
	key := KeyFor(assetid.KindModel, "models/props/barrel.mdl", nil)
	imp := &ModelImporter{Reader: reader}

	artifact, requests, err := imp.Import(context.Background(), key)
	require.NoError(t, err)

	ma := artifact.(*ModelArtifact)
	assert.Equal(t, "props/barrel.mdl", ma.Name)
	assert.Equal(t, int32(48), ma.Version)
	assert.Equal(t, []string{
		"materials/models/props/barrel.vmt",
		"materials/models/props/barrel_rim.vmt",
	}, ma.Materials)
	assert.ElementsMatch(t, []string{
		"material:materials/models/props/barrel.vmt",
		"material:materials/models/props/barrel_rim.vmt",
	}, requestPaths(requests))
}

func TestModelImporterRejectsGarbage(t *testing.T) {
	key := KeyFor(assetid.KindModel, "models/junk.mdl", nil)

	corrupt := func(mutate func([]byte)) fakeReader {
		mdl := buildMDL("props/junk.mdl", []string{"tex"}, []string{"models/props/"})
		mutate(mdl)
		return fakeReader{"models/junk.mdl": mdl}
	}

	cases := map[string]fakeReader{
		"not a model at all": {"models/junk.mdl": []byte("not a model")},
		"negative texture table offset": corrupt(func(mdl []byte) {
			binary.LittleEndian.PutUint32(mdl[mdlTextureIndexOffset:], 0xFFFFFFF8)
		}),
		"negative cdtexture table offset": corrupt(func(mdl []byte) {
			binary.LittleEndian.PutUint32(mdl[mdlCdTextureIndex:], 0xFFFFFFF8)
		}),
		"negative texture name index": corrupt(func(mdl []byte) {
			binary.LittleEndian.PutUint32(mdl[mdlMinHeaderSize:], 0x80000000)
		}),
		"texture table past end of file": corrupt(func(mdl []byte) {
			binary.LittleEndian.PutUint32(mdl[mdlTextureIndexOffset:], uint32(len(mdl)))
		}),
	}
	for name, reader := range cases {
		t.Run(name, func(t *testing.T) {
			imp := &ModelImporter{Reader: reader}
			_, _, err := imp.Import(context.Background(), key)
			assert.ErrorIs(t, err, importer.ErrDecode)
		})
	}
}

// buildVTF assembles a minimal texture header.
func buildVTF(width, height uint16, format uint32, mipmaps uint8) []byte {
	buf := make([]byte, 80)
	copy(buf, vtfMagic)
	binary.LittleEndian.PutUint32(buf[4:], 7)
	binary.LittleEndian.PutUint32(buf[8:], 2)
	binary.LittleEndian.PutUint32(buf[12:], 80) // header size
	binary.LittleEndian.PutUint16(buf[vtfWidthOffset:], width)
	binary.LittleEndian.PutUint16(buf[vtfHeightOffset:], height)
	binary.LittleEndian.PutUint16(buf[vtfFramesOffset:], 1)
	binary.LittleEndian.PutUint32(buf[vtfFormatOffset:], format)
	buf[vtfMipmapsOffset] = mipmaps
	return buf
}

func TestTextureImporter(t *testing.T) {
	key := KeyFor(assetid.KindTexture, "materials/brick/wall.vtf", nil)
	imp := &TextureImporter{Reader: fakeReader{key.Path: buildVTF(1024, 512, 13, 11)}}

	artifact, requests, err := imp.Import(context.Background(), key)
	require.NoError(t, err)
	assert.Empty(t, requests)

	ta := artifact.(*TextureArtifact)
	assert.Equal(t, uint16(1024), ta.Width)
	assert.Equal(t, uint16(512), ta.Height)
	assert.Equal(t, "DXT1", ta.Format)
	assert.Equal(t, uint8(11), ta.Mipmaps)
	assert.Equal(t, uint16(1), ta.Frames)
}

func TestTextureImporterErrors(t *testing.T) {
	key := KeyFor(assetid.KindTexture, "materials/missing.vtf", nil)
	imp := &TextureImporter{Reader: fakeReader{}}

	_, _, err := imp.Import(context.Background(), key)
	assert.ErrorIs(t, err, importer.ErrNotFound)

	imp = &TextureImporter{Reader: fakeReader{"materials/missing.vtf": []byte("VTF")}}
	_, _, err = imp.Import(context.Background(), key)
	assert.ErrorIs(t, err, importer.ErrDecode)
}

func TestNewRegistryCoversAllKinds(t *testing.T) {
	reg := NewRegistry(fakeReader{}, nil)
	for _, kind := range []assetid.Kind{assetid.KindMap, assetid.KindModel, assetid.KindMaterial, assetid.KindTexture} {
		_, err := reg.Lookup(kind)
		require.NoError(t, err)
	}
}
