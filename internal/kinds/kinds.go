// Package kinds implements the concrete importers for the supported asset
// kinds: VMF maps, VMT materials, MDL models and VTF textures. Each importer
// decodes raw bytes from the virtual filesystem and reports the assets it
// found references to; it never touches the dependency graph.
package kinds

import (
	"path"
	"strings"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
	"github.com/vk/assetforge/internal/vfs"
)

// relevantOptions lists, per kind, the import options that affect the
// imported result and therefore belong in the key fingerprint. A texture
// format change must not split every map into a new node.
var relevantOptions = map[assetid.Kind][]string{
	assetid.KindMap:      {"scale", "import_overlays", "import_props", "invisible_solids"},
	assetid.KindModel:    {"scale", "import_animations"},
	assetid.KindMaterial: {"simple_materials", "texture_format"},
	assetid.KindTexture:  {"texture_format"},
}

// KeyFor builds the canonical key for an asset of the given kind, keeping
// only the options relevant to that kind.
func KeyFor(kind assetid.Kind, rawPath string, opts assetid.Options) assetid.Key {
	return assetid.Normalize(kind, rawPath, opts.Subset(relevantOptions[kind]...))
}

// KindForPath infers the asset kind from a path's extension.
func KindForPath(rawPath string) (assetid.Kind, bool) {
	switch strings.ToLower(path.Ext(rawPath)) {
	case ".vmf":
		return assetid.KindMap, true
	case ".mdl":
		return assetid.KindModel, true
	case ".vmt":
		return assetid.KindMaterial, true
	case ".vtf":
		return assetid.KindTexture, true
	}
	return "", false
}

// NewRegistry wires all four importers against one resolver and one option
// profile.
func NewRegistry(reader vfs.Reader, opts assetid.Options) *importer.Registry {
	reg := importer.NewRegistry()
	reg.Register(&MapImporter{Reader: reader, Options: opts})
	reg.Register(&ModelImporter{Reader: reader, Options: opts})
	reg.Register(&MaterialImporter{Reader: reader, Options: opts})
	reg.Register(&TextureImporter{Reader: reader, Options: opts})
	return reg
}

// materialPath turns a material reference as found in map and model files
// (relative to the materials tree, extension omitted) into a vfs path.
func materialPath(ref string) string {
	ref = assetid.NormalizePath(ref)
	ref = strings.TrimSuffix(ref, ".vmt")
	if !strings.HasPrefix(ref, "materials/") {
		ref = "materials/" + ref
	}
	return ref + ".vmt"
}

// texturePath does the same for texture references inside materials.
func texturePath(ref string) string {
	ref = assetid.NormalizePath(ref)
	ref = strings.TrimSuffix(ref, ".vtf")
	if !strings.HasPrefix(ref, "materials/") {
		ref = "materials/" + ref
	}
	return ref + ".vtf"
}
