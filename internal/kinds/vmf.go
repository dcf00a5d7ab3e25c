package kinds

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
	"github.com/vk/assetforge/internal/keyvalues"
	"github.com/vk/assetforge/internal/vfs"
)

// MapArtifact is the decoded form of a VMF map handed to the sink.
type MapArtifact struct {
	Path      string
	Solids    int
	Entities  int
	Overlays  int
	Materials []string
	Models    []string
}

// MapImporter decodes VMF map files. Maps are the richest dependency source:
// every brush side references a material and every prop entity references a
// model.
type MapImporter struct {
	Reader  vfs.Reader
	Options assetid.Options
}

// Kind implements importer.Importer.
func (m *MapImporter) Kind() assetid.Kind { return assetid.KindMap }

// Import implements importer.Importer.
func (m *MapImporter) Import(ctx context.Context, key assetid.Key) (importer.Artifact, []assetid.Request, error) {
	data, err := m.Reader.ReadFile(key.Path)
	if err != nil {
		return nil, nil, err
	}

	doc, err := keyvalues.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", importer.ErrDecode, key.Path, err)
	}

	artifact := &MapArtifact{Path: key.Path}
	materials := make(map[string]struct{})
	models := make(map[string]struct{})

	for _, world := range doc.BlocksNamed("world") {
		for _, solid := range world.BlocksNamed("solid") {
			artifact.Solids++
			collectSolidMaterials(solid, materials)
		}
	}

	importProps := m.Options["import_props"] != "false"
	for _, entity := range doc.BlocksNamed("entity") {
		artifact.Entities++
		class := entity.GetDefault("classname", "")
		switch {
		case strings.HasPrefix(class, "prop_"):
			if !importProps {
				continue
			}
			if model, ok := entity.Get("model"); ok {
				models[assetid.NormalizePath(model)] = struct{}{}
			}
		case class == "info_overlay":
			artifact.Overlays++
			if m.Options["import_overlays"] == "false" {
				continue
			}
			if mat, ok := entity.Get("material"); ok {
				materials[materialPath(mat)] = struct{}{}
			}
		default:
			// Brush entities (func_detail and friends) carry solids too.
			for _, solid := range entity.BlocksNamed("solid") {
				artifact.Solids++
				collectSolidMaterials(solid, materials)
			}
		}
	}

	artifact.Materials = sortedKeys(materials)
	artifact.Models = sortedKeys(models)

	var requests []assetid.Request
	for _, mat := range artifact.Materials {
		requests = append(requests, assetid.ChildRequest(KeyFor(assetid.KindMaterial, mat, m.Options), key))
	}
	for _, model := range artifact.Models {
		requests = append(requests, assetid.ChildRequest(KeyFor(assetid.KindModel, model, m.Options), key))
	}
	return artifact, requests, nil
}

// collectSolidMaterials gathers the material of every side of a solid.
// Tool materials are skipped: they only exist for the map editor.
func collectSolidMaterials(solid *keyvalues.Block, into map[string]struct{}) {
	for _, side := range solid.BlocksNamed("side") {
		mat, ok := side.Get("material")
		if !ok {
			continue
		}
		if strings.HasPrefix(strings.ToLower(mat), "tools/") {
			continue
		}
		into[materialPath(mat)] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
