package kinds

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
	"github.com/vk/assetforge/internal/keyvalues"
	"github.com/vk/assetforge/internal/vfs"
)

// textureParameters are the VMT parameters whose values reference textures.
var textureParameters = []string{
	"$basetexture",
	"$basetexture2",
	"$bumpmap",
	"$normalmap",
	"$envmapmask",
	"$detail",
	"$selfillummask",
	"$phongexponenttexture",
}

// MaterialArtifact is the decoded form of a VMT material.
type MaterialArtifact struct {
	Path       string
	Shader     string
	Parameters map[string]string
	Textures   []string
}

// MaterialImporter decodes VMT material files and reports the textures they
// reference.
type MaterialImporter struct {
	Reader  vfs.Reader
	Options assetid.Options
}

// Kind implements importer.Importer.
func (m *MaterialImporter) Kind() assetid.Kind { return assetid.KindMaterial }

// Import implements importer.Importer.
func (m *MaterialImporter) Import(ctx context.Context, key assetid.Key) (importer.Artifact, []assetid.Request, error) {
	data, err := m.Reader.ReadFile(key.Path)
	if err != nil {
		return nil, nil, err
	}

	doc, err := keyvalues.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", importer.ErrDecode, key.Path, err)
	}
	body, ok := doc.FirstBlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s: material has no shader block", importer.ErrDecode, key.Path)
	}

	// "patch" materials replace themselves with another material plus
	// overrides; the include is followed as a material dependency.
	if strings.EqualFold(body.Name, "patch") {
		include, ok := body.Get("include")
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s: patch material without include", importer.ErrDecode, key.Path)
		}
		artifact := &MaterialArtifact{Path: key.Path, Shader: "patch"}
		req := assetid.ChildRequest(KeyFor(assetid.KindMaterial, materialPath(include), m.Options), key)
		return artifact, []assetid.Request{req}, nil
	}

	artifact := &MaterialArtifact{
		Path:       key.Path,
		Shader:     body.Name,
		Parameters: make(map[string]string),
	}

	simple := m.Options["simple_materials"] == "true"
	params := textureParameters
	if simple {
		params = params[:1] // base texture only
	}

	seen := make(map[string]struct{})
	for _, param := range params {
		ref, ok := body.Get(param)
		if !ok || ref == "" {
			continue
		}
		artifact.Parameters[param] = ref
		tex := texturePath(ref)
		if _, dup := seen[tex]; dup {
			continue
		}
		seen[tex] = struct{}{}
		artifact.Textures = append(artifact.Textures, tex)
	}

	requests := make([]assetid.Request, len(artifact.Textures))
	for i, tex := range artifact.Textures {
		requests[i] = assetid.ChildRequest(KeyFor(assetid.KindTexture, tex, m.Options), key)
	}
	return artifact, requests, nil
}
