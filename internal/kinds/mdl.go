package kinds

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
	"github.com/vk/assetforge/internal/vfs"
)

// studiohdr_t constants. The header layout is fixed across the MDL versions
// we care about; all integers are little-endian.
const (
	mdlMagic = "IDST"

	mdlNameOffset          = 12
	mdlNameLen             = 64
	mdlNumTexturesOffset   = 204
	mdlTextureIndexOffset  = 208
	mdlNumCdTexturesOffset = 212
	mdlCdTextureIndex      = 216
	mdlNumSkinRefOffset    = 220

	// mstudiotexture_t: sznameindex followed by flags/used and pointer
	// padding.
	mdlTextureRecordSize = 64

	mdlMinHeaderSize = 232
)

// ModelArtifact is the decoded form of an MDL model.
type ModelArtifact struct {
	Path      string
	Name      string
	Version   int32
	SkinRefs  int32
	Materials []string
}

// ModelImporter decodes the header and texture table of binary MDL model
// files. A model names its materials without a directory; the candidate
// directories come from the model's cdtexture list and the first one that
// actually resolves wins.
type ModelImporter struct {
	Reader  vfs.Reader
	Options assetid.Options
}

// Kind implements importer.Importer.
func (m *ModelImporter) Kind() assetid.Kind { return assetid.KindModel }

// Import implements importer.Importer.
func (m *ModelImporter) Import(ctx context.Context, key assetid.Key) (importer.Artifact, []assetid.Request, error) {
	data, err := m.Reader.ReadFile(key.Path)
	if err != nil {
		return nil, nil, err
	}
	if len(data) < mdlMinHeaderSize || string(data[:4]) != mdlMagic {
		return nil, nil, fmt.Errorf("%w: %s: not a studio model", importer.ErrDecode, key.Path)
	}

	artifact := &ModelArtifact{
		Path:     key.Path,
		Name:     readFixedString(data[mdlNameOffset : mdlNameOffset+mdlNameLen]),
		Version:  int32(binary.LittleEndian.Uint32(data[4:8])),
		SkinRefs: int32(binary.LittleEndian.Uint32(data[mdlNumSkinRefOffset:])),
	}

	textures, err := readTextureNames(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", importer.ErrDecode, key.Path, err)
	}
	dirs, err := readCdTextureDirs(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", importer.ErrDecode, key.Path, err)
	}

	for _, tex := range textures {
		artifact.Materials = append(artifact.Materials, m.resolveMaterial(dirs, tex))
	}

	requests := make([]assetid.Request, len(artifact.Materials))
	for i, mat := range artifact.Materials {
		requests[i] = assetid.ChildRequest(KeyFor(assetid.KindMaterial, mat, m.Options), key)
	}
	return artifact, requests, nil
}

// resolveMaterial joins a texture name with the first cdtexture directory
// under which the material file exists. When none resolves, the first
// candidate is reported anyway so the failure carries a concrete path.
func (m *ModelImporter) resolveMaterial(dirs []string, name string) string {
	if len(dirs) == 0 {
		return materialPath(name)
	}
	first := ""
	for _, dir := range dirs {
		candidate := materialPath(joinGamePath(dir, name))
		if first == "" {
			first = candidate
		}
		if _, err := m.Reader.ReadFile(candidate); err == nil || !errors.Is(err, importer.ErrNotFound) {
			return candidate
		}
	}
	return first
}

func joinGamePath(dir, name string) string {
	dir = strings.Trim(assetid.NormalizePath(dir), "/")
	name = strings.Trim(assetid.NormalizePath(name), "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func readTextureNames(data []byte) ([]string, error) {
	count := int(int32(binary.LittleEndian.Uint32(data[mdlNumTexturesOffset:])))
	tableOffset := int(int32(binary.LittleEndian.Uint32(data[mdlTextureIndexOffset:])))
	if count < 0 || count > 1024 {
		return nil, fmt.Errorf("implausible texture count %d", count)
	}
	// The offset is a signed field; a crafted negative value would slip past
	// the upper-bound check below and slice out of range.
	if tableOffset < 0 {
		return nil, fmt.Errorf("texture table offset %d out of bounds", tableOffset)
	}

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		record := tableOffset + i*mdlTextureRecordSize
		if record+4 > len(data) {
			return nil, fmt.Errorf("texture record %d out of bounds", i)
		}
		nameIndex := int(int32(binary.LittleEndian.Uint32(data[record:])))
		name, err := readCString(data, record+nameIndex)
		if err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func readCdTextureDirs(data []byte) ([]string, error) {
	count := int(int32(binary.LittleEndian.Uint32(data[mdlNumCdTexturesOffset:])))
	tableOffset := int(int32(binary.LittleEndian.Uint32(data[mdlCdTextureIndex:])))
	if count < 0 || count > 64 {
		return nil, fmt.Errorf("implausible cdtexture count %d", count)
	}
	if tableOffset < 0 {
		return nil, fmt.Errorf("cdtexture table offset %d out of bounds", tableOffset)
	}

	dirs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		entry := tableOffset + i*4
		if entry+4 > len(data) {
			return nil, fmt.Errorf("cdtexture entry %d out of bounds", i)
		}
		strOffset := int(int32(binary.LittleEndian.Uint32(data[entry:])))
		dir, err := readCString(data, strOffset)
		if err != nil {
			return nil, fmt.Errorf("cdtexture %d: %w", i, err)
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func readCString(data []byte, offset int) (string, error) {
	if offset < 0 || offset >= len(data) {
		return "", fmt.Errorf("string offset %d out of bounds", offset)
	}
	end := bytes.IndexByte(data[offset:], 0)
	if end < 0 {
		return "", fmt.Errorf("unterminated string at offset %d", offset)
	}
	return string(data[offset : offset+end]), nil
}

func readFixedString(buf []byte) string {
	if end := bytes.IndexByte(buf, 0); end >= 0 {
		buf = buf[:end]
	}
	return string(buf)
}
