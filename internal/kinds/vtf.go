package kinds

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/vk/assetforge/internal/assetid"
	"github.com/vk/assetforge/internal/importer"
	"github.com/vk/assetforge/internal/vfs"
)

// VTF header layout, little-endian.
const (
	vtfMagic         = "VTF\x00"
	vtfMinHeaderSize = 64

	vtfWidthOffset   = 16
	vtfHeightOffset  = 18
	vtfFlagsOffset   = 20
	vtfFramesOffset  = 24
	vtfFormatOffset  = 52
	vtfMipmapsOffset = 56
)

// vtfFormatNames maps the high-res image format enum to a printable name
// for the formats that show up in practice.
var vtfFormatNames = map[uint32]string{
	0:  "RGBA8888",
	2:  "RGB888",
	3:  "BGR888",
	12: "BGRA8888",
	13: "DXT1",
	14: "DXT3",
	15: "DXT5",
}

// TextureArtifact is the decoded form of a VTF texture header. Textures are
// graph leaves: they never emit further requests.
type TextureArtifact struct {
	Path         string
	MajorVersion uint32
	MinorVersion uint32
	Width        uint16
	Height       uint16
	Frames       uint16
	Mipmaps      uint8
	Format       string
}

// TextureImporter decodes VTF texture file headers.
type TextureImporter struct {
	Reader  vfs.Reader
	Options assetid.Options
}

// Kind implements importer.Importer.
func (t *TextureImporter) Kind() assetid.Kind { return assetid.KindTexture }

// Import implements importer.Importer.
func (t *TextureImporter) Import(ctx context.Context, key assetid.Key) (importer.Artifact, []assetid.Request, error) {
	data, err := t.Reader.ReadFile(key.Path)
	if err != nil {
		return nil, nil, err
	}
	if len(data) < vtfMinHeaderSize || string(data[:4]) != vtfMagic {
		return nil, nil, fmt.Errorf("%w: %s: not a vtf texture", importer.ErrDecode, key.Path)
	}

	format := binary.LittleEndian.Uint32(data[vtfFormatOffset:])
	name, ok := vtfFormatNames[format]
	if !ok {
		name = fmt.Sprintf("format_%d", format)
	}

	artifact := &TextureArtifact{
		Path:         key.Path,
		MajorVersion: binary.LittleEndian.Uint32(data[4:8]),
		MinorVersion: binary.LittleEndian.Uint32(data[8:12]),
		Width:        binary.LittleEndian.Uint16(data[vtfWidthOffset:]),
		Height:       binary.LittleEndian.Uint16(data[vtfHeightOffset:]),
		Frames:       binary.LittleEndian.Uint16(data[vtfFramesOffset:]),
		Mipmaps:      data[vtfMipmapsOffset],
		Format:       name,
	}
	if artifact.Width == 0 || artifact.Height == 0 {
		return nil, nil, fmt.Errorf("%w: %s: zero texture dimensions", importer.ErrDecode, key.Path)
	}
	return artifact, nil, nil
}

var _ importer.Importer = (*TextureImporter)(nil)
