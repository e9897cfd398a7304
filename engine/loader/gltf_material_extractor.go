package loader

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/prism-engine/prism/common"
	"github.com/prism-engine/prism/engine/renderer/material"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

// gltfMaterialExtractor defines the interface for extracting material and texture data
// from a parsed glTF document into render-ready Materials with staged texture channels.
type gltfMaterialExtractor interface {
	// ExtractMaterial extracts a single material by index, decoding any referenced
	// texture images into staged RGBA pixel data.
	//
	// Parameters:
	//   - materialIndex: the index of the material in the document
	//
	// Returns:
	//   - material.Material: the extracted material with texture channels staged
	//   - error: error if extraction fails
	ExtractMaterial(materialIndex int) (material.Material, error)

	// ExtractAllMaterials extracts all materials from the document.
	//
	// Returns:
	//   - []material.Material: all extracted materials, in document order
	//   - error: error if extraction fails
	ExtractAllMaterials() ([]material.Material, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a new material extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterial(materialIndex int) (material.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if materialIndex < 0 || materialIndex >= len(doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", materialIndex)
	}

	mat := &doc.Materials[materialIndex]

	name := mat.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", materialIndex)
	}
	options := []material.MaterialBuilderOption{material.WithName(name)}

	// glTF defaults: metallic and roughness are 1.0 unless factors say otherwise.
	metallic, roughness := float32(1), float32(1)

	if pbr := mat.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			c := *pbr.BaseColorFactor
			options = append(options, material.WithBaseColor(c[0], c[1], c[2], c[3]))
		}
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}

		if pbr.BaseColorTexture != nil {
			// Base color carries sRGB-encoded color data.
			staged, err := e.loadTexture(pbr.BaseColorTexture.Index, wgpu.TextureFormatRGBA8UnormSrgb)
			if err != nil {
				return nil, fmt.Errorf("material %q: base color texture: %w", name, err)
			}
			if staged != nil {
				options = append(options, material.WithTexture(material.FlagBaseColorTexture, staged))
			}
		}

		if pbr.MetallicRoughnessTexture != nil {
			staged, err := e.loadTexture(pbr.MetallicRoughnessTexture.Index, wgpu.TextureFormatRGBA8Unorm)
			if err != nil {
				return nil, fmt.Errorf("material %q: metallic-roughness texture: %w", name, err)
			}
			if staged != nil {
				options = append(options, material.WithTexture(material.FlagMetallicRoughnessTexture, staged))
			}
		}
	}
	options = append(options, material.WithMetallic(metallic), material.WithRoughness(roughness))

	if mat.NormalTexture != nil {
		staged, err := e.loadTexture(mat.NormalTexture.Index, wgpu.TextureFormatRGBA8Unorm)
		if err != nil {
			return nil, fmt.Errorf("material %q: normal texture: %w", name, err)
		}
		if staged != nil {
			options = append(options, material.WithTexture(material.FlagNormalTexture, staged))
		}
		if mat.NormalTexture.Scale != nil {
			options = append(options, material.WithNormalScale(*mat.NormalTexture.Scale))
		}
	}

	if mat.OcclusionTexture != nil {
		staged, err := e.loadTexture(mat.OcclusionTexture.Index, wgpu.TextureFormatRGBA8Unorm)
		if err != nil {
			return nil, fmt.Errorf("material %q: occlusion texture: %w", name, err)
		}
		if staged != nil {
			options = append(options, material.WithTexture(material.FlagOcclusionTexture, staged))
		}
		if mat.OcclusionTexture.Strength != nil {
			options = append(options, material.WithOcclusionStrength(*mat.OcclusionTexture.Strength))
		}
	}

	if mat.EmissiveTexture != nil {
		// Emissive color data is sRGB-encoded like base color.
		staged, err := e.loadTexture(mat.EmissiveTexture.Index, wgpu.TextureFormatRGBA8UnormSrgb)
		if err != nil {
			return nil, fmt.Errorf("material %q: emissive texture: %w", name, err)
		}
		if staged != nil {
			options = append(options, material.WithTexture(material.FlagEmissiveTexture, staged))
		}
	}
	if mat.EmissiveFactor != nil {
		f := *mat.EmissiveFactor
		options = append(options, material.WithEmissive(f[0], f[1], f[2], 1))
	}

	// glTF MASK mode approximates to alpha blending; the forward pipeline has
	// no dedicated alpha-test path.
	if mat.AlphaMode == gltfAlphaModeBlend || mat.AlphaMode == gltfAlphaModeMask {
		options = append(options, material.WithBlendMode(material.BlendTransparent))
	}

	return material.NewMaterial(options...), nil
}

func (e *gltfMaterialExtractorImpl) ExtractAllMaterials() ([]material.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	materials := make([]material.Material, len(doc.Materials))
	for i := range doc.Materials {
		mat, err := e.ExtractMaterial(i)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		materials[i] = mat
	}

	return materials, nil
}

// loadTexture resolves a glTF texture index into staged RGBA pixel data ready for
// GPU upload. Image bytes come from a buffer view (GLB), a base64 data URI, or an
// external file resolved relative to the glTF base directory. The format parameter
// selects the upload encoding: sRGB for color channels, linear for data channels.
func (e *gltfMaterialExtractorImpl) loadTexture(textureIndex int, format wgpu.TextureFormat) (*common.TextureStagingData, error) {
	doc := e.parser.Document()
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := &doc.Textures[textureIndex]
	if tex.Source == nil {
		return nil, nil
	}

	imageIndex := *tex.Source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}

	img := &doc.Images[imageIndex]

	var raw []byte

	switch {
	// Case 1: Image embedded in a buffer view (common in GLB)
	case img.BufferView != nil:
		data, err := e.readBufferViewRaw(*img.BufferView)
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		raw = data

	// Case 2: Data URI (base64 encoded inline)
	case strings.HasPrefix(img.URI, "data:"):
		data, _, err := gltfDecodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		raw = data

	// Case 3: External file reference
	case img.URI != "":
		absPath := filepath.Join(e.parser.BaseDir(), img.URI)
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read texture file %s: %w", absPath, err)
		}
		raw = data

	default:
		return nil, nil
	}

	pixels, width, height, err := gltfDecodeImagePixels(raw)
	if err != nil {
		return nil, err
	}

	return &common.TextureStagingData{
		Pixels: pixels,
		Width:  width,
		Height: height,
		Format: format,
	}, nil
}

// readBufferViewRaw reads raw bytes from a buffer view by index (not through an accessor).
// This is used for image data which is stored directly in buffer views without accessor interpretation.
func (e *gltfMaterialExtractorImpl) readBufferViewRaw(bufferViewIndex int) ([]byte, error) {
	doc := e.parser.Document()
	if bufferViewIndex < 0 || bufferViewIndex >= len(doc.BufferViews) {
		return nil, fmt.Errorf("bufferView index %d out of range", bufferViewIndex)
	}

	bv := &doc.BufferViews[bufferViewIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer index %d out of range", bv.Buffer)
	}

	buf := &doc.Buffers[bv.Buffer]
	start := bv.ByteOffset
	length := bv.ByteLength
	end := start + length

	if end > len(buf.Data) {
		return nil, fmt.Errorf("bufferView exceeds buffer bounds: offset=%d length=%d bufSize=%d", start, length, len(buf.Data))
	}

	data := make([]byte, length)
	copy(data, buf.Data[start:end])
	return data, nil
}

// gltfDecodeImagePixels decodes PNG or JPEG bytes into tightly packed RGBA pixels.
// Reference: https://pkg.go.dev/image
func gltfDecodeImagePixels(data []byte) ([]byte, uint32, uint32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return rgba.Pix, uint32(bounds.Dx()), uint32(bounds.Dy()), nil
}

// gltfDecodeDataURI decodes a base64 data URI into raw bytes and extracts the MIME type.
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	// Format: data:[<mediatype>][;base64],<data>
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}

	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("malformed data URI: no comma found")
	}

	header := uri[5:commaIdx] // after "data:", before ","
	encoded := uri[commaIdx+1:]

	var mimeType string
	if strings.Contains(header, ";base64") {
		mimeType = strings.TrimSuffix(header, ";base64")
	} else {
		mimeType = header
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}

	return data, mimeType, nil
}
