package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-engine/prism/engine/model"
	"github.com/prism-engine/prism/engine/renderer/material"
)

// buildTriangleBuffer packs the binary payload shared by the JSON and GLB
// fixtures: 3 positions (VEC3 float), 3 UVs (VEC2 float), 3 uint16 indices.
// The triangle spans (0,0,0)-(1,0,0)-(0,1,0), counter-clockwise, normal +Z.
func buildTriangleBuffer() []byte {
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	uvs := [][2]float32{{0, 0}, {1, 0}, {0, 1}}
	indices := []uint16{0, 1, 2}

	buf := make([]byte, 0, 66)
	for _, p := range positions {
		for _, f := range p {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	for _, uv := range uvs {
		for _, f := range uv {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	for _, i := range indices {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	return buf
}

// buildTriangleGLTFJSON builds a complete glTF 2.0 document with the triangle
// buffer embedded as a base64 data URI. It carries two materials so extraction
// of explicit factors and defaults is covered in one pass.
func buildTriangleGLTFJSON(bufferURI string, byteLength int) []byte {
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"scene": 0,
		"scenes": [{"name": "tri_scene", "nodes": [0]}],
		"nodes": [{"mesh": 0}],
		"meshes": [{
			"name": "tri",
			"primitives": [{
				"attributes": {"POSITION": 0, "TEXCOORD_0": 1},
				"indices": 2,
				"material": 0
			}]
		}],
		"materials": [
			{
				"name": "painted",
				"pbrMetallicRoughness": {
					"baseColorFactor": [0.2, 0.4, 0.6, 1.0],
					"metallicFactor": 0.3,
					"roughnessFactor": 0.7
				}
			},
			{"name": "glass", "alphaMode": "BLEND"}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC2"},
			{"bufferView": 2, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 24},
			{"buffer": 0, "byteOffset": 60, "byteLength": 6}
		],
		"buffers": [{%s"byteLength": %d}]
	}`, bufferURI, byteLength)
	return []byte(doc)
}

func triangleJSONFixture() []byte {
	buf := buildTriangleBuffer()
	uri := fmt.Sprintf(`"uri": "data:application/octet-stream;base64,%s", `,
		base64.StdEncoding.EncodeToString(buf))
	return buildTriangleGLTFJSON(uri, len(buf))
}

// triangleGLBFixture wraps the same document in a GLB container with the
// buffer carried in the BIN chunk instead of a data URI.
func triangleGLBFixture() []byte {
	buf := buildTriangleBuffer()
	jsonChunk := buildTriangleGLTFJSON("", len(buf))

	// Chunks are 4-byte aligned: JSON pads with spaces, BIN with zeros.
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	binChunk := make([]byte, len(buf))
	copy(binChunk, buf)
	for len(binChunk)%4 != 0 {
		binChunk = append(binChunk, 0)
	}

	total := 12 + 8 + len(jsonChunk) + 8 + len(binChunk)
	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, gltfGLBMagic)
	out = binary.LittleEndian.AppendUint32(out, gltfGLBVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(jsonChunk)))
	out = binary.LittleEndian.AppendUint32(out, gltfGLBChunkJSON)
	out = append(out, jsonChunk...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(binChunk)))
	out = binary.LittleEndian.AppendUint32(out, gltfGLBChunkBIN)
	out = append(out, binChunk...)
	return out
}

func readVertexF32(data []byte, vertex, offset int) float32 {
	stride := (&model.GPUVertex{}).Size()
	return math.Float32frombits(binary.LittleEndian.Uint32(data[vertex*stride+offset:]))
}

func TestLoadReaderTriangleJSON(t *testing.T) {
	ldr := NewLoader(BackendTypeGLTF)

	mdl, err := ldr.LoadReader("tri", bytes.NewReader(triangleJSONFixture()), false)
	require.NoError(t, err)
	require.NotNil(t, mdl)

	assert.Equal(t, "tri", mdl.Name())
	assert.Equal(t, 3, mdl.IndexCount())
	assert.InDelta(t, 1.0, float64(mdl.BoundingRadius()), 1e-5)

	stride := (&model.GPUVertex{}).Size()
	require.Len(t, mdl.VertexData(), 3*stride)
	require.Len(t, mdl.IndexData(), 3*4)
	for i := range 3 {
		assert.Equal(t, uint32(i), binary.LittleEndian.Uint32(mdl.IndexData()[i*4:]))
	}

	// No NORMAL attribute in the fixture: normals are generated from the
	// geometry. CCW triangle in the XY plane faces +Z.
	for v := range 3 {
		assert.InDelta(t, 0.0, float64(readVertexF32(mdl.VertexData(), v, 12)), 1e-5)
		assert.InDelta(t, 0.0, float64(readVertexF32(mdl.VertexData(), v, 16)), 1e-5)
		assert.InDelta(t, 1.0, float64(readVertexF32(mdl.VertexData(), v, 20)), 1e-5)
	}

	// No TANGENT attribute either: UV gradient (u along +X, v along +Y)
	// generates a +X tangent with positive handedness.
	assert.InDelta(t, 1.0, float64(readVertexF32(mdl.VertexData(), 0, 32)), 1e-5)
	assert.InDelta(t, 0.0, float64(readVertexF32(mdl.VertexData(), 0, 36)), 1e-5)
	assert.InDelta(t, 0.0, float64(readVertexF32(mdl.VertexData(), 0, 40)), 1e-5)
	assert.InDelta(t, 1.0, float64(readVertexF32(mdl.VertexData(), 0, 44)), 1e-5)
}

func TestLoadReaderMaterialExtraction(t *testing.T) {
	ldr := NewLoader(BackendTypeGLTF)

	mdl, err := ldr.LoadReader("tri", bytes.NewReader(triangleJSONFixture()), false)
	require.NoError(t, err)

	mats := mdl.RenderMaterials()
	require.Len(t, mats, 2)

	painted := mats[0]
	assert.Equal(t, "painted", painted.Name())
	data := painted.Data()
	assert.InDelta(t, 0.2, float64(data.BaseColor[0]), 1e-6)
	assert.InDelta(t, 0.4, float64(data.BaseColor[1]), 1e-6)
	assert.InDelta(t, 0.6, float64(data.BaseColor[2]), 1e-6)
	assert.InDelta(t, 0.3, float64(data.Factors[0]), 1e-6)
	assert.InDelta(t, 0.7, float64(data.Factors[1]), 1e-6)
	assert.Equal(t, material.BlendOpaque, painted.BlendMode())

	// No pbrMetallicRoughness block: glTF defaults metallic and roughness
	// to 1; BLEND alpha mode routes to the transparent batch.
	glass := mats[1]
	glassData := glass.Data()
	assert.Equal(t, float32(1), glassData.Factors[0])
	assert.Equal(t, float32(1), glassData.Factors[1])
	assert.Equal(t, material.BlendTransparent, glass.BlendMode())
	assert.True(t, glassData.HasFlag(material.FlagAlphaBlend))
}

func TestLoadReaderBaseColorTexture(t *testing.T) {
	// 2×2 opaque red PNG, embedded as a data URI image.
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
		img.Pix[i+3] = 255
	}
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	buf := buildTriangleBuffer()
	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0, "TEXCOORD_0": 1}, "indices": 2, "material": 0}]}],
		"materials": [{"name": "textured", "pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}}],
		"textures": [{"source": 0}],
		"images": [{"uri": "data:image/png;base64,%s"}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC2"},
			{"bufferView": 2, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 24},
			{"buffer": 0, "byteOffset": 60, "byteLength": 6}
		],
		"buffers": [{"uri": "data:application/octet-stream;base64,%s", "byteLength": %d}]
	}`,
		base64.StdEncoding.EncodeToString(pngBuf.Bytes()),
		base64.StdEncoding.EncodeToString(buf), len(buf))

	ldr := NewLoader(BackendTypeGLTF)
	mdl, err := ldr.LoadReader("textured", bytes.NewReader([]byte(doc)), false)
	require.NoError(t, err)

	mats := mdl.RenderMaterials()
	require.Len(t, mats, 1)

	assert.True(t, mats[0].Data().HasFlag(material.FlagBaseColorTexture))

	staged := mats[0].Texture(material.FlagBaseColorTexture)
	require.NotNil(t, staged)
	assert.Equal(t, uint32(2), staged.Width)
	assert.Equal(t, uint32(2), staged.Height)
	assert.Len(t, staged.Pixels, 16)
	assert.Equal(t, uint8(255), staged.Pixels[0])
	assert.Equal(t, uint8(0), staged.Pixels[1])
}

func TestLoadReaderGLB(t *testing.T) {
	ldr := NewLoader(BackendTypeGLTF)

	mdl, err := ldr.LoadReader("tri_glb", bytes.NewReader(triangleGLBFixture()), true)
	require.NoError(t, err)

	assert.Equal(t, "tri_glb", mdl.Name())
	assert.Equal(t, 3, mdl.IndexCount())
	assert.Len(t, mdl.RenderMaterials(), 2)
	assert.InDelta(t, 1.0, float64(mdl.BoundingRadius()), 1e-5)
}

func TestLoadReaderCaches(t *testing.T) {
	ldr := NewLoader(BackendTypeGLTF)

	first, err := ldr.LoadReader("tri", bytes.NewReader(triangleJSONFixture()), false)
	require.NoError(t, err)

	// Cache hit: the reader is never consumed on the second call.
	second, err := ldr.LoadReader("tri", bytes.NewReader(nil), false)
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.Same(t, first, ldr.Get("tri"))
	assert.Nil(t, ldr.Get("missing"))

	// Models returns a copy of the cache.
	snapshot := ldr.Models()
	require.Len(t, snapshot, 1)
	delete(snapshot, "tri")
	assert.Same(t, first, ldr.Get("tri"))
}

func TestLoadFromFileCachesByPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.gltf")
	require.NoError(t, os.WriteFile(path, triangleJSONFixture(), 0o644))

	ldr := NewLoader(BackendTypeGLTF)

	first, err := ldr.Load(path)
	require.NoError(t, err)
	// The default scene name wins over the file path.
	assert.Equal(t, "tri_scene", first.Name())

	second, err := ldr.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	ldr := NewLoader(BackendTypeGLTF)

	_, err := ldr.Load("model.obj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model format")
}

func TestWithModelPrePopulatesCache(t *testing.T) {
	vertices, indices := model.CubeMesh()
	cube := model.NewModel(
		model.WithName("cube"),
		model.WithMesh(vertices, indices),
	)

	ldr := NewLoader(BackendTypeGLTF, WithModel("cube", cube))
	assert.Same(t, cube, ldr.Get("cube"))
}

func TestImportedToModelRebasesIndices(t *testing.T) {
	tri := func(x float32) []model.GPUVertex {
		return []model.GPUVertex{
			{Position: [3]float32{x, 0, 0}},
			{Position: [3]float32{x + 1, 0, 0}},
			{Position: [3]float32{x, 1, 0}},
		}
	}
	imported := &importedModel{
		Name: "combo",
		Meshes: []importedMesh{
			{Name: "a", Vertices: tri(0), Indices: []uint32{0, 1, 2}},
			{Name: "b", Vertices: tri(2), Indices: []uint32{2, 1, 0}},
		},
	}

	mdl := importedToModel(imported)
	require.Equal(t, 6, mdl.IndexCount())

	stride := (&model.GPUVertex{}).Size()
	assert.Len(t, mdl.VertexData(), 6*stride)

	want := []uint32{0, 1, 2, 5, 4, 3}
	for i, w := range want {
		assert.Equal(t, w, binary.LittleEndian.Uint32(mdl.IndexData()[i*4:]), "index %d", i)
	}

	// Bounding radius covers the second mesh's farthest vertex (3, 0, 0).
	assert.InDelta(t, 3.0, float64(mdl.BoundingRadius()), 1e-5)
}

func TestGenerateNormalsFallback(t *testing.T) {
	vertices := []model.GPUVertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 1, 0}},
		// Not referenced by any triangle.
		{Position: [3]float32{5, 5, 5}},
	}
	generateNormals(vertices, []uint32{0, 1, 2})

	for v := range 3 {
		assert.InDelta(t, 0.0, float64(vertices[v].Normal[0]), 1e-5)
		assert.InDelta(t, 0.0, float64(vertices[v].Normal[1]), 1e-5)
		assert.InDelta(t, 1.0, float64(vertices[v].Normal[2]), 1e-5)
	}
	assert.Equal(t, [3]float32{0, 1, 0}, vertices[3].Normal)
}

func TestGenerateTangentsOrthonormal(t *testing.T) {
	vertices := []model.GPUVertex{
		{Position: [3]float32{0, 0, 0}, TexCoord: [2]float32{0, 0}},
		{Position: [3]float32{1, 0, 0}, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{0, 1, 0}, TexCoord: [2]float32{0, 1}},
	}
	indices := []uint32{0, 1, 2}
	generateNormals(vertices, indices)
	generateTangents(vertices, indices)

	for _, v := range vertices {
		tan := v.Tangent

		// Unit length, orthogonal to the normal, valid handedness.
		lenSq := tan[0]*tan[0] + tan[1]*tan[1] + tan[2]*tan[2]
		assert.InDelta(t, 1.0, float64(lenSq), 1e-4)

		dot := tan[0]*v.Normal[0] + tan[1]*v.Normal[1] + tan[2]*v.Normal[2]
		assert.InDelta(t, 0.0, float64(dot), 1e-4)

		assert.InDelta(t, 1.0, math.Abs(float64(tan[3])), 1e-5)

		// u increases along +X for this UV layout.
		assert.InDelta(t, 1.0, float64(tan[0]), 1e-4)
	}
}
