package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for mesh pipelines.
// Matches GPUVertex layout exactly (48 bytes, std430 aligned).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
// Size: 48 bytes (std430 aligned, no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
	Tangent  [4]float32 // offset 32: tangent vector (xyz) + handedness (w) for normal mapping (16 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 48)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Normal[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Normal[1]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Normal[2]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.TexCoord[1]))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Tangent[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Tangent[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.Tangent[2]))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.Tangent[3]))
	return buf
}

// ComputeBoundingRadius calculates the bounding sphere radius from a slice of
// GPUVertex positions. The radius is the maximum distance from the origin
// across all vertices in the slice.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []GPUVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return float32(math.Sqrt(float64(maxDistSq)))
}

// MarshalVertexBuffer serializes a slice of GPUVertex entries into a single
// contiguous buffer matching the vertex buffer layout consumed by the render
// pipelines.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: the serialized vertex buffer contents
func MarshalVertexBuffer(vertices []GPUVertex) []byte {
	stride := (&GPUVertex{}).Size()
	buf := make([]byte, 0, stride*len(vertices))
	for i := range vertices {
		buf = append(buf, vertices[i].Marshal()...)
	}
	return buf
}

// GPUObjectDataSource is the canonical WGSL definition of the ObjectData struct for per-instance data.
// Matches GPUObjectData layout exactly (80 bytes, std430 aligned).
//
//go:embed assets/object_data.wgsl
var GPUObjectDataSource string

// GPUObjectData is the GPU-aligned representation of a single instance in the
// shared per-object storage buffer. Every instanced draw indexes this array by
// instance_index; the particle compute shader writes entries for its instances
// directly on the GPU. Matches the WGSL ObjectData struct layout exactly
// (see GPUObjectDataSource). Size: 80 bytes (std430 aligned).
type GPUObjectData struct {
	Model         [16]float32 // offset  0: 4×4 model-to-world transform matrix (64 bytes)
	MaterialIndex uint32      // offset 64: index into the material storage array (4 bytes)
	_pad          [3]uint32   // offset 68: padding to 80 bytes
}

// Size returns the size of the GPUObjectData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUObjectData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUObjectData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUObjectData) Marshal() []byte {
	buf := make([]byte, 80)
	for i := 0; i < 16; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(g.Model[i]))
	}
	binary.LittleEndian.PutUint32(buf[64:68], g.MaterialIndex)
	// bytes 68..80 stay zero (_pad)
	return buf
}

// MarshalObjectBuffer serializes a slice of GPUObjectData entries into a single
// contiguous buffer matching the WGSL array<ObjectData> storage layout.
//
// Parameters:
//   - objects: the per-instance entries, in instance order
//
// Returns:
//   - []byte: the serialized storage buffer contents
func MarshalObjectBuffer(objects []GPUObjectData) []byte {
	stride := (&GPUObjectData{}).Size()
	buf := make([]byte, 0, stride*len(objects))
	for i := range objects {
		buf = append(buf, objects[i].Marshal()...)
	}
	return buf
}
