package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUGlobalsSource is the canonical WGSL definition of the Globals struct.
// Matches GPUGlobals layout exactly (144 bytes, std430 aligned).
//
//go:embed assets/globals.wgsl
var GPUGlobalsSource string

// GPUGlobals is the GPU-aligned representation of the per-frame globals uniform
// buffer shared by every render pass. Matches the WGSL Globals struct layout
// exactly (see GPUGlobalsSource). Size: 144 bytes (std430 / WGSL aligned).
//
// The buffer is written exactly once per frame, before any pass that reads it
// is submitted, so all passes in a frame observe the same camera state.
type GPUGlobals struct {
	ViewProj        [16]float32 // offset   0: combined view-projection matrix (mat4x4<f32>)
	InverseViewProj [16]float32 // offset  64: inverse of ViewProj, for world-space reconstruction (mat4x4<f32>)
	CameraPosition  [3]float32  // offset 128: world-space camera position (vec3<f32>)
	_pad            float32     // offset 140: padding to 144 bytes
}

// Size returns the size of the GPUGlobals struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUGlobals) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUGlobals struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUGlobals) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.InverseViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	binary.LittleEndian.PutUint32(buf[140:], 0) // _pad
	return buf
}
