package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/chewxy/math32"
)

// Per-type capacity of the lights uniform. The CPU-side light list is
// unbounded; lights past these caps are dropped when the uniform is built.
const (
	MaxDirectionalLights = 4
	MaxPointLights       = 16
	MaxSpotLights        = 8
)

// PointShadowFaceCount is the number of cube faces rendered per point light
// shadow. The depth array layer for a face is index*PointShadowFaceCount + face.
const PointShadowFaceCount = 6

// GPULightsSource is the canonical WGSL definition of the Lights struct and its
// per-type entries. Matches GPULightsUniform layout exactly (1168 bytes).
//
//go:embed assets/lights.wgsl
var GPULightsSource string

// GPUDirectionalLight is the GPU-aligned representation of one directional
// light slot. Size: 32 bytes.
type GPUDirectionalLight struct {
	Direction      [4]float32 // offset  0: normalized direction, w unused
	ColorIntensity [4]float32 // offset 16: RGB color, w = intensity
}

// GPUPointLight is the GPU-aligned representation of one point light slot.
// Size: 32 bytes.
type GPUPointLight struct {
	PositionRange  [4]float32 // offset  0: world position, w = attenuation range
	ColorIntensity [4]float32 // offset 16: RGB color, w = intensity
}

// GPUSpotLight is the GPU-aligned representation of one spot light slot.
// Size: 64 bytes.
type GPUSpotLight struct {
	PositionRange  [4]float32 // offset  0: world position, w = attenuation range
	Direction      [4]float32 // offset 16: normalized cone axis, w unused
	ColorIntensity [4]float32 // offset 32: RGB color, w = intensity
	ConeParams     [4]float32 // offset 48: x = cos(inner), y = cos(outer), zw unused
}

// GPULightsUniform is the GPU-aligned uniform holding every active light for
// the frame. Counts gate iteration in the shader: slots past each count are
// zero and never read.
// Matches the WGSL Lights struct layout exactly (see GPULightsSource).
// Size: 1168 bytes.
//
// Layout:
//
//	uvec4                counts       ( 16 bytes, offset    0) x = directional, y = point, z = spot
//	DirectionalLight[4]  directionals (128 bytes, offset   16)
//	PointLight[16]       points       (512 bytes, offset  144)
//	SpotLight[8]         spots        (512 bytes, offset  656)
type GPULightsUniform struct {
	Counts       [4]uint32
	Directionals [MaxDirectionalLights]GPUDirectionalLight
	Points       [MaxPointLights]GPUPointLight
	Spots        [MaxSpotLights]GPUSpotLight
}

// Size returns the size of the GPULightsUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (1168)
func (u *GPULightsUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPULightsUniform struct into a byte buffer suitable
// for GPU uniform upload.
//
// Returns:
//   - []byte: 1168-byte buffer ready for GPU upload
func (u *GPULightsUniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	off := 0

	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[off:off+4], u.Counts[i])
		off += 4
	}
	for i := range u.Directionals {
		off = putVec4(buf, off, u.Directionals[i].Direction)
		off = putVec4(buf, off, u.Directionals[i].ColorIntensity)
	}
	for i := range u.Points {
		off = putVec4(buf, off, u.Points[i].PositionRange)
		off = putVec4(buf, off, u.Points[i].ColorIntensity)
	}
	for i := range u.Spots {
		off = putVec4(buf, off, u.Spots[i].PositionRange)
		off = putVec4(buf, off, u.Spots[i].Direction)
		off = putVec4(buf, off, u.Spots[i].ColorIntensity)
		off = putVec4(buf, off, u.Spots[i].ConeParams)
	}

	return buf
}

// GPUShadowDataSource is the canonical WGSL definition of the ShadowEntry and
// PointShadowEntry structs. Matches GPUShadowEntry (80 bytes) and
// GPUPointShadowEntry (400 bytes) exactly.
//
//go:embed assets/shadow_data.wgsl
var GPUShadowDataSource string

// GPUShadowEntry is the GPU-aligned shadow record for one directional or spot
// light. Params.x == 0 is the sentinel for "no shadow data recorded this
// frame"; samplers must return fully lit without touching the depth map.
// Size: 80 bytes.
//
// Layout:
//
//	mat4x4<f32> view_proj (64 bytes, offset  0)
//	vec4<f32>   params    (16 bytes, offset 64) x = enabled, y = depth bias, z = far plane
type GPUShadowEntry struct {
	ViewProj [16]float32
	Params   [4]float32
}

// Size returns the size of the GPUShadowEntry struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (s *GPUShadowEntry) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUShadowEntry struct into a byte buffer suitable for
// GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload
func (s *GPUShadowEntry) Marshal() []byte {
	buf := make([]byte, s.Size())
	off := putMat4(buf, 0, s.ViewProj)
	putVec4(buf, off, s.Params)
	return buf
}

// GPUPointShadowEntry is the GPU-aligned shadow record for one point light:
// six cube-face view-projection matrices plus the shared params vector.
// Params semantics match GPUShadowEntry (x = enabled sentinel, y = bias,
// z = light range / far plane).
// Size: 400 bytes.
type GPUPointShadowEntry struct {
	FaceViewProj [PointShadowFaceCount][16]float32 // offset 0: faces ordered +X, -X, +Y, -Y, +Z, -Z
	Params       [4]float32                        // offset 384
}

// Size returns the size of the GPUPointShadowEntry struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (400)
func (s *GPUPointShadowEntry) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUPointShadowEntry struct into a byte buffer
// suitable for GPU upload.
//
// Returns:
//   - []byte: 400-byte buffer ready for GPU upload
func (s *GPUPointShadowEntry) Marshal() []byte {
	buf := make([]byte, s.Size())
	off := 0
	for face := range s.FaceViewProj {
		off = putMat4(buf, off, s.FaceViewProj[face])
	}
	putVec4(buf, off, s.Params)
	return buf
}

// GPUShadowsUniform aggregates every shadow record for the frame, one slot per
// light slot in GPULightsUniform. Slots without shadow data carry the
// Params.x == 0 sentinel.
// Matches the WGSL Shadows struct layout exactly (see GPUShadowDataSource).
// Size: 7360 bytes.
//
// Layout:
//
//	ShadowEntry[4]       directionals ( 320 bytes, offset    0)
//	ShadowEntry[8]       spots        ( 640 bytes, offset  320)
//	PointShadowEntry[16] points       (6400 bytes, offset  960)
type GPUShadowsUniform struct {
	Directionals [MaxDirectionalLights]GPUShadowEntry
	Spots        [MaxSpotLights]GPUShadowEntry
	Points       [MaxPointLights]GPUPointShadowEntry
}

// Size returns the size of the GPUShadowsUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (7360)
func (s *GPUShadowsUniform) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUShadowsUniform struct into a byte buffer suitable
// for GPU upload.
//
// Returns:
//   - []byte: 7360-byte buffer ready for GPU upload
func (s *GPUShadowsUniform) Marshal() []byte {
	buf := make([]byte, s.Size())
	off := 0
	for i := range s.Directionals {
		off = putMat4(buf, off, s.Directionals[i].ViewProj)
		off = putVec4(buf, off, s.Directionals[i].Params)
	}
	for i := range s.Spots {
		off = putMat4(buf, off, s.Spots[i].ViewProj)
		off = putVec4(buf, off, s.Spots[i].Params)
	}
	for i := range s.Points {
		for face := range s.Points[i].FaceViewProj {
			off = putMat4(buf, off, s.Points[i].FaceViewProj[face])
		}
		off = putVec4(buf, off, s.Points[i].Params)
	}
	return buf
}

// GPUShadowViewSource is the canonical WGSL definition of the ShadowView
// uniform read by the depth-only shadow vertex shader.
// Matches GPUShadowView layout exactly (64 bytes).
//
//go:embed assets/shadow_view.wgsl
var GPUShadowViewSource string

// GPUShadowView is the per-pass uniform for a single shadow render: the
// view-projection of the light (or cube face) being rendered.
// Size: 64 bytes.
type GPUShadowView struct {
	ViewProj [16]float32
}

// Size returns the size of the GPUShadowView struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (v *GPUShadowView) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the GPUShadowView struct into a byte buffer suitable for
// GPU uniform upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (v *GPUShadowView) Marshal() []byte {
	buf := make([]byte, v.Size())
	putMat4(buf, 0, v.ViewProj)
	return buf
}

// BuildLightsUniform folds the enabled lights into a fixed-capacity uniform.
// Lights past each per-type capacity are dropped in iteration order. Spot cone
// cosines are ordered so cos(inner) >= cos(outer) even when the angles were
// configured swapped.
//
// Parameters:
//   - lights: the scene's light list (disabled lights are skipped)
//
// Returns:
//   - GPULightsUniform: the packed uniform ready to marshal
func BuildLightsUniform(lights []Light) GPULightsUniform {
	var u GPULightsUniform

	for _, l := range lights {
		if !l.Enabled() {
			continue
		}
		switch l.Type() {
		case LightTypeDirectional:
			if u.Counts[0] >= MaxDirectionalLights {
				continue
			}
			d := l.Direction()
			c := l.Color()
			u.Directionals[u.Counts[0]] = GPUDirectionalLight{
				Direction:      [4]float32{d[0], d[1], d[2], 0},
				ColorIntensity: [4]float32{c[0], c[1], c[2], l.Intensity()},
			}
			u.Counts[0]++
		case LightTypePoint:
			if u.Counts[1] >= MaxPointLights {
				continue
			}
			p := l.Position()
			c := l.Color()
			u.Points[u.Counts[1]] = GPUPointLight{
				PositionRange:  [4]float32{p[0], p[1], p[2], l.Range()},
				ColorIntensity: [4]float32{c[0], c[1], c[2], l.Intensity()},
			}
			u.Counts[1]++
		case LightTypeSpot:
			if u.Counts[2] >= MaxSpotLights {
				continue
			}
			p := l.Position()
			d := l.Direction()
			c := l.Color()
			inner, outer := l.InnerAngle(), l.OuterAngle()
			if inner > outer {
				inner, outer = outer, inner
			}
			u.Spots[u.Counts[2]] = GPUSpotLight{
				PositionRange:  [4]float32{p[0], p[1], p[2], l.Range()},
				Direction:      [4]float32{d[0], d[1], d[2], 0},
				ColorIntensity: [4]float32{c[0], c[1], c[2], l.Intensity()},
				ConeParams:     [4]float32{math32.Cos(inner), math32.Cos(outer), 0, 0},
			}
			u.Counts[2]++
		}
	}

	return u
}

// putVec4 writes four little-endian float32 values at off and returns the
// advanced offset.
func putVec4(buf []byte, off int, v [4]float32) int {
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v[i]))
		off += 4
	}
	return off
}

// putMat4 writes a column-major 4x4 matrix at off and returns the advanced
// offset.
func putMat4(buf []byte, off int, m [16]float32) int {
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(m[i]))
		off += 4
	}
	return off
}
