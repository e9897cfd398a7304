package postprocess

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// NoiseTextureSize is the width and height of the tiled SSAO rotation noise
// texture.
const NoiseTextureSize = 4

// Default SSAO tuning carried in the post uniform.
const (
	DefaultSSAORadius    float32 = 5.5
	DefaultSSAOBias      float32 = 0.025
	DefaultSSAOIntensity float32 = 3.5
	DefaultSSAOPower     float32 = 1.5
)

// Effects selects which post stages run this frame. Disabled stages become
// exact pass-throughs: SSAO returns 1.0 everywhere, bloom contributes zero,
// and FXAA leaves the composite untouched.
type Effects struct {
	SSAO  bool
	Bloom bool
	FXAA  bool
}

// vec4 packs the toggles into the uniform's effects vector, one float per
// stage with >= 0.5 meaning enabled.
func (e Effects) vec4() [4]float32 {
	var v [4]float32
	if e.SSAO {
		v[0] = 1
	}
	if e.Bloom {
		v[1] = 1
	}
	if e.FXAA {
		v[2] = 1
	}
	return v
}

// GPUPostUniformSource is the canonical WGSL definition of the PostUniform
// struct. Matches GPUPostUniform layout exactly (192 bytes).
//
//go:embed assets/post_uniform.wgsl
var GPUPostUniformSource string

// GPUPostUniform is the GPU-aligned uniform shared by every post-process
// pass. Built fresh each frame from the camera and settings; passes never
// mutate it.
// Matches the WGSL PostUniform struct layout exactly (see GPUPostUniformSource).
// Size: 192 bytes.
//
// Layout:
//
//	mat4x4<f32> proj            (64 bytes, offset   0)
//	mat4x4<f32> proj_inv        (64 bytes, offset  64)
//	vec2<f32>   resolution      ( 8 bytes, offset 128)
//	vec2<f32>   radius_bias     ( 8 bytes, offset 136) x = SSAO radius, y = depth bias
//	vec2<f32>   intensity_power ( 8 bytes, offset 144) x = SSAO strength, y = occlusion power
//	vec2<f32>   noise_scale     ( 8 bytes, offset 152) resolution / noise texture size
//	vec2<f32>   near_far        ( 8 bytes, offset 160)
//	vec2<f32>   _pad            ( 8 bytes, offset 168)
//	vec4<f32>   effects         (16 bytes, offset 176) x = SSAO, y = bloom, z = FXAA; >= 0.5 enabled
type GPUPostUniform struct {
	Proj           [16]float32
	ProjInv        [16]float32
	Resolution     [2]float32
	RadiusBias     [2]float32
	IntensityPower [2]float32
	NoiseScale     [2]float32
	NearFar        [2]float32
	_pad           [2]float32
	EffectsVec     [4]float32
}

// NewPostUniform assembles the frame's post uniform with the default SSAO
// tuning and the noise tiling derived from the resolution.
//
// Parameters:
//   - proj: the camera projection matrix (column-major)
//   - projInv: its inverse
//   - width, height: render target size in pixels
//   - near, far: camera clip planes
//   - effects: the frame's stage toggles
//
// Returns:
//   - GPUPostUniform: the packed uniform
func NewPostUniform(proj, projInv [16]float32, width, height, near, far float32, effects Effects) GPUPostUniform {
	return GPUPostUniform{
		Proj:           proj,
		ProjInv:        projInv,
		Resolution:     [2]float32{width, height},
		RadiusBias:     [2]float32{DefaultSSAORadius, DefaultSSAOBias},
		IntensityPower: [2]float32{DefaultSSAOIntensity, DefaultSSAOPower},
		NoiseScale:     [2]float32{width / NoiseTextureSize, height / NoiseTextureSize},
		NearFar:        [2]float32{near, far},
		EffectsVec:     effects.vec4(),
	}
}

// Size returns the size of the GPUPostUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (192)
func (u *GPUPostUniform) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUPostUniform struct into a byte buffer suitable
// for GPU uniform upload.
//
// Returns:
//   - []byte: 192-byte buffer ready for GPU upload
func (u *GPUPostUniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	off := 0

	putF32 := func(v float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}

	for i := range 16 {
		putF32(u.Proj[i])
	}
	for i := range 16 {
		putF32(u.ProjInv[i])
	}
	for _, pair := range [][2]float32{
		u.Resolution, u.RadiusBias, u.IntensityPower, u.NoiseScale, u.NearFar, {0, 0},
	} {
		putF32(pair[0])
		putF32(pair[1])
	}
	for i := range 4 {
		putF32(u.EffectsVec[i])
	}

	return buf
}
