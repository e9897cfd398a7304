package particle

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// WorkgroupSize is the compute shader workgroup width. Dispatch issues
// ceil(particle_count / WorkgroupSize) workgroups.
const WorkgroupSize = 128

// ParticleUpdateSource is the compute shader body advancing the particle
// field. The shader assembler splices the ParticleState, ParticleParams, and
// ObjectData struct definitions ahead of it.
//
//go:embed assets/particle_update.wgsl
var ParticleUpdateSource string

// GPUParticleStateSource is the canonical WGSL definition of the ParticleState
// struct. Matches GPUParticleState layout exactly (64 bytes).
//
//go:embed assets/particle_state.wgsl
var GPUParticleStateSource string

// GPUParticleState is the GPU-aligned per-particle simulation state, persisted
// in a storage buffer across frames. The compute pass is its sole writer.
// Matches the WGSL ParticleState struct layout exactly (see GPUParticleStateSource).
// Size: 64 bytes.
//
// Layout:
//
//	vec4<f32> position_speed     (16 bytes, offset  0) xyz = position, w = forward speed
//	vec4<f32> rotation           (16 bytes, offset 16) orientation quaternion (x, y, z, w)
//	vec4<f32> angular_axis_speed (16 bytes, offset 32) xyz = spin axis, w = angular speed
//	vec4<u32> scale_seed         (16 bytes, offset 48) x = scale float bits, y = RNG seed
type GPUParticleState struct {
	PositionSpeed    [4]float32
	Rotation         [4]float32
	AngularAxisSpeed [4]float32
	ScaleSeed        [4]uint32
}

// Size returns the size of the GPUParticleState struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (s *GPUParticleState) Size() int {
	return int(unsafe.Sizeof(*s))
}

// Marshal serializes the GPUParticleState struct into a byte buffer suitable
// for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (s *GPUParticleState) Marshal() []byte {
	buf := make([]byte, s.Size())
	off := 0
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.PositionSpeed[i]))
		off += 4
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.Rotation[i]))
		off += 4
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s.AngularAxisSpeed[i]))
		off += 4
	}
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[off:off+4], s.ScaleSeed[i])
		off += 4
	}
	return buf
}

// Scale returns the particle scale stored as float bits in scale_seed.x.
//
// Returns:
//   - float32: the uniform scale factor
func (s *GPUParticleState) Scale() float32 {
	return math.Float32frombits(s.ScaleSeed[0])
}

// SetScale stores the particle scale as float bits in scale_seed.x.
//
// Parameters:
//   - scale: the uniform scale factor
func (s *GPUParticleState) SetScale(scale float32) {
	s.ScaleSeed[0] = math.Float32bits(scale)
}

// Seed returns the particle's persisted RNG state.
//
// Returns:
//   - uint32: the current LCG state
func (s *GPUParticleState) Seed() uint32 {
	return s.ScaleSeed[1]
}

// MarshalStateBuffer serializes a slice of particle states into one contiguous
// buffer for the initial storage buffer upload.
//
// Parameters:
//   - states: the particle states to marshal
//
// Returns:
//   - []byte: buffer of len(states) * 64 bytes
func MarshalStateBuffer(states []GPUParticleState) []byte {
	stride := (&GPUParticleState{}).Size()
	buf := make([]byte, len(states)*stride)
	for i := range states {
		copy(buf[i*stride:], states[i].Marshal())
	}
	return buf
}

// GPUParticleParamsSource is the canonical WGSL definition of the
// ParticleParams struct. Matches GPUParticleParams layout exactly (64 bytes).
//
//go:embed assets/particle_params.wgsl
var GPUParticleParamsSource string

// GPUParticleParams is the GPU-aligned uniform configuring one particle
// system's simulation step. Everything except Dt is fixed at creation.
// Matches the WGSL ParticleParams struct layout exactly (see GPUParticleParamsSource).
// Size: 64 bytes.
//
// Layout:
//
//	f32 dt              (offset  0) timestep for this frame
//	f32 near_plane      (offset  4) respawn triggers when position.z > -near_plane
//	f32 far_plane       (offset  8) respawned particles start past -far_plane
//	f32 far_reset_band  (offset 12) respawn depth is uniform in [0, far_reset_band)
//	f32 field_half_size (offset 16) half-size of the XY spawn square
//	f32 min_radius      (offset 20) minimum XY radius of a spawn point
//	f32 speed_min       (offset 24)
//	f32 speed_max       (offset 28)
//	f32 spin_min        (offset 32)
//	f32 spin_max        (offset 36)
//	f32 scale_min       (offset 40)
//	f32 scale_max       (offset 44)
//	u32 base_instance   (offset 48) first object slot this system writes
//	u32 particle_count  (offset 52)
//	u32 _pad ×2         (offset 56)
type GPUParticleParams struct {
	Dt            float32
	NearPlane     float32
	FarPlane      float32
	FarResetBand  float32
	FieldHalfSize float32
	MinRadius     float32
	SpeedMin      float32
	SpeedMax      float32
	SpinMin       float32
	SpinMax       float32
	ScaleMin      float32
	ScaleMax      float32
	BaseInstance  uint32
	ParticleCount uint32
	_pad          [2]uint32
}

// Size returns the size of the GPUParticleParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (p *GPUParticleParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUParticleParams struct into a byte buffer suitable
// for GPU uniform upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (p *GPUParticleParams) Marshal() []byte {
	buf := make([]byte, p.Size())
	floats := []float32{
		p.Dt, p.NearPlane, p.FarPlane, p.FarResetBand,
		p.FieldHalfSize, p.MinRadius,
		p.SpeedMin, p.SpeedMax,
		p.SpinMin, p.SpinMax,
		p.ScaleMin, p.ScaleMax,
	}
	off := 0
	for _, f := range floats {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(f))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], p.BaseInstance)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], p.ParticleCount)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], 0)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], 0)
	return buf
}

// WorkgroupCount returns the number of workgroups a dispatch needs to cover
// every particle.
//
// Returns:
//   - uint32: ceil(particle_count / WorkgroupSize)
func (p *GPUParticleParams) WorkgroupCount() uint32 {
	return (p.ParticleCount + WorkgroupSize - 1) / WorkgroupSize
}
