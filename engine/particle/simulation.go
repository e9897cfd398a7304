package particle

import (
	"github.com/chewxy/math32"

	"github.com/prism-engine/prism/common"
	"github.com/prism-engine/prism/engine/model"
)

// MaxRespawnAttempts caps the XY rejection-sampling loop during respawn. A
// min_radius close to field_half_size makes rejection arbitrarily likely, so
// after this many failed draws the respawn falls back to a deterministic
// minimum-radius point instead of looping.
const MaxRespawnAttempts = 16

// FieldSettings is the immutable configuration of a particle field. Particles
// travel along +Z (toward the camera at the origin looking down -Z) and
// respawn past the far plane once they cross the near plane.
type FieldSettings struct {
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
}

// Params packs the settings into the GPU uniform for a system covering
// particleCount instances starting at baseInstance.
//
// Parameters:
//   - baseInstance: first object slot the system writes
//   - particleCount: number of particles simulated
//
// Returns:
//   - GPUParticleParams: the packed uniform (Dt zero until the first step)
func (f FieldSettings) Params(baseInstance, particleCount uint32) GPUParticleParams {
	return GPUParticleParams{
		NearPlane:     f.NearPlane,
		FarPlane:      f.FarPlane,
		FarResetBand:  f.FarResetBand,
		FieldHalfSize: f.FieldHalfSize,
		MinRadius:     f.MinRadius,
		SpeedMin:      f.SpeedMin,
		SpeedMax:      f.SpeedMax,
		SpinMin:       f.SpinMin,
		SpinMax:       f.SpinMax,
		ScaleMin:      f.ScaleMin,
		ScaleMax:      f.ScaleMax,
		BaseInstance:  baseInstance,
		ParticleCount: particleCount,
	}
}

// Init describes one particle's starting state.
type Init struct {
	Position     [3]float32
	Speed        float32
	Rotation     [4]float32 // quaternion (x, y, z, w)
	AngularAxis  [3]float32
	AngularSpeed float32
	Scale        float32
	Seed         uint32
}

// State converts the init description into the GPU state layout.
//
// Returns:
//   - GPUParticleState: the packed state
func (in Init) State() GPUParticleState {
	s := GPUParticleState{
		PositionSpeed:    [4]float32{in.Position[0], in.Position[1], in.Position[2], in.Speed},
		Rotation:         in.Rotation,
		AngularAxisSpeed: [4]float32{in.AngularAxis[0], in.AngularAxis[1], in.AngularAxis[2], in.AngularSpeed},
	}
	s.SetScale(in.Scale)
	s.ScaleSeed[1] = in.Seed
	return s
}

// SeedField generates count particle inits distributed through the field's
// depth range, each carrying its own seed derived from the base seed. Used to
// populate a system before its first frame.
//
// Parameters:
//   - settings: the field configuration
//   - count: number of particles to generate
//   - seed: base RNG seed; per-particle streams derive from it
//
// Returns:
//   - []Init: count initial particle descriptions
func SeedField(settings FieldSettings, count int, seed uint32) []Init {
	rng := common.NewLCG(seed)
	inits := make([]Init, count)
	span := settings.FarPlane - settings.NearPlane

	for i := range inits {
		x, y := sampleFieldXY(&rng, settings.FieldHalfSize, settings.MinRadius)
		z := -(settings.NearPlane + rng.NextFloat()*span)
		axis := sampleUnitVector(&rng)
		rotAxis := sampleUnitVector(&rng)
		angle := rng.NextFloat() * 2 * math32.Pi

		inits[i] = Init{
			Position:     [3]float32{x, y, z},
			Speed:        rng.NextRange(settings.SpeedMin, settings.SpeedMax),
			Rotation:     axisAngleQuat(rotAxis, angle),
			AngularAxis:  axis,
			AngularSpeed: rng.NextRange(settings.SpinMin, settings.SpinMax),
			Scale:        rng.NextRange(settings.ScaleMin, settings.ScaleMax),
			Seed:         rng.Next(),
		}
	}
	return inits
}

// Simulation is the CPU reference implementation of the particle state
// machine. It advances the same 64-byte states the compute shader advances and
// produces the same object-buffer write-back, so the policy is testable
// without a device and a CPU fallback exists when compute is unavailable.
type Simulation struct {
	params GPUParticleParams
	states []GPUParticleState
}

// NewSimulation creates a CPU simulation over the given initial particles.
//
// Parameters:
//   - settings: the field configuration
//   - baseInstance: first object slot the simulation writes
//   - inits: initial particle descriptions
//
// Returns:
//   - *Simulation: the simulation positioned at frame zero
func NewSimulation(settings FieldSettings, baseInstance uint32, inits []Init) *Simulation {
	states := make([]GPUParticleState, len(inits))
	for i, in := range inits {
		states[i] = in.State()
	}
	return &Simulation{
		params: settings.Params(baseInstance, uint32(len(inits))),
		states: states,
	}
}

// Params returns the simulation's packed uniform with Dt set from the last
// step.
//
// Returns:
//   - GPUParticleParams: the current parameter block
func (sim *Simulation) Params() GPUParticleParams {
	return sim.params
}

// States returns the live particle state slice. Callers must treat it as
// read-only between steps.
//
// Returns:
//   - []GPUParticleState: the particle states
func (sim *Simulation) States() []GPUParticleState {
	return sim.states
}

// Step advances every particle by dt. Steps with non-positive dt are ignored.
//
// Parameters:
//   - dt: the fixed timestep in seconds
func (sim *Simulation) Step(dt float32) {
	if dt <= 0 {
		return
	}
	sim.params.Dt = dt
	for i := range sim.states {
		advanceParticle(&sim.states[i], &sim.params)
	}
}

// WriteObjects writes each particle's model matrix into the shared object
// slice starting at the simulation's base instance, mirroring the compute
// shader's storage-buffer write-back.
//
// Parameters:
//   - objects: the frame's object data array
//   - materialIndex: material slot assigned to every particle instance
func (sim *Simulation) WriteObjects(objects []model.GPUObjectData, materialIndex uint32) {
	base := int(sim.params.BaseInstance)
	for i := range sim.states {
		slot := base + i
		if slot >= len(objects) {
			break
		}
		objects[slot] = model.GPUObjectData{
			Model:         ParticleModelMatrix(&sim.states[i]),
			MaterialIndex: materialIndex,
		}
	}
}

// advanceParticle runs one timestep of the particle state machine: travel,
// spin integration, then the respawn check. This function is the contract the
// compute shader implements; changes here must be mirrored in the WGSL.
func advanceParticle(s *GPUParticleState, p *GPUParticleParams) {
	s.PositionSpeed[2] += s.PositionSpeed[3] * p.Dt

	if s.AngularAxisSpeed[3] > 0 {
		integrateSpin(s, p.Dt)
	}

	if s.PositionSpeed[2] > -p.NearPlane {
		respawnParticle(s, p)
	}
}

// integrateSpin applies the small-angle quaternion delta for this timestep and
// renormalizes to keep the orientation a unit quaternion.
func integrateSpin(s *GPUParticleState, dt float32) {
	halfAngle := s.AngularAxisSpeed[3] * dt * 0.5
	sin := math32.Sin(halfAngle)
	cos := math32.Cos(halfAngle)
	delta := [4]float32{
		s.AngularAxisSpeed[0] * sin,
		s.AngularAxisSpeed[1] * sin,
		s.AngularAxisSpeed[2] * sin,
		cos,
	}
	q := quatMul(delta, s.Rotation)

	norm := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if norm > 0 {
		inv := 1.0 / norm
		q[0] *= inv
		q[1] *= inv
		q[2] *= inv
		q[3] *= inv
	} else {
		q = [4]float32{0, 0, 0, 1}
	}
	s.Rotation = q
}

// respawnParticle redraws the particle at the far end of the field. Every
// random draw consumes the particle's own seed stream, so a replay from the
// same seed reproduces the same respawn.
func respawnParticle(s *GPUParticleState, p *GPUParticleParams) {
	rng := common.NewLCG(s.ScaleSeed[1])

	x, y := sampleFieldXY(&rng, p.FieldHalfSize, p.MinRadius)
	depth := rng.NextFloat() * p.FarResetBand

	s.PositionSpeed[0] = x
	s.PositionSpeed[1] = y
	s.PositionSpeed[2] = -(p.FarPlane + depth)
	s.PositionSpeed[3] = rng.NextRange(p.SpeedMin, p.SpeedMax)

	rotAxis := sampleUnitVector(&rng)
	angle := rng.NextFloat() * 2 * math32.Pi
	s.Rotation = axisAngleQuat(rotAxis, angle)

	spinAxis := sampleUnitVector(&rng)
	s.AngularAxisSpeed = [4]float32{
		spinAxis[0], spinAxis[1], spinAxis[2],
		rng.NextRange(p.SpinMin, p.SpinMax),
	}

	s.SetScale(rng.NextRange(p.ScaleMin, p.ScaleMax))
	s.ScaleSeed[1] = rng.State()
}

// sampleFieldXY draws an XY spawn point uniformly from the field square,
// rejecting points inside the minimum radius. After MaxRespawnAttempts failed
// draws the last sample is pushed out to the minimum radius deterministically
// so the loop is bounded even when min_radius crowds field_half_size.
func sampleFieldXY(rng *common.LCG, fieldHalfSize, minRadius float32) (float32, float32) {
	var x, y float32
	minSq := minRadius * minRadius
	for range MaxRespawnAttempts {
		x = (rng.NextFloat()*2 - 1) * fieldHalfSize
		y = (rng.NextFloat()*2 - 1) * fieldHalfSize
		if x*x+y*y >= minSq {
			return x, y
		}
	}

	length := math32.Sqrt(x*x + y*y)
	if length > 1e-6 {
		scale := minRadius / length
		return x * scale, y * scale
	}
	return minRadius, 0
}

// sampleUnitVector draws a direction from the cube and normalizes it, falling
// back to +Y for a near-zero draw.
func sampleUnitVector(rng *common.LCG) [3]float32 {
	x := rng.NextFloat()*2 - 1
	y := rng.NextFloat()*2 - 1
	z := rng.NextFloat()*2 - 1
	lenSq := x*x + y*y + z*z
	if lenSq <= 1e-6 {
		return [3]float32{0, 1, 0}
	}
	inv := 1.0 / math32.Sqrt(lenSq)
	return [3]float32{x * inv, y * inv, z * inv}
}

// axisAngleQuat builds a unit quaternion from a unit axis and an angle.
func axisAngleQuat(axis [3]float32, angle float32) [4]float32 {
	half := angle * 0.5
	sin := math32.Sin(half)
	return [4]float32{axis[0] * sin, axis[1] * sin, axis[2] * sin, math32.Cos(half)}
}

// quatMul returns the Hamilton product a*b.
func quatMul(a, b [4]float32) [4]float32 {
	return [4]float32{
		a[3]*b[0] + a[0]*b[3] + a[1]*b[2] - a[2]*b[1],
		a[3]*b[1] - a[0]*b[2] + a[1]*b[3] + a[2]*b[0],
		a[3]*b[2] + a[0]*b[1] - a[1]*b[0] + a[2]*b[3],
		a[3]*b[3] - a[0]*b[0] - a[1]*b[1] - a[2]*b[2],
	}
}

// ParticleModelMatrix expands a particle's quaternion, scale, and position
// into the column-major model matrix written to its object slot. Matches the
// matrix construction in the particle update shader.
//
// Parameters:
//   - s: the particle state
//
// Returns:
//   - [16]float32: column-major model matrix
func ParticleModelMatrix(s *GPUParticleState) [16]float32 {
	q := s.Rotation
	scale := s.Scale()

	x2 := q[0] + q[0]
	y2 := q[1] + q[1]
	z2 := q[2] + q[2]

	xx := q[0] * x2
	xy := q[0] * y2
	xz := q[0] * z2
	yy := q[1] * y2
	yz := q[1] * z2
	zz := q[2] * z2
	wx := q[3] * x2
	wy := q[3] * y2
	wz := q[3] * z2

	return [16]float32{
		(1 - (yy + zz)) * scale, (xy + wz) * scale, (xz - wy) * scale, 0,
		(xy - wz) * scale, (1 - (xx + zz)) * scale, (yz + wx) * scale, 0,
		(xz + wy) * scale, (yz - wx) * scale, (1 - (xx + yy)) * scale, 0,
		s.PositionSpeed[0], s.PositionSpeed[1], s.PositionSpeed[2], 1,
	}
}
