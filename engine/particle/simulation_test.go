package particle

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-engine/prism/common"
	"github.com/prism-engine/prism/engine/model"
)

func testSettings() FieldSettings {
	return FieldSettings{
		NearPlane:     1,
		FarPlane:      100,
		FarResetBand:  20,
		FieldHalfSize: 50,
		MinRadius:     5,
		SpeedMin:      8,
		SpeedMax:      14,
		SpinMin:       0.5,
		SpinMax:       2,
		ScaleMin:      0.2,
		ScaleMax:      1.5,
	}
}

func TestTravelAndRespawnScenario(t *testing.T) {
	settings := testSettings()
	sim := NewSimulation(settings, 0, []Init{{
		Position: [3]float32{3, 4, -2},
		Speed:    1,
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    1,
		Seed:     42,
	}})

	// Nine steps of speed*dt = 0.1 bring the particle to z = -1.1 without
	// crossing the near plane.
	for range 9 {
		sim.Step(0.1)
	}
	state := sim.States()[0]
	assert.InDelta(t, -1.1, state.PositionSpeed[2], 1e-5)
	assert.Equal(t, float32(3), state.PositionSpeed[0], "no respawn yet")

	// The next step carries the particle across the near plane to -0.9 and
	// triggers the respawn within the same step.
	sim.Step(0.2)
	state = sim.States()[0]

	z := state.PositionSpeed[2]
	assert.Greater(t, z, -(settings.FarPlane + settings.FarResetBand))
	assert.LessOrEqual(t, z, -settings.FarPlane)

	radius := math32.Hypot(state.PositionSpeed[0], state.PositionSpeed[1])
	assert.GreaterOrEqual(t, radius, settings.MinRadius)
	assert.LessOrEqual(t, math32.Abs(state.PositionSpeed[0]), settings.FieldHalfSize)
	assert.LessOrEqual(t, math32.Abs(state.PositionSpeed[1]), settings.FieldHalfSize)

	speed := state.PositionSpeed[3]
	assert.GreaterOrEqual(t, speed, settings.SpeedMin)
	assert.Less(t, speed, settings.SpeedMax)

	scale := state.Scale()
	assert.GreaterOrEqual(t, scale, settings.ScaleMin)
	assert.Less(t, scale, settings.ScaleMax)
}

func TestQuaternionStaysNormalized(t *testing.T) {
	sim := NewSimulation(testSettings(), 0, []Init{{
		Position:     [3]float32{0, 0, -90},
		Speed:        0.001,
		Rotation:     [4]float32{0, 0, 0, 1},
		AngularAxis:  [3]float32{0.267261, 0.534522, 0.801784},
		AngularSpeed: 3.5,
		Scale:        1,
		Seed:         7,
	}})

	for range 500 {
		sim.Step(0.016)
		q := sim.States()[0].Rotation
		norm := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
		require.InDelta(t, 1.0, norm, 1e-5)
	}
}

func TestRespawnIsSeedDeterministic(t *testing.T) {
	settings := testSettings()
	mk := func() *Simulation {
		return NewSimulation(settings, 0, []Init{{
			Position: [3]float32{0, 0, -1.05},
			Speed:    10,
			Rotation: [4]float32{0, 0, 0, 1},
			Scale:    1,
			Seed:     12345,
		}})
	}

	a := mk()
	b := mk()
	a.Step(0.1)
	b.Step(0.1)

	assert.Equal(t, a.States()[0], b.States()[0],
		"identical seeds must produce identical respawns")
	assert.NotEqual(t, uint32(12345), a.States()[0].Seed(),
		"respawn must consume the seed stream")
}

func TestRejectionSamplingFallbackIsBounded(t *testing.T) {
	// A minimum radius beyond the square's corners rejects every draw, so the
	// capped loop must land exactly on the minimum radius.
	rng := common.NewLCG(99)
	fieldHalfSize := float32(10)
	minRadius := float32(15) // > 10 * sqrt(2)

	x, y := sampleFieldXY(&rng, fieldHalfSize, minRadius)
	assert.InDelta(t, minRadius, math32.Hypot(x, y), 1e-3)
}

func TestSampleFieldXYRespectsMinRadius(t *testing.T) {
	rng := common.NewLCG(1)
	for range 200 {
		x, y := sampleFieldXY(&rng, 50, 5)
		radius := math32.Hypot(x, y)
		require.GreaterOrEqual(t, radius, float32(5))
		require.LessOrEqual(t, math32.Abs(x), float32(50))
		require.LessOrEqual(t, math32.Abs(y), float32(50))
	}
}

func TestParticleModelMatrix(t *testing.T) {
	var s GPUParticleState
	s.PositionSpeed = [4]float32{1, 2, 3, 0}
	s.Rotation = [4]float32{0, 0, 0, 1}
	s.SetScale(2)

	m := ParticleModelMatrix(&s)
	assert.Equal(t, float32(2), m[0])
	assert.Equal(t, float32(2), m[5])
	assert.Equal(t, float32(2), m[10])
	assert.Equal(t, [3]float32{m[12], m[13], m[14]}, [3]float32{1, 2, 3})
	assert.Equal(t, float32(1), m[15])

	// 90 degrees about Z maps +X onto +Y.
	half := math32.Pi / 4
	s.Rotation = [4]float32{0, 0, math32.Sin(half), math32.Cos(half)}
	s.SetScale(1)
	m = ParticleModelMatrix(&s)
	assert.InDelta(t, 0, m[0], 1e-6)
	assert.InDelta(t, 1, m[1], 1e-6)
	assert.InDelta(t, -1, m[4], 1e-6)
	assert.InDelta(t, 0, m[5], 1e-6)
}

func TestWriteObjectsUsesBaseInstance(t *testing.T) {
	sim := NewSimulation(testSettings(), 2, []Init{
		{Position: [3]float32{5, 0, -50}, Rotation: [4]float32{0, 0, 0, 1}, Scale: 1, Seed: 1},
		{Position: [3]float32{0, 6, -60}, Rotation: [4]float32{0, 0, 0, 1}, Scale: 1, Seed: 2},
	})

	objects := make([]model.GPUObjectData, 5)
	sim.WriteObjects(objects, 3)

	assert.Zero(t, objects[0].Model, "slots before base_instance stay untouched")
	assert.Equal(t, float32(5), objects[2].Model[12])
	assert.Equal(t, float32(6), objects[3].Model[13])
	assert.Equal(t, uint32(3), objects[2].MaterialIndex)
	assert.Zero(t, objects[4].Model)
}

func TestSeedFieldPopulatesDepthRange(t *testing.T) {
	settings := testSettings()
	inits := SeedField(settings, 64, 2024)
	require.Len(t, inits, 64)

	seeds := make(map[uint32]bool)
	for _, in := range inits {
		assert.LessOrEqual(t, in.Position[2], -settings.NearPlane)
		assert.GreaterOrEqual(t, in.Position[2], -settings.FarPlane)
		radius := math32.Hypot(in.Position[0], in.Position[1])
		assert.GreaterOrEqual(t, radius, settings.MinRadius)
		assert.GreaterOrEqual(t, in.Speed, settings.SpeedMin)
		seeds[in.Seed] = true
	}
	assert.Greater(t, len(seeds), 32, "per-particle seeds should be distinct")
}
