package light

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readF32(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func TestGPULightsUniformLayout(t *testing.T) {
	var u GPULightsUniform
	require.Equal(t, 1168, u.Size())

	u.Counts = [4]uint32{1, 2, 3, 0}
	u.Directionals[0] = GPUDirectionalLight{
		Direction:      [4]float32{0, -1, 0, 0},
		ColorIntensity: [4]float32{1, 0.5, 0.25, 2},
	}
	u.Points[0] = GPUPointLight{
		PositionRange:  [4]float32{1, 2, 3, 15},
		ColorIntensity: [4]float32{0.9, 0.8, 0.7, 4},
	}
	u.Points[15] = GPUPointLight{PositionRange: [4]float32{7, 7, 7, 7}}
	u.Spots[0] = GPUSpotLight{
		PositionRange: [4]float32{4, 5, 6, 20},
		Direction:     [4]float32{0, 0, -1, 0},
		ConeParams:    [4]float32{0.9, 0.8, 0, 0},
	}

	buf := u.Marshal()
	require.Len(t, buf, 1168)

	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[4:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[8:]))

	// First directional slot begins after the counts vector.
	assert.Equal(t, float32(-1), readF32(buf, 16+4))
	assert.Equal(t, float32(2), readF32(buf, 16+28))

	// Point slots begin at 144, spot slots at 656.
	assert.Equal(t, float32(15), readF32(buf, 144+12))
	assert.Equal(t, float32(7), readF32(buf, 144+15*32))
	assert.Equal(t, float32(20), readF32(buf, 656+12))
	assert.Equal(t, float32(0.8), readF32(buf, 656+48+4))
}

func TestGPUShadowEntryLayout(t *testing.T) {
	var e GPUShadowEntry
	require.Equal(t, 80, e.Size())

	e.ViewProj[0] = 2.5
	e.ViewProj[15] = -1.5
	e.Params = [4]float32{1, 0.001, 30, 0}

	buf := e.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, float32(2.5), readF32(buf, 0))
	assert.Equal(t, float32(-1.5), readF32(buf, 60))
	assert.Equal(t, float32(1), readF32(buf, 64))
	assert.Equal(t, float32(30), readF32(buf, 72))
}

func TestGPUPointShadowEntryLayout(t *testing.T) {
	var e GPUPointShadowEntry
	require.Equal(t, 400, e.Size())

	e.FaceViewProj[5][0] = 9
	e.Params = [4]float32{1, 0.001, 12, 0}

	buf := e.Marshal()
	require.Len(t, buf, 400)
	assert.Equal(t, float32(9), readF32(buf, 5*64))
	assert.Equal(t, float32(12), readF32(buf, 384+8))
}

func TestGPUShadowsUniformLayout(t *testing.T) {
	var u GPUShadowsUniform
	require.Equal(t, 7360, u.Size())

	u.Spots[7].Params[0] = 1
	u.Points[15].Params[2] = 25

	buf := u.Marshal()
	require.Len(t, buf, 7360)
	// Spots follow the 4 directional entries; points follow the 8 spot entries.
	assert.Equal(t, float32(1), readF32(buf, 320+7*80+64))
	assert.Equal(t, float32(25), readF32(buf, 960+15*400+384+8))
}

func TestBuildLightsUniformCounts(t *testing.T) {
	lights := []Light{
		NewLight(LightTypeDirectional, WithDirection(0, -1, 0), WithIntensity(2)),
		NewLight(LightTypePoint, WithPosition(1, 2, 3), WithRange(15)),
		NewLight(LightTypeSpot, WithPosition(0, 5, 0), WithDirection(0, -1, 0)),
		NewLight(LightTypePoint, WithEnabled(false)),
	}

	u := BuildLightsUniform(lights)
	assert.Equal(t, [4]uint32{1, 1, 1, 0}, u.Counts)
	assert.Equal(t, float32(2), u.Directionals[0].ColorIntensity[3])
	assert.Equal(t, [4]float32{1, 2, 3, 15}, u.Points[0].PositionRange)

	// Disabled lights never occupy a slot.
	assert.Zero(t, u.Points[1].PositionRange[3])
}

func TestBuildLightsUniformCapacity(t *testing.T) {
	var lights []Light
	for range MaxDirectionalLights + 3 {
		lights = append(lights, NewLight(LightTypeDirectional))
	}
	u := BuildLightsUniform(lights)
	assert.Equal(t, uint32(MaxDirectionalLights), u.Counts[0])
}

func TestBuildLightsUniformSpotConeOrdering(t *testing.T) {
	// Swapped angles still produce cos(inner) >= cos(outer).
	swapped := NewLight(LightTypeSpot, WithSpotCone(40, 20))
	u := BuildLightsUniform([]Light{swapped})

	cosInner := u.Spots[0].ConeParams[0]
	cosOuter := u.Spots[0].ConeParams[1]
	assert.GreaterOrEqual(t, cosInner, cosOuter)
	assert.InDelta(t, math32.Cos(20*math32.Pi/180), cosInner, 1e-6)
	assert.InDelta(t, math32.Cos(40*math32.Pi/180), cosOuter, 1e-6)
}
