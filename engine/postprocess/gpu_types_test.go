package postprocess

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readF32(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func TestGPUPostUniformLayout(t *testing.T) {
	var u GPUPostUniform
	require.Equal(t, 192, u.Size())

	u.Proj[0] = 1.5
	u.ProjInv[15] = 2.5
	u.Resolution = [2]float32{1920, 1080}
	u.RadiusBias = [2]float32{5.5, 0.025}
	u.IntensityPower = [2]float32{3.5, 1.5}
	u.NoiseScale = [2]float32{480, 270}
	u.NearFar = [2]float32{0.1, 100}
	u.EffectsVec = [4]float32{1, 0, 1, 0}

	buf := u.Marshal()
	require.Len(t, buf, 192)

	assert.Equal(t, float32(1.5), readF32(buf, 0))
	assert.Equal(t, float32(2.5), readF32(buf, 64+15*4))
	assert.Equal(t, float32(1920), readF32(buf, 128))
	assert.Equal(t, float32(1080), readF32(buf, 132))
	assert.Equal(t, float32(5.5), readF32(buf, 136))
	assert.Equal(t, float32(0.025), readF32(buf, 140))
	assert.Equal(t, float32(3.5), readF32(buf, 144))
	assert.Equal(t, float32(1.5), readF32(buf, 148))
	assert.Equal(t, float32(480), readF32(buf, 152))
	assert.Equal(t, float32(270), readF32(buf, 156))
	assert.Equal(t, float32(0.1), readF32(buf, 160))
	assert.Equal(t, float32(100), readF32(buf, 164))

	// Padding stays zero, effects vector lands on a 16-byte boundary.
	assert.Zero(t, readF32(buf, 168))
	assert.Zero(t, readF32(buf, 172))
	assert.Equal(t, float32(1), readF32(buf, 176))
	assert.Zero(t, readF32(buf, 180))
	assert.Equal(t, float32(1), readF32(buf, 184))
}

func TestNewPostUniformDefaults(t *testing.T) {
	var proj, projInv [16]float32
	u := NewPostUniform(proj, projInv, 1920, 1080, 0.1, 100, Effects{SSAO: true, Bloom: true})

	assert.Equal(t, [2]float32{DefaultSSAORadius, DefaultSSAOBias}, u.RadiusBias)
	assert.Equal(t, [2]float32{DefaultSSAOIntensity, DefaultSSAOPower}, u.IntensityPower)
	assert.Equal(t, [2]float32{1920.0 / NoiseTextureSize, 1080.0 / NoiseTextureSize}, u.NoiseScale)
	assert.Equal(t, [2]float32{0.1, 100}, u.NearFar)
	assert.Equal(t, [4]float32{1, 1, 0, 0}, u.EffectsVec)
}

func TestEffectsVec4Toggles(t *testing.T) {
	assert.Equal(t, [4]float32{0, 0, 0, 0}, Effects{}.vec4())
	assert.Equal(t, [4]float32{1, 0, 0, 0}, Effects{SSAO: true}.vec4())
	assert.Equal(t, [4]float32{0, 1, 1, 0}, Effects{Bloom: true, FXAA: true}.vec4())
}
