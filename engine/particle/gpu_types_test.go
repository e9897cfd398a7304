package particle

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

func TestGPUParticleStateLayout(t *testing.T) {
	var s GPUParticleState
	require.Equal(t, 64, s.Size())

	s.PositionSpeed = [4]float32{1, 2, -50, 12}
	s.Rotation = [4]float32{0, 0, 0, 1}
	s.AngularAxisSpeed = [4]float32{0, 1, 0, 3}
	s.SetScale(0.75)
	s.ScaleSeed[1] = 0xDEADBEEF

	buf := s.Marshal()
	require.Len(t, buf, 64)
	assert.Equal(t, float32(-50), readF32(buf, 8))
	assert.Equal(t, float32(12), readF32(buf, 12))
	assert.Equal(t, float32(1), readF32(buf, 28))
	assert.Equal(t, float32(3), readF32(buf, 44))
	assert.Equal(t, math.Float32bits(0.75), binary.LittleEndian.Uint32(buf[48:]))
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(buf[52:]))

	assert.Equal(t, float32(0.75), s.Scale())
	assert.Equal(t, uint32(0xDEADBEEF), s.Seed())
}

func TestGPUParticleParamsLayout(t *testing.T) {
	p := GPUParticleParams{
		Dt:            0.016,
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
		BaseInstance:  256,
		ParticleCount: 4096,
	}
	require.Equal(t, 64, p.Size())

	buf := p.Marshal()
	require.Len(t, buf, 64)
	assert.Equal(t, float32(0.016), readF32(buf, 0))
	assert.Equal(t, float32(100), readF32(buf, 8))
	assert.Equal(t, float32(5), readF32(buf, 20))
	assert.Equal(t, float32(1.5), readF32(buf, 44))
	assert.Equal(t, uint32(256), binary.LittleEndian.Uint32(buf[48:]))
	assert.Equal(t, uint32(4096), binary.LittleEndian.Uint32(buf[52:]))
	assert.Zero(t, binary.LittleEndian.Uint32(buf[56:]))
	assert.Zero(t, binary.LittleEndian.Uint32(buf[60:]))
}

func TestWorkgroupCount(t *testing.T) {
	cases := []struct {
		count uint32
		want  uint32
	}{
		{0, 0},
		{1, 1},
		{WorkgroupSize, 1},
		{WorkgroupSize + 1, 2},
		{4096, 32},
	}
	for _, tc := range cases {
		p := GPUParticleParams{ParticleCount: tc.count}
		assert.Equal(t, tc.want, p.WorkgroupCount(), "count %d", tc.count)
	}
}

func TestMarshalStateBufferStride(t *testing.T) {
	states := []GPUParticleState{
		{PositionSpeed: [4]float32{1, 0, 0, 0}},
		{PositionSpeed: [4]float32{2, 0, 0, 0}},
	}
	buf := MarshalStateBuffer(states)
	require.Len(t, buf, 128)
	assert.Equal(t, float32(2), readF32(buf, 64))
}
