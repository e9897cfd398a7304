package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUVertexLayout(t *testing.T) {
	v := GPUVertex{
		Position: [3]float32{1, 2, 3},
		Normal:   [3]float32{0, 1, 0},
		TexCoord: [2]float32{0.25, 0.75},
		Tangent:  [4]float32{1, 0, 0, -1},
	}
	require.Equal(t, 48, v.Size())

	buf := v.Marshal()
	require.Len(t, buf, 48)

	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}
	assert.Equal(t, float32(1), readF32(0))
	assert.Equal(t, float32(3), readF32(8))
	assert.Equal(t, float32(1), readF32(16))
	assert.Equal(t, float32(0.25), readF32(24))
	assert.Equal(t, float32(0.75), readF32(28))
	assert.Equal(t, float32(1), readF32(32))
	assert.Equal(t, float32(-1), readF32(44))
}

func TestGPUObjectDataLayout(t *testing.T) {
	o := GPUObjectData{MaterialIndex: 7}
	for i := range 16 {
		o.Model[i] = float32(i)
	}
	require.Equal(t, 80, o.Size())

	buf := o.Marshal()
	require.Len(t, buf, 80)

	assert.Equal(t, math.Float32bits(15), binary.LittleEndian.Uint32(buf[60:]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[64:]))
	for off := 68; off < 80; off += 4 {
		assert.Zero(t, binary.LittleEndian.Uint32(buf[off:]), "padding at offset %d", off)
	}
}

func TestMarshalObjectBufferStride(t *testing.T) {
	objects := []GPUObjectData{
		{MaterialIndex: 1},
		{MaterialIndex: 2},
		{MaterialIndex: 3},
	}
	buf := MarshalObjectBuffer(objects)
	require.Len(t, buf, 240)

	// material_index of the second entry lives at stride + 64.
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[80+64:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[160+64:]))
}

func TestCubeMeshCounts(t *testing.T) {
	vertices, indices := CubeMesh()
	assert.Len(t, vertices, 24)
	assert.Len(t, indices, 36)

	// Bounding radius of a unit cube is half the space diagonal.
	assert.InDelta(t, math.Sqrt(3)/2, float64(ComputeBoundingRadius(vertices)), 1e-5)
}

func TestSphereMeshUnitRadius(t *testing.T) {
	vertices, indices := SphereMesh(16, 8)
	require.NotEmpty(t, indices)

	for _, v := range vertices {
		p := v.Position
		lenSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		assert.InDelta(t, 1.0, lenSq, 1e-4)

		// Unit sphere: normal equals position.
		assert.Equal(t, v.Position, v.Normal)
	}
	for _, i := range indices {
		assert.Less(t, int(i), len(vertices))
	}
}

func TestPlaneMeshFacesUp(t *testing.T) {
	vertices, indices := PlaneMesh(10, 4)
	require.Len(t, vertices, 4)
	require.Len(t, indices, 6)

	for _, v := range vertices {
		assert.Equal(t, [3]float32{0, 1, 0}, v.Normal)
		assert.Equal(t, float32(0), v.Position[1])
	}
	assert.Equal(t, [2]float32{4, 4}, vertices[2].TexCoord)
}
