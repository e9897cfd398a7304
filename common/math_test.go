package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMul4Identity(t *testing.T) {
	var id, m, out [16]float32
	Identity(id[:])
	BuildModelMatrix(m[:], 1, 2, 3, 0.3, 0.7, 0.1, 2, 2, 2)

	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)

	Mul4(out[:], m[:], id[:])
	assert.Equal(t, m, out)
}

func TestInvert4Roundtrip(t *testing.T) {
	var m, inv, out [16]float32
	BuildModelMatrix(m[:], 4, -2, 9, 0.5, 1.2, -0.3, 1.5, 0.5, 3)

	require.True(t, Invert4(inv[:], m[:]))
	Mul4(out[:], m[:], inv[:])

	var id [16]float32
	Identity(id[:])
	for i := range out {
		assert.InDelta(t, id[i], out[i], 1e-4, "element %d", i)
	}
}

func TestInvert4Singular(t *testing.T) {
	var m, out [16]float32 // all-zero matrix has zero determinant
	assert.False(t, Invert4(out[:], m[:]))
}

func TestPerspectiveDepthRange(t *testing.T) {
	var proj [16]float32
	near, far := float32(0.1), float32(100.0)
	Perspective(proj[:], 1.0, 16.0/9.0, near, far)

	// A point on the near plane must map to depth 0, far plane to depth 1.
	pn := TransformPoint(proj[:], 0, 0, -near)
	assert.InDelta(t, 0.0, pn[2]/pn[3], 1e-5)

	pf := TransformPoint(proj[:], 0, 0, -far)
	assert.InDelta(t, 1.0, pf[2]/pf[3], 1e-4)
}

func TestOrthoDepthRange(t *testing.T) {
	var proj [16]float32
	Ortho(proj[:], -10, 10, -10, 10, 1, 50)

	pn := TransformPoint(proj[:], 0, 0, -1)
	assert.InDelta(t, 0.0, pn[2], 1e-6)
	assert.InDelta(t, 1.0, pn[3], 1e-6)

	pf := TransformPoint(proj[:], 0, 0, -50)
	assert.InDelta(t, 1.0, pf[2], 1e-6)

	// Corners of the volume map to the edges of NDC.
	pc := TransformPoint(proj[:], 10, -10, -1)
	assert.InDelta(t, 1.0, pc[0], 1e-6)
	assert.InDelta(t, -1.0, pc[1], 1e-6)
}

func TestLookAtMapsTargetToNegativeZ(t *testing.T) {
	var view [16]float32
	LookAt(view[:], 0, 0, 5, 0, 0, 0, 0, 1, 0)

	p := TransformPoint(view[:], 0, 0, 0)
	assert.InDelta(t, 0.0, p[0], 1e-6)
	assert.InDelta(t, 0.0, p[1], 1e-6)
	assert.InDelta(t, -5.0, p[2], 1e-6)
}

func TestTranspose4(t *testing.T) {
	var m, out [16]float32
	for i := range m {
		m[i] = float32(i)
	}
	Transpose4(out[:], m[:])
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			assert.Equal(t, m[c*4+r], out[r*4+c])
		}
	}

	// In-place transpose works too.
	Transpose4(m[:], m[:])
	assert.Equal(t, out, m)
}

func TestSliceToBytesLength(t *testing.T) {
	data := []float32{1, 2, 3}
	b := SliceToBytes(data)
	require.Len(t, b, 12)

	assert.Nil(t, SliceToBytes([]float32{}))
}
