package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrustumContainsSphere(t *testing.T) {
	var proj, view, viewProj [16]float32
	Perspective(proj[:], 1.0, 1.0, 0.1, 100.0)
	LookAt(view[:], 0, 0, 0, 0, 0, -1, 0, 1, 0)
	Mul4(viewProj[:], proj[:], view[:])

	f := ExtractFrustumFromMatrix(viewProj[:])

	assert.True(t, f.ContainsSphere(0, 0, -10, 1), "sphere ahead of the camera")
	assert.False(t, f.ContainsSphere(0, 0, 10, 1), "sphere behind the camera")
	assert.False(t, f.ContainsSphere(0, 0, -200, 1), "sphere past the far plane")

	// A sphere straddling the near plane is kept.
	assert.True(t, f.ContainsSphere(0, 0, 0, 1))
}

func TestFrustumPlanesNormalized(t *testing.T) {
	var proj [16]float32
	Perspective(proj[:], 1.2, 1.5, 0.5, 80.0)

	f := ExtractFrustumFromMatrix(proj[:])
	for i, p := range f.Planes {
		lenSq := p.Normal[0]*p.Normal[0] + p.Normal[1]*p.Normal[1] + p.Normal[2]*p.Normal[2]
		assert.InDelta(t, 1.0, lenSq, 1e-5, "plane %d", i)
	}
}
