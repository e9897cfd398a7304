package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-engine/prism/common"
)

// constDepth is a DepthMap returning the same stored depth everywhere.
type constDepth float32

func (c constDepth) Depth(int, float32, float32) float32 {
	return float32(c)
}

// recordingDepth captures the layer of the last lookup.
type recordingDepth struct {
	stored    float32
	lastLayer int
}

func (r *recordingDepth) Depth(layer int, _, _ float32) float32 {
	r.lastLayer = layer
	return r.stored
}

// orthoEntry builds a shadow entry with an identity view: world -Z maps
// straight onto depth, world XY onto the map plane.
func orthoEntry(bias, near, far float32) GPUShadowEntry {
	var e GPUShadowEntry
	common.Ortho(e.ViewProj[:], -1, 1, -1, 1, near, far)
	e.Params = [4]float32{1, bias, far, 0}
	return e
}

func TestSampleShadowSentinel(t *testing.T) {
	var e GPUShadowEntry // params.x == 0
	e.ViewProj[0] = 1

	// Fully lit no matter the position or stored depth.
	assert.Equal(t, float32(1), SampleShadow(&e, constDepth(0), 0, [3]float32{0, 0, -5}))
	assert.Equal(t, float32(1), SampleShadow(&e, constDepth(0), 0, [3]float32{100, -100, 3}))
}

func TestSampleShadowOutsideFrustumIsLit(t *testing.T) {
	e := orthoEntry(0, 0, 10)

	// Everything stored at depth 0 shadows any valid projection, so a lit
	// result can only come from the outside-frustum policy.
	dm := constDepth(0)
	assert.Equal(t, float32(0), SampleShadow(&e, dm, 0, [3]float32{0, 0, -5}))
	assert.Equal(t, float32(1), SampleShadow(&e, dm, 0, [3]float32{2, 0, -5}), "u > 1")
	assert.Equal(t, float32(1), SampleShadow(&e, dm, 0, [3]float32{0, -2, -5}), "v > 1")
	assert.Equal(t, float32(1), SampleShadow(&e, dm, 0, [3]float32{0, 0, -15}), "depth > 1")
	assert.Equal(t, float32(1), SampleShadow(&e, dm, 0, [3]float32{0, 0, 5}), "behind the light")
}

func TestSampleShadowBiasedCompare(t *testing.T) {
	e := orthoEntry(0.1, 0, 10)

	// World z = -5 projects to depth 0.5; the biased reference is 0.4.
	world := [3]float32{0, 0, -5}
	assert.Equal(t, float32(1), SampleShadow(&e, constDepth(0.45), 0, world),
		"bias must pull the reference below the stored depth")
	assert.Equal(t, float32(0), SampleShadow(&e, constDepth(0.35), 0, world))
	assert.Equal(t, float32(1), SampleShadow(&e, constDepth(0.40), 0, world),
		"equal depths resolve to lit")
}

func TestCubeFaceSelection(t *testing.T) {
	cases := []struct {
		name       string
		dx, dy, dz float32
		face       int
	}{
		{"+x dominant", 3, 1, -1, 0},
		{"-x dominant", -3, 1, 1, 1},
		{"+y dominant", 1, 3, 1, 2},
		{"-y dominant", 0, -4, 3, 3},
		{"+z dominant", 1, -1, 4, 4},
		{"-z dominant", 0, 0, -1, 5},
		{"three-way tie resolves to x", 1, 1, 1, 0},
		{"negative three-way tie resolves to -x", -2, 2, 2, 1},
		{"yz tie resolves to y", 0, 1, 1, 2},
		{"negative yz tie resolves to -y", 0, -1, -1, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.face, CubeFace(tc.dx, tc.dy, tc.dz))
		})
	}
}

func TestSamplePointShadowEdgePolicies(t *testing.T) {
	l := NewLight(LightTypePoint, WithPosition(0, 0, 0), WithRange(20))
	entry := BuildPointShadow(l)
	lightPos := [3]float32{0, 0, 0}

	// Near-zero distance from the light avoids the face-selection singularity.
	assert.Equal(t, float32(1), SamplePointShadow(&entry, constDepth(0), 0, lightPos, [3]float32{0, 0, 1e-5}))

	// Beyond range is unshadowed without sampling.
	assert.Equal(t, float32(1), SamplePointShadow(&entry, constDepth(0), 0, lightPos, [3]float32{0, 0, -25}))

	// Sentinel wins over everything.
	var blank GPUPointShadowEntry
	assert.Equal(t, float32(1), SamplePointShadow(&blank, constDepth(0), 0, lightPos, [3]float32{0, 0, -5}))
}

func TestSamplePointShadowLayerAddressing(t *testing.T) {
	l := NewLight(LightTypePoint, WithPosition(0, 0, 0), WithRange(20))
	entry := BuildPointShadow(l)
	lightPos := [3]float32{0, 0, 0}

	dm := &recordingDepth{stored: 1}
	vis := SamplePointShadow(&entry, dm, 2, lightPos, [3]float32{0, 0, -5})
	assert.Equal(t, float32(1), vis)
	assert.Equal(t, 2*PointShadowFaceCount+5, dm.lastLayer, "light slot 2, -Z face")

	dm.stored = 0
	vis = SamplePointShadow(&entry, dm, 2, lightPos, [3]float32{0, 0, -5})
	assert.Equal(t, float32(0), vis, "stored depth of zero shadows everything in range")
}

func TestSamplePointShadowFaceProjection(t *testing.T) {
	pos := [3]float32{1, 2, 3}
	l := NewLight(LightTypePoint, WithPosition(pos[0], pos[1], pos[2]), WithRange(10))
	entry := BuildPointShadow(l)

	// A fragment along each axis stays inside its face frustum and compares
	// against a far stored depth as lit.
	for face, dir := range pointShadowFaceDirs {
		world := [3]float32{pos[0] + dir[0]*4, pos[1] + dir[1]*4, pos[2] + dir[2]*4}
		dm := &recordingDepth{stored: 1}
		vis := SamplePointShadow(&entry, dm, 0, pos, world)
		require.Equal(t, float32(1), vis, "face %d", face)
		assert.Equal(t, face, dm.lastLayer)
	}
}
