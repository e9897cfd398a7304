package light

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-engine/prism/common"
)

// projectToUV runs a world position through a shadow view-projection and
// returns (u, v, depth) the way the sampler does.
func projectToUV(t *testing.T, viewProj []float32, x, y, z float32) (float32, float32, float32) {
	t.Helper()
	clip := common.TransformPoint(viewProj, x, y, z)
	require.Greater(t, clip[3], float32(0), "point behind the projection")
	invW := 1.0 / clip[3]
	return clip[0]*invW*0.5 + 0.5, clip[1]*invW*-0.5 + 0.5, clip[2] * invW
}

func TestDirectionalShadowCentersCameraTarget(t *testing.T) {
	l := NewLight(LightTypeDirectional,
		WithDirection(0.3, -1.0, -0.4),
		WithCastsShadows(true),
	)
	cameraPos := [3]float32{8, 6, -4}
	cameraTarget := [3]float32{2.5, 1, -3}

	entry := BuildDirectionalShadow(l, cameraPos, cameraTarget)
	require.Equal(t, float32(1), entry.Params[0])
	assert.Equal(t, DefaultShadowBias, entry.Params[1])

	u, v, depth := projectToUV(t, entry.ViewProj[:], cameraTarget[0], cameraTarget[1], cameraTarget[2])
	assert.InDelta(t, 0.5, u, 1e-4, "focus should land in the shadow map center")
	assert.InDelta(t, 0.5, v, 1e-4)
	// The focus sits DefaultShadowDistance into a frustum twice that deep.
	assert.InDelta(t, 0.5, depth, 0.01)
}

func TestDirectionalShadowExtentBoundsCoverage(t *testing.T) {
	l := NewLight(LightTypeDirectional,
		WithDirection(0, -1, 0),
		WithShadowExtent(10),
	)
	entry := BuildDirectionalShadow(l, [3]float32{0, 5, 12}, [3]float32{0, 0, 0})

	inside, _, _ := projectToUV(t, entry.ViewProj[:], 9, 0, 0)
	outside, _, _ := projectToUV(t, entry.ViewProj[:], 14, 0, 0)
	assert.True(t, inside >= 0 && inside <= 1, "point within the half-extent must stay on the map, u=%v", inside)
	assert.True(t, outside < 0 || outside > 1, "point past the half-extent must leave the map, u=%v", outside)
}

func TestSpotShadowDepthRange(t *testing.T) {
	l := NewLight(LightTypeSpot,
		WithPosition(2, 3, 4),
		WithDirection(0, 0, -1),
		WithRange(30),
		WithSpotCone(20, 35),
	)
	entry := BuildSpotShadow(l)
	require.Equal(t, float32(1), entry.Params[0])
	assert.Equal(t, float32(30), entry.Params[2])

	near := DefaultShadowNear
	_, _, nearDepth := projectToUV(t, entry.ViewProj[:], 2, 3, 4-near)
	_, _, farDepth := projectToUV(t, entry.ViewProj[:], 2, 3, 4-30)

	assert.InDelta(t, 0.0, nearDepth, 1e-4)
	assert.InDelta(t, 1.0, farDepth, 1e-4)
}

func TestSpotShadowClampsDegenerateRange(t *testing.T) {
	l := NewLight(LightTypeSpot, WithRange(0))
	entry := BuildSpotShadow(l)
	assert.Equal(t, DefaultShadowNear+0.1, entry.Params[2])
}

func TestPointShadowFacesLookOutward(t *testing.T) {
	pos := [3]float32{-3, 4.5, 1}
	l := NewLight(LightTypePoint, WithPosition(pos[0], pos[1], pos[2]), WithRange(12))
	entry := BuildPointShadow(l)
	require.Equal(t, float32(1), entry.Params[0])
	assert.Equal(t, float32(12), entry.Params[2])

	// A point straight down each face's axis lands in that face's center with
	// near depth 0 and far depth 1.
	for face, dir := range pointShadowFaceDirs {
		near := DefaultShadowNear
		far := entry.Params[2]

		u, v, nearDepth := projectToUV(t, entry.FaceViewProj[face][:],
			pos[0]+dir[0]*near, pos[1]+dir[1]*near, pos[2]+dir[2]*near)
		assert.InDelta(t, 0.5, u, 1e-4, "face %d", face)
		assert.InDelta(t, 0.5, v, 1e-4, "face %d", face)
		assert.InDelta(t, 0.0, nearDepth, 1e-4, "face %d", face)

		_, _, farDepth := projectToUV(t, entry.FaceViewProj[face][:],
			pos[0]+dir[0]*far, pos[1]+dir[1]*far, pos[2]+dir[2]*far)
		assert.InDelta(t, 1.0, farDepth, 1e-4, "face %d", face)
	}
}

func TestBuildShadowsUniformSlotPairing(t *testing.T) {
	lights := []Light{
		NewLight(LightTypeDirectional, WithDirection(0, -1, 0)),
		NewLight(LightTypeDirectional, WithDirection(1, -1, 0), WithCastsShadows(true)),
		NewLight(LightTypePoint, WithPosition(0, 2, 0), WithRange(9), WithCastsShadows(true)),
		NewLight(LightTypeSpot, WithPosition(0, 5, 0), WithDirection(0, -1, 0)),
	}

	u := BuildShadowsUniform(lights, [3]float32{0, 3, 10}, [3]float32{0, 0, 0})

	// Slot order mirrors BuildLightsUniform; non-casting lights keep the
	// zero sentinel in their slot.
	assert.Zero(t, u.Directionals[0].Params[0])
	assert.Equal(t, float32(1), u.Directionals[1].Params[0])
	assert.Equal(t, float32(1), u.Points[0].Params[0])
	assert.Equal(t, float32(9), u.Points[0].Params[2])
	assert.Zero(t, u.Spots[0].Params[0])
}
