package light

import (
	"github.com/chewxy/math32"

	"github.com/prism-engine/prism/common"
)

// ShadowMapResolution is the default width and height in texels of each shadow
// depth layer. Scenes use this as their initial value but can override it via
// a builder option.
const ShadowMapResolution = 2048

// DefaultShadowExtent is the default orthographic half-size (in world units)
// of the directional shadow frustum. Controls how much of the scene around the
// camera focus is captured in the shadow map.
const DefaultShadowExtent float32 = 20.0

// DefaultShadowDistance is how far behind the camera focus (along the inverse
// light direction) the directional shadow eye is placed. The ortho far plane
// is twice this distance.
const DefaultShadowDistance float32 = 30.0

// DefaultShadowNear is the near plane shared by every shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowBias is the depth comparison bias carried in each shadow
// entry's params.y, subtracted from the reference depth to reduce acne.
const DefaultShadowBias float32 = 0.001

// pointShadowFaceDirs are the cube face forward vectors, ordered
// +X, -X, +Y, -Y, +Z, -Z. The order is part of the sampling contract: the
// layer for a face is light_index*6 + face, and the face chosen at sample
// time indexes this table.
var pointShadowFaceDirs = [PointShadowFaceCount][3]float32{
	{1, 0, 0},
	{-1, 0, 0},
	{0, 1, 0},
	{0, -1, 0},
	{0, 0, 1},
	{0, 0, -1},
}

// pointShadowFaceUps are the up vectors paired with pointShadowFaceDirs. The
// Y faces cannot use world Y as up, so they use the Z axis instead.
var pointShadowFaceUps = [PointShadowFaceCount][3]float32{
	{0, 1, 0},
	{0, 1, 0},
	{0, 0, 1},
	{0, 0, -1},
	{0, 1, 0},
	{0, 1, 0},
}

// BuildDirectionalShadow computes the shadow entry for a directional light.
// The orthographic frustum is centered on the camera focus point so the shadow
// map follows the viewer; the eye sits DefaultShadowDistance behind the focus
// along the inverse light direction.
//
// Parameters:
//   - l: the directional light (its direction and shadow extent are read)
//   - cameraPos: world-space camera position
//   - cameraTarget: world-space camera focus point
//
// Returns:
//   - GPUShadowEntry: the packed entry with params.x = 1
func BuildDirectionalShadow(l Light, cameraPos, cameraTarget [3]float32) GPUShadowEntry {
	dir := safeDirection(l.Direction(), [3]float32{0, -1, 0})

	// Fall back to the camera position when the target coincides with it.
	focus := cameraTarget
	dx := cameraTarget[0] - cameraPos[0]
	dy := cameraTarget[1] - cameraPos[1]
	dz := cameraTarget[2] - cameraPos[2]
	if dx*dx+dy*dy+dz*dz <= 1e-4 {
		focus = cameraPos
	}

	eye := [3]float32{
		focus[0] - dir[0]*DefaultShadowDistance,
		focus[1] - dir[1]*DefaultShadowDistance,
		focus[2] - dir[2]*DefaultShadowDistance,
	}

	up := shadowUp(dir)

	var view, proj [16]float32
	common.LookAt(view[:],
		eye[0], eye[1], eye[2],
		focus[0], focus[1], focus[2],
		up[0], up[1], up[2],
	)

	extent := l.ShadowExtent()
	if extent < 0.1 {
		extent = 0.1
	}
	far := DefaultShadowDistance * 2
	common.Ortho(proj[:], -extent, extent, -extent, extent, DefaultShadowNear, far)

	var entry GPUShadowEntry
	common.Mul4(entry.ViewProj[:], proj[:], view[:])
	entry.Params = [4]float32{1, DefaultShadowBias, far, 0}
	return entry
}

// BuildSpotShadow computes the shadow entry for a spot light. The perspective
// frustum covers the full outer cone (fov = 2 * outer half-angle, clamped away
// from degenerate values) with square aspect.
//
// Parameters:
//   - l: the spot light
//
// Returns:
//   - GPUShadowEntry: the packed entry with params.x = 1 and params.z = far plane
func BuildSpotShadow(l Light) GPUShadowEntry {
	near := DefaultShadowNear
	far := l.Range()
	if far < near+0.1 {
		far = near + 0.1
	}

	fov := l.OuterAngle() * 2
	fov = common.Clamp(fov, 0.1, math32.Pi-0.1)

	pos := l.Position()
	forward := safeDirection(l.Direction(), [3]float32{0, 0, -1})
	up := spotShadowUp(forward)

	var view, proj [16]float32
	common.LookAt(view[:],
		pos[0], pos[1], pos[2],
		pos[0]+forward[0], pos[1]+forward[1], pos[2]+forward[2],
		up[0], up[1], up[2],
	)
	common.Perspective(proj[:], fov, 1.0, near, far)

	var entry GPUShadowEntry
	common.Mul4(entry.ViewProj[:], proj[:], view[:])
	entry.Params = [4]float32{1, DefaultShadowBias, far, 0}
	return entry
}

// BuildPointShadow computes the six cube-face shadow matrices for a point
// light. Every face uses a 90 degree square frustum so the faces tile the full
// sphere around the light.
//
// Parameters:
//   - l: the point light
//
// Returns:
//   - GPUPointShadowEntry: the packed entry with params.x = 1 and params.z = far plane
func BuildPointShadow(l Light) GPUPointShadowEntry {
	near := DefaultShadowNear
	far := l.Range()
	if far < near+0.1 {
		far = near + 0.1
	}

	var proj [16]float32
	common.Perspective(proj[:], math32.Pi/2, 1.0, near, far)

	pos := l.Position()

	var entry GPUPointShadowEntry
	for face := range PointShadowFaceCount {
		dir := pointShadowFaceDirs[face]
		up := pointShadowFaceUps[face]

		var view [16]float32
		common.LookAt(view[:],
			pos[0], pos[1], pos[2],
			pos[0]+dir[0], pos[1]+dir[1], pos[2]+dir[2],
			up[0], up[1], up[2],
		)
		common.Mul4(entry.FaceViewProj[face][:], proj[:], view[:])
	}
	entry.Params = [4]float32{1, DefaultShadowBias, far, 0}
	return entry
}

// BuildShadowsUniform assembles the frame's shadow uniform from the scene's
// light list, pairing each shadow slot with the light slot it was assigned in
// BuildLightsUniform. Lights that do not cast shadows leave their slot at the
// zero sentinel.
//
// Parameters:
//   - lights: the scene's light list (same order passed to BuildLightsUniform)
//   - cameraPos: world-space camera position
//   - cameraTarget: world-space camera focus point
//
// Returns:
//   - GPUShadowsUniform: the packed uniform ready to marshal
func BuildShadowsUniform(lights []Light, cameraPos, cameraTarget [3]float32) GPUShadowsUniform {
	var u GPUShadowsUniform
	var dirCount, pointCount, spotCount int

	for _, l := range lights {
		if !l.Enabled() {
			continue
		}
		switch l.Type() {
		case LightTypeDirectional:
			if dirCount >= MaxDirectionalLights {
				continue
			}
			if l.CastsShadows() {
				u.Directionals[dirCount] = BuildDirectionalShadow(l, cameraPos, cameraTarget)
			}
			dirCount++
		case LightTypePoint:
			if pointCount >= MaxPointLights {
				continue
			}
			if l.CastsShadows() {
				u.Points[pointCount] = BuildPointShadow(l)
			}
			pointCount++
		case LightTypeSpot:
			if spotCount >= MaxSpotLights {
				continue
			}
			if l.CastsShadows() {
				u.Spots[spotCount] = BuildSpotShadow(l)
			}
			spotCount++
		}
	}

	return u
}

// safeDirection normalizes v, falling back when the length is near zero.
func safeDirection(v, fallback [3]float32) [3]float32 {
	lenSq := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	if lenSq <= 1e-6 {
		return fallback
	}
	inv := 1.0 / math32.Sqrt(lenSq)
	return [3]float32{v[0] * inv, v[1] * inv, v[2] * inv}
}

// shadowUp picks an up vector for a directional shadow view that is not
// parallel to the light direction.
func shadowUp(dir [3]float32) [3]float32 {
	if math32.Abs(dir[1]) > 0.95 {
		return [3]float32{0, 0, 1}
	}
	return [3]float32{0, 1, 0}
}

// spotShadowUp builds a stable up vector orthogonal to the spot forward axis.
func spotShadowUp(forward [3]float32) [3]float32 {
	up := [3]float32{0, 1, 0}
	right := cross3(forward, up)
	rightLenSq := right[0]*right[0] + right[1]*right[1] + right[2]*right[2]
	if rightLenSq < 1e-8 {
		fallback := [3]float32{1, 0, 0}
		if math32.Abs(forward[0]) >= 0.9 {
			fallback = [3]float32{0, 1, 0}
		}
		right = cross3(forward, fallback)
		rightLenSq = right[0]*right[0] + right[1]*right[1] + right[2]*right[2]
	}
	inv := 1.0 / math32.Sqrt(rightLenSq)
	right = [3]float32{right[0] * inv, right[1] * inv, right[2] * inv}

	up = cross3(right, forward)
	upLen := math32.Sqrt(up[0]*up[0] + up[1]*up[1] + up[2]*up[2])
	return [3]float32{up[0] / upLen, up[1] / upLen, up[2] / upLen}
}

// cross3 returns the cross product a x b.
func cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
