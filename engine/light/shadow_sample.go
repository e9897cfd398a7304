package light

import (
	"github.com/chewxy/math32"

	"github.com/prism-engine/prism/common"
)

// DepthMap exposes the shadow depth layers to the reference sampler. The GPU
// path reads the same layers through comparison samplers; this interface keeps
// the visibility policy testable without a device.
type DepthMap interface {
	// Depth returns the stored depth at normalized coordinates (u, v) in the
	// given array layer. Implementations clamp u/v to the layer edge.
	//
	// Parameters:
	//   - layer: depth array layer index
	//   - u, v: normalized texture coordinates in [0, 1]
	//
	// Returns:
	//   - float32: the stored depth in [0, 1]
	Depth(layer int, u, v float32) float32
}

// minPointLightDistance guards the point-light face selection against the
// singularity at the light's own position.
const minPointLightDistance float32 = 1e-4

// SampleShadow computes the visibility factor for a world position against a
// directional or spot shadow entry.
//
// Policy, in order: the params.x == 0 sentinel means no shadow data was
// recorded this frame and the result is fully lit. A projection landing
// outside the [0,1] box in u, v, or depth is fully lit (outside the light
// frustum, not an error). Otherwise the biased reference depth is compared
// against the stored depth; the fragment is lit when the reference is not
// farther than the stored value.
//
// Parameters:
//   - entry: the shadow entry for the light
//   - depthMap: the shadow depth layers
//   - layer: the depth array layer for this light
//   - world: world-space position to test
//
// Returns:
//   - float32: visibility in [0, 1]; 1 = fully lit, 0 = fully shadowed
func SampleShadow(entry *GPUShadowEntry, depthMap DepthMap, layer int, world [3]float32) float32 {
	if entry.Params[0] == 0 {
		return 1.0
	}
	return compareProjected(entry.ViewProj[:], entry.Params[1], depthMap, layer, world)
}

// SamplePointShadow computes the visibility factor for a world position
// against a point light's cube-face shadow entry.
//
// The face is chosen by the dominant axis of the light-to-fragment direction,
// with ties broken by checking X, then Y, then Z in that order; the sign of
// the dominant component selects the positive or negative face. The depth
// array layer is index*6 + face. Fragments at near-zero distance from the
// light, or beyond its range (params.z), are fully lit.
//
// Parameters:
//   - entry: the point shadow entry
//   - depthMap: the shadow depth layers
//   - index: the point light's slot index (layer base is index*6)
//   - lightPos: world-space light position
//   - world: world-space position to test
//
// Returns:
//   - float32: visibility in [0, 1]; 1 = fully lit, 0 = fully shadowed
func SamplePointShadow(entry *GPUPointShadowEntry, depthMap DepthMap, index int, lightPos, world [3]float32) float32 {
	if entry.Params[0] == 0 {
		return 1.0
	}

	dx := world[0] - lightPos[0]
	dy := world[1] - lightPos[1]
	dz := world[2] - lightPos[2]
	dist := math32.Sqrt(dx*dx + dy*dy + dz*dz)
	if dist < minPointLightDistance {
		return 1.0
	}
	if entry.Params[2] > 0 && dist > entry.Params[2] {
		return 1.0
	}

	face := CubeFace(dx, dy, dz)
	layer := index*PointShadowFaceCount + face
	return compareProjected(entry.FaceViewProj[face][:], entry.Params[1], depthMap, layer, world)
}

// CubeFace selects the cube face index for a light-to-fragment direction.
// Faces are ordered +X, -X, +Y, -Y, +Z, -Z. The dominant axis is found by
// explicit ordered comparison so ties resolve to X first, then Y, then Z;
// this ordering is part of the sampling contract and must not be replaced
// with a reduction that could reorder equal components.
//
// Parameters:
//   - dx, dy, dz: direction from light to fragment (need not be normalized)
//
// Returns:
//   - int: face index in [0, 5]
func CubeFace(dx, dy, dz float32) int {
	ax := math32.Abs(dx)
	ay := math32.Abs(dy)
	az := math32.Abs(dz)

	if ax >= ay && ax >= az {
		if dx >= 0 {
			return 0
		}
		return 1
	}
	if ay >= az {
		if dy >= 0 {
			return 2
		}
		return 3
	}
	if dz >= 0 {
		return 4
	}
	return 5
}

// compareProjected projects the world position by viewProj, maps it to shadow
// UV and depth, and performs the biased depth comparison. Positions outside
// the [0,1] box in any dimension are fully lit.
func compareProjected(viewProj []float32, bias float32, depthMap DepthMap, layer int, world [3]float32) float32 {
	clip := common.TransformPoint(viewProj, world[0], world[1], world[2])
	if clip[3] <= 0 {
		return 1.0
	}

	invW := 1.0 / clip[3]
	ndcX := clip[0] * invW
	ndcY := clip[1] * invW
	depth := clip[2] * invW

	u := ndcX*0.5 + 0.5
	v := -ndcY*0.5 + 0.5
	if u < 0 || u > 1 || v < 0 || v > 1 || depth < 0 || depth > 1 {
		return 1.0
	}

	ref := common.Clamp(depth-bias, 0, 1)
	if ref <= depthMap.Depth(layer, u, v) {
		return 1.0
	}
	return 0.0
}
