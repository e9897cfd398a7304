package model

import (
	"github.com/chewxy/math32"
)

// CubeMesh generates a unit cube centered at the origin with per-face normals,
// UVs, and tangents oriented along each face's U direction. 24 vertices
// (4 per face), 36 indices.
//
// Returns:
//   - []GPUVertex: the cube vertices
//   - []uint32: the triangle indices
func CubeMesh() ([]GPUVertex, []uint32) {
	face := func(positions [4][3]float32, normal [3]float32, tangent [4]float32) [4]GPUVertex {
		uvs := [4][2]float32{{0, 1}, {0, 0}, {1, 0}, {1, 1}}
		var out [4]GPUVertex
		for i := range positions {
			out[i] = GPUVertex{
				Position: positions[i],
				Normal:   normal,
				TexCoord: uvs[i],
				Tangent:  tangent,
			}
		}
		return out
	}

	var vertices []GPUVertex
	appendFace := func(f [4]GPUVertex) {
		vertices = append(vertices, f[0], f[1], f[2], f[3])
	}

	// Right (+X): tangent +Z
	appendFace(face(
		[4][3]float32{{0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}, {0.5, -0.5, 0.5}},
		[3]float32{1, 0, 0}, [4]float32{0, 0, 1, 1},
	))
	// Left (-X): tangent -Z
	appendFace(face(
		[4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}, {-0.5, -0.5, -0.5}},
		[3]float32{-1, 0, 0}, [4]float32{0, 0, -1, 1},
	))
	// Top (+Y): tangent +X
	appendFace(face(
		[4][3]float32{{-0.5, 0.5, -0.5}, {-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}},
		[3]float32{0, 1, 0}, [4]float32{1, 0, 0, 1},
	))
	// Bottom (-Y): tangent +X
	appendFace(face(
		[4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}},
		[3]float32{0, -1, 0}, [4]float32{1, 0, 0, 1},
	))
	// Front (+Z): tangent +X
	appendFace(face(
		[4][3]float32{{0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, -0.5, 0.5}},
		[3]float32{0, 0, 1}, [4]float32{1, 0, 0, 1},
	))
	// Back (-Z): tangent -X
	appendFace(face(
		[4][3]float32{{-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, -0.5, -0.5}},
		[3]float32{0, 0, -1}, [4]float32{-1, 0, 0, 1},
	))

	indices := make([]uint32, 0, 36)
	for f := uint32(0); f < 6; f++ {
		o := f * 4
		indices = append(indices, o, o+1, o+2, o, o+2, o+3)
	}

	return vertices, indices
}

// SphereMesh generates a unit sphere from latitude rings and longitude
// segments. For a unit sphere the normal equals the position; tangents point
// in the direction of increasing longitude.
//
// Parameters:
//   - segments: number of longitude subdivisions (minimum 3)
//   - rings: number of latitude subdivisions (minimum 2)
//
// Returns:
//   - []GPUVertex: the sphere vertices
//   - []uint32: the triangle indices
func SphereMesh(segments, rings uint32) ([]GPUVertex, []uint32) {
	var vertices []GPUVertex
	var indices []uint32

	for ring := uint32(0); ring <= rings; ring++ {
		phi := math32.Pi * float32(ring) / float32(rings)
		y := math32.Cos(phi)
		ringRadius := math32.Sin(phi)

		for segment := uint32(0); segment <= segments; segment++ {
			theta := 2.0 * math32.Pi * float32(segment) / float32(segments)
			x := ringRadius * math32.Cos(theta)
			z := ringRadius * math32.Sin(theta)

			vertices = append(vertices, GPUVertex{
				Position: [3]float32{x, y, z},
				Normal:   [3]float32{x, y, z},
				TexCoord: [2]float32{float32(segment) / float32(segments), float32(ring) / float32(rings)},
				Tangent:  [4]float32{-math32.Sin(theta), 0, math32.Cos(theta), 1},
			})
		}
	}

	for ring := uint32(0); ring < rings; ring++ {
		for segment := uint32(0); segment < segments; segment++ {
			current := ring*(segments+1) + segment
			next := current + segments + 1

			indices = append(indices,
				current, next, current+1,
				current+1, next, next+1,
			)
		}
	}

	return vertices, indices
}

// PlaneMesh generates a flat quad in the XZ plane centered at the origin with
// the normal facing +Y. The half-size extends the quad size/2 in each
// direction.
//
// Parameters:
//   - size: edge length of the quad
//   - uvScale: texture coordinate multiplier for tiling
//
// Returns:
//   - []GPUVertex: the plane vertices
//   - []uint32: the triangle indices
func PlaneMesh(size, uvScale float32) ([]GPUVertex, []uint32) {
	h := size / 2
	normal := [3]float32{0, 1, 0}
	tangent := [4]float32{1, 0, 0, 1}

	vertices := []GPUVertex{
		{Position: [3]float32{-h, 0, -h}, Normal: normal, TexCoord: [2]float32{0, 0}, Tangent: tangent},
		{Position: [3]float32{-h, 0, h}, Normal: normal, TexCoord: [2]float32{0, uvScale}, Tangent: tangent},
		{Position: [3]float32{h, 0, h}, Normal: normal, TexCoord: [2]float32{uvScale, uvScale}, Tangent: tangent},
		{Position: [3]float32{h, 0, -h}, Normal: normal, TexCoord: [2]float32{uvScale, 0}, Tangent: tangent},
	}
	indices := []uint32{0, 1, 2, 0, 2, 3}

	return vertices, indices
}
