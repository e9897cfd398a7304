package postprocess

import (
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-engine/prism/common"
)

func TestNoiseTextureStaging(t *testing.T) {
	noise := NoiseTexture()
	assert.Equal(t, uint32(NoiseTextureSize), noise.Width)
	assert.Equal(t, uint32(NoiseTextureSize), noise.Height)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, noise.Format)
	assert.Equal(t, uint32(4), noise.BytesPerPixel())
	assert.Len(t, noise.Pixels, NoiseTextureSize*NoiseTextureSize*4)

	// Quantization must round-trip the midpoint: a zero component encodes to
	// the unorm value closest to 0.5.
	for i, v := range ssaoNoiseData {
		if v == 0 {
			assert.InDelta(t, 128, int(noise.Pixels[i]), 1)
		}
	}
}

func TestSSAOKernelProperties(t *testing.T) {
	kernel := SSAOKernel()
	require.Len(t, kernel[:], KernelSampleCount)

	for i, s := range kernel {
		length := math32.Sqrt(s[0]*s[0] + s[1]*s[1] + s[2]*s[2])
		assert.GreaterOrEqual(t, s[2], float32(0), "sample %d must stay in the +Z hemisphere", i)
		assert.LessOrEqual(t, length, float32(1)+1e-5, "sample %d exceeds the unit hemisphere", i)
	}

	assert.Equal(t, kernel, SSAOKernel(), "kernel must be deterministic")
}

func TestKernelSourceIsValidConstantArray(t *testing.T) {
	src := KernelSource()
	assert.Contains(t, src, "const SSAO_KERNEL: array<vec4<f32>, 32>")
	assert.Equal(t, KernelSampleCount, strings.Count(src, "vec4<f32>("),
		"one vec4 literal per sample")
}

func TestProjectionRoundtrip(t *testing.T) {
	proj := make([]float32, 16)
	projInv := make([]float32, 16)
	common.Perspective(proj, math32.Pi/3, 16.0/9.0, 0.1, 50)
	require.True(t, common.Invert4(projInv, proj))

	// Depth convention: near maps to 0, far to 1.
	_, _, depthNear := ProjectViewToUV(proj, [3]float32{0, 0, -0.1})
	_, _, depthFar := ProjectViewToUV(proj, [3]float32{0, 0, -50})
	assert.InDelta(t, 0, depthNear, 1e-5)
	assert.InDelta(t, 1, depthFar, 1e-5)

	points := [][3]float32{
		{0, 0, -1},
		{0.2, -0.1, -2.5},
		{1, 0.5, -3},
		{-0.75, 0.25, -5},
	}
	for _, p := range points {
		u, v, depth := ProjectViewToUV(proj, p)
		require.Greater(t, depth, float32(0))
		require.Less(t, depth, float32(1))

		recon := ReconstructViewPosition(projInv, u, v, depth)
		for axis := range 3 {
			assert.InDelta(t, p[axis], recon[axis], 1e-4)
		}
	}
}

func TestUVFlipRoundtrip(t *testing.T) {
	for _, uv := range [][2]float32{{0, 0}, {0.25, 0.25}, {0.5, 0.5}, {1, 1}} {
		x, y := UVToNDC(uv[0], uv[1])
		u, v := NDCToUV(x, y)
		assert.InDelta(t, uv[0], u, 1e-6)
		assert.InDelta(t, uv[1], v, 1e-6)
	}

	// Top-left origin: v = 0 is the top of the screen, NDC +Y is up.
	_, top := UVToNDC(0.5, 0)
	assert.Equal(t, float32(1), top)
}

func TestOcclusionFactorShaping(t *testing.T) {
	assert.Equal(t, float32(1), OcclusionFactor(0, 3.5, 1.5), "no occlusion means fully visible")
	assert.Zero(t, OcclusionFactor(KernelSampleCount, 3.5, 1.5), "saturated occlusion clamps to zero")

	mild := OcclusionFactor(4, 3.5, 1.5)
	heavy := OcclusionFactor(16, 3.5, 1.5)
	assert.Greater(t, mild, heavy)
	assert.GreaterOrEqual(t, heavy, float32(0))
}
