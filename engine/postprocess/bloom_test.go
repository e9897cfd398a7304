package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianWeightsNormalizedAndSymmetric(t *testing.T) {
	for _, tc := range []struct {
		sigma  float32
		radius int
	}{
		{BlurSigmaDown, 2},
		{BlurSigmaUp, 1},
	} {
		weights := GaussianWeights(tc.sigma, tc.radius)
		require.Len(t, weights, 2*tc.radius+1)

		var sum float32
		for _, w := range weights {
			sum += w
		}
		assert.InDelta(t, 1, sum, 1e-6, "sigma %v", tc.sigma)

		for i := range tc.radius {
			assert.InDelta(t, weights[i], weights[len(weights)-1-i], 1e-6)
		}
		assert.Greater(t, weights[tc.radius], weights[0], "center tap dominates")
	}
}

func TestPrefilterColorSoftKnee(t *testing.T) {
	// Well below the knee band contributes nothing.
	dark := PrefilterColor([3]float32{0.2, 0.1, 0.3})
	assert.Equal(t, [3]float32{0, 0, 0}, dark)

	// Far above threshold the over-threshold fraction passes through.
	bright := PrefilterColor([3]float32{4, 2, 1})
	expectedFraction := (4.0 - BloomThreshold) / 4.0
	assert.InDelta(t, 4*expectedFraction, bright[0], 1e-3)
	assert.InDelta(t, 2*expectedFraction, bright[1], 1e-3)

	// The knee band ramps monotonically, no pop at the threshold.
	prev := float32(-1)
	for v := BloomThreshold - BloomKnee; v <= BloomThreshold+BloomKnee; v += 0.05 {
		out := PrefilterColor([3]float32{v, v, v})
		require.GreaterOrEqual(t, out[0], prev, "brightness %v", v)
		prev = out[0]
	}
}

func TestUpsampleCombineScatterWeight(t *testing.T) {
	out := UpsampleCombine([3]float32{1, 2, 3}, [3]float32{1, 1, 1})
	assert.InDelta(t, 1+ScatterWeight, out[0], 1e-6)
	assert.InDelta(t, 2+ScatterWeight, out[1], 1e-6)
	assert.InDelta(t, 3+ScatterWeight, out[2], 1e-6)
}

func TestGaussianWeightsMatchShaderTables(t *testing.T) {
	// The blur shaders bake these weights as constant tables; the mirror must
	// produce the same values so CPU checks reflect what the passes compute.
	down := GaussianWeights(BlurSigmaDown, 2)
	for i, want := range []float32{0.168930, 0.214752, 0.232637, 0.214752, 0.168930} {
		assert.InDelta(t, want, down[i], 1e-5)
	}

	up := GaussianWeights(BlurSigmaUp, 1)
	for i, want := range []float32{0.307801, 0.384397, 0.307801} {
		assert.InDelta(t, want, up[i], 1e-5)
	}
}
