package postprocess

import (
	"github.com/chewxy/math32"
)

// Bloom tuning. The prefilter keeps everything above BloomThreshold with a
// soft knee so pixels just under the threshold fade in instead of popping.
const (
	BloomThreshold float32 = 1.0
	BloomKnee      float32 = 0.5

	// ScatterWeight blends each upsampled level with the next-finer base level.
	ScatterWeight float32 = 0.95

	// Gaussian sigmas for the blur taps: 5x5 on the way down, 3x3 on the way up.
	BlurSigmaDown float32 = 2.5
	BlurSigmaUp   float32 = 1.5
)

// GaussianWeights returns normalized 1D Gaussian tap weights for the given
// sigma, covering offsets -radius..radius. The shader's 2D tap weight is the
// product of its row and column 1D weights.
//
// Parameters:
//   - sigma: the Gaussian standard deviation
//   - radius: the tap radius (2 for the 5x5 downsample, 1 for the 3x3 upsample)
//
// Returns:
//   - []float32: 2*radius+1 weights summing to 1
func GaussianWeights(sigma float32, radius int) []float32 {
	weights := make([]float32, 2*radius+1)
	var sum float32
	for i := -radius; i <= radius; i++ {
		w := math32.Exp(-float32(i*i) / (2 * sigma * sigma))
		weights[i+radius] = w
		sum += w
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// Luminance returns the perceptual luma of a linear RGB color.
func Luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// PrefilterColor applies the soft-knee threshold curve the bloom prefilter
// pass runs per pixel. Colors below threshold-knee contribute nothing, colors
// above threshold pass through scaled by their over-threshold fraction, and
// the knee band in between ramps smoothly.
//
// Parameters:
//   - color: linear RGB input
//
// Returns:
//   - [3]float32: the bloom contribution of this pixel
func PrefilterColor(color [3]float32) [3]float32 {
	brightness := math32.Max(color[0], math32.Max(color[1], color[2]))

	soft := brightness - BloomThreshold + BloomKnee
	soft = math32.Min(math32.Max(soft, 0), 2*BloomKnee)
	soft = soft * soft / (4*BloomKnee + 1e-4)

	contribution := math32.Max(soft, brightness-BloomThreshold)
	contribution /= math32.Max(brightness, 1e-4)

	return [3]float32{color[0] * contribution, color[1] * contribution, color[2] * contribution}
}

// UpsampleCombine blends a blurred coarse level into the next-finer base
// level at the fixed scatter weight.
//
// Parameters:
//   - base: the finer level's color
//   - blurred: the upsampled coarser level's color
//
// Returns:
//   - [3]float32: base + blurred * ScatterWeight
func UpsampleCombine(base, blurred [3]float32) [3]float32 {
	return [3]float32{
		base[0] + blurred[0]*ScatterWeight,
		base[1] + blurred[1]*ScatterWeight,
		base[2] + blurred[2]*ScatterWeight,
	}
}
