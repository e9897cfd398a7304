package postprocess

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOrderAndTargets(t *testing.T) {
	passes := Chain(wgpu.TextureFormatBGRA8Unorm)
	require.Len(t, passes, 3+2*(BloomLevels-1))
	require.NoError(t, Validate(passes))

	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = p.Name
	}
	assert.Equal(t, []string{
		"SsaoPass", "BloomPrefilter",
		"BloomDownsample1", "BloomDownsample2", "BloomDownsample3", "BloomDownsample4",
		"BloomUpsample3", "BloomUpsample2", "BloomUpsample1", "BloomUpsample0",
		"CompositePass",
	}, names)

	assert.Equal(t, wgpu.TextureFormatR8Unorm, passes[0].Format)
	assert.Equal(t, wgpu.Color{R: 1, G: 1, B: 1, A: 1}, passes[0].ClearColor,
		"occlusion target clears to fully lit")
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, passes[1].Format)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, passes[len(passes)-1].Format)
}

func TestChainBloomMipStructure(t *testing.T) {
	passes := Chain(wgpu.TextureFormatBGRA8Unorm)

	// The prefilter seeds mip 0 and each downsample halves the previous level.
	assert.Equal(t, TargetBloomDown(0), passes[1].Writes)
	for level := 1; level < BloomLevels; level++ {
		down := passes[1+level]
		assert.Equal(t, []Target{TargetBloomDown(level - 1)}, down.Reads)
		assert.Equal(t, TargetBloomDown(level), down.Writes)
	}

	// Each upsample combines the coarser result with its level's downsample
	// base; the first one starts from the coarsest downsample level.
	for i, level := 0, BloomLevels-2; level >= 0; i, level = i+1, level-1 {
		up := passes[1+BloomLevels+i]
		coarse := TargetBloomUp(level + 1)
		if level == BloomLevels-2 {
			coarse = TargetBloomDown(BloomLevels - 1)
		}
		assert.Equal(t, []Target{coarse, TargetBloomDown(level)}, up.Reads)
		assert.Equal(t, TargetBloomUp(level), up.Writes)
	}

	// The composite reads the finest upsample level, not a downsample target.
	composite := passes[len(passes)-1]
	assert.Contains(t, composite.Reads, TargetBloomUp(0))
	assert.NotContains(t, composite.Reads, TargetBloomDown(0))
}

func TestValidateRejectsSelfRead(t *testing.T) {
	err := Validate([]PassSpec{{
		Name:   "Broken",
		Reads:  []Target{TargetSSAO},
		Writes: TargetSSAO,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reads its own target")
}

func TestValidateRejectsReadBeforeWrite(t *testing.T) {
	err := Validate([]PassSpec{{
		Name:   "Early",
		Reads:  []Target{TargetBloomUp(0)},
		Writes: TargetSurface,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no earlier pass wrote")
}

func TestCompositeIsPassThroughWithEffectsOff(t *testing.T) {
	scene := [3]float32{0.25, 0.5, 0.75}
	out := CompositeColor(scene, 0.3, [3]float32{10, 10, 10}, Effects{})
	assert.Equal(t, scene, out, "disabled effects must not alter the scene color")
}

func TestCompositeAppliesEnabledEffects(t *testing.T) {
	scene := [3]float32{1, 1, 1}
	out := CompositeColor(scene, 0.5, [3]float32{0.1, 0.2, 0.3}, Effects{SSAO: true, Bloom: true})
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.7, out[1], 1e-6)
	assert.InDelta(t, 0.8, out[2], 1e-6)

	onlyBloom := CompositeColor(scene, 0.5, [3]float32{0.1, 0.2, 0.3}, Effects{Bloom: true})
	assert.InDelta(t, 1.1, onlyBloom[0], 1e-6, "occlusion ignored when SSAO is off")
}

func TestResolveMinDepth(t *testing.T) {
	assert.Equal(t, float32(1), ResolveMinDepth(nil), "empty resolves to the far plane")
	assert.Equal(t, float32(0.25), ResolveMinDepth([]float32{0.5, 0.25, 0.75}))

	// Samples beyond the supported count are ignored.
	samples := []float32{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.01}
	assert.Equal(t, float32(0.2), ResolveMinDepth(samples))
}

func TestAssembleShaderVariants(t *testing.T) {
	single := AssembleShader(1)
	assert.Contains(t, single, "struct PostUniform")
	assert.Contains(t, single, "const SSAO_KERNEL")
	assert.Contains(t, single, "texture_depth_2d;")
	assert.NotContains(t, single, "texture_depth_multisampled_2d")

	msaa := AssembleShader(4)
	assert.Contains(t, msaa, "texture_depth_multisampled_2d")
	assert.Contains(t, msaa, "textureNumSamples")
	assert.NotContains(t, msaa, "// DEPTH_BINDINGS")
	assert.Contains(t, msaa, "fs_composite", "pass bodies survive the splice")
}
