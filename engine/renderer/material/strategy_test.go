package material

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The forward shader body calls exactly these five functions; every strategy
// must define all of them with identical signatures so the body never changes
// when the strategy does.
var samplingFunctions = []string{
	"fn sample_base_color_texture(mat: MaterialData, uv: vec2<f32>) -> vec4<f32>",
	"fn sample_metallic_roughness_texture(mat: MaterialData, uv: vec2<f32>) -> vec4<f32>",
	"fn sample_normal_texture(mat: MaterialData, uv: vec2<f32>) -> vec4<f32>",
	"fn sample_emissive_texture(mat: MaterialData, uv: vec2<f32>) -> vec4<f32>",
	"fn sample_occlusion_texture(mat: MaterialData, uv: vec2<f32>) -> vec4<f32>",
}

func TestStrategySamplingFunctionParity(t *testing.T) {
	for _, kind := range []StrategyKind{StrategyTraditional, StrategyStorageIndexed, StrategyBindless} {
		s := NewBindingStrategy(kind)
		src := s.SamplingSource()
		for _, fn := range samplingFunctions {
			assert.Contains(t, src, fn, "strategy %s is missing %q", kind, fn)
		}
	}
}

func TestStrategyGroupIndices(t *testing.T) {
	assert.Equal(t, 3, NewBindingStrategy(StrategyTraditional).TextureGroupIndex())
	assert.Equal(t, 3, NewBindingStrategy(StrategyStorageIndexed).TextureGroupIndex())
	assert.Equal(t, 4, NewBindingStrategy(StrategyBindless).TextureGroupIndex())

	// The sampling sources must declare their bindings in the group the
	// strategy reports.
	assert.Contains(t, NewBindingStrategy(StrategyTraditional).SamplingSource(), "@group(3)")
	assert.Contains(t, NewBindingStrategy(StrategyBindless).SamplingSource(), "@group(4)")
	assert.NotContains(t, NewBindingStrategy(StrategyBindless).SamplingSource(), "@group(3)")
}

func TestTraditionalLayoutEntries(t *testing.T) {
	layout := NewBindingStrategy(StrategyTraditional).TextureBindGroupLayout()
	require.Len(t, layout.Entries, 7, "five textures plus two samplers")

	bindings := make(map[uint32]bool)
	for _, e := range layout.Entries {
		bindings[e.Binding] = true
	}
	for b := uint32(0); b < 7; b++ {
		assert.True(t, bindings[b], "binding %d missing", b)
	}
}

func TestBindlessValidation(t *testing.T) {
	s := NewBindingStrategy(StrategyBindless)

	materials := []GPUMaterialData{
		{Flags: uint32(FlagBaseColorTexture), BaseColorTexture: 3},
	}
	assert.NoError(t, s.ValidateMaterials(materials, 4))

	// Index past the resident count is rejected.
	err := s.ValidateMaterials(materials, 3)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not resident"))

	// Index past the hard bound is rejected regardless of residency claims.
	materials[0].BaseColorTexture = MaxTextures
	err = s.ValidateMaterials(materials, MaxTextures)
	require.Error(t, err)

	// A disabled channel's index is never inspected.
	materials[0].Flags = 0
	assert.NoError(t, s.ValidateMaterials(materials, 0))
}

func TestPerMaterialValidationAlwaysPasses(t *testing.T) {
	s := NewBindingStrategy(StrategyStorageIndexed)
	materials := []GPUMaterialData{{Flags: uint32(FlagBaseColorTexture), BaseColorTexture: 9999}}
	assert.NoError(t, s.ValidateMaterials(materials, 0))
}
