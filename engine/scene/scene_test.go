package scene

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-engine/prism/engine/light"
	"github.com/prism-engine/prism/engine/postprocess"
	"github.com/prism-engine/prism/engine/renderer/material"
	"github.com/prism-engine/prism/engine/renderer/shader"
)

func buildShaders(t *testing.T) (forwardVert, forwardFrag, prepassVert, shadowVert, postVert, postFrag shader.Shader) {
	t.Helper()
	strategy := material.NewBindingStrategy(material.StrategyStorageIndexed)
	return newSceneShaders(strategy, 1)
}

func TestProviderGroupAssignments(t *testing.T) {
	forwardVert, forwardFrag, prepassVert, shadowVert, _, _ := buildShaders(t)

	assert.Equal(t, 0, providerGroupIndex(forwardVert, shader.AnnotationArgCamera))
	assert.Equal(t, 1, providerGroupIndex(forwardVert, shader.AnnotationArgObjects))
	assert.Equal(t, 2, providerGroupIndex(forwardFrag, shader.AnnotationArgLighting))
	assert.Equal(t, 1, providerGroupIndex(prepassVert, shader.AnnotationArgObjects))
	assert.Equal(t, 0, providerGroupIndex(shadowVert, shader.AnnotationArgShadow))
	assert.Equal(t, 1, providerGroupIndex(shadowVert, shader.AnnotationArgObjects))
}

func TestForwardFragmentMaterialGroupMatchesStrategy(t *testing.T) {
	strategy := material.NewBindingStrategy(material.StrategyStorageIndexed)
	_, forwardFrag, _, _, _, _ := buildShaders(t)

	desc := forwardFrag.BindGroupLayoutDescriptor(strategy.TextureGroupIndex())
	require.Len(t, desc.Entries, 7, "five textures plus two samplers")
	assert.Len(t, strategy.TextureBindGroupLayout().Entries, len(desc.Entries))
}

func TestVertexEntryPoints(t *testing.T) {
	forwardVert, _, prepassVert, shadowVert, postVert, _ := buildShaders(t)

	assert.Equal(t, "vs_forward", forwardVert.EntryPoint())
	assert.Equal(t, "vs_depth", prepassVert.EntryPoint())
	assert.Equal(t, "vs_shadow", shadowVert.EntryPoint())
	assert.Equal(t, "vs_fullscreen", postVert.EntryPoint())
}

func TestForwardVertexLayoutStride(t *testing.T) {
	forwardVert, _, prepassVert, _, _, _ := buildShaders(t)

	for _, sh := range []shader.Shader{forwardVert, prepassVert} {
		layouts := sh.VertexLayouts()
		require.Len(t, layouts, 1, "%s declares one vertex buffer", sh.Key())
		for _, layout := range layouts {
			require.Len(t, layout, 1)
			// position vec3 + normal vec3 + uv vec2 + tangent vec4
			assert.Equal(t, uint64(48), layout[0].ArrayStride)
			assert.Len(t, layout[0].Attributes, 4)
		}
	}
}

// The WGSL uniform structs must agree byte-for-byte with the Go marshal
// layouts the scene uploads into them.
func TestUniformSizesMatchHostStructs(t *testing.T) {
	_, forwardFrag, _, shadowVert, _, _ := buildShaders(t)

	lightingGroup := providerGroupIndex(forwardFrag, shader.AnnotationArgLighting)
	desc := forwardFrag.BindGroupLayoutDescriptor(lightingGroup)

	byBinding := make(map[uint32]wgpu.BindGroupLayoutEntry)
	for _, e := range desc.Entries {
		byBinding[e.Binding] = e
	}

	lightsBinding, ok := forwardFrag.BindGroupFromVarName(lightingGroup, "lights")
	require.True(t, ok)
	shadowsBinding, ok := forwardFrag.BindGroupFromVarName(lightingGroup, "shadows")
	require.True(t, ok)

	lightsUniform := light.GPULightsUniform{}
	shadowsUniform := light.GPUShadowsUniform{}
	assert.Equal(t, uint64(lightsUniform.Size()), byBinding[uint32(lightsBinding)].Buffer.MinBindingSize)
	assert.Equal(t, uint64(shadowsUniform.Size()), byBinding[uint32(shadowsBinding)].Buffer.MinBindingSize)

	shadowDesc := shadowVert.BindGroupLayoutDescriptor(0)
	require.Len(t, shadowDesc.Entries, 1)
	shadowView := light.GPUShadowView{}
	assert.Equal(t, uint64(shadowView.Size()), shadowDesc.Entries[0].Buffer.MinBindingSize)
}

func TestLightingGroupDeclaresShadowResources(t *testing.T) {
	_, forwardFrag, _, _, _, _ := buildShaders(t)
	group := providerGroupIndex(forwardFrag, shader.AnnotationArgLighting)

	for _, varName := range []string{"lights", "shadows", "dir_shadow_maps", "spot_shadow_maps", "point_shadow_maps", "shadow_sampler"} {
		_, ok := forwardFrag.BindGroupFromVarName(group, varName)
		assert.True(t, ok, "lighting group is missing %s", varName)
	}
}

// Every shadow map binds as a depth 2D array. Point lights fetch the layer at
// caster*6 + face with the face chosen by the ordered X, Y, Z dominant-axis
// comparison, so the sampled layer always matches the face whose matrix
// projected the fragment; a cube view's hardware direction lookup could pick
// the other face at exact component ties.
func TestPointShadowMapsBindAsLayeredDepthArray(t *testing.T) {
	_, forwardFrag, _, _, _, _ := buildShaders(t)
	group := providerGroupIndex(forwardFrag, shader.AnnotationArgLighting)
	desc := forwardFrag.BindGroupLayoutDescriptor(group)

	for _, varName := range []string{"dir_shadow_maps", "spot_shadow_maps", "point_shadow_maps"} {
		binding, ok := forwardFrag.BindGroupFromVarName(group, varName)
		require.True(t, ok, "lighting group is missing %s", varName)
		var entry *wgpu.BindGroupLayoutEntry
		for i := range desc.Entries {
			if desc.Entries[i].Binding == uint32(binding) {
				entry = &desc.Entries[i]
				break
			}
		}
		require.NotNil(t, entry, "no layout entry for %s", varName)
		assert.Equal(t, wgpu.TextureViewDimension2DArray, entry.Texture.ViewDimension, varName)
		assert.Equal(t, wgpu.TextureSampleTypeDepth, entry.Texture.SampleType, varName)
	}

	assert.Contains(t, forwardFragSource, "layer * 6u + face",
		"point shadow fetch addresses the chosen face's layer explicitly")
}

func TestMergedGroupDescriptorUnionsVisibility(t *testing.T) {
	forwardVert, forwardFrag, _, _, _, _ := buildShaders(t)

	// Group 0 is the camera globals: declared by both stages, so the merged
	// entry carries both visibilities.
	camera := mergedGroupDescriptor(0, forwardVert, forwardFrag)
	require.Len(t, camera.Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, camera.Entries[0].Visibility)

	// Group 1 splits: the object buffer is vertex-only, the material storage
	// fragment-only. Entries come out sorted by binding.
	shading := mergedGroupDescriptor(1, forwardVert, forwardFrag)
	require.Len(t, shading.Entries, 2)
	assert.Equal(t, uint32(0), shading.Entries[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex, shading.Entries[0].Visibility)
	assert.Equal(t, uint32(1), shading.Entries[1].Binding)
	assert.Equal(t, wgpu.ShaderStageFragment, shading.Entries[1].Visibility)
}

func TestMergedGroupDescriptorSkipsNilAndMissing(t *testing.T) {
	forwardVert, _, _, _, _, _ := buildShaders(t)

	desc := mergedGroupDescriptor(0, nil, forwardVert)
	require.Len(t, desc.Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex, desc.Entries[0].Visibility)

	// A group neither shader declares merges to an empty descriptor.
	assert.Empty(t, mergedGroupDescriptor(7, forwardVert).Entries)
}

func TestPostEntryPointsCoverChain(t *testing.T) {
	chain := postprocess.Chain(wgpu.TextureFormatBGRA8UnormSrgb)
	require.NoError(t, postprocess.Validate(chain))

	entries := make(map[string]bool)
	for _, spec := range chain {
		entry, ok := postFragmentEntryPoint(spec.Name)
		assert.True(t, ok, "no fragment entry point for pass %q", spec.Name)
		assert.NotEmpty(t, entry)
		entries[entry] = true
	}
	assert.Len(t, entries, 5, "ssao, prefilter, downsample, upsample, composite")

	_, ok := postFragmentEntryPoint("NoSuchPass")
	assert.False(t, ok)
}

func TestPostModuleDeclaresAllPassGroups(t *testing.T) {
	_, _, _, _, postVert, postFrag := buildShaders(t)

	// Every pass binds groups 0-3 against the shared module's layout, so all
	// four groups must parse out of the assembled source.
	for group := 0; group < 4; group++ {
		desc := mergedGroupDescriptor(group, postVert, postFrag)
		assert.NotEmpty(t, desc.Entries, "post module is missing group %d", group)
	}

	uniform := postprocess.GPUPostUniform{}
	desc := mergedGroupDescriptor(0, postVert, postFrag)
	require.Len(t, desc.Entries, 1)
	assert.Equal(t, uint64(uniform.Size()), desc.Entries[0].Buffer.MinBindingSize)
}

func TestPipelineKeys(t *testing.T) {
	assert.Equal(t, "forward_starship", forwardPipelineKey("starship"))

	chain := postprocess.Chain(wgpu.TextureFormatBGRA8UnormSrgb)
	seen := make(map[string]bool)
	for _, spec := range chain {
		key := postPipelineKey(spec)
		assert.False(t, seen[key], "duplicate post pipeline key %q", key)
		seen[key] = true
	}
}

func TestFallbackChannelTextures(t *testing.T) {
	normal := fallbackChannelTexture(material.FlagNormalTexture)
	assert.Equal(t, []byte{128, 128, 255, 255}, normal.Pixels, "flat +Z normal")
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, normal.Format, "normal data is linear")

	base := fallbackChannelTexture(material.FlagBaseColorTexture)
	assert.Equal(t, []byte{255, 255, 255, 255}, base.Pixels)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, base.Format, "color data is sRGB")

	mr := fallbackChannelTexture(material.FlagMetallicRoughnessTexture)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, mr.Format, "factor data is linear")
}

func TestMaterialChannelFlagsFollowBindingOrder(t *testing.T) {
	expected := []material.MaterialFlag{
		material.FlagBaseColorTexture,
		material.FlagMetallicRoughnessTexture,
		material.FlagNormalTexture,
		material.FlagEmissiveTexture,
		material.FlagOcclusionTexture,
	}
	assert.Equal(t, expected, materialChannelFlags[:])
}

func TestShadowLayerOffsets(t *testing.T) {
	assert.Equal(t, 0, dirLayerOffset)
	assert.Equal(t, light.MaxDirectionalLights, spotLayerOffset)
	assert.Equal(t, light.MaxDirectionalLights+light.MaxSpotLights, pointLayerOffset)
}

func TestParticleShaderBindings(t *testing.T) {
	sh := newParticleShader()

	for _, varName := range []string{"particles", "objects", "params"} {
		_, ok := sh.BindGroupFromVarName(0, varName)
		assert.True(t, ok, "particle shader is missing %s", varName)
	}
	assert.Equal(t, "update_particles", sh.EntryPoint())
}

func TestToneMapMatchesShaderConvention(t *testing.T) {
	// Black maps to black, and the Reinhard curve never reaches white.
	assert.Equal(t, [3]float32{0, 0, 0}, ToneMap([3]float32{0, 0, 0}))

	mid := ToneMap([3]float32{1, 1, 1})
	assert.InDelta(t, 0.7297, mid[0], 1e-3, "1.0 compresses to (1/2)^(1/2.2)")

	bright := ToneMap([3]float32{100, 100, 100})
	assert.Less(t, bright[0], float32(1))
	assert.Greater(t, bright[0], mid[0])
}
