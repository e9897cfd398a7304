package material

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// MaxTextures is the layer capacity of the shared texture array used by the
// bindless strategy. Material texture indices must stay below this bound; the
// scene validates indices host-side before any draw is submitted, never in
// the shader.
const MaxTextures = 256

// StrategyKind identifies a material texture binding strategy.
type StrategyKind int

const (
	// StrategyTraditional binds one set of five textures per material.
	StrategyTraditional StrategyKind = iota
	// StrategyStorageIndexed keeps materials in a storage array referenced by
	// per-object index, with per-material texture sets like StrategyTraditional.
	StrategyStorageIndexed
	// StrategyBindless shares a bounded 256-layer texture array across all
	// materials, indexed per-sample from MaterialData.
	StrategyBindless
)

// String returns the strategy name used in pipeline keys and logs.
func (k StrategyKind) String() string {
	switch k {
	case StrategyTraditional:
		return "traditional"
	case StrategyStorageIndexed:
		return "storage_indexed"
	case StrategyBindless:
		return "bindless"
	default:
		return "unknown"
	}
}

// traditionalSamplingSource defines the five shared texture sampling functions
// over per-material texture bindings in group 3.
//
//go:embed assets/sample_traditional.wgsl
var traditionalSamplingSource string

// bindlessSamplingSource defines the five shared texture sampling functions
// over the shared texture array in group 4, indexed from MaterialData.
//
//go:embed assets/sample_bindless.wgsl
var bindlessSamplingSource string

// BindingStrategy selects how the forward pipeline's materials reference their
// textures. Every strategy emits the same five sampling function signatures
// (sample_base_color_texture, sample_metallic_roughness_texture,
// sample_normal_texture, sample_emissive_texture, sample_occlusion_texture),
// so the forward fragment shader body is identical across strategies; only the
// spliced sampling source and the texture bind group layout differ.
type BindingStrategy interface {
	// Kind returns the strategy identifier.
	//
	// Returns:
	//   - StrategyKind: the strategy kind
	Kind() StrategyKind

	// TextureGroupIndex returns the bind group index holding textures and
	// samplers for this strategy. Groups 0-2 are reserved for globals,
	// object/material data, and lights/shadows.
	//
	// Returns:
	//   - int: the texture bind group index
	TextureGroupIndex() int

	// TextureBindGroupLayout returns the layout descriptor for the texture
	// bind group this strategy requires.
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the texture group layout
	TextureBindGroupLayout() wgpu.BindGroupLayoutDescriptor

	// SamplingSource returns the WGSL snippet defining the five shared
	// sampling functions for this strategy. The shader assembler splices it
	// into the forward shader template.
	//
	// Returns:
	//   - string: the WGSL sampling source
	SamplingSource() string

	// ValidateMaterials checks every material entry's texture indices against
	// this strategy's residency bounds before submission.
	//
	// Parameters:
	//   - materials: the material entries to validate
	//   - residentTextures: the number of textures currently uploaded
	//
	// Returns:
	//   - error: nil if all indices are valid, otherwise the first violation
	ValidateMaterials(materials []GPUMaterialData, residentTextures int) error
}

// perMaterialStrategy implements both StrategyTraditional and
// StrategyStorageIndexed: the texture group layout is identical, the two
// differ only in how MaterialData reaches the shader (single uniform vs
// storage array), which the shader assembler handles.
type perMaterialStrategy struct {
	kind StrategyKind
}

// bindlessStrategy implements StrategyBindless.
type bindlessStrategy struct{}

var (
	_ BindingStrategy = &perMaterialStrategy{}
	_ BindingStrategy = &bindlessStrategy{}
)

// NewBindingStrategy creates the BindingStrategy for the given kind.
//
// Parameters:
//   - kind: the strategy kind to instantiate
//
// Returns:
//   - BindingStrategy: the strategy implementation
func NewBindingStrategy(kind StrategyKind) BindingStrategy {
	switch kind {
	case StrategyBindless:
		return &bindlessStrategy{}
	case StrategyTraditional, StrategyStorageIndexed:
		return &perMaterialStrategy{kind: kind}
	default:
		panic(fmt.Sprintf("material: unknown binding strategy kind %d", kind))
	}
}

func (s *perMaterialStrategy) Kind() StrategyKind {
	return s.kind
}

func (s *perMaterialStrategy) TextureGroupIndex() int {
	return 3
}

func (s *perMaterialStrategy) TextureBindGroupLayout() wgpu.BindGroupLayoutDescriptor {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, 7)
	// Bindings 0-4: base color, metallic-roughness, normal, emissive, occlusion.
	for binding := uint32(0); binding < 5; binding++ {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
		}
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entries = append(entries, entry)
	}
	for binding := uint32(5); binding < 7; binding++ {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
		}
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		entries = append(entries, entry)
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label:   "material_textures_" + s.kind.String(),
		Entries: entries,
	}
}

func (s *perMaterialStrategy) SamplingSource() string {
	return traditionalSamplingSource
}

func (s *perMaterialStrategy) ValidateMaterials(materials []GPUMaterialData, residentTextures int) error {
	// Per-material binding carries its own texture set; indices are unused, so
	// every entry is valid by construction.
	return nil
}

func (s *bindlessStrategy) Kind() StrategyKind {
	return StrategyBindless
}

func (s *bindlessStrategy) TextureGroupIndex() int {
	return 4
}

func (s *bindlessStrategy) TextureBindGroupLayout() wgpu.BindGroupLayoutDescriptor {
	texture := wgpu.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: wgpu.ShaderStageFragment,
	}
	texture.Texture.SampleType = wgpu.TextureSampleTypeFloat
	texture.Texture.ViewDimension = wgpu.TextureViewDimension2DArray

	linear := wgpu.BindGroupLayoutEntry{
		Binding:    1,
		Visibility: wgpu.ShaderStageFragment,
	}
	linear.Sampler.Type = wgpu.SamplerBindingTypeFiltering

	nearest := wgpu.BindGroupLayoutEntry{
		Binding:    2,
		Visibility: wgpu.ShaderStageFragment,
	}
	nearest.Sampler.Type = wgpu.SamplerBindingTypeFiltering

	return wgpu.BindGroupLayoutDescriptor{
		Label:   "material_textures_bindless",
		Entries: []wgpu.BindGroupLayoutEntry{texture, linear, nearest},
	}
}

func (s *bindlessStrategy) SamplingSource() string {
	return bindlessSamplingSource
}

func (s *bindlessStrategy) ValidateMaterials(materials []GPUMaterialData, residentTextures int) error {
	if residentTextures > MaxTextures {
		return fmt.Errorf("material: %d resident textures exceeds the bindless capacity of %d", residentTextures, MaxTextures)
	}
	for i := range materials {
		m := &materials[i]
		indices := [...]struct {
			flag  MaterialFlag
			index uint32
			name  string
		}{
			{FlagBaseColorTexture, m.BaseColorTexture, "base_color"},
			{FlagMetallicRoughnessTexture, m.MetallicRoughnessTexture, "metallic_roughness"},
			{FlagNormalTexture, m.NormalTexture, "normal"},
			{FlagEmissiveTexture, m.EmissiveTexture, "emissive"},
			{FlagOcclusionTexture, m.OcclusionTexture, "occlusion"},
		}
		for _, t := range indices {
			if !m.HasFlag(t.flag) {
				continue
			}
			if t.index >= MaxTextures {
				return fmt.Errorf("material %d: %s texture index %d exceeds the bindless bound %d", i, t.name, t.index, MaxTextures)
			}
			if int(t.index) >= residentTextures {
				return fmt.Errorf("material %d: %s texture index %d is not resident (%d uploaded)", i, t.name, t.index, residentTextures)
			}
		}
	}
	return nil
}
