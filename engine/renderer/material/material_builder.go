package material

import (
	"github.com/prism-engine/prism/common"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the albedo RGBA fallback color.
//
// Parameters:
//   - r, g, b, a: color components in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(r, g, b, a float32) MaterialBuilderOption {
	return func(m *material) {
		m.data.BaseColor = [4]float32{r, g, b, a}
	}
}

// WithMetallic is an option builder that sets the metallic factor.
// A value of 0.0 represents a dielectric surface, 1.0 a fully metallic surface.
//
// Parameters:
//   - metallic: the metallic factor in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.data.Factors[0] = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor.
// A value of 0.0 represents a perfectly smooth surface, 1.0 a fully rough surface.
//
// Parameters:
//   - roughness: the roughness factor in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.data.Factors[1] = roughness
	}
}

// WithEmissive is an option builder that sets the emissive color and strength.
//
// Parameters:
//   - r, g, b: emissive color components
//   - strength: emissive intensity multiplier
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive option to a material
func WithEmissive(r, g, b, strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.data.Emissive = [4]float32{r, g, b, strength}
	}
}

// WithOcclusionStrength is an option builder that sets how strongly the
// occlusion texture darkens ambient lighting.
//
// Parameters:
//   - strength: occlusion strength in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the occlusion strength option to a material
func WithOcclusionStrength(strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.data.Factors[2] = strength
	}
}

// WithNormalScale is an option builder that sets the normal map intensity.
//
// Parameters:
//   - scale: normal map scale factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal scale option to a material
func WithNormalScale(scale float32) MaterialBuilderOption {
	return func(m *material) {
		m.data.Factors[3] = scale
	}
}

// WithBlendMode is an option builder that sets the draw batch for the material.
// BlendTransparent additionally sets the alpha blend flag bit.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blend mode option to a material
func WithBlendMode(mode BlendMode) MaterialBuilderOption {
	return func(m *material) {
		m.data.BlendModeValue = uint32(mode)
		if mode == BlendTransparent {
			m.data.Flags |= uint32(FlagAlphaBlend)
		}
	}
}

// WithTexture is an option builder that stages texture data for one of the
// five optional texture channels and sets the corresponding flag bit. The
// texture index field is assigned later by the active binding strategy.
//
// Parameters:
//   - channel: the texture channel flag (one of the five texture flags)
//   - data: the staged texture pixel data
//
// Returns:
//   - MaterialBuilderOption: a function that applies the texture option to a material
func WithTexture(channel MaterialFlag, data *common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.textures[channel] = data
		m.data.Flags |= uint32(channel)
	}
}
