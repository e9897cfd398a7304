package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// MaterialFlag bits enable optional texture channels and blend behavior on a
// material. The bits are mutually orthogonal: toggling one changes only the
// corresponding shading contribution. The forward shader always samples every
// channel and uses these bits to select between the sampled value and the
// material's scalar fallback, keeping control flow uniform across a workgroup.
type MaterialFlag uint32

const (
	// FlagBaseColorTexture enables the base color (albedo) texture channel.
	FlagBaseColorTexture MaterialFlag = 1 << iota
	// FlagMetallicRoughnessTexture enables the combined metallic-roughness texture channel.
	FlagMetallicRoughnessTexture
	// FlagNormalTexture enables tangent-space normal mapping.
	FlagNormalTexture
	// FlagEmissiveTexture enables the emissive texture channel.
	FlagEmissiveTexture
	// FlagOcclusionTexture enables the ambient occlusion texture channel.
	FlagOcclusionTexture
	// FlagAlphaBlend marks the material as alpha-blended. Alpha-blended
	// materials draw in the transparent batch and never cast shadows.
	FlagAlphaBlend
)

// BlendMode selects the draw batch a material renders in.
type BlendMode uint32

const (
	// BlendOpaque renders in the depth-tested opaque batch.
	BlendOpaque BlendMode = iota
	// BlendTransparent renders back-to-front with alpha blending, after opaques.
	BlendTransparent
	// BlendOverlay renders last with additive blending and no depth write.
	BlendOverlay
)

// GPUMaterialDataSource is the canonical WGSL definition of the MaterialData struct.
// Matches GPUMaterialData layout exactly (80 bytes, std430 aligned).
//
//go:embed assets/material_data.wgsl
var GPUMaterialDataSource string

// GPUMaterialData is the GPU-aligned representation of a single entry in the
// material storage array. Objects reference entries by material_index.
// Matches the WGSL MaterialData struct layout exactly (see GPUMaterialDataSource).
// Size: 80 bytes (std430 aligned).
type GPUMaterialData struct {
	BaseColor [4]float32 // offset  0: albedo RGBA fallback color (16 bytes)
	Emissive  [4]float32 // offset 16: emissive RGB + strength multiplier in w (16 bytes)
	Factors   [4]float32 // offset 32: metallic, roughness, occlusion_strength, normal_scale (16 bytes)

	// Texture indices into the bound texture set (interpretation depends on the
	// active binding strategy; bindless indexes the shared texture array).
	BaseColorTexture         uint32 // offset 48: base color texture index (4 bytes)
	MetallicRoughnessTexture uint32 // offset 52: metallic-roughness texture index (4 bytes)
	NormalTexture            uint32 // offset 56: normal map texture index (4 bytes)
	EmissiveTexture          uint32 // offset 60: emissive texture index (4 bytes)

	OcclusionTexture uint32 // offset 64: occlusion texture index (4 bytes)
	Flags            uint32 // offset 68: MaterialFlag bitmask (4 bytes)
	BlendModeValue   uint32 // offset 72: BlendMode batch selector (4 bytes)
	_pad             uint32 // offset 76: padding to 80 bytes
}

// Size returns the size of the GPUMaterialData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (80)
func (g *GPUMaterialData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUMaterialData) Marshal() []byte {
	buf := make([]byte, 80)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.BaseColor[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Emissive[i]))
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(g.Factors[i]))
	}
	binary.LittleEndian.PutUint32(buf[48:], g.BaseColorTexture)
	binary.LittleEndian.PutUint32(buf[52:], g.MetallicRoughnessTexture)
	binary.LittleEndian.PutUint32(buf[56:], g.NormalTexture)
	binary.LittleEndian.PutUint32(buf[60:], g.EmissiveTexture)
	binary.LittleEndian.PutUint32(buf[64:], g.OcclusionTexture)
	binary.LittleEndian.PutUint32(buf[68:], g.Flags)
	binary.LittleEndian.PutUint32(buf[72:], g.BlendModeValue)
	// bytes 76..80 stay zero (_pad)
	return buf
}

// HasFlag reports whether the given flag bit is set on this material entry.
//
// Parameters:
//   - flag: the flag bit to test
//
// Returns:
//   - bool: true if the flag is set
func (g GPUMaterialData) HasFlag(flag MaterialFlag) bool {
	return g.Flags&uint32(flag) != 0
}

// MarshalMaterialBuffer serializes a slice of GPUMaterialData entries into a
// single contiguous buffer matching the WGSL array<MaterialData> storage layout.
//
// Parameters:
//   - materials: the material entries, in index order
//
// Returns:
//   - []byte: the serialized storage buffer contents
func MarshalMaterialBuffer(materials []GPUMaterialData) []byte {
	stride := (&GPUMaterialData{}).Size()
	buf := make([]byte, 0, stride*len(materials))
	for i := range materials {
		buf = append(buf, materials[i].Marshal()...)
	}
	return buf
}

// ResolveChannels mirrors the forward shader's flag-select step on the CPU.
// All five texture samples are taken as inputs regardless of flags, and each
// output channel selects between its sample and the material's fallback based
// on the corresponding flag bit. This is the reference for the shader's
// uniform-control-flow select logic.
//
// Parameters:
//   - mat: the material entry providing flags and fallback values
//   - baseSample: sampled base color texture value (RGBA)
//   - mrSample: sampled metallic-roughness texture value (metallic in b, roughness in g)
//   - emissiveSample: sampled emissive texture value (RGB)
//   - occlusionSample: sampled occlusion texture value (occlusion in r)
//
// Returns:
//   - baseColor: selected RGBA base color
//   - metallic: selected metallic factor
//   - roughness: selected roughness factor
//   - emissive: selected emissive RGB scaled by strength
//   - occlusion: selected occlusion factor scaled by occlusion_strength
func ResolveChannels(
	mat *GPUMaterialData,
	baseSample [4]float32,
	mrSample [4]float32,
	emissiveSample [3]float32,
	occlusionSample float32,
) (baseColor [4]float32, metallic, roughness float32, emissive [3]float32, occlusion float32) {
	baseColor = mat.BaseColor
	if mat.HasFlag(FlagBaseColorTexture) {
		for i := range 4 {
			baseColor[i] = baseSample[i] * mat.BaseColor[i]
		}
	}

	metallic = mat.Factors[0]
	roughness = mat.Factors[1]
	if mat.HasFlag(FlagMetallicRoughnessTexture) {
		// glTF convention: metallic in blue, roughness in green.
		metallic = mrSample[2] * mat.Factors[0]
		roughness = mrSample[1] * mat.Factors[1]
	}

	emissive = [3]float32{mat.Emissive[0], mat.Emissive[1], mat.Emissive[2]}
	if mat.HasFlag(FlagEmissiveTexture) {
		emissive = emissiveSample
	}
	for i := range 3 {
		emissive[i] *= mat.Emissive[3]
	}

	occlusion = 1.0
	if mat.HasFlag(FlagOcclusionTexture) {
		// occlusion_strength interpolates between no occlusion and the sampled value.
		occlusion = 1.0 + mat.Factors[2]*(occlusionSample-1.0)
	}

	return baseColor, metallic, roughness, emissive, occlusion
}
