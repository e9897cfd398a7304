package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUMaterialDataLayout(t *testing.T) {
	m := GPUMaterialData{
		BaseColor:                [4]float32{0.1, 0.2, 0.3, 0.4},
		Emissive:                 [4]float32{1, 2, 3, 4},
		Factors:                  [4]float32{0.5, 0.6, 0.7, 0.8},
		BaseColorTexture:         10,
		MetallicRoughnessTexture: 11,
		NormalTexture:            12,
		EmissiveTexture:          13,
		OcclusionTexture:         14,
		Flags:                    uint32(FlagBaseColorTexture | FlagNormalTexture),
		BlendModeValue:           uint32(BlendTransparent),
	}
	require.Equal(t, 80, m.Size())

	buf := m.Marshal()
	require.Len(t, buf, 80)

	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}
	assert.Equal(t, float32(0.1), readF32(0))
	assert.Equal(t, float32(4), readF32(28))
	assert.Equal(t, float32(0.5), readF32(32))
	assert.Equal(t, float32(0.8), readF32(44))
	assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(buf[48:]))
	assert.Equal(t, uint32(14), binary.LittleEndian.Uint32(buf[64:]))
	assert.Equal(t, uint32(FlagBaseColorTexture|FlagNormalTexture), binary.LittleEndian.Uint32(buf[68:]))
	assert.Equal(t, uint32(BlendTransparent), binary.LittleEndian.Uint32(buf[72:]))
	assert.Zero(t, binary.LittleEndian.Uint32(buf[76:]), "padding must be zero")
}

func TestMaterialFlagsOrthogonal(t *testing.T) {
	flags := []MaterialFlag{
		FlagBaseColorTexture,
		FlagMetallicRoughnessTexture,
		FlagNormalTexture,
		FlagEmissiveTexture,
		FlagOcclusionTexture,
		FlagAlphaBlend,
	}
	var combined uint32
	for _, f := range flags {
		assert.Zero(t, combined&uint32(f), "flag %b overlaps earlier flags", f)
		combined |= uint32(f)
	}
}

func TestResolveChannelsFlagSelect(t *testing.T) {
	baseSample := [4]float32{0.5, 0.5, 0.5, 1}
	mrSample := [4]float32{0, 0.4, 0.9, 0}
	emissiveSample := [3]float32{2, 2, 2}
	occlusionSample := float32(0.25)

	mat := &GPUMaterialData{
		BaseColor: [4]float32{1, 0.5, 0.25, 1},
		Emissive:  [4]float32{0.1, 0.1, 0.1, 2},
		Factors:   [4]float32{1, 1, 1, 1},
	}

	// No flags: every channel falls back to material scalars; samples are ignored.
	base, metallic, roughness, emissive, occlusion := ResolveChannels(mat, baseSample, mrSample, emissiveSample, occlusionSample)
	assert.Equal(t, mat.BaseColor, base)
	assert.Equal(t, float32(1), metallic)
	assert.Equal(t, float32(1), roughness)
	assert.Equal(t, [3]float32{0.2, 0.2, 0.2}, emissive)
	assert.Equal(t, float32(1), occlusion)

	// Toggling one flag changes only its own channel.
	mat.Flags = uint32(FlagMetallicRoughnessTexture)
	base2, metallic2, roughness2, emissive2, occlusion2 := ResolveChannels(mat, baseSample, mrSample, emissiveSample, occlusionSample)
	assert.Equal(t, base, base2)
	assert.InDelta(t, 0.9, metallic2, 1e-6, "metallic from blue channel")
	assert.InDelta(t, 0.4, roughness2, 1e-6, "roughness from green channel")
	assert.Equal(t, emissive, emissive2)
	assert.Equal(t, occlusion, occlusion2)

	mat.Flags = uint32(FlagBaseColorTexture)
	base3, metallic3, _, _, _ := ResolveChannels(mat, baseSample, mrSample, emissiveSample, occlusionSample)
	assert.Equal(t, [4]float32{0.5, 0.25, 0.125, 1}, base3, "sample modulates fallback color")
	assert.Equal(t, metallic, metallic3)

	mat.Flags = uint32(FlagOcclusionTexture)
	mat.Factors[2] = 0.5
	_, _, _, _, occlusion4 := ResolveChannels(mat, baseSample, mrSample, emissiveSample, occlusionSample)
	assert.InDelta(t, 1.0+0.5*(0.25-1.0), occlusion4, 1e-6)
}

func TestMarshalMaterialBufferStride(t *testing.T) {
	materials := []GPUMaterialData{
		{BlendModeValue: uint32(BlendOpaque)},
		{BlendModeValue: uint32(BlendOverlay)},
	}
	buf := MarshalMaterialBuffer(materials)
	require.Len(t, buf, 160)
	assert.Equal(t, uint32(BlendOverlay), binary.LittleEndian.Uint32(buf[80+72:]))
}

func TestHasFlagOnReturnedCopies(t *testing.T) {
	// HasFlag must be callable on plain values, e.g. the copy a getter returns.
	mk := func() GPUMaterialData {
		return GPUMaterialData{Flags: uint32(FlagEmissiveTexture | FlagAlphaBlend)}
	}

	assert.True(t, mk().HasFlag(FlagEmissiveTexture))
	assert.True(t, mk().HasFlag(FlagAlphaBlend))
	assert.False(t, mk().HasFlag(FlagNormalTexture))
}
