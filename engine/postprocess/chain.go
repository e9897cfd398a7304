package postprocess

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// BloomLevels is the depth of the bloom mip chain. The prefilter writes level
// 0 at half resolution; each downsample level halves again.
const BloomLevels = 5

// Target names the offscreen textures the post chain reads and writes. The
// scene target carries the forward pass output in the surface format; the
// occlusion target is R8Unorm; the bloom chain targets are Rgba16Float, one
// pair of downsample/upsample textures per mip level.
type Target int

const (
	TargetScene Target = iota
	TargetSSAO
	TargetSurface
	targetBloomDown0
)

const targetBloomUp0 = targetBloomDown0 + Target(BloomLevels)

// TargetBloomDown returns the downsample chain target for a mip level.
// Level 0 is half the surface resolution; each level halves again.
//
// Parameters:
//   - level: the mip level in [0, BloomLevels)
//
// Returns:
//   - Target: the downsample target
func TargetBloomDown(level int) Target {
	return targetBloomDown0 + Target(level)
}

// TargetBloomUp returns the upsample chain target for a mip level. Up targets
// share their level's downsample resolution; level 0 is the texture the
// composite reads.
//
// Parameters:
//   - level: the mip level in [0, BloomLevels-1)
//
// Returns:
//   - Target: the upsample target
func TargetBloomUp(level int) Target {
	return targetBloomUp0 + Target(level)
}

// MaxMSAASamples bounds the multisample resolve loop. Sample counts above
// this are clamped by the depth resolve shader.
const MaxMSAASamples = 8

// PassSpec describes one full-screen pass of the chain: what it reads, what
// it writes, and how the target is loaded. The renderer walks the chain in
// order; a pass never reads its own target. Reads[0] is the pass's primary
// source texture; a second entry is the finer base level an upsample pass
// combines into.
type PassSpec struct {
	Name       string
	Reads      []Target
	Writes     Target
	Format     wgpu.TextureFormat
	ClearColor wgpu.Color
}

// Chain returns the frame's post-process pass sequence. The order is fixed:
// occlusion first (it only needs depth), then the bloom prefilter into mip 0
// and the downsample chain to the coarsest level, then the upsample chain
// scatter-combining each level back into the next-finer one, then the
// composite reading everything.
//
// Parameters:
//   - surfaceFormat: the swapchain format the composite writes
//
// Returns:
//   - []PassSpec: the ordered pass list
func Chain(surfaceFormat wgpu.TextureFormat) []PassSpec {
	white := wgpu.Color{R: 1, G: 1, B: 1, A: 1}
	black := wgpu.Color{R: 0, G: 0, B: 0, A: 1}

	passes := make([]PassSpec, 0, 3+2*BloomLevels)
	passes = append(passes,
		PassSpec{
			Name:       "SsaoPass",
			Reads:      nil, // depth and noise only
			Writes:     TargetSSAO,
			Format:     wgpu.TextureFormatR8Unorm,
			ClearColor: white,
		},
		PassSpec{
			Name:       "BloomPrefilter",
			Reads:      []Target{TargetScene},
			Writes:     TargetBloomDown(0),
			Format:     wgpu.TextureFormatRGBA16Float,
			ClearColor: black,
		},
	)

	for level := 1; level < BloomLevels; level++ {
		passes = append(passes, PassSpec{
			Name:       fmt.Sprintf("BloomDownsample%d", level),
			Reads:      []Target{TargetBloomDown(level - 1)},
			Writes:     TargetBloomDown(level),
			Format:     wgpu.TextureFormatRGBA16Float,
			ClearColor: black,
		})
	}

	for level := BloomLevels - 2; level >= 0; level-- {
		coarse := TargetBloomUp(level + 1)
		if level == BloomLevels-2 {
			coarse = TargetBloomDown(BloomLevels - 1)
		}
		passes = append(passes, PassSpec{
			Name:       fmt.Sprintf("BloomUpsample%d", level),
			Reads:      []Target{coarse, TargetBloomDown(level)},
			Writes:     TargetBloomUp(level),
			Format:     wgpu.TextureFormatRGBA16Float,
			ClearColor: black,
		})
	}

	passes = append(passes, PassSpec{
		Name:       "CompositePass",
		Reads:      []Target{TargetScene, TargetSSAO, TargetBloomUp(0)},
		Writes:     TargetSurface,
		Format:     surfaceFormat,
		ClearColor: black,
	})
	return passes
}

// Validate checks the chain's resource discipline: no pass reads the target
// it writes, and every read was written by an earlier pass or is an external
// input (the scene target).
//
// Parameters:
//   - passes: the pass list to check
//
// Returns:
//   - error: nil when the chain is well ordered
func Validate(passes []PassSpec) error {
	written := map[Target]bool{TargetScene: true}
	for _, p := range passes {
		for _, r := range p.Reads {
			if r == p.Writes {
				return &ChainError{Pass: p.Name, Reason: "pass reads its own target"}
			}
			if !written[r] {
				return &ChainError{Pass: p.Name, Reason: "pass reads a target no earlier pass wrote"}
			}
		}
		written[p.Writes] = true
	}
	return nil
}

// ChainError reports a resource-ordering violation in a pass chain.
type ChainError struct {
	Pass   string
	Reason string
}

func (e *ChainError) Error() string {
	return "postprocess: " + e.Pass + ": " + e.Reason
}

// CompositeColor mirrors the composite shader's blend: scene color attenuated
// by the occlusion term plus the bloom contribution. Disabled effects drop
// out exactly, so with every effect off the composite is a pass-through.
//
// Parameters:
//   - scene: the forward pass color
//   - ssao: the occlusion term sampled from the SSAO target
//   - bloom: the blurred bloom color
//   - effects: the frame's stage toggles
//
// Returns:
//   - [3]float32: the composited color before presentation
func CompositeColor(scene [3]float32, ssao float32, bloom [3]float32, effects Effects) [3]float32 {
	occlusion := float32(1)
	if effects.SSAO {
		occlusion = ssao
	}

	out := [3]float32{scene[0] * occlusion, scene[1] * occlusion, scene[2] * occlusion}
	if effects.Bloom {
		out[0] += bloom[0]
		out[1] += bloom[1]
		out[2] += bloom[2]
	}
	return out
}

// ResolveMinDepth collapses a multisampled depth texel to a single sample by
// taking the minimum, keeping the nearest surface. An empty sample set
// resolves to the far plane.
//
// Parameters:
//   - samples: the per-sample depth values, at most MaxMSAASamples of which are used
//
// Returns:
//   - float32: the resolved depth
func ResolveMinDepth(samples []float32) float32 {
	if len(samples) == 0 {
		return 1
	}
	if len(samples) > MaxMSAASamples {
		samples = samples[:MaxMSAASamples]
	}
	minDepth := samples[0]
	for _, s := range samples[1:] {
		if s < minDepth {
			minDepth = s
		}
	}
	return minDepth
}
