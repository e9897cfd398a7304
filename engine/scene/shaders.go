// shaders.go owns the scene's embedded WGSL pipeline sources and the shader
// assembly that splices material binding strategy source into the forward
// fragment stage.
package scene

import (
	_ "embed"
	"strings"

	"github.com/chewxy/math32"

	"github.com/prism-engine/prism/engine/particle"
	"github.com/prism-engine/prism/engine/postprocess"
	"github.com/prism-engine/prism/engine/renderer/material"
	"github.com/prism-engine/prism/engine/renderer/shader"
)

//go:embed assets/forward_vert.wgsl
var forwardVertSource string

//go:embed assets/forward_frag.wgsl
var forwardFragSource string

//go:embed assets/depth_prepass.wgsl
var depthPrepassSource string

//go:embed assets/shadow_depth.wgsl
var shadowDepthSource string

// Shader cache keys.
const (
	forwardVertShaderKey  = "forward_vert"
	forwardFragShaderKey  = "forward_frag"
	depthPrepassShaderKey = "depth_prepass_vert"
	shadowDepthShaderKey  = "shadow_depth_vert"
	postShaderKey         = "post_process"
	particleShaderKey     = "particle_update"
)

// Pipeline cache keys. Forward pipelines are keyed per model by forwardPipelineKey.
const (
	depthPrepassPipelineKey   = "depth_prepass"
	shadowDepthPipelineKey    = "shadow_depth"
	particleUpdatePipelineKey = "particle_update"
	postPipelinePrefix        = "post_"
)

// forwardPipelineKey names the forward render pipeline for one model batch.
func forwardPipelineKey(modelName string) string {
	return "forward_" + modelName
}

// postPipelineKey names the render pipeline for one post-process pass.
func postPipelineKey(spec postprocess.PassSpec) string {
	return postPipelinePrefix + spec.Name
}

// assembleForwardFragment splices the binding strategy's texture declarations
// and sample functions ahead of the forward fragment body. WGSL module-scope
// declarations are order-independent, so prepending is sufficient.
func assembleForwardFragment(strategy material.BindingStrategy) string {
	return strategy.SamplingSource() + "\n" + forwardFragSource
}

// newSceneShaders builds every shader the scene's pipelines use. The post
// shader pair shares one assembled module; the renderer's sample count picks
// the matching depth texture declaration.
func newSceneShaders(strategy material.BindingStrategy, sampleCount uint32) (forwardVert, forwardFrag, prepassVert, shadowVert, postVert, postFrag shader.Shader) {
	forwardVert = shader.NewShaderFromSource(forwardVertShaderKey, shader.ShaderTypeVertex, forwardVertSource)
	forwardFrag = shader.NewShaderFromSource(forwardFragShaderKey, shader.ShaderTypeFragment, assembleForwardFragment(strategy))
	prepassVert = shader.NewShaderFromSource(depthPrepassShaderKey, shader.ShaderTypeVertex, depthPrepassSource)
	shadowVert = shader.NewShaderFromSource(shadowDepthShaderKey, shader.ShaderTypeVertex, shadowDepthSource)

	postSource := postprocess.AssembleShader(sampleCount)
	postVert = shader.NewShaderFromSource(postShaderKey+"_vert", shader.ShaderTypeVertex, postSource)
	postFrag = shader.NewShaderFromSource(postShaderKey+"_frag", shader.ShaderTypeFragment, postSource)
	return
}

// newParticleShader builds the particle field compute shader.
func newParticleShader() shader.Shader {
	return shader.NewShaderFromSource(particleShaderKey, shader.ShaderTypeCompute, particle.ParticleUpdateSource)
}

// ToneMap mirrors the forward fragment shader's output transform: Reinhard
// compression followed by gamma 1/2.2. Shared with tests so the shader and
// host stay in agreement on the final color convention.
//
// Parameters:
//   - color: linear HDR color
//
// Returns:
//   - [3]float32: the display-ready color
func ToneMap(color [3]float32) [3]float32 {
	var out [3]float32
	for i, c := range color {
		out[i] = math32.Pow(c/(c+1), 1.0/2.2)
	}
	return out
}

// postFragmentEntryPoint maps a chain pass name to its fragment entry point
// in the assembled post module. Every bloom downsample level shares one entry
// point, as does every upsample level; the bound source textures differ per
// pass, not the shader.
func postFragmentEntryPoint(name string) (string, bool) {
	switch {
	case name == "SsaoPass":
		return "fs_ssao", true
	case name == "BloomPrefilter":
		return "fs_bloom_prefilter", true
	case strings.HasPrefix(name, "BloomDownsample"):
		return "fs_bloom_downsample", true
	case strings.HasPrefix(name, "BloomUpsample"):
		return "fs_bloom_upsample", true
	case name == "CompositePass":
		return "fs_composite", true
	default:
		return "", false
	}
}
