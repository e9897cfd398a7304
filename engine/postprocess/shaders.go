package postprocess

import (
	_ "embed"
	"strings"
)

// PostProcessSource is the shared body of every post-process pass. The
// single-sample depth bindings sit between the DEPTH_BINDINGS markers; the
// multisampled variant swaps that region for PostProcessMSAADepthSource.
//
//go:embed assets/postprocess.wgsl
var PostProcessSource string

// PostProcessMSAADepthSource declares the multisampled depth texture and the
// min-resolve load_depth used when the scene renders with MSAA.
//
//go:embed assets/postprocess_msaa_depth.wgsl
var PostProcessMSAADepthSource string

const (
	depthBindingsBegin = "// DEPTH_BINDINGS"
	depthBindingsEnd   = "// END_DEPTH_BINDINGS"
)

// AssembleShader builds the complete post-process WGSL module: the PostUniform
// struct, the baked hemisphere kernel, and the pass body with the depth
// bindings matching the scene's sample count.
//
// Parameters:
//   - sampleCount: the scene depth target's sample count
//
// Returns:
//   - string: the assembled WGSL source
func AssembleShader(sampleCount uint32) string {
	body := PostProcessSource
	if sampleCount > 1 {
		begin := strings.Index(body, depthBindingsBegin)
		end := strings.Index(body, depthBindingsEnd)
		if begin >= 0 && end > begin {
			body = body[:begin] + PostProcessMSAADepthSource + body[end+len(depthBindingsEnd):]
		}
	}

	var sb strings.Builder
	sb.WriteString(GPUPostUniformSource)
	sb.WriteString("\n")
	sb.WriteString(KernelSource())
	sb.WriteString("\n")
	sb.WriteString(body)
	return sb.String()
}
