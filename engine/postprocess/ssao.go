package postprocess

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/prism-engine/prism/common"
)

// KernelSampleCount is the number of hemisphere samples the ambient occlusion
// pass accumulates per fragment.
const KernelSampleCount = 32

// kernelSeed fixes the hemisphere kernel so every run bakes the same shader
// constants.
const kernelSeed uint32 = 0x55A0C0DE

// ssaoNoiseData is the 4x4 tiled rotation noise with the rotation vector in
// xy. Tiled across the screen via noise_scale. Uploaded quantized to
// RGBA8Unorm so the tile stays filterable; the shader maps texels back to
// [-1, 1].
var ssaoNoiseData = [NoiseTextureSize * NoiseTextureSize * 4]float32{
	0.5381, 0.1856, 0.0, 0.0, 0.1379, 0.2486, 0.0, 0.0, 0.3371, 0.5679, 0.0, 0.0, -0.6999, -0.0451,
	0.0, 0.0, 0.0689, -0.1598, 0.0, 0.0, 0.0560, 0.0069, 0.0, 0.0, -0.0146, 0.1402, 0.0, 0.0,
	0.0100, -0.1924, 0.0, 0.0, -0.3577, -0.5301, 0.0, 0.0, -0.3169, 0.1063, 0.0, 0.0, 0.0103,
	-0.5869, 0.0, 0.0, -0.0897, -0.4940, 0.0, 0.0, 0.7119, -0.0154, 0.0, 0.0, -0.0533, 0.0596, 0.0,
	0.0, 0.0352, -0.0631, 0.0, 0.0, -0.4776, 0.2847, 0.0, 0.0,
}

// NoiseTexture stages the SSAO rotation noise tile for GPU upload. Values
// are quantized from [-1, 1] to RGBA8Unorm bytes.
//
// Returns:
//   - *common.TextureStagingData: 4x4 RGBA8Unorm pixel data
func NoiseTexture() *common.TextureStagingData {
	pixels := make([]byte, len(ssaoNoiseData))
	for i, v := range ssaoNoiseData {
		pixels[i] = byte(math32.Round((common.Clamp(v, -1, 1)*0.5 + 0.5) * 255))
	}
	return &common.TextureStagingData{
		Pixels: pixels,
		Width:  NoiseTextureSize,
		Height: NoiseTextureSize,
		Format: wgpu.TextureFormatRGBA8Unorm,
	}
}

// SSAOKernel generates the fixed hemisphere sample kernel. Samples point into
// the +Z half-space and are scaled toward the origin with a quadratic bias so
// occlusion near the fragment dominates. The kernel is deterministic; it is
// baked into the shader source once at pipeline creation.
//
// Returns:
//   - [KernelSampleCount][4]float32: view-tangent-space sample offsets, w unused
func SSAOKernel() [KernelSampleCount][4]float32 {
	rng := common.NewLCG(kernelSeed)
	var kernel [KernelSampleCount][4]float32
	for i := range KernelSampleCount {
		x := rng.NextFloat()*2 - 1
		y := rng.NextFloat()*2 - 1
		z := rng.NextFloat()
		length := math32.Sqrt(x*x + y*y + z*z)
		if length < 1e-4 {
			x, y, z, length = 0, 0, 1, 1
		}

		t := float32(i) / KernelSampleCount
		scale := (0.1 + 0.9*t*t) * rng.NextFloat()

		kernel[i] = [4]float32{x / length * scale, y / length * scale, z / length * scale, 0}
	}
	return kernel
}

// KernelSource renders the hemisphere kernel as a WGSL constant array. The
// shader assembler splices it ahead of the ambient occlusion entry point.
//
// Returns:
//   - string: a WGSL `const SSAO_KERNEL` declaration
func KernelSource() string {
	kernel := SSAOKernel()
	var sb strings.Builder
	fmt.Fprintf(&sb, "const SSAO_KERNEL: array<vec4<f32>, %d> = array<vec4<f32>, %d>(\n",
		KernelSampleCount, KernelSampleCount)
	for _, s := range kernel {
		fmt.Fprintf(&sb, "    vec4<f32>(%.6f, %.6f, %.6f, 0.0),\n", s[0], s[1], s[2])
	}
	sb.WriteString(");\n")
	return sb.String()
}

// UVToNDC maps a top-left-origin UV to NDC xy (+Y up).
func UVToNDC(u, v float32) (float32, float32) {
	return u*2 - 1, 1 - v*2
}

// NDCToUV maps NDC xy (+Y up) to a top-left-origin UV.
func NDCToUV(x, y float32) (float32, float32) {
	return x*0.5 + 0.5, 0.5 - y*0.5
}

// ProjectViewToUV projects a view-space position through the projection
// matrix to screen UV and depth.
//
// Parameters:
//   - proj: column-major projection matrix
//   - pos: view-space position (camera looks down -Z)
//
// Returns:
//   - u, v: screen UV with top-left origin
//   - depth: NDC depth in [0, 1] (near maps to 0, far to 1)
func ProjectViewToUV(proj []float32, pos [3]float32) (u, v, depth float32) {
	clip := common.TransformPoint(proj, pos[0], pos[1], pos[2])
	invW := 1 / clip[3]
	u, v = NDCToUV(clip[0]*invW, clip[1]*invW)
	depth = clip[2] * invW
	return u, v, depth
}

// ReconstructViewPosition inverts ProjectViewToUV: given a screen UV and the
// depth buffer value, recover the view-space position. This is the same math
// the occlusion shader runs per fragment.
//
// Parameters:
//   - projInv: column-major inverse projection matrix
//   - u, v: screen UV with top-left origin
//   - depth: depth buffer value in [0, 1]
//
// Returns:
//   - [3]float32: the view-space position
func ReconstructViewPosition(projInv []float32, u, v, depth float32) [3]float32 {
	ndcX, ndcY := UVToNDC(u, v)
	view := common.TransformPoint(projInv, ndcX, ndcY, depth)
	invW := 1 / view[3]
	return [3]float32{view[0] * invW, view[1] * invW, view[2] * invW}
}

// OcclusionFactor applies the intensity and power shaping to a raw occlusion
// accumulation, mirroring the final lines of the occlusion shader.
//
// Parameters:
//   - occlusion: accumulated occlusion in [0, 1]
//   - intensity: strength factor (uniform intensity_power.x)
//   - power: shaping exponent (uniform intensity_power.y)
//
// Returns:
//   - float32: the visibility term in [0, 1], 1 meaning unoccluded
func OcclusionFactor(occlusion, intensity, power float32) float32 {
	ao := 1 - occlusion*intensity/KernelSampleCount
	if ao < 0 {
		ao = 0
	}
	return math32.Pow(ao, power)
}
