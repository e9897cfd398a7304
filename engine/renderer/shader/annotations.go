// annotations.go defines the annotation types, argument constants, and parser for the
// Prism WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @prism: that drive automatic struct injection, bind group declaration, and resource
// provider registration. The parsed results are stored as Annotation values and consumed
// by the PreProcessor and Scene to wire GPU resources without manual low-level plumbing.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies a Prism annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@prism:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
// Each type corresponds to a distinct pre-processor action and produces different
// fields on the resulting Annotation struct.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site. The struct source is embedded from the
	// corresponding Go GPU type's .wgsl asset file. This annotation does not produce
	// a declaration and is consumed entirely during pre-processing.
	//
	// Syntax: //@prism:include <struct_type>
	//
	// Example: //@prism:include globals
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list. The declaration
	// carries the group index, binding index, and the resolved struct type, enabling the
	// Scene to semantically match bindings to resource providers without string lookups.
	//
	// Syntax: //@prism:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@prism:group 0 0 storage_uniform globals globals
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider registers a resource provider identity for a group and binding
	// without generating any WGSL output. The WGSL binding declaration remains hand-written
	// in the shader source directly below the annotation. This is used for bindings that
	// contain raw WGSL types (textures, samplers, flat arrays of primitives) which have no
	// corresponding registered struct in the pre-processor's struct registry.
	//
	// An optional binding role can be appended after the provider identity to declare the
	// semantic purpose of an individual binding within a multi-binding provider group.
	//
	// Syntax:
	//   //@prism:provider <group> <binding> <provider_identity>
	//   //@prism:provider <group> <binding> <provider_identity> <binding_role>
	//
	// Examples:
	//   //@prism:provider 2 0 material base_color_texture
	//   //@prism:provider 4 0 shadow
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @prism: annotation from a WGSL shader source line.
// It carries the annotation type, its arguments, the source line number, and optional
// group/binding indices. Annotations of type AnnotationTypeBindingGroup and
// AnnotationTypeProvider are appended to the PreProcessor's declarations list for
// consumption by the Scene during resource wiring.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key (e.g. "globals")
	//   - group:    [0] = address space, [1] = var name, [2] = WGSL type key
	//   - provider: [0] = provider identity (e.g. "material", "particles"), [1] = binding role (optional)
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source where this annotation
	// was found. Used for error reporting.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
// Arguments fall into three categories: struct type keys (used with include and group),
// address space identifiers (used with group), and provider identity keys (used with provider).
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────
// These identify registered WGSL struct types. They can appear in @prism:include
// annotations (to inject the struct source) and in @prism:group annotations (as the
// type field, optionally wrapped in array<>). Each maps to a Go GPU type with an
// embedded .wgsl asset file.

const (
	// AnnotationArgGlobals identifies the Globals camera uniform struct.
	// Source: engine/camera/assets/globals.wgsl
	AnnotationArgGlobals AnnotationArg = "globals"

	// annotationArgVertex identifies the VertexInput struct for static meshes.
	// Source: engine/model/assets/vertex.wgsl
	annotationArgVertex AnnotationArg = "vertex"

	// AnnotationArgObjectData identifies the ObjectData struct holding per-instance
	// model matrices and material indices.
	// Source: engine/model/assets/object_data.wgsl
	AnnotationArgObjectData AnnotationArg = "object_data"

	// AnnotationArgMaterialData identifies the MaterialData storage struct.
	// Source: engine/renderer/material/assets/material_data.wgsl
	AnnotationArgMaterialData AnnotationArg = "material_data"

	// AnnotationArgLights identifies the fixed-capacity Lights uniform struct.
	// Source: engine/light/assets/lights.wgsl
	AnnotationArgLights AnnotationArg = "lights"

	// AnnotationArgShadows identifies the Shadows uniform struct sampled by the forward pass.
	// Source: engine/light/assets/shadow_data.wgsl
	AnnotationArgShadows AnnotationArg = "shadows"

	// AnnotationArgShadowView identifies the ShadowView uniform for the shadow depth pass.
	// Source: engine/light/assets/shadow_view.wgsl
	AnnotationArgShadowView AnnotationArg = "shadow_view"

	// AnnotationArgParticleState identifies the ParticleState storage struct.
	// Source: engine/particle/assets/particle_state.wgsl
	AnnotationArgParticleState AnnotationArg = "particle_state"

	// AnnotationArgParticleParams identifies the ParticleParams dispatch uniform.
	// Source: engine/particle/assets/particle_params.wgsl
	AnnotationArgParticleParams AnnotationArg = "particle_params"

	// AnnotationArgPostUniform identifies the PostUniform struct shared by the
	// post-process passes.
	// Source: engine/postprocess/assets/post_uniform.wgsl
	AnnotationArgPostUniform AnnotationArg = "post_uniform"
)

// ── Address space arguments ────────────────────────────────────────────────────
// These specify the WGSL variable address space in @prism:group annotations.
// They map to WGSL var<> declarations.

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"

	// annotationArgStorageTypeReadWrite maps to var<storage, read_write> in WGSL.
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// ── Provider identity arguments ────────────────────────────────────────────────
// These identify which Scene-level resource provider owns a bind group. Used in
// @prism:provider annotations and matched by the Scene's draw call and compute
// setup logic to wire the correct BindGroupProvider for each group.

const (
	// AnnotationArgCamera identifies the camera provider (the Globals uniform).
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgMaterial identifies the material provider (textures, samplers, material storage).
	AnnotationArgMaterial AnnotationArg = "material"

	// AnnotationArgLighting identifies the lights provider (the Lights uniform).
	AnnotationArgLighting AnnotationArg = "lighting"

	// AnnotationArgShadow identifies the shadow provider (shadow map array textures, comparison sampler, Shadows uniform).
	AnnotationArgShadow AnnotationArg = "shadow"

	// AnnotationArgObjects identifies the per-instance object storage buffer provider.
	AnnotationArgObjects AnnotationArg = "objects"

	// AnnotationArgParticles identifies the particle state storage buffer provider.
	AnnotationArgParticles AnnotationArg = "particles"

	// AnnotationArgPostProcess identifies the post-process provider (scene, occlusion,
	// bloom and depth attachments plus their samplers).
	AnnotationArgPostProcess AnnotationArg = "postprocess"
)

// ── Binding role arguments ─────────────────────────────────────────────────────
// These qualify individual bindings within a provider group. They appear as the
// optional fourth argument of an @prism:provider annotation, telling the scene
// which texture or sampler role each binding fulfils without relying on
// variable-name string matching.

const (
	// AnnotationArgBaseColorTexture identifies a base-color texture binding.
	AnnotationArgBaseColorTexture AnnotationArg = "base_color_texture"

	// AnnotationArgNormalTexture identifies a tangent-space normal map binding.
	AnnotationArgNormalTexture AnnotationArg = "normal_texture"

	// AnnotationArgMetallicRoughnessTexture identifies a combined metallic-roughness binding.
	AnnotationArgMetallicRoughnessTexture AnnotationArg = "metallic_roughness_texture"

	// AnnotationArgEmissiveTexture identifies an emissive texture binding.
	AnnotationArgEmissiveTexture AnnotationArg = "emissive_texture"

	// AnnotationArgOcclusionTexture identifies a baked ambient occlusion texture binding.
	AnnotationArgOcclusionTexture AnnotationArg = "occlusion_texture"

	// AnnotationArgMaterialSampler identifies the sampler shared by the material textures.
	AnnotationArgMaterialSampler AnnotationArg = "material_sampler"

	// AnnotationArgDepthTexture identifies the scene depth attachment binding.
	AnnotationArgDepthTexture AnnotationArg = "depth_texture"

	// AnnotationArgNoiseTexture identifies the SSAO rotation noise tile binding.
	AnnotationArgNoiseTexture AnnotationArg = "noise_texture"

	// AnnotationArgSceneTexture identifies the offscreen scene color binding.
	AnnotationArgSceneTexture AnnotationArg = "scene_texture"

	// AnnotationArgSSAOTexture identifies the ambient occlusion target binding.
	AnnotationArgSSAOTexture AnnotationArg = "ssao_texture"

	// AnnotationArgBloomTexture identifies the blurred bloom target binding.
	AnnotationArgBloomTexture AnnotationArg = "bloom_texture"

	// AnnotationArgComparisonSampler identifies the shadow comparison sampler binding.
	AnnotationArgComparisonSampler AnnotationArg = "comparison_sampler"
)

// validStructTypes lists all AnnotationArg values that are accepted as struct type
// arguments in @prism:include and @prism:group annotations. Each entry must have a
// corresponding registryEntry in the PreProcessor's structRegistry.
var validStructTypes = []AnnotationArg{
	AnnotationArgGlobals,
	annotationArgVertex,
	AnnotationArgObjectData,
	AnnotationArgMaterialData,
	AnnotationArgLights,
	AnnotationArgShadows,
	AnnotationArgShadowView,
	AnnotationArgParticleState,
	AnnotationArgParticleParams,
	AnnotationArgPostUniform,
}

// validAddressSpaces lists all AnnotationArg values that are accepted as address
// space arguments in @prism:group annotations. Each maps to a WGSL var<> declaration.
var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

// validProviderIdentities lists all AnnotationArg values that are accepted as
// provider identity arguments in @prism:provider annotations. Each maps to a
// Scene-level resource provider used during draw call and compute setup wiring.
var validProviderIdentities = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgMaterial,
	AnnotationArgLighting,
	AnnotationArgShadow,
	AnnotationArgObjects,
	AnnotationArgParticles,
	AnnotationArgPostProcess,
}

// validBindingRoles lists all AnnotationArg values that are accepted as binding
// role qualifiers in @prism:provider annotations. These identify the semantic
// purpose of individual bindings within a provider group.
var validBindingRoles = []AnnotationArg{
	AnnotationArgBaseColorTexture,
	AnnotationArgNormalTexture,
	AnnotationArgMetallicRoughnessTexture,
	AnnotationArgEmissiveTexture,
	AnnotationArgOcclusionTexture,
	AnnotationArgMaterialSampler,
	AnnotationArgDepthTexture,
	AnnotationArgNoiseTexture,
	AnnotationArgSceneTexture,
	AnnotationArgSSAOTexture,
	AnnotationArgBloomTexture,
	AnnotationArgComparisonSampler,
}

// parseAnnotation attempts to parse a single line of WGSL source as a @prism: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix. Returns
// a populated Annotation for valid annotations, or an error describing the problem for
// malformed annotations with correct prefix but invalid syntax or unknown arguments.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @prism annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @prism include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @prism include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @prism group annotation requires exactly five arguments (group number, binding number, address space, var name, struct type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q in @prism group annotation: %v", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @prism group annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @prism group annotation", lineNum, args[3])
		}
		typeArg := args[5]
		if inner, ok := strings.CutPrefix(typeArg, "array<"); ok {
			inner = strings.TrimSuffix(inner, ">")
			if !slices.Contains(validStructTypes, AnnotationArg(inner)) {
				return nil, fmt.Errorf("line %d: unknown array element type %q in @prism group annotation", lineNum, inner)
			}
		} else {
			if !slices.Contains(validStructTypes, AnnotationArg(typeArg)) {
				return nil, fmt.Errorf("line %d: unknown struct type %q in @prism group annotation", lineNum, typeArg)
			}
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	case string(AnnotationTypeProvider):
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @prism provider annotation requires three or four arguments (group, binding, provider identity[, binding role])", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group number %q: %v", lineNum, args[1], err)
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @prism provider annotation: %v", lineNum, args[2], err)
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @prism provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @prism provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @prism annotation type %q", lineNum, args[0])
	}
}
