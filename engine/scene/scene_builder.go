package scene

import (
	"github.com/prism-engine/prism/engine/light"
	"github.com/prism-engine/prism/engine/postprocess"
	"github.com/prism-engine/prism/engine/renderer/material"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithComputeWorkers sets the number of worker goroutines used during the
// parallel CPU prep phase of PrepareCompute. Defaults to runtime.NumCPU()-1.
// Higher values may improve throughput with many model batches; lower values
// reduce scheduling overhead for simple scenes.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithCullingDisabled disables CPU frustum culling for the scene. With
// culling disabled every enabled instance is drawn unconditionally.
// By default culling is enabled (disabled = false).
//
// Parameters:
//   - disabled: true to disable frustum culling, false to enable it (default)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}

// WithEffects sets the initial post-process stage toggles. All stages
// default to enabled.
//
// Parameters:
//   - effects: the stage toggles to start with
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEffects(effects postprocess.Effects) SceneBuilderOption {
	return func(s *scene) {
		s.effects = effects
	}
}

// WithBindingStrategy selects the material texture binding strategy the
// forward pipeline is assembled with. Defaults to StrategyStorageIndexed:
// materials live in a storage array indexed per instance, with one texture
// set bound per batch.
//
// Parameters:
//   - kind: the strategy kind
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBindingStrategy(kind material.StrategyKind) SceneBuilderOption {
	return func(s *scene) {
		s.strategy = material.NewBindingStrategy(kind)
	}
}

// WithBatchCapacity sets the per-model instance ceiling for batches created
// by Add. Particle fields size their batch from the particle count instead.
// Default is DefaultBatchCapacity (4096).
//
// Parameters:
//   - capacity: the instance ceiling (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBatchCapacity(capacity int) SceneBuilderOption {
	return func(s *scene) {
		if capacity < 1 {
			capacity = 1
		}
		s.batchCapacity = capacity
	}
}

// WithShadowMapResolution sets the width and height in texels of the
// directional and spot shadow map layers. Higher values produce sharper
// shadows at the cost of more GPU memory and fill-rate. The arrays are
// allocated once at scene creation. Default is light.ShadowMapResolution (2048).
//
// Parameters:
//   - resolution: shadow map width and height in texels (e.g. 1024, 2048, 4096)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowMapResolution(resolution int) SceneBuilderOption {
	return func(s *scene) {
		if resolution < 1 {
			resolution = light.ShadowMapResolution
		}
		s.shadowMapResolution = resolution
	}
}

// WithPointShadowResolution sets the cube face resolution for point light
// shadow maps. Point casters render six faces per frame, so this defaults
// smaller than the directional resolution. Default is
// DefaultPointShadowResolution (512).
//
// Parameters:
//   - resolution: cube face width and height in texels
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPointShadowResolution(resolution int) SceneBuilderOption {
	return func(s *scene) {
		if resolution < 1 {
			resolution = DefaultPointShadowResolution
		}
		s.pointShadowResolution = resolution
	}
}

// WithPointShadowCasters sets how many point lights receive a cube shadow
// slot per frame. Shadow-enabled point lights beyond the budget render
// unshadowed. Default is DefaultPointShadowCasters (4).
//
// Parameters:
//   - casters: the caster budget (minimum 0)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPointShadowCasters(casters int) SceneBuilderOption {
	return func(s *scene) {
		if casters < 0 {
			casters = 0
		}
		s.pointShadowCasters = casters
	}
}
