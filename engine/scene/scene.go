package scene

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/prism-engine/prism/common"
	"github.com/prism-engine/prism/engine/camera"
	"github.com/prism-engine/prism/engine/game_object"
	"github.com/prism-engine/prism/engine/light"
	"github.com/prism-engine/prism/engine/model"
	"github.com/prism-engine/prism/engine/particle"
	"github.com/prism-engine/prism/engine/postprocess"
	"github.com/prism-engine/prism/engine/renderer"
	"github.com/prism-engine/prism/engine/renderer/bind_group_provider"
	"github.com/prism-engine/prism/engine/renderer/material"
	"github.com/prism-engine/prism/engine/renderer/pipeline"
	"github.com/prism-engine/prism/engine/renderer/shader"
)

const (
	// DefaultBatchCapacity is the per-model instance ceiling when no override
	// is configured via WithBatchCapacity.
	DefaultBatchCapacity = 4096

	// DefaultPointShadowResolution is the cube face size for point light
	// shadow maps. Point casters render six faces each, so they default
	// smaller than the directional/spot maps.
	DefaultPointShadowResolution = 512

	// DefaultPointShadowCasters is the number of point lights that receive a
	// cube shadow slot per frame.
	DefaultPointShadowCasters = 4
)

// Shadow layer bookkeeping: directional slots occupy the leading layers of
// the per-layer view uniform pool, spots follow, and point cube faces come
// last. The texture arrays themselves are split per light kind.
const (
	dirLayerOffset   = 0
	spotLayerOffset  = light.MaxDirectionalLights
	pointLayerOffset = light.MaxDirectionalLights + light.MaxSpotLights
)

// objectRef locates a registered game object inside its model batch.
type objectRef struct {
	batch *renderBatch
	index int
}

// renderBatch groups every instance of one model behind a shared object
// storage buffer. The batch owns two providers over that buffer: geomBGP
// exposes it with vertex-only visibility for the depth prepass and shadow
// pipelines, shadeBGP pairs it with the material storage for the forward
// pipeline's merged layout.
type renderBatch struct {
	mdl      model.Model
	capacity int

	entries []game_object.GameObject

	// objects is the scratch the cull pass compacts into each frame; its
	// length after PrepareCompute is the frame's instance count.
	objects   []model.GPUObjectData
	drawCount uint32

	opaque      bool
	pipelineKey string

	geomBGP  bind_group_provider.BindGroupProvider
	shadeBGP bind_group_provider.BindGroupProvider

	// drawGroups is the forward pass bind group list in group-index order,
	// resolved once from the fragment shader's provider declarations.
	drawGroups []bind_group_provider.BindGroupProvider

	// field is non-nil when the batch's instances are owned by a GPU
	// particle system rather than registered game objects.
	field *particleField
}

// particleField wires one particle system to its compute dispatch: the
// dispatch uniform plus the provider holding the state buffer and the owning
// batch's object buffer.
type particleField struct {
	params        particle.GPUParticleParams
	computeBGP    bind_group_provider.BindGroupProvider
	paramsBinding int
}

type scene struct {
	mu     *sync.RWMutex
	name   string
	active bool

	cam camera.Camera
	r   renderer.Renderer

	width  int
	height int

	registry map[uint64]objectRef
	nextID   uint64

	batches    map[string]*renderBatch
	batchOrder []string

	lights       []light.Light
	lightObjects []game_object.GameObject

	strategy        material.BindingStrategy
	effects         postprocess.Effects
	cullingDisabled bool
	batchCapacity   int

	forwardVert shader.Shader
	forwardFrag shader.Shader
	prepassVert shader.Shader
	shadowVert  shader.Shader
	postVert    shader.Shader
	postFrag    shader.Shader

	// cameraGeomBGP re-exposes the camera globals buffer with vertex-only
	// visibility for the depth prepass and shadow pipeline layouts.
	cameraGeomBGP bind_group_provider.BindGroupProvider

	// lightingBGP holds the Lights and Shadows uniforms, the shadow map
	// arrays, and the comparison sampler as one forward pass group.
	lightingBGP    bind_group_provider.BindGroupProvider
	lightsBinding  int
	shadowsBinding int

	shadowMapResolution   int
	pointShadowResolution int
	pointShadowCasters    int

	dirShadowViews   []*wgpu.TextureView
	spotShadowViews  []*wgpu.TextureView
	pointShadowViews []*wgpu.TextureView

	// shadowViewBGPs holds one ShadowView uniform per shadow map layer.
	// Per-layer buffers keep every pass's view-projection live at submit; a
	// single rewritten buffer would hand every pass the last value queued.
	shadowViewBGPs []bind_group_provider.BindGroupProvider

	postChain      []postprocess.PassSpec
	postUniformBGP bind_group_provider.BindGroupProvider
	depthNoiseBGP  bind_group_provider.BindGroupProvider

	// sourceBGPs keys the per-pass source texture group by pass name: the
	// pass's primary read at binding 0 and the upsample base level at
	// binding 2 (passes without a base bind their primary there too).
	sourceBGPs map[string]bind_group_provider.BindGroupProvider

	// compositeBGPs keys the composite texture group by the pass's write
	// target. A pass must never sample its own render attachment, so passes
	// writing the occlusion target or the bloom texture the composite reads
	// get a variant with the conflicting view swapped for a neutral one.
	compositeBGPs map[postprocess.Target]bind_group_provider.BindGroupProvider

	// Descriptors retained for rebinding view-holding groups on resize.
	depthNoiseDesc wgpu.BindGroupLayoutDescriptor
	sourceDesc     wgpu.BindGroupLayoutDescriptor
	compositeDesc  wgpu.BindGroupLayoutDescriptor

	// Reused per frame to avoid transient allocations in the hot path.
	writePool  []bind_group_provider.BufferWrite
	groupsPool []bind_group_provider.BindGroupProvider

	// computePool manages a bounded set of reusable goroutines for the
	// parallel CPU prep in PrepareCompute. Workers persist across frames,
	// avoiding per-frame goroutine spawn/teardown overhead.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Scene owns a renderable world: the camera, the model batches, the light
// list, the particle fields, and every pipeline and bind group the frame
// sequence needs. The engine drives it through the frame phases in order:
// PrepareCompute inside the compute frame, PrepareShadows on its own
// submission, then DepthPrepassDraws, DrawCalls, and PostProcessDraws inside
// the main frame. Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera, rebinding the camera globals
	// providers so existing batches pick up the new camera's buffers.
	//
	// Parameters:
	//   - cam: the new camera
	//
	// Returns:
	//   - error: an error if the camera bind groups fail to initialize
	SetCamera(cam camera.Camera) error

	// Renderer returns the scene's renderer.
	Renderer() renderer.Renderer

	// Count returns the number of instances across every batch, particle
	// fields included.
	//
	// Returns:
	//   - int: the total instance count
	Count() int

	// Add adds a GameObject to the scene, creating the model's render batch
	// on first use: mesh buffers, the instance storage buffer, the material
	// storage and texture bind groups, and the model's forward pipeline.
	// Objects carrying an attached light also join the light list. Ephemeral
	// objects render but are not registered for lookup or removal.
	//
	// Parameters:
	//   - obj: the GameObject to add (must carry a Model)
	//
	// Returns:
	//   - uint64: the assigned object ID
	//   - error: an error if the object is invalid or its batch is full
	Add(obj game_object.GameObject) (uint64, error)

	// Get retrieves a non-ephemeral GameObject by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Remove removes a non-ephemeral GameObject from the registry by ID and
	// swap-removes it from its batch. Unknown IDs are ignored.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// Clear removes all registered objects and the lights attached to them.
	// Free-standing lights, particle fields, and GPU resources are retained.
	Clear()

	// AddLight adds a free-standing light to the scene's light list.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light previously added via AddLight or attached
	// to a registered object.
	//
	// Parameters:
	//   - l: the light to remove
	RemoveLight(l light.Light)

	// Lights returns a copy of the scene's current light list.
	//
	// Returns:
	//   - []light.Light: the lights, in insertion order
	Lights() []light.Light

	// Effects returns the post-process stage toggles applied each frame.
	//
	// Returns:
	//   - postprocess.Effects: the current toggles
	Effects() postprocess.Effects

	// SetEffects sets the post-process stage toggles. Disabled stages become
	// exact pass-throughs; the chain topology never changes.
	//
	// Parameters:
	//   - effects: the toggles to apply from the next frame
	SetEffects(effects postprocess.Effects)

	// CullingDisabled returns whether CPU frustum culling is bypassed.
	//
	// Returns:
	//   - bool: true when culling is disabled
	CullingDisabled() bool

	// SetCullingDisabled toggles CPU frustum culling. With culling disabled
	// every enabled instance is drawn unconditionally.
	//
	// Parameters:
	//   - disabled: true to bypass culling
	SetCullingDisabled(disabled bool)

	// AddParticleField creates a GPU-simulated particle field rendering the
	// given model. The field seeds count particles deterministically from
	// seed, uploads their state once, and from then on the compute pass is
	// the sole writer of both the particle state and the batch's instance
	// transforms. Particle batches skip CPU culling.
	//
	// Parameters:
	//   - mdl: the model each particle renders as
	//   - settings: the field's simulation parameters
	//   - count: the particle count (must be positive)
	//   - seed: the deterministic seed for the initial state
	//
	// Returns:
	//   - error: an error if the model already has a batch or GPU init fails
	AddParticleField(mdl model.Model, settings particle.FieldSettings, count int, seed uint32) error

	// PrepareCompute runs the per-frame CPU prep and compute dispatches:
	// camera and light uniform uploads, parallel instance rebuilds with
	// frustum culling, staged buffer writes, and the particle update
	// dispatches. Must be called within a BeginComputeFrame/EndComputeFrame
	// block on the renderer.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	PrepareCompute(deltaTime float32)

	// PrepareShadows builds the frame's shadow uniform, uploads the
	// per-layer shadow views, and renders every active shadow map layer.
	// Must be called after PrepareCompute and before the main frame begins.
	//
	// Returns:
	//   - error: an error if a shadow pass fails to encode
	PrepareShadows() error

	// DepthPrepassDraws encodes the opaque batches into the depth prepass.
	// Must be called between the renderer's BeginFrame and EndDepthPrepass.
	//
	// Returns:
	//   - error: an error if a draw fails to encode
	DepthPrepassDraws() error

	// DrawCalls encodes the forward pass: opaque batches first, transparent
	// batches after. Must be called between the renderer's EndDepthPrepass
	// and EndScenePass.
	//
	// Returns:
	//   - error: an error if a draw fails to encode
	DrawCalls() error

	// PostProcessDraws runs the post-process chain: ambient occlusion, the
	// bloom passes, and the composite to the swapchain. Must be called
	// between the renderer's EndScenePass and EndFrame.
	//
	// Returns:
	//   - error: an error if a pass fails to encode
	PostProcessDraws() error

	// Resize updates the scene's viewport size and rebinds the bind groups
	// holding frame target views, which the renderer recreates on resize.
	// Call after renderer.Resize.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if a bind group fails to rebuild
	Resize(width, height int) error
}

var _ Scene = &scene{}

// NewScene creates a Scene bound to a camera and renderer, building every
// shader, pipeline, and bind group the frame sequence needs: the depth
// prepass and shadow pipelines, the shadow map arrays with their per-layer
// view uniforms, the particle update compute pipeline, and the post-process
// chain. Panics if cam or r is nil; GPU initialization failures are returned.
//
// Parameters:
//   - name: the scene name
//   - cam: the camera to attach (must not be nil)
//   - r: the renderer to attach (must not be nil)
//   - width: the initial viewport width in pixels
//   - height: the initial viewport height in pixels
//   - options: optional scene builder options
//
// Returns:
//   - Scene: the newly created scene
//   - error: an error if GPU resource initialization fails
func NewScene(name string, cam camera.Camera, r renderer.Renderer, width, height int, options ...SceneBuilderOption) (Scene, error) {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if r == nil {
		panic("scene: NewScene requires a non-nil Renderer")
	}

	s := &scene{
		mu:                    &sync.RWMutex{},
		name:                  name,
		cam:                   cam,
		r:                     r,
		width:                 width,
		height:                height,
		registry:              make(map[uint64]objectRef),
		nextID:                1,
		batches:               make(map[string]*renderBatch),
		strategy:              material.NewBindingStrategy(material.StrategyStorageIndexed),
		effects:               postprocess.Effects{SSAO: true, Bloom: true, FXAA: true},
		batchCapacity:         DefaultBatchCapacity,
		computeWorkers:        max(runtime.NumCPU()-1, 1),
		shadowMapResolution:   light.ShadowMapResolution,
		pointShadowResolution: DefaultPointShadowResolution,
		pointShadowCasters:    DefaultPointShadowCasters,
	}

	for _, option := range options {
		option(s)
	}

	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)

	s.forwardVert, s.forwardFrag, s.prepassVert, s.shadowVert, s.postVert, s.postFrag =
		newSceneShaders(s.strategy, uint32(r.MSAASamples()))

	if err := s.registerScenePipelines(); err != nil {
		return nil, err
	}
	if err := s.initCameraProviders(); err != nil {
		return nil, err
	}
	if err := s.initShadowResources(); err != nil {
		return nil, err
	}
	if err := s.initPostProcess(); err != nil {
		return nil, err
	}

	return s, nil
}

// registerScenePipelines registers the pipelines shared by every batch: the
// depth prepass, the shadow depth pass, the particle update compute pass,
// and one render pipeline per post-process stage. Forward pipelines are
// per-model and register on first Add.
func (s *scene) registerScenePipelines() error {
	prepass := pipeline.NewPipeline(depthPrepassPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(s.prepassVert),
		pipeline.WithDepthOnly(),
		pipeline.WithCullMode(wgpu.CullModeBack),
	)
	if err := s.r.RegisterPipelines(prepass); err != nil {
		return fmt.Errorf("scene: failed to register depth prepass pipeline: %w", err)
	}

	shadow := pipeline.NewPipeline(shadowDepthPipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(s.shadowVert),
		pipeline.WithDepthOnly(),
		pipeline.WithCullMode(wgpu.CullModeBack),
		pipeline.WithDepthBias(2, 2.0),
	)
	if err := s.r.RegisterShadowPipeline(shadow); err != nil {
		return fmt.Errorf("scene: failed to register shadow pipeline: %w", err)
	}

	particleUpdate := pipeline.NewPipeline(particleUpdatePipelineKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(newParticleShader()),
	)
	if err := s.r.RegisterPipelines(particleUpdate); err != nil {
		return fmt.Errorf("scene: failed to register particle update pipeline: %w", err)
	}

	s.postChain = postprocess.Chain(s.r.SurfaceFormat())
	if err := postprocess.Validate(s.postChain); err != nil {
		return fmt.Errorf("scene: invalid post-process chain: %w", err)
	}
	for _, spec := range s.postChain {
		entry, ok := postFragmentEntryPoint(spec.Name)
		if !ok {
			return fmt.Errorf("scene: no fragment entry point for post pass %q", spec.Name)
		}
		p := pipeline.NewPipeline(postPipelineKey(spec), pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(s.postVert),
			pipeline.WithFragmentShader(s.postFrag),
			pipeline.WithFragmentEntryPoint(entry),
			pipeline.WithColorFormat(spec.Format),
			pipeline.WithSampleCount(1),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
		)
		if err := s.r.RegisterPipelines(p); err != nil {
			return fmt.Errorf("scene: failed to register post pipeline %q: %w", spec.Name, err)
		}
	}

	return nil
}

// initCameraProviders initializes the camera globals bind group with the
// forward pipeline's merged vertex+fragment visibility, then re-exposes the
// same buffer through a vertex-only provider for the depth-only pipelines.
func (s *scene) initCameraProviders() error {
	camBGP := s.cam.BindGroupProvider()
	if camBGP == nil {
		camBGP = bind_group_provider.NewBindGroupProvider("camera")
		s.cam.SetBindGroupProvider(camBGP)
	}

	group := providerGroupIndex(s.forwardVert, shader.AnnotationArgCamera)
	merged := mergedGroupDescriptor(group, s.forwardVert, s.forwardFrag)
	if err := s.r.InitBindGroup(camBGP, merged, nil, nil); err != nil {
		return fmt.Errorf("scene: failed to init camera bind group: %w", err)
	}

	if s.cameraGeomBGP == nil {
		s.cameraGeomBGP = bind_group_provider.NewBindGroupProvider("camera_geometry")
	}
	s.cameraGeomBGP.SetBuffer(0, camBGP.Buffer(0))
	if err := s.r.InitBindGroup(s.cameraGeomBGP, s.prepassVert.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
		return fmt.Errorf("scene: failed to init camera geometry bind group: %w", err)
	}

	return nil
}

// initShadowResources creates the shadow map arrays, the comparison sampler,
// the lighting bind group the forward pass samples them through, and the
// per-layer ShadowView uniform providers the shadow passes bind.
func (s *scene) initShadowResources() error {
	dirViews, dirArray, _, err := s.r.CreateShadowDepthTextureArray(
		s.shadowMapResolution, s.shadowMapResolution, light.MaxDirectionalLights)
	if err != nil {
		return fmt.Errorf("scene: failed to create directional shadow maps: %w", err)
	}
	s.dirShadowViews = dirViews

	spotViews, spotArray, _, err := s.r.CreateShadowDepthTextureArray(
		s.shadowMapResolution, s.shadowMapResolution, light.MaxSpotLights)
	if err != nil {
		return fmt.Errorf("scene: failed to create spot shadow maps: %w", err)
	}
	s.spotShadowViews = spotViews

	pointViews, pointArray, _, err := s.r.CreateShadowDepthTextureArray(
		s.pointShadowResolution, s.pointShadowResolution,
		s.pointShadowCasters*light.PointShadowFaceCount)
	if err != nil {
		return fmt.Errorf("scene: failed to create point shadow maps: %w", err)
	}
	s.pointShadowViews = pointViews

	comparisonSampler, err := s.r.CreateComparisonSampler()
	if err != nil {
		return fmt.Errorf("scene: failed to create comparison sampler: %w", err)
	}

	lightingGroup := providerGroupIndex(s.forwardFrag, shader.AnnotationArgLighting)
	desc := s.forwardFrag.BindGroupLayoutDescriptor(lightingGroup)
	s.lightingBGP = bind_group_provider.NewBindGroupProvider("lighting")

	binding, ok := s.forwardFrag.BindGroupFromVarName(lightingGroup, "lights")
	if !ok {
		return errors.New("scene: forward shader is missing the lights uniform")
	}
	s.lightsBinding = binding
	if binding, ok = s.forwardFrag.BindGroupFromVarName(lightingGroup, "shadows"); !ok {
		return errors.New("scene: forward shader is missing the shadows uniform")
	}
	s.shadowsBinding = binding

	for varName, view := range map[string]*wgpu.TextureView{
		"dir_shadow_maps":   dirArray,
		"spot_shadow_maps":  spotArray,
		"point_shadow_maps": pointArray,
	} {
		b, found := s.forwardFrag.BindGroupFromVarName(lightingGroup, varName)
		if !found {
			return fmt.Errorf("scene: forward shader is missing %s", varName)
		}
		s.lightingBGP.SetTextureView(b, view)
	}
	if binding, ok = s.forwardFrag.BindGroupFromVarName(lightingGroup, "shadow_sampler"); !ok {
		return errors.New("scene: forward shader is missing the shadow comparison sampler")
	}
	s.lightingBGP.SetSampler(binding, comparisonSampler)

	lightsUniform := light.GPULightsUniform{}
	shadowsUniform := light.GPUShadowsUniform{}
	sizes := map[int]uint64{
		s.lightsBinding:  uint64(lightsUniform.Size()),
		s.shadowsBinding: uint64(shadowsUniform.Size()),
	}
	if err = s.r.InitBindGroup(s.lightingBGP, desc, nil, sizes); err != nil {
		return fmt.Errorf("scene: failed to init lighting bind group: %w", err)
	}

	viewDesc := s.shadowVert.BindGroupLayoutDescriptor(0)
	totalLayers := pointLayerOffset + s.pointShadowCasters*light.PointShadowFaceCount
	s.shadowViewBGPs = make([]bind_group_provider.BindGroupProvider, totalLayers)
	for i := range s.shadowViewBGPs {
		bgp := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("shadow_view_layer_%d", i))
		if err = s.r.InitBindGroup(bgp, viewDesc, nil, nil); err != nil {
			return fmt.Errorf("scene: failed to init shadow view bind group %d: %w", i, err)
		}
		s.shadowViewBGPs[i] = bgp
	}

	return nil
}

// initPostProcess builds the bind groups the post chain binds every pass:
// the post uniform, the depth/noise group, the per-source texture groups,
// and the composite group variants keyed by write target.
func (s *scene) initPostProcess() error {
	postUniform := postprocess.GPUPostUniform{}
	uniformDesc := mergedGroupDescriptor(0, s.postVert, s.postFrag)
	s.postUniformBGP = bind_group_provider.NewBindGroupProvider("post_uniform")
	if err := s.r.InitBindGroup(s.postUniformBGP, uniformDesc, nil, map[int]uint64{0: uint64(postUniform.Size())}); err != nil {
		return fmt.Errorf("scene: failed to init post uniform bind group: %w", err)
	}

	clamp := &common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
	}

	s.depthNoiseDesc = mergedGroupDescriptor(1, s.postVert, s.postFrag)
	s.depthNoiseBGP = bind_group_provider.NewBindGroupProvider("post_depth_noise",
		bind_group_provider.WithStagedTexture(1, postprocess.NoiseTexture()),
		bind_group_provider.WithStagedSampler(2, clamp),
	)
	s.depthNoiseBGP.SetTextureView(0, s.r.SceneDepthView())
	if err := s.r.InitBindGroup(s.depthNoiseBGP, s.depthNoiseDesc, nil, nil); err != nil {
		return fmt.Errorf("scene: failed to init post depth bind group: %w", err)
	}

	s.sourceDesc = mergedGroupDescriptor(2, s.postVert, s.postFrag)
	s.sourceBGPs = make(map[string]bind_group_provider.BindGroupProvider, len(s.postChain))
	if err := s.initSourceVariants(clamp); err != nil {
		return err
	}

	s.compositeDesc = mergedGroupDescriptor(3, s.postVert, s.postFrag)
	s.compositeBGPs = make(map[postprocess.Target]bind_group_provider.BindGroupProvider, 3)
	return s.initCompositeVariants(clamp)
}

// postReadView resolves a chain read target to its texture view.
func (s *scene) postReadView(target postprocess.Target) *wgpu.TextureView {
	if target == postprocess.TargetScene {
		return s.r.SceneColorView()
	}
	return s.r.PostTargetView(target)
}

// initSourceVariants (re)builds the per-pass source texture groups. Binding 0
// holds the pass's primary read (the scene color when the pass reads nothing,
// like the occlusion pass), binding 2 the finer base level for upsample
// passes; passes without a second read repeat their primary there so the
// merged layout is always fully bound.
func (s *scene) initSourceVariants(clamp *common.SamplerStagingData) error {
	for _, spec := range s.postChain {
		primary := postprocess.TargetScene
		if len(spec.Reads) > 0 {
			primary = spec.Reads[0]
		}
		base := primary
		if len(spec.Reads) > 1 {
			base = spec.Reads[1]
		}

		bgp, exists := s.sourceBGPs[spec.Name]
		if !exists {
			bgp = bind_group_provider.NewBindGroupProvider("post_source_"+spec.Name,
				bind_group_provider.WithStagedSampler(1, clamp),
			)
			s.sourceBGPs[spec.Name] = bgp
		}
		bgp.SetTextureView(0, s.postReadView(primary))
		bgp.SetTextureView(2, s.postReadView(base))
		if err := s.r.InitBindGroup(bgp, s.sourceDesc, nil, nil); err != nil {
			return fmt.Errorf("scene: failed to init post source bind group %q: %w", spec.Name, err)
		}
	}
	return nil
}

// initCompositeVariants (re)builds the composite texture group variants. The
// default binds scene, occlusion, and the finest upsample level; the variant
// for the pass writing the occlusion target swaps the occlusion view for a
// bloom level, and the variant for the pass writing the finest upsample level
// swaps the bloom view likewise. WebGPU rejects a texture bound as both
// render attachment and sampled binding in one pass, even when the shader
// never reads it.
func (s *scene) initCompositeVariants(clamp *common.SamplerStagingData) error {
	sceneView := s.r.SceneColorView()
	ssaoView := s.r.PostTargetView(postprocess.TargetSSAO)
	bloomView := s.r.PostTargetView(postprocess.TargetBloomUp(0))
	spareView := s.r.PostTargetView(postprocess.TargetBloomDown(0))

	variants := map[postprocess.Target][3]*wgpu.TextureView{
		postprocess.TargetSurface:    {sceneView, ssaoView, bloomView},
		postprocess.TargetSSAO:       {sceneView, spareView, bloomView},
		postprocess.TargetBloomUp(0): {sceneView, ssaoView, spareView},
	}

	for target, views := range variants {
		bgp, exists := s.compositeBGPs[target]
		if !exists {
			bgp = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("post_composite_%d", target),
				bind_group_provider.WithStagedSampler(3, clamp),
			)
			s.compositeBGPs[target] = bgp
		}
		for binding, view := range views {
			bgp.SetTextureView(binding, view)
		}
		if err := s.r.InitBindGroup(bgp, s.compositeDesc, nil, nil); err != nil {
			return fmt.Errorf("scene: failed to init composite bind group %d: %w", target, err)
		}
	}

	return nil
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) error {
	if cam == nil {
		return errors.New("scene: cannot set a nil camera")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cam = cam
	if err := s.initCameraProviders(); err != nil {
		return err
	}

	// Existing batches cached the previous camera's provider in their draw
	// group lists; patch the camera slot in place.
	group := providerGroupIndex(s.forwardVert, shader.AnnotationArgCamera)
	for _, b := range s.batches {
		if group < len(b.drawGroups) {
			b.drawGroups[group] = cam.BindGroupProvider()
		}
	}
	return nil
}

func (s *scene) Renderer() renderer.Renderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, b := range s.batches {
		if b.field != nil {
			count += int(b.field.params.ParticleCount)
			continue
		}
		count += len(b.entries)
	}
	return count
}

func (s *scene) Add(obj game_object.GameObject) (uint64, error) {
	if obj == nil {
		return 0, errors.New("scene: cannot add a nil game object")
	}
	mdl := obj.Model()
	if mdl == nil {
		return 0, errors.New("scene: game object requires a model")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.ensureBatch(mdl, s.batchCapacity)
	if err != nil {
		return 0, err
	}
	if b.field != nil {
		return 0, fmt.Errorf("scene: model %q is owned by a particle field", mdl.Name())
	}
	if len(b.entries) >= b.capacity {
		return 0, fmt.Errorf("scene: batch %q is full (%d instances)", mdl.Name(), b.capacity)
	}

	id := s.nextID
	s.nextID++
	obj.SetID(id)
	b.entries = append(b.entries, obj)
	if !obj.Ephemeral() {
		s.registry[id] = objectRef{batch: b, index: len(b.entries) - 1}
	}
	if l := obj.Light(); l != nil {
		s.lights = append(s.lights, l)
		s.lightObjects = append(s.lightObjects, obj)
	}

	return id, nil
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.registry[id]
	if !ok {
		return nil
	}
	return ref.batch.entries[ref.index]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.registry[id]
	if !ok {
		return
	}
	b := ref.batch
	obj := b.entries[ref.index]

	// Swap-remove; the moved object's registry slot follows it.
	last := len(b.entries) - 1
	moved := b.entries[last]
	b.entries[ref.index] = moved
	b.entries = b.entries[:last]
	if moved.ID() != id {
		if movedRef, found := s.registry[moved.ID()]; found {
			movedRef.index = ref.index
			s.registry[moved.ID()] = movedRef
		}
	}
	delete(s.registry, id)

	if l := obj.Light(); l != nil {
		s.removeLightLocked(l)
		for i, lo := range s.lightObjects {
			if lo == obj {
				s.lightObjects = append(s.lightObjects[:i], s.lightObjects[i+1:]...)
				break
			}
		}
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.batches {
		if b.field != nil {
			continue
		}
		b.entries = b.entries[:0]
		b.drawCount = 0
	}
	s.registry = make(map[uint64]objectRef)

	for _, lo := range s.lightObjects {
		if l := lo.Light(); l != nil {
			s.removeLightLocked(l)
		}
	}
	s.lightObjects = s.lightObjects[:0]
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLightLocked(l)
}

// removeLightLocked removes l from the light list by identity. Caller must
// hold s.mu.
func (s *scene) removeLightLocked(l light.Light) {
	for i, existing := range s.lights {
		if existing == l {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			return
		}
	}
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]light.Light, len(s.lights))
	copy(out, s.lights)
	return out
}

func (s *scene) Effects() postprocess.Effects {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effects
}

func (s *scene) SetEffects(effects postprocess.Effects) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = effects
}

func (s *scene) CullingDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cullingDisabled
}

func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) AddParticleField(mdl model.Model, settings particle.FieldSettings, count int, seed uint32) error {
	if mdl == nil {
		return errors.New("scene: particle field requires a model")
	}
	if count <= 0 {
		return errors.New("scene: particle field requires a positive particle count")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.batches[mdl.Name()]; exists {
		return fmt.Errorf("scene: model %q already has a batch", mdl.Name())
	}
	b, err := s.ensureBatch(mdl, count)
	if err != nil {
		return err
	}
	b.drawCount = uint32(count)

	// The field owns the whole batch, so instance slots start at zero.
	params := settings.Params(0, uint32(count))
	inits := particle.SeedField(settings, count, seed)
	sim := particle.NewSimulation(settings, 0, inits)

	computeShader := newParticleShader()
	stateBinding, ok := computeShader.BindGroupFromVarName(0, "particles")
	if !ok {
		return errors.New("scene: particle shader is missing the particle state buffer")
	}
	objectsBinding, ok := computeShader.BindGroupFromVarName(0, "objects")
	if !ok {
		return errors.New("scene: particle shader is missing the objects buffer")
	}
	paramsBinding, ok := computeShader.BindGroupFromVarName(0, "params")
	if !ok {
		return errors.New("scene: particle shader is missing the params uniform")
	}

	computeBGP := bind_group_provider.NewBindGroupProvider("particles_" + mdl.Name())
	computeBGP.SetBuffer(objectsBinding, b.geomBGP.Buffer(0))

	stateStride := (&particle.GPUParticleState{}).Size()
	sizes := map[int]uint64{stateBinding: uint64(count * stateStride)}
	if err = s.r.InitBindGroup(computeBGP, computeShader.BindGroupLayoutDescriptor(0), nil, sizes); err != nil {
		return fmt.Errorf("scene: failed to init particle bind group for %q: %w", mdl.Name(), err)
	}

	// Upload the deterministic initial state once; from here the compute
	// pass is the sole writer. The CPU simulation mirror supplies the
	// initial instance transforms so the field renders before the first
	// dispatch lands.
	initialObjects := make([]model.GPUObjectData, count)
	sim.WriteObjects(initialObjects, 0)
	s.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: computeBGP, Binding: stateBinding, Data: particle.MarshalStateBuffer(sim.States())},
		{Provider: computeBGP, Binding: paramsBinding, Data: params.Marshal()},
		{Provider: b.geomBGP, Binding: 0, Data: model.MarshalObjectBuffer(initialObjects)},
	})

	b.field = &particleField{
		params:        params,
		computeBGP:    computeBGP,
		paramsBinding: paramsBinding,
	}

	return nil
}

// ensureBatch returns the model's render batch, creating it with the given
// capacity on first use. Caller must hold s.mu.
func (s *scene) ensureBatch(mdl model.Model, capacity int) (*renderBatch, error) {
	if b, ok := s.batches[mdl.Name()]; ok {
		return b, nil
	}

	mats := mdl.RenderMaterials()
	if len(mats) == 0 {
		mats = []material.Material{material.NewMaterial(material.WithName(mdl.Name() + "_default"))}
		mdl.SetRenderMaterials(mats)
	}

	b := &renderBatch{
		mdl:         mdl,
		capacity:    capacity,
		objects:     make([]model.GPUObjectData, 0, capacity),
		opaque:      mats[0].BlendMode() == material.BlendOpaque,
		pipelineKey: forwardPipelineKey(mdl.Name()),
	}

	if mdl.MeshProvider().VertexBuffer() == nil {
		if err := s.r.InitMeshBuffers(mdl.MeshProvider(), mdl.VertexData(), mdl.IndexData(), mdl.IndexCount()); err != nil {
			return nil, fmt.Errorf("scene: failed to init mesh buffers for %q: %w", mdl.Name(), err)
		}
	}

	objectStride := (&model.GPUObjectData{}).Size()
	materialStride := (&material.GPUMaterialData{}).Size()

	objectsGroup := providerGroupIndex(s.forwardVert, shader.AnnotationArgObjects)
	b.geomBGP = bind_group_provider.NewBindGroupProvider("objects_" + mdl.Name())
	geomSizes := map[int]uint64{0: uint64(capacity * objectStride)}
	if err := s.r.InitBindGroup(b.geomBGP, s.prepassVert.BindGroupLayoutDescriptor(objectsGroup), nil, geomSizes); err != nil {
		return nil, fmt.Errorf("scene: failed to init object bind group for %q: %w", mdl.Name(), err)
	}

	shadeDesc := mergedGroupDescriptor(objectsGroup, s.forwardVert, s.forwardFrag)
	b.shadeBGP = bind_group_provider.NewBindGroupProvider("shading_" + mdl.Name())
	b.shadeBGP.SetBuffer(0, b.geomBGP.Buffer(0))
	shadeSizes := map[int]uint64{1: uint64(len(mats) * materialStride)}
	if err := s.r.InitBindGroup(b.shadeBGP, shadeDesc, nil, shadeSizes); err != nil {
		return nil, fmt.Errorf("scene: failed to init shading bind group for %q: %w", mdl.Name(), err)
	}

	materialData := make([]material.GPUMaterialData, len(mats))
	for i, mat := range mats {
		materialData[i] = mat.Data()
	}
	s.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: b.shadeBGP, Binding: 1, Data: material.MarshalMaterialBuffer(materialData)},
	})

	// One texture bind group per batch: the lead material's. Distinct
	// texture sets require distinct models; material_index still selects
	// scalar MaterialData per instance within the batch.
	if err := s.initMaterialBindGroup(mats[0]); err != nil {
		return nil, err
	}
	for _, mat := range mats {
		mat.SetPipelineKey(b.pipelineKey)
	}

	if err := s.registerForwardPipeline(b, mats[0]); err != nil {
		return nil, err
	}

	b.drawGroups = s.resolveDrawGroups(b, mats[0])

	s.batches[mdl.Name()] = b
	s.batchOrder = append(s.batchOrder, mdl.Name())
	return b, nil
}

// materialChannelFlags maps the texture bindings of the per-material layout
// to the flag bit whose channel they feed, in binding order.
var materialChannelFlags = [5]material.MaterialFlag{
	material.FlagBaseColorTexture,
	material.FlagMetallicRoughnessTexture,
	material.FlagNormalTexture,
	material.FlagEmissiveTexture,
	material.FlagOcclusionTexture,
}

// initMaterialBindGroup builds the material's texture bind group under the
// active binding strategy. Channels without texture data get neutral 1x1
// fallbacks; the shader's flag-select never reads them, but the layout
// requires every binding populated.
func (s *scene) initMaterialBindGroup(mat material.Material) error {
	bgp := mat.BindGroupProvider()
	if bgp != nil && bgp.BindGroup() != nil {
		return nil
	}
	if bgp == nil {
		bgp = bind_group_provider.NewBindGroupProvider("material_" + mat.Name())
		mat.SetBindGroupProvider(bgp)
	}

	for binding, flag := range materialChannelFlags {
		if bgp.TextureView(binding) != nil || bgp.StagedTextures()[binding] != nil {
			continue
		}
		staged := mat.Texture(flag)
		if staged == nil {
			staged = fallbackChannelTexture(flag)
		}
		bgp.StageTexture(binding, staged)
	}

	if bgp.Sampler(5) == nil && bgp.StagedSamplers()[5] == nil {
		bgp.StageSampler(5, &common.SamplerStagingData{})
	}
	if bgp.Sampler(6) == nil && bgp.StagedSamplers()[6] == nil {
		bgp.StageSampler(6, &common.SamplerStagingData{
			MagFilter:    wgpu.FilterModeNearest,
			MinFilter:    wgpu.FilterModeNearest,
			MipmapFilter: wgpu.MipmapFilterModeNearest,
		})
	}

	if err := s.r.InitBindGroup(bgp, s.strategy.TextureBindGroupLayout(), nil, nil); err != nil {
		return fmt.Errorf("scene: failed to init material bind group for %q: %w", mat.Name(), err)
	}
	return nil
}

// fallbackChannelTexture returns the neutral 1x1 staging data for a texture
// channel: a flat normal for the normal map, opaque white elsewhere. Color
// channels upload as sRGB, data channels linear.
func fallbackChannelTexture(flag material.MaterialFlag) *common.TextureStagingData {
	switch flag {
	case material.FlagNormalTexture:
		return &common.TextureStagingData{
			Pixels: []byte{128, 128, 255, 255},
			Width:  1,
			Height: 1,
			Format: wgpu.TextureFormatRGBA8Unorm,
		}
	case material.FlagMetallicRoughnessTexture, material.FlagOcclusionTexture:
		return &common.TextureStagingData{
			Pixels: []byte{255, 255, 255, 255},
			Width:  1,
			Height: 1,
			Format: wgpu.TextureFormatRGBA8Unorm,
		}
	default:
		return &common.TextureStagingData{
			Pixels: []byte{255, 255, 255, 255},
			Width:  1,
			Height: 1,
			Format: wgpu.TextureFormatRGBA8UnormSrgb,
		}
	}
}

// registerForwardPipeline registers the model's forward render pipeline,
// deriving blend and depth-write state from the lead material's blend mode.
func (s *scene) registerForwardPipeline(b *renderBatch, lead material.Material) error {
	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(s.forwardVert),
		pipeline.WithFragmentShader(s.forwardFrag),
		pipeline.WithCullMode(wgpu.CullModeBack),
	}
	switch lead.BlendMode() {
	case material.BlendTransparent:
		opts = append(opts,
			pipeline.WithBlendEnabled(true),
			pipeline.WithDepthWriteEnabled(false),
		)
	case material.BlendOverlay:
		opts = append(opts,
			pipeline.WithBlendEnabled(true),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithBlendState(&wgpu.BlendState{
				Color: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorOne,
					Operation: wgpu.BlendOperationAdd,
				},
				Alpha: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorOne,
					Operation: wgpu.BlendOperationAdd,
				},
			}),
		)
	}

	p := pipeline.NewPipeline(b.pipelineKey, pipeline.PipelineTypeRender, opts...)
	if err := s.r.RegisterPipelines(p); err != nil {
		return fmt.Errorf("scene: failed to register forward pipeline for %q: %w", b.mdl.Name(), err)
	}
	return nil
}

// resolveDrawGroups assembles the forward pass bind group list from the
// fragment shader's provider declarations, in group-index order.
func (s *scene) resolveDrawGroups(b *renderBatch, lead material.Material) []bind_group_provider.BindGroupProvider {
	byGroup := make(map[int]bind_group_provider.BindGroupProvider)
	maxGroup := -1
	for _, decl := range s.forwardFrag.Declarations() {
		if decl.Type != shader.AnnotationTypeProvider || decl.Group == nil || len(decl.Args) == 0 {
			continue
		}
		g := *decl.Group
		if _, seen := byGroup[g]; seen {
			continue
		}
		switch decl.Args[0] {
		case shader.AnnotationArgCamera:
			byGroup[g] = s.cam.BindGroupProvider()
		case shader.AnnotationArgObjects:
			byGroup[g] = b.shadeBGP
		case shader.AnnotationArgLighting:
			byGroup[g] = s.lightingBGP
		case shader.AnnotationArgMaterial:
			byGroup[g] = lead.BindGroupProvider()
		default:
			continue
		}
		if g > maxGroup {
			maxGroup = g
		}
	}

	groups := make([]bind_group_provider.BindGroupProvider, maxGroup+1)
	for g, provider := range byGroup {
		groups[g] = provider
	}
	return groups
}

// providerGroupIndex returns the group index a shader's provider annotation
// assigns to the given identity, or 0 when the shader has no such
// declaration.
func providerGroupIndex(sh shader.Shader, identity shader.AnnotationArg) int {
	for _, decl := range sh.Declarations() {
		if decl.Type != shader.AnnotationTypeProvider || decl.Group == nil || len(decl.Args) == 0 {
			continue
		}
		if decl.Args[0] == identity {
			return *decl.Group
		}
	}
	return 0
}

// mergedGroupDescriptor merges one bind group's layout entries across
// multiple shader stages, ORing visibility on bindings declared by more than
// one stage. This mirrors the merge the renderer performs when building
// pipeline layouts, so bind groups initialized from the merged descriptor
// stay layout-compatible with the pipelines that bind them.
func mergedGroupDescriptor(group int, shaders ...shader.Shader) wgpu.BindGroupLayoutDescriptor {
	entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
	var label string
	for _, sh := range shaders {
		if sh == nil {
			continue
		}
		desc, ok := sh.BindGroupLayoutDescriptors()[group]
		if !ok {
			continue
		}
		if label == "" {
			label = desc.Label
		}
		for _, e := range desc.Entries {
			if existing, seen := entryMap[e.Binding]; seen {
				existing.Visibility |= e.Visibility
				entryMap[e.Binding] = existing
			} else {
				entryMap[e.Binding] = e
			}
		}
	}

	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
	for _, e := range entryMap {
		entries = append(entries, e)
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Binding > entries[j].Binding; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}

	return wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	}
}

func (s *scene) PrepareCompute(deltaTime float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cam.Update()
	globals := s.cam.Globals()

	// Attached lights follow their objects; sync before folding the light
	// list into the uniform.
	for _, lo := range s.lightObjects {
		if l := lo.Light(); l != nil {
			x, y, z := lo.Position()
			l.SetPosition(x, y, z)
		}
	}
	lightsUniform := light.BuildLightsUniform(s.lights)

	frustum := common.ExtractFrustumFromMatrix(globals.ViewProj[:])
	cullingDisabled := s.cullingDisabled

	// Parallel CPU prep: each batch rebuilds its compacted instance list on
	// the worker pool. The pool is shared across frames, so a WaitGroup
	// provides the per-frame barrier.
	var wg sync.WaitGroup
	taskID := 0
	for _, key := range s.batchOrder {
		b := s.batches[key]
		if b.field != nil {
			continue
		}
		wg.Add(1)
		bCap := b // capture for closure
		id := taskID
		taskID++
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				prepareBatch(bCap, deltaTime, &frustum, cullingDisabled)
				return nil, nil
			},
		})
	}
	wg.Wait()

	s.writePool = s.writePool[:0]
	s.writePool = append(s.writePool,
		bind_group_provider.BufferWrite{Provider: s.cam.BindGroupProvider(), Binding: 0, Data: globals.Marshal()},
		bind_group_provider.BufferWrite{Provider: s.lightingBGP, Binding: s.lightsBinding, Data: lightsUniform.Marshal()},
	)

	for _, key := range s.batchOrder {
		b := s.batches[key]
		if b.field != nil {
			b.field.params.Dt = deltaTime
			s.writePool = append(s.writePool, bind_group_provider.BufferWrite{
				Provider: b.field.computeBGP,
				Binding:  b.field.paramsBinding,
				Data:     b.field.params.Marshal(),
			})
			continue
		}
		if b.drawCount == 0 {
			continue
		}
		s.writePool = append(s.writePool, bind_group_provider.BufferWrite{
			Provider: b.geomBGP,
			Binding:  0,
			Data:     model.MarshalObjectBuffer(b.objects),
		})
	}

	postUniform := postprocess.NewPostUniform(
		s.cam.ProjectionMatrix(), s.cam.InverseProjectionMatrix(),
		float32(s.width), float32(s.height),
		s.cam.Near(), s.cam.Far(),
		s.effects,
	)
	s.writePool = append(s.writePool, bind_group_provider.BufferWrite{
		Provider: s.postUniformBGP,
		Binding:  0,
		Data:     postUniform.Marshal(),
	})

	s.r.WriteBuffers(s.writePool)

	for _, key := range s.batchOrder {
		b := s.batches[key]
		if b.field == nil {
			continue
		}
		s.r.DispatchCompute(particleUpdatePipelineKey, b.field.computeBGP,
			[3]uint32{b.field.params.WorkgroupCount(), 1, 1})
	}
}

// prepareBatch advances rotations and rebuilds the batch's compacted
// instance list, skipping disabled and out-of-frustum objects. Runs on the
// compute pool; each invocation owns its batch exclusively.
func prepareBatch(b *renderBatch, deltaTime float32, frustum *common.Frustum, cullingDisabled bool) {
	b.objects = b.objects[:0]
	radiusBase := b.mdl.BoundingRadius()

	for _, obj := range b.entries {
		if !obj.Enabled() {
			continue
		}
		pos, scale, rot, rotSpeed := obj.TransformData()
		if rotSpeed[0] != 0 || rotSpeed[1] != 0 || rotSpeed[2] != 0 {
			rot[0] += rotSpeed[0] * deltaTime
			rot[1] += rotSpeed[1] * deltaTime
			rot[2] += rotSpeed[2] * deltaTime
			obj.SetRotation(rot[0], rot[1], rot[2])
		}

		if !cullingDisabled {
			maxScale := scale[0]
			if scale[1] > maxScale {
				maxScale = scale[1]
			}
			if scale[2] > maxScale {
				maxScale = scale[2]
			}
			if !frustum.ContainsSphere(pos[0], pos[1], pos[2], radiusBase*maxScale) {
				continue
			}
		}

		var od model.GPUObjectData
		common.BuildModelMatrix(od.Model[:],
			pos[0], pos[1], pos[2],
			rot[0], rot[1], rot[2],
			scale[0], scale[1], scale[2])
		od.MaterialIndex = obj.MaterialIndex()
		b.objects = append(b.objects, od)
	}

	b.drawCount = uint32(len(b.objects))
}

func (s *scene) PrepareShadows() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cx, cy, cz := s.cam.Controller().Position()
	tx, ty, tz := s.cam.Controller().Target()
	shadows := light.BuildShadowsUniform(s.lights, [3]float32{cx, cy, cz}, [3]float32{tx, ty, tz})

	// Point cube layers exist only for the first pointShadowCasters
	// shadow-enabled slots. Entries past the budget drop to the unshadowed
	// sentinel so the shader's slot-order layer count matches the layers
	// actually rendered.
	budget := s.pointShadowCasters
	for i := range shadows.Points {
		if shadows.Points[i].Params[0] < 0.5 {
			continue
		}
		if budget == 0 {
			shadows.Points[i] = light.GPUPointShadowEntry{}
			continue
		}
		budget--
	}

	s.writePool = s.writePool[:0]
	s.writePool = append(s.writePool, bind_group_provider.BufferWrite{
		Provider: s.lightingBGP,
		Binding:  s.shadowsBinding,
		Data:     shadows.Marshal(),
	})

	type shadowPass struct {
		layer int
		view  *wgpu.TextureView
	}
	passes := make([]shadowPass, 0, len(s.shadowViewBGPs))

	appendLayer := func(layer int, viewProj [16]float32, target *wgpu.TextureView) {
		sv := light.GPUShadowView{ViewProj: viewProj}
		s.writePool = append(s.writePool, bind_group_provider.BufferWrite{
			Provider: s.shadowViewBGPs[layer],
			Binding:  0,
			Data:     sv.Marshal(),
		})
		passes = append(passes, shadowPass{layer: layer, view: target})
	}

	for i := range shadows.Directionals {
		if shadows.Directionals[i].Params[0] < 0.5 {
			continue
		}
		appendLayer(dirLayerOffset+i, shadows.Directionals[i].ViewProj, s.dirShadowViews[i])
	}
	for i := range shadows.Spots {
		if shadows.Spots[i].Params[0] < 0.5 {
			continue
		}
		appendLayer(spotLayerOffset+i, shadows.Spots[i].ViewProj, s.spotShadowViews[i])
	}
	cube := 0
	for i := range shadows.Points {
		if shadows.Points[i].Params[0] < 0.5 {
			continue
		}
		for face := 0; face < light.PointShadowFaceCount; face++ {
			layerInCube := cube*light.PointShadowFaceCount + face
			appendLayer(pointLayerOffset+layerInCube, shadows.Points[i].FaceViewProj[face], s.pointShadowViews[layerInCube])
		}
		cube++
	}

	// All layer uniforms are queued before the shadow frame submits, so
	// every pass sees its own view-projection.
	s.r.WriteBuffers(s.writePool)

	if err := s.r.BeginShadowFrame(); err != nil {
		return err
	}
	for _, p := range passes {
		s.r.BeginShadowPass(p.view)
		for _, key := range s.batchOrder {
			b := s.batches[key]
			if b.drawCount == 0 || !b.opaque || !b.mdl.CastsShadows() {
				continue
			}
			s.groupsPool = s.groupsPool[:0]
			s.groupsPool = append(s.groupsPool, s.shadowViewBGPs[p.layer], b.geomBGP)
			if err := s.r.ShadowDrawCall(shadowDepthPipelineKey, b.mdl.MeshProvider(), b.drawCount, s.groupsPool); err != nil {
				s.r.EndShadowPass()
				s.r.EndShadowFrame()
				return fmt.Errorf("scene: shadow draw for %q failed: %w", b.mdl.Name(), err)
			}
		}
		s.r.EndShadowPass()
	}
	s.r.EndShadowFrame()

	return nil
}

func (s *scene) DepthPrepassDraws() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.batchOrder {
		b := s.batches[key]
		if b.drawCount == 0 || !b.opaque {
			continue
		}
		s.groupsPool = s.groupsPool[:0]
		s.groupsPool = append(s.groupsPool, s.cameraGeomBGP, b.geomBGP)
		if err := s.r.DrawCall(depthPrepassPipelineKey, b.mdl.MeshProvider(), b.drawCount, s.groupsPool); err != nil {
			return fmt.Errorf("scene: prepass draw for %q failed: %w", b.mdl.Name(), err)
		}
	}
	return nil
}

func (s *scene) DrawCalls() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Opaques first; transparents after so they blend against the resolved
	// opaque color.
	for _, transparent := range []bool{false, true} {
		for _, key := range s.batchOrder {
			b := s.batches[key]
			if b.drawCount == 0 || b.opaque == transparent {
				continue
			}
			if err := s.r.DrawCall(b.pipelineKey, b.mdl.MeshProvider(), b.drawCount, b.drawGroups); err != nil {
				return fmt.Errorf("scene: forward draw for %q failed: %w", b.mdl.Name(), err)
			}
		}
	}
	return nil
}

func (s *scene) PostProcessDraws() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spec := range s.postChain {
		s.r.BeginPostPass(spec)

		source := s.sourceBGPs[spec.Name]
		composite, ok := s.compositeBGPs[spec.Writes]
		if !ok {
			composite = s.compositeBGPs[postprocess.TargetSurface]
		}

		s.groupsPool = s.groupsPool[:0]
		s.groupsPool = append(s.groupsPool, s.postUniformBGP, s.depthNoiseBGP, source, composite)
		if err := s.r.PostDraw(postPipelineKey(spec), s.groupsPool); err != nil {
			s.r.EndPostPass()
			return fmt.Errorf("scene: post pass %q failed: %w", spec.Name, err)
		}
		s.r.EndPostPass()
	}
	return nil
}

func (s *scene) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.width = width
	s.height = height

	// The renderer recreated the frame targets; rebind every group holding
	// their views. Buffers and samplers carry over.
	s.depthNoiseBGP.SetTextureView(0, s.r.SceneDepthView())
	if err := s.r.InitBindGroup(s.depthNoiseBGP, s.depthNoiseDesc, nil, nil); err != nil {
		return fmt.Errorf("scene: failed to rebind post depth bind group: %w", err)
	}

	if err := s.initSourceVariants(nil); err != nil {
		return err
	}

	return s.initCompositeVariants(nil)
}
