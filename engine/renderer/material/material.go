package material

import (
	"github.com/google/uuid"

	"github.com/prism-engine/prism/common"
	"github.com/prism-engine/prism/engine/renderer/bind_group_provider"
)

// material is the implementation of the Material interface.
type material struct {
	id                uuid.UUID
	name              string
	data              GPUMaterialData
	textures          map[MaterialFlag]*common.TextureStagingData
	pipelineKey       string
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material defines the interface for a render material, encapsulating the
// GPU-facing MaterialData entry, staged texture data for its optional
// channels, and the GPU resource bindings needed for draw calls.
//
// Surface properties are set at construction time through builder options.
// GPU resource references (pipeline key, bind group provider) are mutable so
// they can be configured after construction during scene GPU initialization.
type Material interface {
	// ID retrieves the unique identifier for this material instance.
	//
	// Returns:
	//   - uuid.UUID: the material's unique ID
	ID() uuid.UUID

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Data retrieves the GPU-facing material entry for this material.
	// Texture index fields are assigned by the active binding strategy during
	// scene GPU initialization.
	//
	// Returns:
	//   - GPUMaterialData: the material's storage array entry
	Data() GPUMaterialData

	// SetData replaces the GPU-facing material entry.
	//
	// Parameters:
	//   - data: the new material entry
	SetData(data GPUMaterialData)

	// BlendMode retrieves the draw batch this material renders in.
	//
	// Returns:
	//   - BlendMode: the blend mode
	BlendMode() BlendMode

	// Texture retrieves the staged texture data for an optional channel, or
	// nil if the channel has no texture. The flag must be one of the five
	// texture channel flags.
	//
	// Parameters:
	//   - channel: the texture channel flag
	//
	// Returns:
	//   - *common.TextureStagingData: the staged texture, or nil
	Texture(channel MaterialFlag) *common.TextureStagingData

	// PipelineKey retrieves the key identifying the render pipeline this material uses.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// BindGroupProvider retrieves the bind group provider holding GPU-side resources for this material.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider, or nil if not yet initialized
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetPipelineKey sets the render pipeline key for this material.
	//
	// Parameters:
	//   - key: the pipeline key to associate with this material
	SetPipelineKey(key string)

	// SetBindGroupProvider sets the bind group provider for this material.
	//
	// Parameters:
	//   - provider: the bind group provider containing GPU resources for this material
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// The default material is opaque white with full roughness, no metalness, and
// no texture channels enabled.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		id: uuid.New(),
		data: GPUMaterialData{
			BaseColor: [4]float32{1, 1, 1, 1},
			Emissive:  [4]float32{0, 0, 0, 1},
			Factors:   [4]float32{0, 1, 1, 1},
		},
		textures: make(map[MaterialFlag]*common.TextureStagingData),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uuid.UUID {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Data() GPUMaterialData {
	return m.data
}

func (m *material) SetData(data GPUMaterialData) {
	m.data = data
}

func (m *material) BlendMode() BlendMode {
	return BlendMode(m.data.BlendModeValue)
}

func (m *material) Texture(channel MaterialFlag) *common.TextureStagingData {
	return m.textures[channel]
}

func (m *material) PipelineKey() string {
	return m.pipelineKey
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) SetPipelineKey(key string) {
	m.pipelineKey = key
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.bindGroupProvider = provider
}
