package loader

import (
	"io"

	"github.com/prism-engine/prism/engine/model"
	"github.com/prism-engine/prism/engine/renderer/material"
)

// importedMesh is the CPU-side result of extracting one primitive from a model
// file: vertices already in the GPU vertex layout, triangle indices, and the
// index of the material the primitive draws with.
type importedMesh struct {
	// Name identifies the primitive, derived from the source mesh name.
	Name string

	// Vertices hold position, normal, UV, and tangent data in the pipeline vertex layout.
	Vertices []model.GPUVertex

	// Indices is the triangle index buffer.
	Indices []uint32

	// MaterialIndex is the index into the imported material list.
	MaterialIndex int

	// BoundingMin and BoundingMax are the axis-aligned bounds of the primitive.
	BoundingMin [3]float32
	BoundingMax [3]float32
}

// importedModel is the CPU-side result of a full model file import, before the
// meshes are combined into a single vertex/index buffer pair.
type importedModel struct {
	// Name identifies the model, derived from the scene name or file path.
	Name string

	// Meshes holds one entry per primitive across all meshes in the file.
	Meshes []importedMesh

	// Materials holds the render-ready materials, with texture channels staged
	// as decoded RGBA pixel data.
	Materials []material.Material
}

// loaderBackend defines the generic interface for loading models from files or streams.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a model import from the given file path, extracting meshes
	// and materials.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *importedModel: the imported model data
	//   - error: error if loading fails
	Load(path string) (*importedModel, error)

	// LoadReader imports a model from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *importedModel: the imported model data
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*importedModel, error)
}
