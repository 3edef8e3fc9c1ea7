package model

// MeshBuilderOption is a functional option for configuring a Mesh during construction.
type MeshBuilderOption func(*mesh)

// WithVertices sets the vertex data.
//
// Parameters:
//   - vertices: the interleaved vertices
//
// Returns:
//   - MeshBuilderOption: functional option to set the vertices
func WithVertices(vertices []Vertex) MeshBuilderOption {
	return func(m *mesh) {
		m.vertices = vertices
	}
}

// WithIndices sets 32-bit triangle list indices.
//
// Parameters:
//   - indices: the indices into the vertex slice
//
// Returns:
//   - MeshBuilderOption: functional option to set the indices
func WithIndices(indices []uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.indices = indices
	}
}

// WithIndirectDraw makes the mesh draw through an indirect argument buffer holding the given
// instance count. The count can later be rewritten on the GPU or with SetIndirectInstanceCount.
//
// Parameters:
//   - instances: the initial instance count, at least 1
//
// Returns:
//   - MeshBuilderOption: functional option to enable indirect drawing
func WithIndirectDraw(instances uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.indirectInstances = max(instances, 1)
	}
}
