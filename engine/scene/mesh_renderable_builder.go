package scene

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
)

// MeshRenderableBuilderOption is a functional option applied during NewMeshRenderable.
type MeshRenderableBuilderOption func(*meshRenderable)

// WithRenderableType selects the render queue bucket.
//
// Parameters:
//   - t: the bucket, e.g. renderqueue.RenderableTypeTransparent
//
// Returns:
//   - MeshRenderableBuilderOption: option function to apply
func WithRenderableType(t renderqueue.RenderableType) MeshRenderableBuilderOption {
	return func(m *meshRenderable) {
		m.kind = t
	}
}

// WithPart adds another mesh/material pair.
func WithPart(mesh model.Mesh, mat material.Material) MeshRenderableBuilderOption {
	return func(m *meshRenderable) {
		if mesh != nil {
			m.addPart(Part{Mesh: mesh, Material: mat})
		}
	}
}

// WithInstances sets the instance count of every part. Zero draws one instance.
func WithInstances(n uint32) MeshRenderableBuilderOption {
	return func(m *meshRenderable) {
		m.instances = n
	}
}
