package scene

import (
	"errors"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
	"github.com/go-gl/mathgl/mgl32"
)

var primitiveIDs atomic.Uint64

// Part pairs a mesh with the material it is drawn with.
type Part struct {
	Mesh     model.Mesh
	Material material.Material
}

// meshRenderable is the implementation of the MeshRenderable interface.
type meshRenderable struct {
	node      Node
	parts     []Part
	ids       []uint64
	kind      renderqueue.RenderableType
	instances uint32

	primitives []renderqueue.Primitive
}

// MeshRenderable draws one or more mesh parts at its node's world transform.
type MeshRenderable interface {
	Component
	renderqueue.Renderable

	// Node returns the owning node, nil when unattached.
	Node() Node

	// Parts returns the mesh/material pairs.
	Parts() []Part

	// SetRenderableType moves the renderable into another render queue bucket.
	SetRenderableType(t renderqueue.RenderableType)

	// Upload creates the GPU buffers of every part that has not been uploaded yet.
	//
	// Parameters:
	//   - r: the renderer whose device owns the buffers
	//
	// Returns:
	//   - error: the joined upload errors
	Upload(r renderer.Renderer) error
}

var _ MeshRenderable = &meshRenderable{}

// NewMeshRenderable creates a renderable with a single part in the opaque bucket.
//
// Parameters:
//   - mesh: the mesh to draw
//   - mat: the material to draw it with
//   - options: variadic list of MeshRenderableBuilderOption functions
//
// Returns:
//   - MeshRenderable: the unattached component
func NewMeshRenderable(mesh model.Mesh, mat material.Material, options ...MeshRenderableBuilderOption) MeshRenderable {
	m := &meshRenderable{kind: renderqueue.RenderableTypeOpaque}
	if mesh != nil {
		m.addPart(Part{Mesh: mesh, Material: mat})
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *meshRenderable) addPart(p Part) {
	m.parts = append(m.parts, p)
	m.ids = append(m.ids, primitiveIDs.Add(1))
}

func (m *meshRenderable) Update(float64) {}

func (m *meshRenderable) Attach(n Node) { m.node = n }
func (m *meshRenderable) Node() Node    { return m.node }
func (m *meshRenderable) Parts() []Part { return m.parts }

func (m *meshRenderable) RenderableType() renderqueue.RenderableType { return m.kind }

func (m *meshRenderable) SetRenderableType(t renderqueue.RenderableType) { m.kind = t }

func (m *meshRenderable) WorldTransform() mgl32.Mat4 {
	if m.node == nil {
		return mgl32.Ident4()
	}
	return m.node.WorldTransform()
}

// Primitives rebuilds the primitive list in place. The returned slice is only valid until the
// next call.
func (m *meshRenderable) Primitives() []renderqueue.Primitive {
	m.primitives = m.primitives[:0]
	for i, p := range m.parts {
		prim := renderqueue.Primitive{
			ID:            m.ids[i],
			Geometry:      p.Mesh.Geometry(),
			InstanceCount: m.instances,
			Indirect:      p.Mesh.Indirect(),
		}
		if p.Material != nil {
			prim.Material = p.Material
		}
		m.primitives = append(m.primitives, prim)
	}
	return m.primitives
}

func (m *meshRenderable) Upload(r renderer.Renderer) error {
	var errs []error
	for _, p := range m.parts {
		if p.Mesh.Uploaded() {
			continue
		}
		errs = append(errs, p.Mesh.Upload(r))
	}
	return errors.Join(errs...)
}

func (m *meshRenderable) Clone() Component {
	c := &meshRenderable{
		kind:      m.kind,
		instances: m.instances,
		parts:     append([]Part(nil), m.parts...),
		ids:       make([]uint64, len(m.parts)),
	}
	for i := range c.ids {
		c.ids[i] = primitiveIDs.Add(1)
	}
	return c
}
