// Package model holds mesh data and the persistent GPU buffers created from it.
package model

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	mu *sync.Mutex

	name           string
	vertices       []Vertex
	indices        []uint32
	boundingRadius float32

	// indirectInstances > 0 makes Upload create an indirect argument buffer.
	indirectInstances uint32

	vertexBuffer   command.BufferHandle
	indexBuffer    command.BufferHandle
	indirectBuffer command.BufferHandle
}

// Mesh defines the interface for a static triangle mesh. The CPU data is kept so the mesh can be
// re-uploaded, cloned or inspected; the GPU buffers exist after Upload.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Vertices returns the vertex data.
	Vertices() []Vertex

	// Indices returns the 32-bit index data, empty for non-indexed meshes.
	Indices() []uint32

	// BoundingRadius returns the maximum vertex distance from the origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Upload creates the persistent vertex, index and (optional) indirect buffers. Calling it
	// again after a successful upload is a no-op.
	//
	// Parameters:
	//   - r: the renderer whose device owns the buffers
	//
	// Returns:
	//   - error: an error if a buffer could not be created
	Upload(r renderer.Renderer) error

	// Uploaded reports whether Upload succeeded.
	Uploaded() bool

	// Geometry describes the uploaded buffers for draw recording.
	//
	// Returns:
	//   - command.Geometry: the geometry, zero before Upload
	Geometry() command.Geometry

	// Indirect returns the indirect argument buffer, InvalidHandle when the mesh draws directly.
	Indirect() command.BufferHandle

	// SetIndirectInstanceCount rewrites the instance count of the indirect argument buffer.
	// It has no effect on meshes uploaded without WithIndirectDraw.
	//
	// Parameters:
	//   - r: the renderer whose device owns the buffer
	//   - n: the new instance count
	SetIndirectInstanceCount(r renderer.Renderer, n uint32)

	// Release destroys the GPU buffers. The CPU data is kept.
	//
	// Parameters:
	//   - r: the renderer whose device owns the buffers
	Release(r renderer.Renderer)
}

var _ Mesh = &mesh{}

// NewMesh creates a Mesh from the given options.
//
// Parameters:
//   - name: the mesh name, used for buffer labels
//   - options: variadic list of MeshBuilderOption functions to configure the mesh
//
// Returns:
//   - Mesh: the new mesh
func NewMesh(name string, options ...MeshBuilderOption) Mesh {
	m := &mesh{
		mu:   &sync.Mutex{},
		name: name,
	}
	for _, opt := range options {
		opt(m)
	}
	m.boundingRadius = boundingRadius(m.vertices)
	return m
}

func boundingRadius(vertices []Vertex) float32 {
	var r2 float32
	for _, v := range vertices {
		p := v.Position
		r2 = max(r2, p[0]*p[0]+p[1]*p[1]+p[2]*p[2])
	}
	return float32(math.Sqrt(float64(r2)))
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Vertices() []Vertex {
	return m.vertices
}

func (m *mesh) Indices() []uint32 {
	return m.indices
}

func (m *mesh) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *mesh) Upload(r renderer.Renderer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vertexBuffer != command.InvalidHandle {
		return nil
	}
	if len(m.vertices) == 0 {
		return errors.New("mesh " + m.name + " has no vertices")
	}

	vb, err := r.CreateBuffer(renderer.BufferDescriptor{
		Label: m.name + " Vertices",
		Usage: renderer.BufferUsageVertex,
		Data:  common.SliceToBytes(m.vertices),
	})
	if err != nil {
		return fmt.Errorf("mesh %s vertex buffer: %w", m.name, err)
	}

	var ib command.BufferHandle
	if len(m.indices) > 0 {
		ib, err = r.CreateBuffer(renderer.BufferDescriptor{
			Label: m.name + " Indices",
			Usage: renderer.BufferUsageIndex,
			Data:  common.SliceToBytes(m.indices),
		})
		if err != nil {
			r.DestroyBuffer(vb)
			return fmt.Errorf("mesh %s index buffer: %w", m.name, err)
		}
	}

	var indirect command.BufferHandle
	if m.indirectInstances > 0 {
		indirect, err = r.CreateBuffer(renderer.BufferDescriptor{
			Label: m.name + " Indirect",
			Usage: renderer.BufferUsageIndirect | renderer.BufferUsageStorage,
			Data:  m.indirectArgs(m.indirectInstances),
		})
		if err != nil {
			r.DestroyBuffer(vb)
			if ib != command.InvalidHandle {
				r.DestroyBuffer(ib)
			}
			return fmt.Errorf("mesh %s indirect buffer: %w", m.name, err)
		}
	}

	m.vertexBuffer, m.indexBuffer, m.indirectBuffer = vb, ib, indirect
	common.Logger().Debug("[Model] mesh uploaded", "mesh", m.name, "vertices", len(m.vertices), "indices", len(m.indices))
	return nil
}

func (m *mesh) indirectArgs(instances uint32) []byte {
	if len(m.indices) > 0 {
		return common.StructToBytes(&DrawIndexedIndirectArgs{IndexCount: uint32(len(m.indices)), InstanceCount: instances})
	}
	return common.StructToBytes(&DrawIndirectArgs{VertexCount: uint32(len(m.vertices)), InstanceCount: instances})
}

func (m *mesh) Uploaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vertexBuffer != command.InvalidHandle
}

func (m *mesh) Geometry() command.Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vertexBuffer == command.InvalidHandle {
		return command.Geometry{}
	}
	g := command.Geometry{
		VertexBuffer: m.vertexBuffer,
		VertexCount:  uint32(len(m.vertices)),
	}
	if m.indexBuffer != command.InvalidHandle {
		g.IndexBuffer = m.indexBuffer
		g.IndexFormat = command.IndexFormatUint32
		g.IndexCount = uint32(len(m.indices))
	}
	return g
}

func (m *mesh) Indirect() command.BufferHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indirectBuffer
}

func (m *mesh) SetIndirectInstanceCount(r renderer.Renderer, n uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indirectBuffer == command.InvalidHandle {
		return
	}
	r.WriteBuffer(m.indirectBuffer, 0, m.indirectArgs(n))
}

func (m *mesh) Release(r renderer.Renderer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range []command.BufferHandle{m.vertexBuffer, m.indexBuffer, m.indirectBuffer} {
		if h != command.InvalidHandle {
			r.DestroyBuffer(h)
		}
	}
	m.vertexBuffer, m.indexBuffer, m.indirectBuffer = command.InvalidHandle, command.InvalidHandle, command.InvalidHandle
}
