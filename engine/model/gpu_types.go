package model

import (
	"unsafe"
)

// VertexSource is the WGSL vertex input matching Vertex and pipeline.WithMeshVertexLayout.
const VertexSource = `struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
};
`

// Vertex is the interleaved static mesh vertex.
// Size: 32 bytes.
type Vertex struct {
	Position [3]float32 // offset  0: model space position (12 bytes)
	Normal   [3]float32 // offset 12: unit normal (12 bytes)
	TexCoord [2]float32 // offset 24: UV (8 bytes)
}

// Size returns the size of the Vertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *Vertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// DrawIndexedIndirectArgs is the argument block read by an indexed indirect draw.
// Size: 20 bytes, matching the WebGPU layout.
type DrawIndexedIndirectArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// DrawIndirectArgs is the argument block read by a non-indexed indirect draw.
// Size: 16 bytes.
type DrawIndirectArgs struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}
