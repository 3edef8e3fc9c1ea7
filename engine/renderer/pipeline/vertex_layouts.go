package pipeline

import "github.com/cogentcore/webgpu/wgpu"

// MeshVertexStride is the size of one interleaved mesh vertex: position, normal and uv.
const MeshVertexStride = 32

// WithMeshVertexLayout appends the interleaved mesh vertex layout:
// location 0 position vec3, location 1 normal vec3, location 2 uv vec2.
func WithMeshVertexLayout() PipelineBuilderOption {
	return WithVertexLayout(MeshVertexStride,
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
	)
}

// ColorVertexStride is the size of one immediate-mode vertex: position and color.
const ColorVertexStride = 28

// WithColorVertexLayout appends the immediate-mode vertex layout used by user primitives:
// location 0 position vec3, location 1 color vec4.
func WithColorVertexLayout() PipelineBuilderOption {
	return WithVertexLayout(ColorVertexStride,
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
	)
}
