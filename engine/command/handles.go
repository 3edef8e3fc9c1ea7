package command

import "github.com/Carmen-Shannon/oxy-rt/common"

// Handle types reference device resources inside recorded commands. A handle is an opaque
// index owned by the Device that created it; the zero value is never a valid resource.
type (
	BufferHandle        uint32
	TextureHandle       uint32
	ProgramHandle       uint32
	ShaderModuleHandle  uint32
	PipelineHandle      uint32
	SwapchainHandle     uint32
	RenderTargetHandle  uint32
	DescriptorSetHandle uint32
)

// InvalidHandle is the zero handle returned alongside factory errors.
const InvalidHandle = 0

// Reserved buffer handles that resolve to the current frame's transient arenas.
const (
	TransientConstantBuffer BufferHandle = ^BufferHandle(0) - iota
	TransientVertexBuffer
	TransientIndexBuffer
)

// IsTransient reports whether the handle names one of the transient arenas.
func (h BufferHandle) IsTransient() bool {
	return h >= TransientIndexBuffer
}

// DefaultRenderTarget selects the swapchain made current by MakeCurrent.
const DefaultRenderTarget RenderTargetHandle = 0

// IndexFormat is the element type of an index buffer.
type IndexFormat uint8

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Stride returns the byte size of one index.
func (f IndexFormat) Stride() int {
	if f == IndexFormatUint16 {
		return 2
	}
	return 4
}

// ClearFlags selects which attachments BeginRendering clears.
type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil

	ClearAll = ClearColor | ClearDepth | ClearStencil
)

// Viewport is a pixel rectangle of the render target.
type Viewport struct {
	X, Y          int32
	Width, Height uint32
}

// RenderPassInfo describes how a rendering pass begins.
type RenderPassInfo struct {
	Clear      ClearFlags
	ClearColor common.Color
	ClearDepth float32
	Viewport   Viewport
}

// Geometry names the buffers and counts needed to draw one primitive.
type Geometry struct {
	VertexBuffer BufferHandle
	VertexOffset uint64
	VertexCount  uint32

	IndexBuffer BufferHandle
	IndexOffset uint64
	IndexFormat IndexFormat
	IndexCount  uint32
}

// Indexed reports whether the geometry is drawn with an index buffer.
func (g Geometry) Indexed() bool {
	return g.IndexBuffer != InvalidHandle && g.IndexCount > 0
}

// UniformSlot indexes the fixed uniform set bound for every batched draw.
type UniformSlot int

const (
	UniformSlotView UniformSlot = iota
	UniformSlotObject
	UniformSlotMaterial
	UniformSlotPrimitive

	UniformSlotCount
)

// UniformRange is a region of a uniform buffer, usually the transient constant arena.
type UniformRange struct {
	Buffer BufferHandle
	Offset uint32
	Size   uint32
}

// Valid reports whether the range refers to any data.
func (u UniformRange) Valid() bool {
	return u.Buffer != InvalidHandle && u.Size > 0
}

// UniformSet is the {perView, perObject, material, primitive} uniform binding of one draw.
type UniformSet [UniformSlotCount]UniformRange

// DrawRecord is one batched draw appended to a HwRenderQueue.
type DrawRecord struct {
	// Primitive identifies the drawn primitive for diagnostics.
	Primitive uint64

	Pipeline       PipelineHandle
	Geometry       Geometry
	InstanceCount  uint32
	InstanceOffset uint32
	Uniforms       UniformSet

	// Textures is the material's descriptor set, InvalidHandle when the material is untextured.
	Textures DescriptorSetHandle
}
