// Package command holds the typed command set recorded by the renderer, the circular buffers
// commands are written into, and the queue that hands committed ranges to the render thread.
//
// Commands are plain value structs identified by a CommandType. Each command reports the
// number of bytes it occupies in a CircularBuffer through Size, which is what bounds how much
// work the producer may record ahead of the consumer.
package command

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// CommandType identifies the operation a recorded command performs.
type CommandType uint8

const (
	// Frame commands
	CommandTypeBeginFrame   CommandType = iota // Start of a recorded frame
	CommandTypePrepareFrame                    // Device-side per-frame preparation
	CommandTypeUpload                          // Upload transient arena contents
	CommandTypeSubmitFrame                     // Submit recorded GPU work
	CommandTypeEndFrame                        // End of a recorded frame
	CommandTypeMakeCurrent                     // Acquire the swapchain image
	CommandTypeCommit                          // Present the swapchain image
	CommandTypeResize                          // Reconfigure a swapchain

	// Pass commands
	CommandTypeBeginRendering // Begin a render pass
	CommandTypeEndRendering   // End the current render pass

	// State commands
	CommandTypeBindPipelineState // Bind a pipeline
	CommandTypeBindUniforms      // Bind a uniform range to a slot
	CommandTypeBindVertexBuffer  // Bind a vertex buffer
	CommandTypeBindIndexBuffer   // Bind an index buffer
	CommandTypeBindDescriptorSet // Bind a texture descriptor set

	// Work commands
	CommandTypeDraw         // Non-indexed draw
	CommandTypeDrawIndexed  // Indexed draw
	CommandTypeDrawIndirect // Draw with GPU-supplied arguments
	CommandTypeDispatch     // Compute dispatch
	CommandTypeDrawBatch    // Batched draws from a HwRenderQueue

	// Debug commands
	CommandTypeMarker // Tagged no-op
)

var commandTypeNames = [...]string{
	CommandTypeBeginFrame:        "BeginFrame",
	CommandTypePrepareFrame:      "PrepareFrame",
	CommandTypeUpload:            "Upload",
	CommandTypeSubmitFrame:       "SubmitFrame",
	CommandTypeEndFrame:          "EndFrame",
	CommandTypeMakeCurrent:       "MakeCurrent",
	CommandTypeCommit:            "Commit",
	CommandTypeResize:            "Resize",
	CommandTypeBeginRendering:    "BeginRendering",
	CommandTypeEndRendering:      "EndRendering",
	CommandTypeBindPipelineState: "BindPipelineState",
	CommandTypeBindUniforms:      "BindUniforms",
	CommandTypeBindVertexBuffer:  "BindVertexBuffer",
	CommandTypeBindIndexBuffer:   "BindIndexBuffer",
	CommandTypeBindDescriptorSet: "BindDescriptorSet",
	CommandTypeDraw:              "Draw",
	CommandTypeDrawIndexed:       "DrawIndexed",
	CommandTypeDrawIndirect:      "DrawIndirect",
	CommandTypeDispatch:          "Dispatch",
	CommandTypeDrawBatch:         "DrawBatch",
	CommandTypeMarker:            "Marker",
}

// String returns the name of the command type.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is implemented by every recorded command.
type Command interface {
	// Type returns the operation this command performs.
	Type() CommandType

	// Size returns the number of circular buffer bytes the command occupies: a fixed header
	// plus the 8-byte aligned argument struct.
	Size() int
}

// HeaderSize is the per-command overhead charged against a CircularBuffer.
const HeaderSize = 8

func encodedSize[T any](c *T) int {
	return HeaderSize + common.AlignUp(int(unsafe.Sizeof(*c)), 8)
}

// CmdBeginFrame opens frame Frame on the device.
type CmdBeginFrame struct {
	Frame uint64
}

// CmdPrepareFrame lets the device prepare per-frame state for the frame slot.
type CmdPrepareFrame struct {
	Frame uint64
	Slot  int
}

// ArenaKind names one of the three transient arenas.
type ArenaKind uint8

const (
	ArenaConstant ArenaKind = iota
	ArenaVertex
	ArenaIndex
)

var arenaKindNames = [...]string{
	ArenaConstant: "constant",
	ArenaVertex:   "vertex",
	ArenaIndex:    "index",
}

// String returns the arena name.
func (k ArenaKind) String() string {
	if int(k) < len(arenaKindNames) {
		return arenaKindNames[k]
	}
	return "unknown"
}

// Buffer returns the reserved handle resolving to this arena.
func (k ArenaKind) Buffer() BufferHandle {
	switch k {
	case ArenaVertex:
		return TransientVertexBuffer
	case ArenaIndex:
		return TransientIndexBuffer
	default:
		return TransientConstantBuffer
	}
}

// CmdUpload copies the used portion of a transient arena into its GPU-side buffer.
// Data aliases the arena of frame slot Slot and stays untouched until that slot is reopened.
type CmdUpload struct {
	Arena ArenaKind
	Slot  int
	Data  []byte
}

// CmdSubmitFrame submits the GPU work recorded for the frame.
type CmdSubmitFrame struct {
	Frame uint64
}

// CmdEndFrame closes frame Frame. Executing it marks the frame complete for back-pressure.
type CmdEndFrame struct {
	Frame uint64
}

// CmdMakeCurrent acquires the next image of a swapchain as the default render target.
type CmdMakeCurrent struct {
	Swapchain SwapchainHandle
}

// CmdCommit presents the current image of a swapchain.
type CmdCommit struct {
	Swapchain SwapchainHandle
}

// CmdResize reconfigures a swapchain and its depth and multisample attachments for a new surface
// size. It must not be recorded between a MakeCurrent and the Commit of the same swapchain.
type CmdResize struct {
	Swapchain SwapchainHandle
	Width     int32
	Height    int32
}

// CmdBeginRendering begins a render pass on Target.
type CmdBeginRendering struct {
	Target RenderTargetHandle
	Info   RenderPassInfo
}

// CmdEndRendering ends the current render pass.
type CmdEndRendering struct{}

// CmdBindPipelineState binds a pipeline for subsequent draws.
type CmdBindPipelineState struct {
	Pipeline PipelineHandle
}

// CmdBindUniforms binds a uniform range to a slot.
type CmdBindUniforms struct {
	Slot  UniformSlot
	Range UniformRange
}

// CmdBindVertexBuffer binds Length bytes of a vertex buffer starting at Offset. A zero Length
// binds the rest of the buffer.
type CmdBindVertexBuffer struct {
	Buffer BufferHandle
	Offset uint64
	Length uint64
}

// CmdBindIndexBuffer binds an index buffer.
type CmdBindIndexBuffer struct {
	Buffer BufferHandle
	Offset uint64
	Length uint64
	Format IndexFormat
}

// CmdBindDescriptorSet binds the textures of a descriptor set. InvalidHandle unbinds.
type CmdBindDescriptorSet struct {
	Set DescriptorSetHandle
}

// CmdDraw draws non-indexed vertices with the bound state.
type CmdDraw struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32
	FirstInstance uint32
}

// CmdDrawIndexed draws indexed vertices with the bound state.
type CmdDrawIndexed struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// CmdDrawIndirect draws Geometry with arguments read from Indirect at Offset.
type CmdDrawIndirect struct {
	Geometry Geometry
	Indirect BufferHandle
	Offset   uint64
}

// CmdDispatch runs the bound compute pipeline.
type CmdDispatch struct {
	Pipeline PipelineHandle
	Groups   [3]uint32
}

// CmdDrawBatch executes every record of a HwRenderQueue in order. Records aliases the queue's
// storage for the recording frame slot.
type CmdDrawBatch struct {
	Queue   int
	Records []DrawRecord
}

// CmdMarker is a tagged no-op, used for debug labels and ordering checks.
type CmdMarker struct {
	Seq   uint64
	Label string
}

func (CmdBeginFrame) Type() CommandType        { return CommandTypeBeginFrame }
func (CmdPrepareFrame) Type() CommandType      { return CommandTypePrepareFrame }
func (CmdUpload) Type() CommandType            { return CommandTypeUpload }
func (CmdSubmitFrame) Type() CommandType       { return CommandTypeSubmitFrame }
func (CmdEndFrame) Type() CommandType          { return CommandTypeEndFrame }
func (CmdMakeCurrent) Type() CommandType       { return CommandTypeMakeCurrent }
func (CmdCommit) Type() CommandType            { return CommandTypeCommit }
func (CmdResize) Type() CommandType            { return CommandTypeResize }
func (CmdBeginRendering) Type() CommandType    { return CommandTypeBeginRendering }
func (CmdEndRendering) Type() CommandType      { return CommandTypeEndRendering }
func (CmdBindPipelineState) Type() CommandType { return CommandTypeBindPipelineState }
func (CmdBindUniforms) Type() CommandType      { return CommandTypeBindUniforms }
func (CmdBindVertexBuffer) Type() CommandType  { return CommandTypeBindVertexBuffer }
func (CmdBindIndexBuffer) Type() CommandType   { return CommandTypeBindIndexBuffer }
func (CmdBindDescriptorSet) Type() CommandType { return CommandTypeBindDescriptorSet }
func (CmdDraw) Type() CommandType              { return CommandTypeDraw }
func (CmdDrawIndexed) Type() CommandType       { return CommandTypeDrawIndexed }
func (CmdDrawIndirect) Type() CommandType      { return CommandTypeDrawIndirect }
func (CmdDispatch) Type() CommandType          { return CommandTypeDispatch }
func (CmdDrawBatch) Type() CommandType         { return CommandTypeDrawBatch }
func (CmdMarker) Type() CommandType            { return CommandTypeMarker }

func (c CmdBeginFrame) Size() int        { return encodedSize(&c) }
func (c CmdPrepareFrame) Size() int      { return encodedSize(&c) }
func (c CmdUpload) Size() int            { return encodedSize(&c) }
func (c CmdSubmitFrame) Size() int       { return encodedSize(&c) }
func (c CmdEndFrame) Size() int          { return encodedSize(&c) }
func (c CmdMakeCurrent) Size() int       { return encodedSize(&c) }
func (c CmdCommit) Size() int            { return encodedSize(&c) }
func (c CmdResize) Size() int            { return encodedSize(&c) }
func (c CmdBeginRendering) Size() int    { return encodedSize(&c) }
func (c CmdEndRendering) Size() int      { return encodedSize(&c) }
func (c CmdBindPipelineState) Size() int { return encodedSize(&c) }
func (c CmdBindUniforms) Size() int      { return encodedSize(&c) }
func (c CmdBindVertexBuffer) Size() int  { return encodedSize(&c) }
func (c CmdBindIndexBuffer) Size() int   { return encodedSize(&c) }
func (c CmdBindDescriptorSet) Size() int { return encodedSize(&c) }
func (c CmdDraw) Size() int              { return encodedSize(&c) }
func (c CmdDrawIndexed) Size() int       { return encodedSize(&c) }
func (c CmdDrawIndirect) Size() int      { return encodedSize(&c) }
func (c CmdDispatch) Size() int          { return encodedSize(&c) }
func (c CmdDrawBatch) Size() int         { return encodedSize(&c) }
func (c CmdMarker) Size() int            { return encodedSize(&c) }
