package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// UniformBindingSize is the byte window bound for each uniform slot. Blocks placed in the
// constant arena must not be larger.
const UniformBindingSize = 256

// BufferUsage selects how a persistent buffer is bound.
type BufferUsage uint8

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageIndirect
	BufferUsageStorage
)

// BufferDescriptor describes a persistent GPU buffer. Data, when set, is uploaded at creation
// and Size may be left zero.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
	Data  []byte
}

// Surface is the part of a window a device needs to present into. window.Window satisfies it.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// SwapchainDescriptor describes a presentable surface. Surface is nil for headless devices.
type SwapchainDescriptor struct {
	Surface       Surface
	Width, Height int
}

// RenderTargetDescriptor describes an offscreen color + depth target. The resolved color
// texture is returned alongside so it can be sampled by later passes.
type RenderTargetDescriptor struct {
	Label         string
	Width, Height uint32
}

// DescriptorSetDescriptor lists the resources of a material descriptor set.
type DescriptorSetDescriptor struct {
	Label   string
	Texture command.TextureHandle
}

// Device is the boundary between the command stream and a concrete graphics API.
//
// The lifecycle and executor methods are called by the render loop only, one range at a time,
// in recorded order. Factories and the Write/Destroy methods are called from the main thread
// and must be safe to run while the render loop executes commands. Executors receive handles
// created by the same device; an unknown handle is a programming error and panics.
type Device interface {
	// BeginRender opens one render loop iteration.
	BeginRender()

	// EndRender closes one render loop iteration.
	EndRender()

	// WaitRender blocks until the GPU has finished all submitted work.
	WaitRender()

	// SwapContext is called on the main thread after every queue flush.
	SwapContext()

	// MainSemPost releases anything the render thread may be blocked on during shutdown.
	MainSemPost()

	BeginFrame(c command.CmdBeginFrame)
	PrepareFrame(c command.CmdPrepareFrame)
	Upload(c command.CmdUpload)
	SubmitFrame(c command.CmdSubmitFrame)
	EndFrame(c command.CmdEndFrame)
	MakeCurrent(c command.CmdMakeCurrent)
	Commit(c command.CmdCommit)
	Resize(c command.CmdResize)
	BeginRendering(c command.CmdBeginRendering)
	EndRendering()
	BindPipelineState(c command.CmdBindPipelineState)
	BindUniforms(c command.CmdBindUniforms)
	BindVertexBuffer(c command.CmdBindVertexBuffer)
	BindIndexBuffer(c command.CmdBindIndexBuffer)
	BindDescriptorSet(c command.CmdBindDescriptorSet)
	Draw(c command.CmdDraw)
	DrawIndexed(c command.CmdDrawIndexed)
	DrawIndirect(c command.CmdDrawIndirect)
	Dispatch(c command.CmdDispatch)
	Marker(c command.CmdMarker)

	// CreateBuffer creates a persistent buffer.
	//
	// Parameters:
	//   - desc: size, usage and optional initial contents
	//
	// Returns:
	//   - command.BufferHandle: the new buffer
	//   - error: an error if the buffer could not be created
	CreateBuffer(desc BufferDescriptor) (command.BufferHandle, error)

	// CreateTexture creates a sampled 2D texture from decoded pixels.
	//
	// Parameters:
	//   - data: the decoded texture
	//
	// Returns:
	//   - command.TextureHandle: the new texture
	//   - error: an error if the texture could not be created
	CreateTexture(data *common.TextureData) (command.TextureHandle, error)

	// CreateShaderModule creates a module from one compiled shader stage.
	CreateShaderModule(s shader.Shader) (command.ShaderModuleHandle, error)

	// CreateProgram links shader modules into a program. A render program has a vertex and a
	// fragment module; a compute program has one compute module.
	CreateProgram(modules ...command.ShaderModuleHandle) (command.ProgramHandle, error)

	// CreatePipelineState creates the pipeline object for p using a linked program.
	//
	// Parameters:
	//   - p: the pipeline description
	//   - program: the program created from p's shaders
	//
	// Returns:
	//   - command.PipelineHandle: the new pipeline
	//   - error: an error if the pipeline could not be created
	CreatePipelineState(p pipeline.Pipeline, program command.ProgramHandle) (command.PipelineHandle, error)

	// CreateSwapchain creates a presentable surface for a window.
	CreateSwapchain(desc SwapchainDescriptor) (command.SwapchainHandle, error)

	// CreateRenderTarget creates an offscreen target and the texture its color resolves into.
	CreateRenderTarget(desc RenderTargetDescriptor) (command.RenderTargetHandle, command.TextureHandle, error)

	// CreateDescriptorSet creates a material descriptor set.
	CreateDescriptorSet(desc DescriptorSetDescriptor) (command.DescriptorSetHandle, error)


	// WriteBuffer copies data into a persistent buffer at offset.
	WriteBuffer(buf command.BufferHandle, offset uint64, data []byte)

	DestroyBuffer(buf command.BufferHandle)
	DestroyTexture(tex command.TextureHandle)
	DestroyDescriptorSet(set command.DescriptorSetHandle)


	// Close releases every device resource. The render loop must have terminated.
	Close()
}

// handleTable maps handles of one resource kind to device objects. Handle 0 is never issued.
type handleTable[H ~uint32, T any] struct {
	kind  string
	next  H
	items map[H]T
}

func newHandleTable[H ~uint32, T any](kind string) *handleTable[H, T] {
	return &handleTable[H, T]{kind: kind, items: make(map[H]T)}
}

func (t *handleTable[H, T]) add(v T) H {
	t.next++
	t.items[t.next] = v
	return t.next
}

func (t *handleTable[H, T]) lookup(h H) (T, bool) {
	v, ok := t.items[h]
	return v, ok
}

// get panics on unknown handles.
func (t *handleTable[H, T]) get(h H) T {
	v, ok := t.items[h]
	if !ok {
		panic(unknownHandle{kind: t.kind, handle: uint32(h)})
	}
	return v
}

func (t *handleTable[H, T]) remove(h H) (T, bool) {
	v, ok := t.items[h]
	delete(t.items, h)
	return v, ok
}

func (t *handleTable[H, T]) len() int {
	return len(t.items)
}

type unknownHandle struct {
	kind   string
	handle uint32
}

func (u unknownHandle) Error() string {
	return fmt.Sprintf("renderer: unknown %s handle %d", u.kind, u.handle)
}
