// Package renderer records typed commands on the main thread and executes them on a Device,
// either on a dedicated render goroutine or inline during Flush.
package renderer

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/internal/affinity"
)

// ErrDestroyed is returned by factories called after Destroy.
var ErrDestroyed = errors.New("renderer destroyed")

// Swapped by tests to observe the thread lock taken with thread checks enabled.
var (
	lockOSThread   = runtime.LockOSThread
	unlockOSThread = runtime.UnlockOSThread
)

// Stats is a snapshot of the renderer's frame and queue counters.
type Stats struct {
	Frame            uint64
	CompletedFrame   int64
	Flushes          uint64
	ReadyRanges      int
	CommandsExecuted uint64
	LoopState        LoopState

	// ArenaUsed is the transient arena usage of the last flushed frame.
	ArenaUsed [3]int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline
	retired       []retiredResource

	device    Device
	queue     command.CommandBufferQueue
	loop      *renderLoop
	swapchain command.SwapchainHandle

	mode         Mode
	mainThread   *affinity.Thread
	threadChecks bool
	lockedThread bool

	// Recording state, main thread only.
	frame     uint64
	lastEnded int64
	began     bool
	submitted bool
	ended     bool
	arenas    [command.MaxBackbufferCount][3]*TransientArena

	// acquired is set between MakeCurrent and Commit of the default swapchain. A resize
	// requested meanwhile waits in pendingResize until the image is presented.
	acquired      bool
	pendingResize *command.CmdResize

	// Published for Stats, which may run on any goroutine.
	publishedFrame atomic.Uint64
	arenaUsed      [3]atomic.Int64

	destroyed   atomic.Bool
	destroyOnce sync.Once

	// Pre-creation config collected from builder options.
	backendType          RendererBackendType
	surface              Surface
	queueOptions         []command.CommandBufferQueueBuilderOption
	arenaSizes           [3]int
	fatal                func(any)
	observer             func(command.Command)
	forceFallbackAdapter bool
	presentMode          PresentMode
	msaa                 MSAASampleCount
}

// retiredResource is a destroyed resource waiting for the frames that may use it.
type retiredResource struct {
	frame   int64
	release func()
}

// Renderer is the command stream: every recording method appends one typed command to the
// current circular buffer and returns immediately. Commands execute later, in recording order,
// on the render loop. Unless noted, methods must be called from the thread that created the
// Renderer.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the pipeline cache.
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates device objects (shader modules, program, pipeline state) for
	// each pipeline and caches it by PipelineKey. Keys already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: the first creation failure; pipelines before it stay registered
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// ReloadShader rebuilds every cached pipeline that uses a shader with the same key and
	// stage as s. Pipelines that fail to rebuild keep their previous state.
	//
	// Parameters:
	//   - s: the recompiled shader
	//
	// Returns:
	//   - int: the number of pipelines rebuilt
	//   - error: the joined rebuild errors
	ReloadShader(s shader.Shader) (int, error)

	// Device returns the device commands execute on.
	Device() Device

	// Swapchain returns the swapchain created for the renderer's surface.
	Swapchain() command.SwapchainHandle

	// Mode returns where commands are executed.
	Mode() Mode

	// Resize records a reconfiguration of the default swapchain. It executes in recording
	// order on the render loop. While the swapchain image is acquired (between MakeCurrent and
	// Commit) the resize is held back and recorded right after the Commit; only the latest
	// pending size is kept.
	Resize(width, height int)

	CreateBuffer(desc BufferDescriptor) (command.BufferHandle, error)
	CreateTexture(data *common.TextureData) (command.TextureHandle, error)
	CreateRenderTarget(desc RenderTargetDescriptor) (command.RenderTargetHandle, command.TextureHandle, error)
	CreateDescriptorSet(desc DescriptorSetDescriptor) (command.DescriptorSetHandle, error)

	WriteBuffer(buf command.BufferHandle, offset uint64, data []byte)

	// DestroyBuffer, DestroyTexture and DestroyDescriptorSet retire a resource. Frames
	// recorded before the call may still reference it, so the device object is released on a
	// later Flush, once the render loop has completed every such frame.
	DestroyBuffer(buf command.BufferHandle)
	DestroyTexture(tex command.TextureHandle)
	DestroyDescriptorSet(set command.DescriptorSetHandle)

	// BeginFrame opens the frame being recorded. A frame that was ended but not yet flushed is
	// flushed first, with a warning.
	BeginFrame()

	// PrepareFrame lets the device prepare per-frame state for the current frame slot.
	PrepareFrame()

	// SubmitFrame seals the transient arenas, records their uploads and the device submit.
	// Calling it twice in a frame is a no-op.
	SubmitFrame()

	// EndFrame closes the frame, submitting first if needed.
	EndFrame()

	// Flush publishes the recorded commands to the render loop. In threaded mode it first
	// waits until the render loop has executed the previously ended frame. When the current
	// frame was ended, Flush advances to the next frame slot and resets its arenas.
	Flush()

	MakeCurrent(swapchain command.SwapchainHandle)

	// Commit presents the swapchain, submitting first if the frame was not yet submitted.
	Commit(swapchain command.SwapchainHandle)

	BeginRendering(target command.RenderTargetHandle, info command.RenderPassInfo)
	EndRendering()
	BindPipelineState(p command.PipelineHandle)
	BindUniforms(slot command.UniformSlot, r command.UniformRange)
	BindVertexBuffer(buf command.BufferHandle, offset, size uint64)
	BindIndexBuffer(buf command.BufferHandle, offset, size uint64, format command.IndexFormat)
	BindDescriptorSet(set command.DescriptorSetHandle)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	DrawIndirect(g command.Geometry, indirect command.BufferHandle, offset uint64)
	Dispatch(p command.PipelineHandle, x, y, z uint32)

	// DrawBatch records the draws of one HwRenderQueue. records must stay untouched until the
	// frame slot is reopened.
	DrawBatch(queue int, records []command.DrawRecord)

	// Marker records a tagged no-op.
	Marker(seq uint64, label string)

	// AllocConstantData copies data into the current frame's constant arena.
	//
	// Parameters:
	//   - data: the uniform block bytes, at most UniformBindingSize
	//
	// Returns:
	//   - uint64: the offset of the copy
	//   - bool: false when the arena is exhausted or already submitted
	AllocConstantData(data []byte) (uint64, bool)

	// ReadConstant returns size bytes of the current frame's constant arena at offset.
	ReadConstant(offset uint64, size int) []byte

	// AllocVertexBuffer copies vertex data into the current frame's vertex arena.
	AllocVertexBuffer(data []byte) (uint64, bool)

	// AllocIndexBuffer copies index data into the current frame's index arena.
	AllocIndexBuffer(data []byte) (uint64, bool)

	// AllocGeometry copies vertex and index data into the current frame's arenas as one
	// reservation: when either arena cannot take its data, neither is written.
	//
	// Parameters:
	//   - vertices: the vertex bytes
	//   - indices: the index bytes
	//
	// Returns:
	//   - uint64: the offset in the vertex arena
	//   - uint64: the offset in the index arena
	//   - bool: false when nothing was allocated
	AllocGeometry(vertices, indices []byte) (uint64, uint64, bool)

	// Frame returns the number of the frame being recorded.
	Frame() uint64

	// FrameSlot returns the arena slot of the frame being recorded.
	FrameSlot() int

	// CheckMainThread panics when thread checks are enabled and the caller is not the thread
	// that created the Renderer.
	CheckMainThread()

	// CheckRenderThread panics when thread checks are enabled and the caller is not the
	// render loop's thread. Safe to call from any goroutine.
	CheckRenderThread()

	// Stats returns a snapshot of frame and queue counters. Safe to call from any goroutine.
	Stats() Stats

	// Destroy flushes and executes everything recorded so far, stops the render loop, waits
	// for the device and closes it. Commands recorded afterwards are dropped with a warning.
	Destroy()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given backend and presentation surface.
//
// Parameters:
//   - backendType: the device to create unless WithDevice supplies one
//   - surface: the window to present into, nil for headless rendering
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the new Renderer
//   - error: an error if the device or its default swapchain could not be created
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		mainThread:    affinity.NewThread("main"),
		lastEnded:     -1,
		backendType:   backendType,
		surface:       surface,
		arenaSizes:    [3]int{DefaultConstantArenaSize, DefaultVertexArenaSize, DefaultIndexArenaSize},
		msaa:          MSAA4x,
		presentMode:   PresentModeUncapped,
	}

	// Options first so device config is known before the device is created.
	for _, opt := range options {
		opt(r)
	}

	if r.threadChecks {
		lockOSThread()
		r.lockedThread = true
		r.mainThread.Bind()
	}

	if r.device == nil {
		switch backendType {
		case BackendTypeHeadless:
			r.device = NewHeadlessDevice()
		case BackendTypeWGPU:
			fallthrough
		default:
			d, err := newWGPUDevice(surface, wgpuDeviceConfig{
				forceFallbackAdapter: r.forceFallbackAdapter,
				presentMode:          r.presentMode,
				sampleCount:          r.msaa,
				arenaSizes:           r.arenaSizes,
			})
			if err != nil {
				r.releaseThread()
				return nil, fmt.Errorf("create wgpu device: %w", err)
			}
			r.device = d
		}
	}

	for slot := range r.arenas {
		for kind := range r.arenas[slot] {
			r.arenas[slot][kind] = NewTransientArena(command.ArenaKind(kind), r.arenaSizes[kind])
		}
	}

	r.loop = newRenderLoop(r.device, nil, r.fatal, r.observer)
	queueOptions := r.queueOptions
	if r.mode == ModeSingleLoop {
		queueOptions = append(queueOptions, command.WithInlineConsumer(r.loop.executeInline))
	}
	r.queue = command.NewCommandBufferQueue(queueOptions...)
	r.loop.queue = r.queue

	desc := SwapchainDescriptor{Surface: surface}
	if surface != nil {
		desc.Width, desc.Height = surface.Width(), surface.Height()
	}
	sc, err := r.device.CreateSwapchain(desc)
	if err != nil {
		r.device.Close()
		r.releaseThread()
		return nil, fmt.Errorf("create swapchain: %w", err)
	}
	r.swapchain = sc

	common.Logger().Info("[Renderer] created",
		"backend", backendType.String(),
		"mode", r.mode.String(),
		"buffers", len(r.queue.Buffers()),
		"bufferSize", r.queue.Buffers()[0].Capacity(),
	)
	return r, nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	if r.destroyed.Load() {
		return ErrDestroyed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.createPipelineState(p); err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) ReloadShader(s shader.Shader) (int, error) {
	if s == nil {
		return 0, errors.New("reload: nil shader")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	rebuilt := 0
	for key, p := range r.pipelineCache {
		old := p.Shader(s.ShaderType())
		if old == nil || old.Key() != s.Key() {
			continue
		}
		next := p.WithShaders(s)
		if err := r.createPipelineState(next); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %q: %w", key, err))
			continue
		}
		r.pipelineCache[key] = next
		rebuilt++
	}
	if rebuilt > 0 {
		common.Logger().Info("[Renderer] shader reloaded", "shader", s.Key(), "pipelines", rebuilt)
	}
	return rebuilt, errors.Join(errs...)
}

// createPipelineState builds the module -> program -> pipeline chain for p and stores the
// resulting handle on it. Callers hold r.mu.
func (r *renderer) createPipelineState(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}

	stages := []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment}
	if p.Type() == pipeline.PipelineTypeCompute {
		stages = []shader.ShaderType{shader.ShaderTypeCompute}
	}

	modules := make([]command.ShaderModuleHandle, 0, len(stages))
	for _, stage := range stages {
		m, err := r.device.CreateShaderModule(p.Shader(stage))
		if err != nil {
			return fmt.Errorf("%s module: %w", stage, err)
		}
		modules = append(modules, m)
	}

	program, err := r.device.CreateProgram(modules...)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}

	h, err := r.device.CreatePipelineState(p, program)
	if err != nil {
		return err
	}
	p.SetHandle(h)
	return nil
}

func (r *renderer) Device() Device                     { return r.device }
func (r *renderer) Swapchain() command.SwapchainHandle { return r.swapchain }
func (r *renderer) Mode() Mode                         { return r.mode }

func (r *renderer) Resize(width, height int) {
	r.CheckMainThread()
	cmd := command.CmdResize{Swapchain: r.swapchain, Width: int32(width), Height: int32(height)}
	if r.acquired {
		r.pendingResize = &cmd
		return
	}
	r.pendingResize = nil
	r.record(cmd)
}

// applyResize records the resize deferred while the swapchain image was acquired.
func (r *renderer) applyResize() {
	if r.pendingResize == nil || r.acquired {
		return
	}
	cmd := *r.pendingResize
	r.pendingResize = nil
	r.record(cmd)
}

func (r *renderer) CreateBuffer(desc BufferDescriptor) (command.BufferHandle, error) {
	if r.destroyed.Load() {
		return command.InvalidHandle, ErrDestroyed
	}
	return r.device.CreateBuffer(desc)
}

func (r *renderer) CreateTexture(data *common.TextureData) (command.TextureHandle, error) {
	if r.destroyed.Load() {
		return command.InvalidHandle, ErrDestroyed
	}
	return r.device.CreateTexture(data)
}

func (r *renderer) CreateRenderTarget(desc RenderTargetDescriptor) (command.RenderTargetHandle, command.TextureHandle, error) {
	if r.destroyed.Load() {
		return command.InvalidHandle, command.InvalidHandle, ErrDestroyed
	}
	return r.device.CreateRenderTarget(desc)
}

func (r *renderer) CreateDescriptorSet(desc DescriptorSetDescriptor) (command.DescriptorSetHandle, error) {
	if r.destroyed.Load() {
		return command.InvalidHandle, ErrDestroyed
	}
	return r.device.CreateDescriptorSet(desc)
}

func (r *renderer) WriteBuffer(buf command.BufferHandle, offset uint64, data []byte) {
	if r.destroyed.Load() {
		return
	}
	r.device.WriteBuffer(buf, offset, data)
}

func (r *renderer) DestroyBuffer(buf command.BufferHandle) {
	r.retire(func() { r.device.DestroyBuffer(buf) })
}

func (r *renderer) DestroyTexture(tex command.TextureHandle) {
	r.retire(func() { r.device.DestroyTexture(tex) })
}

func (r *renderer) DestroyDescriptorSet(set command.DescriptorSetHandle) {
	r.retire(func() { r.device.DestroyDescriptorSet(set) })
}

// retire queues release until the frame being recorded, or the next one when none is open,
// has completed on the render loop.
func (r *renderer) retire(release func()) {
	if r.destroyed.Load() {
		return
	}
	r.mu.Lock()
	r.retired = append(r.retired, retiredResource{frame: int64(r.publishedFrame.Load()), release: release})
	r.mu.Unlock()
}

// releaseRetired releases every retired resource whose frame has completed.
func (r *renderer) releaseRetired(completed int64) {
	r.mu.Lock()
	var due []func()
	kept := r.retired[:0]
	for _, res := range r.retired {
		if res.frame <= completed {
			due = append(due, res.release)
		} else {
			kept = append(kept, res)
		}
	}
	r.retired = kept
	r.mu.Unlock()

	for _, release := range due {
		release()
	}
}

func (r *renderer) BeginFrame() {
	if r.began && !r.ended {
		common.Logger().Warn("[Renderer] BeginFrame while frame is open", "frame", r.frame)
		return
	}
	if r.ended {
		// The ended frame still owns the sealed arenas of this slot.
		common.Logger().Warn("[Renderer] BeginFrame before Flush, flushing ended frame", "frame", r.frame)
		r.Flush()
	}
	r.began, r.submitted, r.ended = true, false, false
	r.applyResize()
	r.record(command.CmdBeginFrame{Frame: r.frame})
}

func (r *renderer) PrepareFrame() {
	r.record(command.CmdPrepareFrame{Frame: r.frame, Slot: r.FrameSlot()})
}

func (r *renderer) SubmitFrame() {
	if r.submitted {
		return
	}
	r.submitted = true
	slot := r.FrameSlot()
	for kind, a := range r.arenas[slot] {
		a.Seal()
		if a.Used() == 0 {
			continue
		}
		r.record(command.CmdUpload{Arena: command.ArenaKind(kind), Slot: slot, Data: a.Bytes()})
	}
	r.record(command.CmdSubmitFrame{Frame: r.frame})
}

func (r *renderer) EndFrame() {
	if !r.began || r.ended {
		common.Logger().Warn("[Renderer] EndFrame without an open frame", "frame", r.frame)
		return
	}
	r.SubmitFrame()
	r.record(command.CmdEndFrame{Frame: r.frame})
	r.ended = true
}

func (r *renderer) Flush() {
	r.CheckMainThread()
	if r.destroyed.Load() {
		return
	}

	if r.mode == ModeThreaded {
		r.loop.start()
		if r.lastEnded >= 0 {
			r.loop.waitFrame(r.lastEnded)
		}
	}

	r.queue.Flush()
	r.device.SwapContext()
	r.releaseRetired(r.loop.completedFrame())

	if r.ended {
		for kind, a := range r.arenas[r.FrameSlot()] {
			r.arenaUsed[kind].Store(int64(a.Used()))
		}
		r.lastEnded = int64(r.frame)
		r.frame++
		r.publishedFrame.Store(r.frame)
		r.began, r.submitted, r.ended = false, false, false
		for _, a := range r.arenas[r.FrameSlot()] {
			a.Reset()
		}
		common.Logger().Debug("[Renderer] frame flushed", "frame", r.lastEnded, "ready", r.queue.ReadyCount())
	}
}

func (r *renderer) MakeCurrent(swapchain command.SwapchainHandle) {
	r.record(command.CmdMakeCurrent{Swapchain: swapchain})
	if swapchain == r.swapchain {
		r.acquired = true
	}
}

func (r *renderer) Commit(swapchain command.SwapchainHandle) {
	r.SubmitFrame()
	r.record(command.CmdCommit{Swapchain: swapchain})
	if swapchain == r.swapchain {
		r.acquired = false
		r.applyResize()
	}
}

func (r *renderer) BeginRendering(target command.RenderTargetHandle, info command.RenderPassInfo) {
	r.record(command.CmdBeginRendering{Target: target, Info: info})
}

func (r *renderer) EndRendering() {
	r.record(command.CmdEndRendering{})
}

func (r *renderer) BindPipelineState(p command.PipelineHandle) {
	r.record(command.CmdBindPipelineState{Pipeline: p})
}

func (r *renderer) BindUniforms(slot command.UniformSlot, u command.UniformRange) {
	r.record(command.CmdBindUniforms{Slot: slot, Range: u})
}

func (r *renderer) BindVertexBuffer(buf command.BufferHandle, offset, size uint64) {
	r.record(command.CmdBindVertexBuffer{Buffer: buf, Offset: offset, Length: size})
}

func (r *renderer) BindIndexBuffer(buf command.BufferHandle, offset, size uint64, format command.IndexFormat) {
	r.record(command.CmdBindIndexBuffer{Buffer: buf, Offset: offset, Length: size, Format: format})
}

func (r *renderer) BindDescriptorSet(set command.DescriptorSetHandle) {
	r.record(command.CmdBindDescriptorSet{Set: set})
}

func (r *renderer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.record(command.CmdDraw{VertexCount: vertexCount, InstanceCount: instanceCount, FirstVertex: firstVertex, FirstInstance: firstInstance})
}

func (r *renderer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.record(command.CmdDrawIndexed{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
}

func (r *renderer) DrawIndirect(g command.Geometry, indirect command.BufferHandle, offset uint64) {
	r.record(command.CmdDrawIndirect{Geometry: g, Indirect: indirect, Offset: offset})
}

func (r *renderer) Dispatch(p command.PipelineHandle, x, y, z uint32) {
	r.record(command.CmdDispatch{Pipeline: p, Groups: [3]uint32{x, y, z}})
}

func (r *renderer) DrawBatch(queue int, records []command.DrawRecord) {
	if len(records) == 0 {
		return
	}
	r.record(command.CmdDrawBatch{Queue: queue, Records: records})
}

func (r *renderer) Marker(seq uint64, label string) {
	r.record(command.CmdMarker{Seq: seq, Label: label})
}

func (r *renderer) AllocConstantData(data []byte) (uint64, bool) {
	if len(data) > UniformBindingSize {
		common.Logger().Warn("[Renderer] constant block larger than a uniform binding", "size", len(data))
		return 0, false
	}
	return r.alloc(command.ArenaConstant, data)
}

func (r *renderer) ReadConstant(offset uint64, size int) []byte {
	return r.arenas[r.FrameSlot()][command.ArenaConstant].Read(offset, size)
}

func (r *renderer) AllocVertexBuffer(data []byte) (uint64, bool) {
	return r.alloc(command.ArenaVertex, data)
}

func (r *renderer) AllocIndexBuffer(data []byte) (uint64, bool) {
	return r.alloc(command.ArenaIndex, data)
}

func (r *renderer) AllocGeometry(vertices, indices []byte) (uint64, uint64, bool) {
	slot := r.arenas[r.FrameSlot()]
	va, ia := slot[command.ArenaVertex], slot[command.ArenaIndex]
	if va == nil || ia == nil {
		return 0, 0, false
	}
	if !va.Fits(len(vertices)) || !ia.Fits(len(indices)) {
		common.Logger().Debug("[Renderer] transient geometry does not fit",
			"vertexUsed", va.Used(), "vertexSize", len(vertices), "indexUsed", ia.Used(), "indexSize", len(indices))
		return 0, 0, false
	}
	voff, _ := r.alloc(command.ArenaVertex, vertices)
	ioff, _ := r.alloc(command.ArenaIndex, indices)
	return voff, ioff, true
}

func (r *renderer) alloc(kind command.ArenaKind, data []byte) (uint64, bool) {
	a := r.arenas[r.FrameSlot()][kind]
	if a == nil {
		return 0, false
	}
	if a.Sealed() {
		common.Logger().Warn("[Renderer] transient allocation after SubmitFrame", "arena", kind.String(), "frame", r.frame)
		return 0, false
	}
	offset, ok := a.Write(data)
	if !ok {
		common.Logger().Debug("[Renderer] transient arena exhausted", "arena", kind.String(), "used", a.Used(), "size", len(data))
	}
	return offset, ok
}

func (r *renderer) Frame() uint64 {
	return r.frame
}

func (r *renderer) FrameSlot() int {
	return int(r.frame % command.MaxBackbufferCount)
}

func (r *renderer) CheckMainThread() {
	if r.threadChecks {
		r.mainThread.Check("renderer call")
	}
}

func (r *renderer) CheckRenderThread() {
	if r.threadChecks {
		r.loop.thread.Check("device call")
	}
}

func (r *renderer) Stats() Stats {
	s := Stats{
		Frame:            r.publishedFrame.Load(),
		CompletedFrame:   r.loop.completedFrame(),
		Flushes:          r.queue.Flushes(),
		ReadyRanges:      r.queue.ReadyCount(),
		CommandsExecuted: r.loop.executed.Load(),
		LoopState:        r.loop.State(),
	}
	for kind := range s.ArenaUsed {
		s.ArenaUsed[kind] = int(r.arenaUsed[kind].Load())
	}
	return s
}

func (r *renderer) Destroy() {
	r.destroyOnce.Do(func() {
		r.CheckMainThread()
		if r.began && !r.ended {
			r.EndFrame()
		}
		r.Flush()
		r.destroyed.Store(true)

		r.device.MainSemPost()
		r.queue.RequestExit()
		if r.loop.started.Load() {
			<-r.loop.done
		}
		r.device.WaitRender()
		r.releaseRetired(math.MaxInt64)
		r.queue.Close()
		r.device.Close()

		for slot := range r.arenas {
			r.arenas[slot] = [3]*TransientArena{}
		}
		r.releaseThread()
		common.Logger().Info("[Renderer] destroyed", "frames", r.frame, "commands", r.loop.executed.Load())
	})
}

// releaseThread undoes the OS thread lock taken for thread checks.
func (r *renderer) releaseThread() {
	if !r.lockedThread {
		return
	}
	r.lockedThread = false
	r.mainThread.Unbind()
	unlockOSThread()
}

// record appends cmd to the current circular buffer. When the buffer is full the pending
// commands are committed to the render loop and the call blocks until enough space is free.
func (r *renderer) record(cmd command.Command) {
	if r.destroyed.Load() {
		common.Logger().Warn("[Renderer] command dropped", "command", cmd.Type().String(), "err", ErrDestroyed)
		return
	}
	r.CheckMainThread()

	buf := r.queue.CircularBuffer()
	if buf.Push(cmd) {
		return
	}
	if r.mode == ModeThreaded {
		r.loop.start()
	}
	r.queue.Commit()
	if !buf.WaitFree(cmd.Size()) || !buf.Push(cmd) {
		common.Logger().Warn("[Renderer] command dropped, queue closed", "command", cmd.Type().String())
	}
}
