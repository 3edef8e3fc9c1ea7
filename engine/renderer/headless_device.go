package renderer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
)

// DeviceStats counts the work a headless device executed.
type DeviceStats struct {
	Iterations   uint64
	Frames       uint64
	Submits      uint64
	Presents     uint64
	Passes       uint64
	Uploads      uint64
	UploadBytes  uint64
	Draws        uint64
	Dispatches   uint64
	Markers      uint64
	SkippedDraws uint64
	LastFrame    uint64
	LastMarker   uint64
	Swaps        uint64
	Resizes      uint64
}

// headlessDevice executes commands without a GPU. It validates handles and pass state the way
// a real device would and keeps counters and the last uploaded arena contents for inspection.
type headlessDevice struct {
	mu *sync.Mutex

	buffers       *handleTable[command.BufferHandle, BufferDescriptor]
	textures      *handleTable[command.TextureHandle, *common.TextureData]
	modules       *handleTable[command.ShaderModuleHandle, shader.Shader]
	programs      *handleTable[command.ProgramHandle, []command.ShaderModuleHandle]
	pipelines     *handleTable[command.PipelineHandle, pipeline.Pipeline]
	swapchains    *handleTable[command.SwapchainHandle, SwapchainDescriptor]
	targets       *handleTable[command.RenderTargetHandle, RenderTargetDescriptor]
	descriptorSet *handleTable[command.DescriptorSetHandle, DescriptorSetDescriptor]

	// Render thread state.
	inPass   bool
	bound    command.PipelineHandle
	acquired command.SwapchainHandle
	vertices command.CmdBindVertexBuffer
	indices  command.CmdBindIndexBuffer
	uploaded [3][]byte
	uniforms command.UniformSet

	stats struct {
		iterations, frames, submits, presents, passes  atomic.Uint64
		uploads, uploadBytes, draws, dispatches        atomic.Uint64
		markers, skipped, lastFrame, lastMarker, swaps atomic.Uint64
		resizes                                        atomic.Uint64
	}

	execDelay time.Duration
	closed    bool
}

// HeadlessDevice is a Device that renders nowhere. It backs tests and the CLI's headless mode.
type HeadlessDevice interface {
	Device

	// Stats returns a snapshot of the execution counters.
	Stats() DeviceStats

	// Uploaded returns a copy of the last data uploaded for an arena kind.
	//
	// Parameters:
	//   - kind: the arena kind
	//
	// Returns:
	//   - []byte: the uploaded bytes, nil before the first upload
	Uploaded(kind command.ArenaKind) []byte

	// BoundUniforms returns the uniform ranges bound for the most recent draw.
	BoundUniforms() command.UniformSet

	// BoundBuffers returns the most recent vertex and index buffer bindings.
	BoundBuffers() (command.CmdBindVertexBuffer, command.CmdBindIndexBuffer)

	// DescriptorSet looks up a live descriptor set.
	//
	// Parameters:
	//   - set: the descriptor set handle
	//
	// Returns:
	//   - DescriptorSetDescriptor: the resources the set points at
	//   - bool: false when the set was never created or has been destroyed
	DescriptorSet(set command.DescriptorSetHandle) (DescriptorSetDescriptor, bool)

	// HasTexture reports whether a texture is live on the device.
	HasTexture(tex command.TextureHandle) bool

	// SwapchainSize returns the size a swapchain is currently configured for.
	SwapchainSize(swapchain command.SwapchainHandle) (width, height int)
}

var _ HeadlessDevice = &headlessDevice{}

// NewHeadlessDevice creates a HeadlessDevice.
//
// Parameters:
//   - options: functional options for the device
//
// Returns:
//   - HeadlessDevice: the new device
func NewHeadlessDevice(options ...HeadlessDeviceBuilderOption) HeadlessDevice {
	d := &headlessDevice{
		mu:            &sync.Mutex{},
		buffers:       newHandleTable[command.BufferHandle, BufferDescriptor]("buffer"),
		textures:      newHandleTable[command.TextureHandle, *common.TextureData]("texture"),
		modules:       newHandleTable[command.ShaderModuleHandle, shader.Shader]("shader module"),
		programs:      newHandleTable[command.ProgramHandle, []command.ShaderModuleHandle]("program"),
		pipelines:     newHandleTable[command.PipelineHandle, pipeline.Pipeline]("pipeline"),
		swapchains:    newHandleTable[command.SwapchainHandle, SwapchainDescriptor]("swapchain"),
		targets:       newHandleTable[command.RenderTargetHandle, RenderTargetDescriptor]("render target"),
		descriptorSet: newHandleTable[command.DescriptorSetHandle, DescriptorSetDescriptor]("descriptor set"),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *headlessDevice) BeginRender() { d.stats.iterations.Add(1) }
func (d *headlessDevice) EndRender()   {}
func (d *headlessDevice) WaitRender()  {}
func (d *headlessDevice) SwapContext() { d.stats.swaps.Add(1) }
func (d *headlessDevice) MainSemPost() {}

func (d *headlessDevice) BeginFrame(command.CmdBeginFrame) {}

func (d *headlessDevice) PrepareFrame(command.CmdPrepareFrame) {}

func (d *headlessDevice) Upload(c command.CmdUpload) {
	d.mu.Lock()
	d.uploaded[c.Arena] = append([]byte(nil), c.Data...)
	d.mu.Unlock()
	d.stats.uploads.Add(1)
	d.stats.uploadBytes.Add(uint64(len(c.Data)))
}

func (d *headlessDevice) SubmitFrame(command.CmdSubmitFrame) {
	d.stats.submits.Add(1)
}

func (d *headlessDevice) EndFrame(c command.CmdEndFrame) {
	if d.execDelay > 0 {
		time.Sleep(d.execDelay)
	}
	d.stats.frames.Add(1)
	d.stats.lastFrame.Store(c.Frame)
}

func (d *headlessDevice) MakeCurrent(c command.CmdMakeCurrent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.swapchains.get(c.Swapchain)
	d.acquired = c.Swapchain
}

func (d *headlessDevice) Commit(c command.CmdCommit) {
	d.mu.Lock()
	d.swapchains.get(c.Swapchain)
	if d.acquired == c.Swapchain {
		d.acquired = command.InvalidHandle
	}
	d.mu.Unlock()
	d.stats.presents.Add(1)
}

func (d *headlessDevice) Resize(c command.CmdResize) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc := d.swapchains.get(c.Swapchain)
	if d.acquired == c.Swapchain {
		common.Logger().Warn("[Headless] Resize while the swapchain image is acquired", "swapchain", c.Swapchain)
		return
	}
	desc.Width, desc.Height = int(c.Width), int(c.Height)
	d.swapchains.items[c.Swapchain] = desc
	d.stats.resizes.Add(1)
}

func (d *headlessDevice) BeginRendering(c command.CmdBeginRendering) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.Target != command.DefaultRenderTarget {
		d.targets.get(c.Target)
	}
	if d.inPass {
		common.Logger().Warn("[Headless] BeginRendering inside an open pass")
	}
	d.inPass = true
	d.stats.passes.Add(1)
}

func (d *headlessDevice) EndRendering() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inPass = false
	d.bound = command.InvalidHandle
}

func (d *headlessDevice) BindPipelineState(c command.CmdBindPipelineState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipelines.get(c.Pipeline)
	d.bound = c.Pipeline
}

func (d *headlessDevice) BindUniforms(c command.CmdBindUniforms) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.Range.Size > UniformBindingSize {
		common.Logger().Warn("[Headless] uniform range larger than binding", "slot", c.Slot, "size", c.Range.Size)
	}
	d.uniforms[c.Slot] = c.Range
}

func (d *headlessDevice) BindVertexBuffer(c command.CmdBindVertexBuffer) {
	d.checkRange(c.Buffer, c.Offset, c.Length)
	d.mu.Lock()
	d.vertices = c
	d.mu.Unlock()
}

func (d *headlessDevice) BindIndexBuffer(c command.CmdBindIndexBuffer) {
	d.checkRange(c.Buffer, c.Offset, c.Length)
	d.mu.Lock()
	d.indices = c
	d.mu.Unlock()
}

func (d *headlessDevice) BindDescriptorSet(c command.CmdBindDescriptorSet) {
	if c.Set == command.InvalidHandle {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.descriptorSet.get(c.Set)
}

func (d *headlessDevice) Draw(command.CmdDraw) {
	d.draw()
}

func (d *headlessDevice) DrawIndexed(command.CmdDrawIndexed) {
	d.draw()
}

func (d *headlessDevice) DrawIndirect(c command.CmdDrawIndirect) {
	d.checkBuffer(c.Indirect)
	d.draw()
}

func (d *headlessDevice) Dispatch(c command.CmdDispatch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.pipelines.get(c.Pipeline)
	if p.Type() != pipeline.PipelineTypeCompute {
		common.Logger().Warn("[Headless] dispatch with a render pipeline", "pipeline", p.PipelineKey())
		return
	}
	d.stats.dispatches.Add(1)
}

func (d *headlessDevice) Marker(c command.CmdMarker) {
	d.stats.markers.Add(1)
	d.stats.lastMarker.Store(c.Seq)
}

func (d *headlessDevice) draw() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inPass || d.bound == command.InvalidHandle {
		common.Logger().Warn("[Headless] draw skipped", "inPass", d.inPass, "pipeline", d.bound)
		d.stats.skipped.Add(1)
		return
	}
	d.stats.draws.Add(1)
}

func (d *headlessDevice) checkBuffer(h command.BufferHandle) {
	if h.IsTransient() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers.get(h)
}

// checkRange validates a buffer binding. Ranges of persistent buffers must lie inside the buffer.
func (d *headlessDevice) checkRange(h command.BufferHandle, offset, length uint64) {
	if h.IsTransient() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	desc := d.buffers.get(h)
	if offset+length > desc.Size {
		common.Logger().Warn("[Headless] buffer binding out of range",
			"buffer", h, "offset", offset, "length", length, "size", desc.Size)
	}
}

func (d *headlessDevice) CreateBuffer(desc BufferDescriptor) (command.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Size == 0 {
		desc.Size = uint64(len(desc.Data))
	}
	if desc.Size == 0 {
		return command.InvalidHandle, errors.New("headless: buffer size is zero")
	}
	desc.Data = append([]byte(nil), desc.Data...)
	return d.buffers.add(desc), nil
}

func (d *headlessDevice) CreateTexture(data *common.TextureData) (command.TextureHandle, error) {
	if data == nil || data.Width == 0 || data.Height == 0 {
		return command.InvalidHandle, errors.New("headless: empty texture")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textures.add(data), nil
}

func (d *headlessDevice) CreateShaderModule(s shader.Shader) (command.ShaderModuleHandle, error) {
	if s == nil {
		return command.InvalidHandle, errors.New("headless: nil shader")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modules.add(s), nil
}

func (d *headlessDevice) CreateProgram(modules ...command.ShaderModuleHandle) (command.ProgramHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(modules) == 0 {
		return command.InvalidHandle, errors.New("headless: program without modules")
	}
	for _, m := range modules {
		if _, ok := d.modules.lookup(m); !ok {
			return command.InvalidHandle, errors.New("headless: unknown shader module")
		}
	}
	return d.programs.add(append([]command.ShaderModuleHandle(nil), modules...)), nil
}

func (d *headlessDevice) CreatePipelineState(p pipeline.Pipeline, program command.ProgramHandle) (command.PipelineHandle, error) {
	if err := p.Validate(); err != nil {
		return command.InvalidHandle, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.programs.lookup(program); !ok {
		return command.InvalidHandle, errors.New("headless: unknown program")
	}
	return d.pipelines.add(p), nil
}

func (d *headlessDevice) CreateSwapchain(desc SwapchainDescriptor) (command.SwapchainHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swapchains.add(desc), nil
}

func (d *headlessDevice) CreateRenderTarget(desc RenderTargetDescriptor) (command.RenderTargetHandle, command.TextureHandle, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return command.InvalidHandle, command.InvalidHandle, errors.New("headless: render target has no area")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	tex := d.textures.add(&common.TextureData{Name: desc.Label, Width: desc.Width, Height: desc.Height})
	return d.targets.add(desc), tex, nil
}

func (d *headlessDevice) CreateDescriptorSet(desc DescriptorSetDescriptor) (command.DescriptorSetHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures.lookup(desc.Texture); !ok {
		return command.InvalidHandle, errors.New("headless: descriptor set references an unknown texture")
	}
	return d.descriptorSet.add(desc), nil
}

func (d *headlessDevice) DestroyDescriptorSet(set command.DescriptorSetHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.descriptorSet.remove(set)
}

func (d *headlessDevice) WriteBuffer(buf command.BufferHandle, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc := d.buffers.get(buf)
	if offset+uint64(len(data)) > desc.Size {
		common.Logger().Warn("[Headless] buffer write out of range", "buffer", buf, "offset", offset, "size", len(data))
		return
	}
	if uint64(len(desc.Data)) < desc.Size {
		desc.Data = append(desc.Data, make([]byte, desc.Size-uint64(len(desc.Data)))...)
	}
	copy(desc.Data[offset:], data)
	d.buffers.items[buf] = desc
}

func (d *headlessDevice) DestroyBuffer(buf command.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers.remove(buf)
}

func (d *headlessDevice) DestroyTexture(tex command.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.textures.remove(tex)
}

func (d *headlessDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *headlessDevice) Stats() DeviceStats {
	return DeviceStats{
		Iterations:   d.stats.iterations.Load(),
		Frames:       d.stats.frames.Load(),
		Submits:      d.stats.submits.Load(),
		Presents:     d.stats.presents.Load(),
		Passes:       d.stats.passes.Load(),
		Uploads:      d.stats.uploads.Load(),
		UploadBytes:  d.stats.uploadBytes.Load(),
		Draws:        d.stats.draws.Load(),
		Dispatches:   d.stats.dispatches.Load(),
		Markers:      d.stats.markers.Load(),
		SkippedDraws: d.stats.skipped.Load(),
		LastFrame:    d.stats.lastFrame.Load(),
		LastMarker:   d.stats.lastMarker.Load(),
		Swaps:        d.stats.swaps.Load(),
		Resizes:      d.stats.resizes.Load(),
	}
}

func (d *headlessDevice) Uploaded(kind command.ArenaKind) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.uploaded[kind]...)
}

func (d *headlessDevice) BoundUniforms() command.UniformSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uniforms
}

func (d *headlessDevice) BoundBuffers() (command.CmdBindVertexBuffer, command.CmdBindIndexBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vertices, d.indices
}

func (d *headlessDevice) DescriptorSet(set command.DescriptorSetHandle) (DescriptorSetDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.descriptorSet.lookup(set)
}

func (d *headlessDevice) HasTexture(tex command.TextureHandle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.textures.lookup(tex)
	return ok
}

func (d *headlessDevice) SwapchainSize(swapchain command.SwapchainHandle) (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc := d.swapchains.get(swapchain)
	return desc.Width, desc.Height
}
