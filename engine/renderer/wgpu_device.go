package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

type wgpuDeviceConfig struct {
	forceFallbackAdapter bool
	presentMode          PresentMode
	sampleCount          MSAASampleCount
	arenaSizes           [3]int
}

type wgpuSwapchain struct {
	surface   *wgpu.Surface
	format    wgpu.TextureFormat
	alphaMode wgpu.CompositeAlphaMode
	width     uint32
	height    uint32

	msaa  *attachment
	depth *attachment

	// Acquired by MakeCurrent, released by Commit.
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type attachment struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (a *attachment) release() {
	if a == nil {
		return
	}
	if a.view != nil {
		a.view.Release()
	}
	if a.texture != nil {
		a.texture.Release()
	}
}

type wgpuRenderTarget struct {
	color, resolve, depth *attachment
	width, height         uint32
}

type wgpuModule struct {
	module *wgpu.ShaderModule
	shader shader.Shader
}

type wgpuPipeline struct {
	key      string
	render   *wgpu.RenderPipeline
	compute  *wgpu.ComputePipeline
	textured bool
}

// wgpuDevice executes commands with WebGPU. The render loop encodes into one command encoder
// per frame; persistent resources are created from the main thread under the same mutex.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	primary  *wgpu.Surface

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount
	colorFormat wgpu.TextureFormat

	// Group 0 binds the four uniform slots with dynamic offsets into the transient constant
	// buffer. Group 1 binds a material texture and sampler.
	uniformLayout *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout
	uniformGroup  *wgpu.BindGroup
	sampler       *wgpu.Sampler
	whiteSet      command.DescriptorSetHandle
	transient     [3]*wgpu.Buffer
	transientSize [3]uint64

	buffers     *handleTable[command.BufferHandle, *wgpu.Buffer]
	textures    *handleTable[command.TextureHandle, *attachment]
	modules     *handleTable[command.ShaderModuleHandle, wgpuModule]
	programs    *handleTable[command.ProgramHandle, []command.ShaderModuleHandle]
	pipelines   *handleTable[command.PipelineHandle, wgpuPipeline]
	swapchains  *handleTable[command.SwapchainHandle, *wgpuSwapchain]
	targets     *handleTable[command.RenderTargetHandle, *wgpuRenderTarget]
	descriptors *handleTable[command.DescriptorSetHandle, *wgpu.BindGroup]

	// Frame state, render loop only.
	encoder   *wgpu.CommandEncoder
	pass      *wgpu.RenderPassEncoder
	current   *wgpuSwapchain
	bound     *wgpuPipeline
	offsets   [command.UniformSlotCount]uint32
	descriptorSet command.DescriptorSetHandle
	warned    map[string]bool
}

var _ Device = &wgpuDevice{}

func newWGPUDevice(surface Surface, cfg wgpuDeviceConfig) (*wgpuDevice, error) {
	if surface == nil {
		return nil, errors.New("wgpu device needs a surface")
	}

	d := &wgpuDevice{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		sampleCount: max(cfg.sampleCount, MSAAOff),
		buffers:     newHandleTable[command.BufferHandle, *wgpu.Buffer]("buffer"),
		textures:    newHandleTable[command.TextureHandle, *attachment]("texture"),
		modules:     newHandleTable[command.ShaderModuleHandle, wgpuModule]("shader module"),
		programs:    newHandleTable[command.ProgramHandle, []command.ShaderModuleHandle]("program"),
		pipelines:   newHandleTable[command.PipelineHandle, wgpuPipeline]("pipeline"),
		swapchains:  newHandleTable[command.SwapchainHandle, *wgpuSwapchain]("swapchain"),
		targets:     newHandleTable[command.RenderTargetHandle, *wgpuRenderTarget]("render target"),
		descriptors: newHandleTable[command.DescriptorSetHandle, *wgpu.BindGroup]("descriptor set"),
		warned:      make(map[string]bool),
	}
	switch cfg.presentMode {
	case PresentModeVSync:
		d.presentMode = wgpu.PresentModeFifo
	default:
		d.presentMode = wgpu.PresentModeImmediate
	}

	d.primary = d.instance.CreateSurface(surface.SurfaceDescriptor())

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    d.primary,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-rt device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = device
	d.queue = device.GetQueue()

	caps := d.primary.GetCapabilities(adapter)
	if len(caps.Formats) == 0 {
		return nil, errors.New("surface reports no formats")
	}
	d.colorFormat = caps.Formats[0]

	if err := d.createBindingModel(cfg.arenaSizes); err != nil {
		return nil, err
	}

	common.Logger().Info("[WGPU] device created", "format", d.colorFormat, "msaa", uint32(d.sampleCount))
	return d, nil
}

// createBindingModel creates the fixed bind group layouts, the transient arena buffers, the
// uniform bind group, the default sampler and a 1x1 white descriptor set.
func (d *wgpuDevice) createBindingModel(arenaSizes [3]int) error {
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute

	entries := make([]wgpu.BindGroupLayoutEntry, command.UniformSlotCount)
	for i := range entries {
		entries[i] = wgpu.BindGroupLayoutEntry{Binding: uint32(i), Visibility: visibility}
		entries[i].Buffer.Type = wgpu.BufferBindingTypeUniform
		entries[i].Buffer.HasDynamicOffset = true
		entries[i].Buffer.MinBindingSize = UniformBindingSize
	}
	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Uniform Slots",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("uniform layout: %w", err)
	}
	d.uniformLayout = layout

	texEntry := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageFragment}
	texEntry.Texture.SampleType = wgpu.TextureSampleTypeFloat
	texEntry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	sampEntry := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageFragment}
	sampEntry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	d.textureLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Textures",
		Entries: []wgpu.BindGroupLayoutEntry{texEntry, sampEntry},
	})
	if err != nil {
		return fmt.Errorf("texture layout: %w", err)
	}

	usages := [3]wgpu.BufferUsage{
		command.ArenaConstant: wgpu.BufferUsageUniform,
		command.ArenaVertex:   wgpu.BufferUsageVertex,
		command.ArenaIndex:    wgpu.BufferUsageIndex,
	}
	for kind, usage := range usages {
		size := common.AlignUp(max(arenaSizes[kind], UniformBindingSize), 256)
		if command.ArenaKind(kind) == command.ArenaConstant {
			// The last offset still needs a whole binding window behind it.
			size += UniformBindingSize
		}
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Transient " + command.ArenaKind(kind).String(),
			Size:  uint64(size),
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("transient %s buffer: %w", command.ArenaKind(kind), err)
		}
		d.transient[kind] = buf
		d.transientSize[kind] = uint64(size)
	}

	groupEntries := make([]wgpu.BindGroupEntry, command.UniformSlotCount)
	for i := range groupEntries {
		groupEntries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  d.transient[command.ArenaConstant],
			Offset:  0,
			Size:    UniformBindingSize,
		}
	}
	d.uniformGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Uniform Slots",
		Layout:  d.uniformLayout,
		Entries: groupEntries,
	})
	if err != nil {
		return fmt.Errorf("uniform bind group: %w", err)
	}

	d.sampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Default Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("default sampler: %w", err)
	}

	white, err := d.createTexture(&common.TextureData{
		Name:   "white",
		Format: common.TextureFormatRGBA8,
		Width:  1,
		Height: 1,
		Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return err
	}
	d.whiteSet, err = d.createDescriptorSet(DescriptorSetDescriptor{Label: "white", Texture: white})
	return err
}

// warnOnce logs a warning the first time key is seen.
func (d *wgpuDevice) warnOnce(key, msg string, args ...any) {
	if d.warned[key] {
		return
	}
	d.warned[key] = true
	common.Logger().Warn(msg, args...)
}

func (d *wgpuDevice) BeginRender() {}
func (d *wgpuDevice) EndRender()   {}
func (d *wgpuDevice) SwapContext() {}
func (d *wgpuDevice) MainSemPost() {}

func (d *wgpuDevice) WaitRender() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.device.Poll(true, nil)
}

func (d *wgpuDevice) BeginFrame(c command.CmdBeginFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.encoder != nil {
		d.encoder.Release()
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		common.Logger().Error("[WGPU] create command encoder", "frame", c.Frame, "err", err)
		d.encoder = nil
		return
	}
	d.encoder = encoder
}

func (d *wgpuDevice) PrepareFrame(command.CmdPrepareFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound = nil
	d.offsets = [command.UniformSlotCount]uint32{}
	d.descriptorSet = command.InvalidHandle
}

func (d *wgpuDevice) Upload(c command.CmdUpload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := d.transient[c.Arena]
	data := c.Data
	if size := d.transientSize[c.Arena]; uint64(len(data)) > size {
		common.Logger().Warn("[WGPU] transient upload truncated", "arena", c.Arena.String(), "size", len(data), "capacity", size)
		data = data[:size]
	}
	if len(data) > 0 {
		d.queue.WriteBuffer(buf, 0, data)
	}
}

func (d *wgpuDevice) SubmitFrame(c command.CmdSubmitFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pass != nil {
		common.Logger().Warn("[WGPU] SubmitFrame inside a render pass, closing it", "frame", c.Frame)
		d.endPass()
	}
	if d.encoder == nil {
		return
	}
	cb, err := d.encoder.Finish(nil)
	d.encoder.Release()
	d.encoder = nil
	if err != nil {
		common.Logger().Error("[WGPU] finish command encoder", "frame", c.Frame, "err", err)
		return
	}
	d.queue.Submit(cb)
	cb.Release()
}

func (d *wgpuDevice) EndFrame(command.CmdEndFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
}

func (d *wgpuDevice) MakeCurrent(c command.CmdMakeCurrent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc := d.swapchains.get(c.Swapchain)
	if sc.texture != nil {
		d.current = sc
		return
	}
	texture, err := sc.surface.GetCurrentTexture()
	if err != nil {
		common.Logger().Warn("[WGPU] acquire swapchain texture", "err", err)
		return
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		common.Logger().Warn("[WGPU] swapchain view", "err", err)
		return
	}
	sc.texture, sc.view = texture, view
	d.current = sc
}

func (d *wgpuDevice) Commit(c command.CmdCommit) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc := d.swapchains.get(c.Swapchain)
	if sc.texture == nil {
		return
	}
	sc.surface.Present()
	sc.view.Release()
	sc.texture.Release()
	sc.view, sc.texture = nil, nil
	if d.current == sc {
		d.current = nil
	}
}

func (d *wgpuDevice) Resize(c command.CmdResize) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc := d.swapchains.get(c.Swapchain)
	if sc.texture != nil {
		d.warnOnce("resize-acquired", "[WGPU] Resize while the swapchain image is acquired")
		return
	}
	if err := d.configure(sc, int(c.Width), int(c.Height)); err != nil {
		common.Logger().Error("[WGPU] resize", "width", c.Width, "height", c.Height, "err", err)
	}
}

func (d *wgpuDevice) BeginRendering(c command.CmdBeginRendering) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pass != nil {
		d.warnOnce("nested-pass", "[WGPU] BeginRendering inside an open pass, closing the previous one")
		d.endPass()
	}
	if d.encoder == nil {
		encoder, err := d.device.CreateCommandEncoder(nil)
		if err != nil {
			common.Logger().Error("[WGPU] create command encoder", "err", err)
			return
		}
		d.encoder = encoder
	}

	var color, resolve, depth *wgpu.TextureView
	var width, height uint32
	if c.Target == command.DefaultRenderTarget {
		sc := d.current
		if sc == nil || sc.view == nil {
			d.warnOnce("no-current", "[WGPU] BeginRendering without a current swapchain image, pass skipped")
			return
		}
		color, depth = sc.view, sc.depth.view
		if sc.msaa != nil {
			color, resolve = sc.msaa.view, sc.view
		}
		width, height = sc.width, sc.height
	} else {
		t := d.targets.get(c.Target)
		color, depth = t.color.view, t.depth.view
		if t.resolve != nil {
			resolve = t.resolve.view
		}
		width, height = t.width, t.height
	}

	loadColor, loadDepth := wgpu.LoadOpLoad, wgpu.LoadOpLoad
	if c.Info.Clear&command.ClearColor != 0 {
		loadColor = wgpu.LoadOpClear
	}
	if c.Info.Clear&command.ClearDepth != 0 {
		loadDepth = wgpu.LoadOpClear
	}
	cc := c.Info.ClearColor
	d.pass = d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:          color,
			ResolveTarget: resolve,
			LoadOp:        loadColor,
			StoreOp:       wgpu.StoreOpStore,
			ClearValue:    wgpu.Color{R: cc.R, G: cc.G, B: cc.B, A: cc.A},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     loadDepth,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: common.Coalesce(c.Info.ClearDepth, 1.0),
		},
	})

	vp := c.Info.Viewport
	if vp.Width > 0 && vp.Height > 0 {
		d.pass.SetViewport(float32(vp.X), float32(vp.Y), float32(min(vp.Width, width)), float32(min(vp.Height, height)), 0, 1)
	}
	d.bound = nil
	d.descriptorSet = command.InvalidHandle
}

func (d *wgpuDevice) EndRendering() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endPass()
}

func (d *wgpuDevice) endPass() {
	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass.Release()
	d.pass = nil
	d.bound = nil
}

func (d *wgpuDevice) BindPipelineState(c command.CmdBindPipelineState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.pipelines.get(c.Pipeline)
	if p.render == nil {
		d.warnOnce("bind-compute:"+p.key, "[WGPU] compute pipeline bound for drawing", "pipeline", p.key)
		return
	}
	d.bound = &p
	if d.pass != nil {
		d.pass.SetPipeline(p.render)
	}
}

func (d *wgpuDevice) BindUniforms(c command.CmdBindUniforms) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.Range.Buffer != command.TransientConstantBuffer {
		d.warnOnce("uniform-buffer", "[WGPU] uniforms must live in the transient constant arena", "slot", c.Slot)
		return
	}
	d.offsets[c.Slot] = c.Range.Offset
}

func (d *wgpuDevice) BindVertexBuffer(c command.CmdBindVertexBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pass == nil {
		return
	}
	size := c.Length
	if size == 0 {
		size = wgpu.WholeSize
	}
	d.pass.SetVertexBuffer(0, d.resolveBuffer(c.Buffer), c.Offset, size)
}

func (d *wgpuDevice) BindIndexBuffer(c command.CmdBindIndexBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pass == nil {
		return
	}
	size := c.Length
	if size == 0 {
		size = wgpu.WholeSize
	}
	d.pass.SetIndexBuffer(d.resolveBuffer(c.Buffer), indexFormat(c.Format), c.Offset, size)
}

func (d *wgpuDevice) BindDescriptorSet(c command.CmdBindDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.Set != command.InvalidHandle {
		d.descriptors.get(c.Set)
	}
	d.descriptorSet = c.Set
}

// prepareDraw applies the bind groups for the bound pipeline. false means the draw is skipped.
func (d *wgpuDevice) prepareDraw() bool {
	if d.pass == nil || d.bound == nil {
		d.warnOnce("draw-skipped", "[WGPU] draw without an open pass or bound pipeline skipped")
		return false
	}
	d.pass.SetBindGroup(0, d.uniformGroup, d.offsets[:])
	if d.bound.textured {
		set := d.descriptorSet
		if set == command.InvalidHandle {
			set = d.whiteSet
		}
		d.pass.SetBindGroup(1, d.descriptors.get(set), nil)
	}
	return true
}

func (d *wgpuDevice) Draw(c command.CmdDraw) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.prepareDraw() {
		return
	}
	d.pass.Draw(c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
}

func (d *wgpuDevice) DrawIndexed(c command.CmdDrawIndexed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.prepareDraw() {
		return
	}
	d.pass.DrawIndexed(c.IndexCount, c.InstanceCount, c.FirstIndex, c.BaseVertex, c.FirstInstance)
}

func (d *wgpuDevice) DrawIndirect(c command.CmdDrawIndirect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.prepareDraw() {
		return
	}
	g := c.Geometry
	indirect := d.resolveBuffer(c.Indirect)
	d.pass.SetVertexBuffer(0, d.resolveBuffer(g.VertexBuffer), g.VertexOffset, wgpu.WholeSize)
	if g.Indexed() {
		d.pass.SetIndexBuffer(d.resolveBuffer(g.IndexBuffer), indexFormat(g.IndexFormat), g.IndexOffset, wgpu.WholeSize)
		d.pass.DrawIndexedIndirect(indirect, c.Offset)
		return
	}
	d.pass.DrawIndirect(indirect, c.Offset)
}

func (d *wgpuDevice) Dispatch(c command.CmdDispatch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := d.pipelines.get(c.Pipeline)
	if p.compute == nil {
		d.warnOnce("dispatch-render:"+p.key, "[WGPU] dispatch with a render pipeline", "pipeline", p.key)
		return
	}
	if d.pass != nil {
		d.warnOnce("dispatch-in-pass", "[WGPU] dispatch inside a render pass skipped")
		return
	}
	if d.encoder == nil {
		return
	}
	pass := d.encoder.BeginComputePass(nil)
	pass.SetPipeline(p.compute)
	pass.SetBindGroup(0, d.uniformGroup, d.offsets[:])
	pass.DispatchWorkgroups(c.Groups[0], c.Groups[1], c.Groups[2])
	pass.End()
	pass.Release()
}

func (d *wgpuDevice) Marker(c command.CmdMarker) {
	common.Logger().Debug("[WGPU] marker", "seq", c.Seq, "label", c.Label)
}

// resolveBuffer maps a handle to its GPU buffer, including the transient arena handles.
func (d *wgpuDevice) resolveBuffer(h command.BufferHandle) *wgpu.Buffer {
	switch h {
	case command.TransientConstantBuffer:
		return d.transient[command.ArenaConstant]
	case command.TransientVertexBuffer:
		return d.transient[command.ArenaVertex]
	case command.TransientIndexBuffer:
		return d.transient[command.ArenaIndex]
	}
	return d.buffers.get(h)
}

func indexFormat(f command.IndexFormat) wgpu.IndexFormat {
	if f == command.IndexFormatUint16 {
		return wgpu.IndexFormatUint16
	}
	return wgpu.IndexFormatUint32
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (command.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := max(desc.Size, uint64(len(desc.Data)))
	if size == 0 {
		return command.InvalidHandle, errors.New("buffer size is zero")
	}
	usage := wgpu.BufferUsageCopyDst
	if desc.Usage&BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if desc.Usage&BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	if desc.Usage&BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	if desc.Usage&BufferUsageIndirect != 0 {
		usage |= wgpu.BufferUsageIndirect
	}
	if desc.Usage&BufferUsageStorage != 0 {
		usage |= wgpu.BufferUsageStorage
	}

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(common.AlignUp(int(size), 4)),
		Usage: usage,
	})
	if err != nil {
		return command.InvalidHandle, err
	}
	if len(desc.Data) > 0 {
		d.queue.WriteBuffer(buf, 0, padTo4(desc.Data))
	}
	return d.buffers.add(buf), nil
}

func padTo4(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, common.AlignUp(len(data), 4))
	copy(out, data)
	return out
}

func (d *wgpuDevice) CreateTexture(data *common.TextureData) (command.TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createTexture(data)
}

func (d *wgpuDevice) createTexture(data *common.TextureData) (command.TextureHandle, error) {
	if data == nil || data.Width == 0 || data.Height == 0 {
		return command.InvalidHandle, errors.New("empty texture")
	}
	format := wgpu.TextureFormatRGBA8UnormSrgb
	if data.Format == common.TextureFormatRGBA8Linear {
		format = wgpu.TextureFormatRGBA8Unorm
	}
	size := wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         data.Name,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return command.InvalidHandle, err
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.BytesPerRow(),
			RowsPerImage: data.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return command.InvalidHandle, err
	}
	return d.textures.add(&attachment{texture: tex, view: view}), nil
}

func (d *wgpuDevice) CreateShaderModule(s shader.Shader) (command.ShaderModuleHandle, error) {
	if s == nil {
		return command.InvalidHandle, errors.New("nil shader")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return command.InvalidHandle, err
	}
	return d.modules.add(wgpuModule{module: m, shader: s}), nil
}

func (d *wgpuDevice) CreateProgram(modules ...command.ShaderModuleHandle) (command.ProgramHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(modules) == 0 || len(modules) > 2 {
		return command.InvalidHandle, fmt.Errorf("program needs one or two modules, got %d", len(modules))
	}
	for _, h := range modules {
		if _, ok := d.modules.lookup(h); !ok {
			return command.InvalidHandle, fmt.Errorf("unknown shader module %d", h)
		}
	}
	return d.programs.add(append([]command.ShaderModuleHandle(nil), modules...)), nil
}

func (d *wgpuDevice) CreatePipelineState(p pipeline.Pipeline, program command.ProgramHandle) (command.PipelineHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	modules, ok := d.programs.lookup(program)
	if !ok {
		return command.InvalidHandle, fmt.Errorf("unknown program %d", program)
	}
	stages := make([]wgpuModule, len(modules))
	for i, h := range modules {
		stages[i] = d.modules.get(h)
	}

	layouts := []*wgpu.BindGroupLayout{d.uniformLayout}
	if p.Textured() {
		layouts = append(layouts, d.textureLayout)
	}
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return command.InvalidHandle, err
	}

	if p.Type() == pipeline.PipelineTypeCompute {
		cs := stages[0]
		created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  p.PipelineKey() + " Compute Pipeline",
			Layout: layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     cs.module,
				EntryPoint: cs.shader.EntryPoint(),
			},
		})
		if err != nil {
			return command.InvalidHandle, err
		}
		return d.pipelines.add(wgpuPipeline{key: p.PipelineKey(), compute: created}), nil
	}

	if len(stages) != 2 {
		return command.InvalidHandle, errors.New("render program needs a vertex and a fragment module")
	}
	vs, fs := stages[0], stages[1]
	st := p.State()

	target := wgpu.ColorTargetState{
		Format:    d.colorFormat,
		WriteMask: st.WriteMask,
	}
	if st.Blend != nil {
		target.Blend = st.Blend
	}

	depthCompare := wgpu.CompareFunctionLess
	if !st.DepthTest {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: vs.shader.EntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.shader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  st.Topology,
			FrontFace: st.FrontFace,
			CullMode:  st.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(d.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              depthFormat,
			DepthWriteEnabled:   st.DepthWrite,
			DepthCompare:        depthCompare,
			DepthBias:           st.DepthBias,
			DepthBiasSlopeScale: st.DepthBiasSlopeScale,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	if err != nil {
		return command.InvalidHandle, err
	}
	return d.pipelines.add(wgpuPipeline{key: p.PipelineKey(), render: created, textured: p.Textured()}), nil
}

func (d *wgpuDevice) CreateSwapchain(desc SwapchainDescriptor) (command.SwapchainHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	surface := d.primary
	if d.swapchains.len() > 0 {
		if desc.Surface == nil {
			return command.InvalidHandle, errors.New("swapchain needs a surface")
		}
		surface = d.instance.CreateSurface(desc.Surface.SurfaceDescriptor())
	}

	caps := surface.GetCapabilities(d.adapter)
	sc := &wgpuSwapchain{
		surface:   surface,
		format:    d.colorFormat,
		alphaMode: caps.AlphaModes[0],
	}
	if err := d.configure(sc, desc.Width, desc.Height); err != nil {
		return command.InvalidHandle, err
	}
	return d.swapchains.add(sc), nil
}

// configure (re)creates the surface configuration and the MSAA and depth attachments.
func (d *wgpuDevice) configure(sc *wgpuSwapchain, width, height int) error {
	sc.width, sc.height = uint32(max(width, 1)), uint32(max(height, 1))
	sc.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      sc.format,
		Width:       sc.width,
		Height:      sc.height,
		PresentMode: d.presentMode,
		AlphaMode:   sc.alphaMode,
	})

	sc.msaa.release()
	sc.depth.release()
	sc.msaa = nil

	var err error
	if d.sampleCount > 1 {
		if sc.msaa, err = d.createAttachment("MSAA Texture", sc.format, sc.width, sc.height, uint32(d.sampleCount), wgpu.TextureUsageRenderAttachment); err != nil {
			return err
		}
	}
	sc.depth, err = d.createAttachment("Depth Texture", depthFormat, sc.width, sc.height, uint32(d.sampleCount), wgpu.TextureUsageRenderAttachment)
	return err
}

func (d *wgpuDevice) createAttachment(label string, format wgpu.TextureFormat, width, height, samples uint32, usage wgpu.TextureUsage) (*attachment, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%s view: %w", label, err)
	}
	return &attachment{texture: tex, view: view}, nil
}

func (d *wgpuDevice) CreateRenderTarget(desc RenderTargetDescriptor) (command.RenderTargetHandle, command.TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Width == 0 || desc.Height == 0 {
		return command.InvalidHandle, command.InvalidHandle, errors.New("render target has no area")
	}

	samples := uint32(d.sampleCount)
	t := &wgpuRenderTarget{width: desc.Width, height: desc.Height}
	colorUsage := wgpu.TextureUsageRenderAttachment
	if samples == 1 {
		colorUsage |= wgpu.TextureUsageTextureBinding
	}

	var err error
	if t.color, err = d.createAttachment(desc.Label+" Color", d.colorFormat, desc.Width, desc.Height, samples, colorUsage); err != nil {
		return command.InvalidHandle, command.InvalidHandle, err
	}
	sampled := t.color
	if samples > 1 {
		if t.resolve, err = d.createAttachment(desc.Label+" Resolve", d.colorFormat, desc.Width, desc.Height, 1,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding); err != nil {
			t.color.release()
			return command.InvalidHandle, command.InvalidHandle, err
		}
		sampled = t.resolve
	}
	if t.depth, err = d.createAttachment(desc.Label+" Depth", depthFormat, desc.Width, desc.Height, samples, wgpu.TextureUsageRenderAttachment); err != nil {
		t.color.release()
		t.resolve.release()
		return command.InvalidHandle, command.InvalidHandle, err
	}

	// The sampled texture is owned by the target; the texture handle only aliases it.
	tex := d.textures.add(&attachment{view: sampled.view})
	return d.targets.add(t), tex, nil
}

func (d *wgpuDevice) CreateDescriptorSet(desc DescriptorSetDescriptor) (command.DescriptorSetHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createDescriptorSet(desc)
}

func (d *wgpuDevice) createDescriptorSet(desc DescriptorSetDescriptor) (command.DescriptorSetHandle, error) {
	bg, err := d.textureBindGroup(desc)
	if err != nil {
		return command.InvalidHandle, err
	}
	return d.descriptors.add(bg), nil
}

func (d *wgpuDevice) textureBindGroup(desc DescriptorSetDescriptor) (*wgpu.BindGroup, error) {
	tex, ok := d.textures.lookup(desc.Texture)
	if !ok {
		return nil, fmt.Errorf("descriptor set %q: unknown texture %d", desc.Label, desc.Texture)
	}
	return d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  desc.Label + " Bind Group",
		Layout: d.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: tex.view},
			{Binding: 1, Sampler: d.sampler},
		},
	})
}

func (d *wgpuDevice) DestroyDescriptorSet(set command.DescriptorSetHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bg, ok := d.descriptors.remove(set); ok {
		bg.Release()
	}
}

func (d *wgpuDevice) WriteBuffer(buf command.BufferHandle, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.WriteBuffer(d.buffers.get(buf), offset, padTo4(data))
}

func (d *wgpuDevice) DestroyBuffer(buf command.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers.remove(buf); ok {
		b.Release()
	}
}

func (d *wgpuDevice) DestroyTexture(tex command.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures.remove(tex); ok {
		t.release()
	}
}

func (d *wgpuDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, bg := range d.descriptors.items {
		bg.Release()
	}
	for _, t := range d.targets.items {
		t.color.release()
		t.resolve.release()
		t.depth.release()
	}
	for _, t := range d.textures.items {
		t.release()
	}
	for _, b := range d.buffers.items {
		b.Release()
	}
	for _, p := range d.pipelines.items {
		if p.render != nil {
			p.render.Release()
		}
		if p.compute != nil {
			p.compute.Release()
		}
	}
	for _, m := range d.modules.items {
		m.module.Release()
	}
	for _, sc := range d.swapchains.items {
		sc.msaa.release()
		sc.depth.release()
		if sc.surface != d.primary {
			sc.surface.Release()
		}
	}
	for _, b := range d.transient {
		if b != nil {
			b.Release()
		}
	}
	d.uniformGroup.Release()
	d.sampler.Release()
	d.textureLayout.Release()
	d.uniformLayout.Release()
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.primary.Release()
	d.instance.Release()
	common.Logger().Info("[WGPU] device closed")
}
