package renderqueue

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShaderSource = `@vertex fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
	return vec4<f32>(pos, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`

type fakeMaterial struct {
	pipeline command.PipelineHandle
}

func (m fakeMaterial) Pipeline() command.PipelineHandle           { return m.pipeline }
func (m fakeMaterial) Uniforms() command.UniformRange             { return command.UniformRange{} }
func (m fakeMaterial) DescriptorSet() command.DescriptorSetHandle { return command.InvalidHandle }

type fakeRenderable struct {
	kind  RenderableType
	world mgl32.Mat4
	prims []Primitive
}

func (f *fakeRenderable) RenderableType() RenderableType { return f.kind }
func (f *fakeRenderable) WorldTransform() mgl32.Mat4     { return f.world }
func (f *fakeRenderable) Primitives() []Primitive        { return f.prims }

type batch struct {
	queue int
	ids   []uint64
}

type harness struct {
	r        renderer.Renderer
	dev      renderer.HeadlessDevice
	material fakeMaterial
	geometry command.Geometry

	mu       sync.Mutex
	batches  []batch
	indirect int
}

func newHarness(t *testing.T, options ...renderer.RendererBuilderOption) *harness {
	t.Helper()
	h := &harness{dev: renderer.NewHeadlessDevice()}
	observer := func(cmd command.Command) {
		h.mu.Lock()
		defer h.mu.Unlock()
		switch c := cmd.(type) {
		case command.CmdDrawBatch:
			b := batch{queue: c.Queue}
			for _, rec := range c.Records {
				b.ids = append(b.ids, rec.Primitive)
			}
			h.batches = append(h.batches, b)
		case command.CmdDrawIndirect:
			h.indirect++
		}
	}
	opts := append([]renderer.RendererBuilderOption{
		renderer.WithDevice(h.dev),
		renderer.WithMode(renderer.ModeSingleLoop),
		renderer.WithCommandObserver(observer),
	}, options...)
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Destroy)
	h.r = r

	vs := shader.NewShader("rq_vs", shader.ShaderTypeVertex, testShaderSource)
	fs := shader.NewShader("rq_fs", shader.ShaderTypeFragment, testShaderSource)
	require.NotNil(t, vs)
	require.NotNil(t, fs)
	p := pipeline.NewPipeline("rq", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithVertexLayout(12),
	)
	require.NoError(t, r.RegisterPipelines(p))
	h.material = fakeMaterial{pipeline: p.Handle()}

	vb, err := r.CreateBuffer(renderer.BufferDescriptor{Label: "tri", Size: 36, Usage: renderer.BufferUsageVertex})
	require.NoError(t, err)
	h.geometry = command.Geometry{VertexBuffer: vb, VertexCount: 3}
	return h
}

func (h *harness) renderable(kind RenderableType, ids ...uint64) *fakeRenderable {
	f := &fakeRenderable{kind: kind, world: mgl32.Ident4()}
	for _, id := range ids {
		f.prims = append(f.prims, Primitive{ID: id, Geometry: h.geometry, Material: h.material})
	}
	return f
}

func (h *harness) frame(draw func()) {
	h.r.BeginFrame()
	h.r.PrepareFrame()
	h.r.MakeCurrent(h.r.Swapchain())
	h.r.BeginRendering(command.DefaultRenderTarget, command.RenderPassInfo{Clear: command.ClearAll, ClearDepth: 1})
	draw()
	h.r.EndRendering()
	h.r.Commit(h.r.Swapchain())
	h.r.EndFrame()
	h.r.Flush()
}

func TestRenderQueueKeepsBucketsIsolated(t *testing.T) {
	h := newHarness(t)
	q := NewRenderQueue()

	require.True(t, q.Add(h.renderable(RenderableTypeTransparent, 2)))
	require.True(t, q.Add(h.renderable(RenderableTypeOpaque, 1)))
	require.True(t, q.Add(h.renderable(RenderableTypeOverlay, 4)))
	require.True(t, q.Add(h.renderable(RenderableTypeOpaque, 3, 5)))
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, 2, q.List(RenderableTypeOpaque).Len())
	assert.Zero(t, q.List(RenderableTypeSkybox).Len())

	var stats DrawStats
	h.frame(func() {
		stats = q.Draw(h.r, command.UniformRange{})
	})

	assert.Equal(t, DrawStats{Renderables: 4, Batches: 3, Records: 5}, stats)
	assert.Equal(t, []batch{
		{queue: int(RenderableTypeOpaque), ids: []uint64{1, 3, 5}},
		{queue: int(RenderableTypeTransparent), ids: []uint64{2}},
		{queue: int(RenderableTypeOverlay), ids: []uint64{4}},
	}, h.batches)
	assert.Equal(t, uint64(5), h.dev.Stats().Draws)
	assert.Zero(t, h.dev.Stats().SkippedDraws)
}

func TestRenderQueueRejectsOutOfRangeType(t *testing.T) {
	q := NewRenderQueue(WithListCapacity(2))
	assert.False(t, q.Add(&fakeRenderable{kind: MaxRenderQueueCount}))
	assert.False(t, q.Add(&fakeRenderable{kind: -1}))
	assert.Nil(t, q.List(MaxRenderQueueCount))
	assert.Zero(t, q.Len())
}

func TestRenderQueueClearEmptiesBuckets(t *testing.T) {
	h := newHarness(t)
	q := NewRenderQueue()
	q.Add(h.renderable(RenderableTypeOpaque, 1))
	q.Add(h.renderable(RenderableTypeSkybox, 2))
	q.Clear()
	assert.Zero(t, q.Len())

	h.frame(func() {
		assert.Equal(t, DrawStats{}, q.Draw(h.r, command.UniformRange{}))
	})
	assert.Empty(t, h.batches)
}

func TestRenderQueueDrawsIndirectImmediately(t *testing.T) {
	h := newHarness(t)
	args, err := h.r.CreateBuffer(renderer.BufferDescriptor{Label: "args", Size: 16, Usage: renderer.BufferUsageIndirect})
	require.NoError(t, err)

	rd := h.renderable(RenderableTypeOpaque, 1)
	rd.prims = append(rd.prims, Primitive{ID: 2, Geometry: h.geometry, Material: h.material, Indirect: args})
	q := NewRenderQueue()
	q.Add(rd)

	var stats DrawStats
	h.frame(func() {
		stats = q.Draw(h.r, command.UniformRange{})
	})

	assert.Equal(t, 1, stats.Indirect)
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 1, h.indirect)
	require.Len(t, h.batches, 1)
	assert.Equal(t, []uint64{1}, h.batches[0].ids)
	assert.Equal(t, uint64(2), h.dev.Stats().Draws)
}

func TestRenderQueueSkipsWhenConstantArenaIsFull(t *testing.T) {
	// Room for two 256 byte aligned ObjectUniforms blocks.
	h := newHarness(t, renderer.WithArenaSizes(512, 0, 0))
	q := NewRenderQueue()
	for i := range 3 {
		q.Add(h.renderable(RenderableTypeOpaque, uint64(i)))
	}

	var stats DrawStats
	h.frame(func() {
		stats = q.Draw(h.r, command.UniformRange{})
	})

	assert.Equal(t, 2, stats.Renderables)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, h.batches, 1)
	assert.Equal(t, []uint64{0, 1}, h.batches[0].ids)
}

func TestRenderQueueSkipsPrimitivesWithoutPipeline(t *testing.T) {
	h := newHarness(t)
	rd := h.renderable(RenderableTypeOpaque, 1)
	rd.prims = append(rd.prims,
		Primitive{ID: 2, Geometry: h.geometry},
		Primitive{ID: 3, Geometry: h.geometry, Material: fakeMaterial{}},
	)
	q := NewRenderQueue()
	q.Add(rd)

	var stats DrawStats
	h.frame(func() {
		stats = q.Draw(h.r, command.UniformRange{})
	})
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Records)
}

func TestObjectUniformsCarryNormalMatrix(t *testing.T) {
	h := newHarness(t)
	world := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	rd := &fakeRenderable{kind: RenderableTypeOpaque, world: world}
	q := NewRenderQueue()
	q.Add(rd)

	h.r.BeginFrame()
	q.Draw(h.r, command.UniformRange{})
	got, ok := renderer.ReadConstantAs[ObjectUniforms](h.r, 0)
	require.True(t, ok)
	h.r.EndFrame()
	h.r.Flush()

	assert.Equal(t, world, got.World)
	assert.InDelta(t, 0.5, got.Normal.At(0, 0), 1e-6)
	assert.InDelta(t, 0, got.Normal.At(0, 3), 1e-6)
}

func TestHwRenderQueueKeepsSlotsApart(t *testing.T) {
	hw := NewHwRenderQueue()
	hw.Begin(0)
	hw.Add(command.DrawRecord{Primitive: 1})
	first := hw.Records()

	hw.Begin(1)
	hw.Add(command.DrawRecord{Primitive: 2})
	assert.Equal(t, uint64(1), first[0].Primitive)
	assert.Equal(t, 1, hw.Len())

	// A second Begin in the same frame must not overwrite the submitted records.
	hw.Begin(1)
	hw.Add(command.DrawRecord{Primitive: 3})
	second := hw.Records()
	assert.Equal(t, uint64(3), second[0].Primitive)

	hw.Begin(uint64(command.MaxBackbufferCount))
	assert.Zero(t, hw.Len())
}
