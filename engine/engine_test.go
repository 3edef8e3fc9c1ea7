package engine

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShaderSource = `@vertex fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
	return vec4<f32>(pos, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`

type harness struct {
	r        renderer.Renderer
	dev      renderer.HeadlessDevice
	executed []command.Command
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{dev: renderer.NewHeadlessDevice()}
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithDevice(h.dev),
		renderer.WithMode(renderer.ModeSingleLoop),
		renderer.WithCommandObserver(func(c command.Command) {
			h.executed = append(h.executed, c)
		}),
	)
	require.NoError(t, err)
	h.r = r

	vs := shader.NewShader("engine_vs", shader.ShaderTypeVertex, testShaderSource)
	fs := shader.NewShader("engine_fs", shader.ShaderTypeFragment, testShaderSource)
	require.NoError(t, r.RegisterPipelines(pipeline.NewPipeline("unlit", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithMeshVertexLayout(),
	)))
	return h
}

// counter counts component updates.
type counter struct {
	updates int
}

func (c *counter) Attach(scene.Node)      {}
func (c *counter) Update(float64)         { c.updates++ }
func (c *counter) Clone() scene.Component { return &counter{} }

func cubes(mat material.Material, n int, extra ...scene.Component) scene.Scene {
	s := scene.NewScene("cubes")
	cube := model.NewCube("cube", 1)
	for i := range n {
		s.Add(scene.NewNode("cube",
			scene.WithPosition(mgl32.Vec3{float32(i) * 2, 0, 0}),
			scene.WithComponents(scene.NewMeshRenderable(cube, mat)),
		))
	}
	if len(extra) > 0 {
		s.Add(scene.NewNode("extra", scene.WithComponents(extra...)))
	}
	return s
}

func newFramework(t *testing.T, h *harness, sc scene.Scene, options ...FrameworkBuilderOption) (Framework, material.Material) {
	t.Helper()
	f := NewFramework(h.r, options...)
	t.Cleanup(f.Destroy)
	mat := material.NewMaterial(material.WithName("white"), material.WithPipeline("unlit"))
	f.Materials().Register(mat)
	if sc != nil {
		f.AddView(view.NewView("main", h.r, camera.NewCamera(camera.WithController(camera.NewCameraController())), sc))
	}
	return f, mat
}

func TestUpdateFrameRunsStepsInOrder(t *testing.T) {
	h := newHarness(t)
	var calls []string
	f := NewFramework(h.r, WithHooks(Hooks{
		OnPreUpdate: func(float64) { calls = append(calls, "preUpdate") },
		OnUpdate:    func(float64) { calls = append(calls, "update") },
		OnPreDraw: func(cmd renderer.Renderer) {
			calls = append(calls, "preDraw")
			cmd.Marker(1, "preDraw")
		},
		OnDraw: func(cmd renderer.Renderer) {
			calls = append(calls, "draw")
			cmd.Marker(2, "draw")
		},
		OnPostDraw: func(cmd renderer.Renderer) {
			calls = append(calls, "postDraw")
			cmd.Marker(3, "postDraw")
		},
	}))
	t.Cleanup(f.Destroy)
	mat := material.NewMaterial(material.WithName("white"), material.WithPipeline("unlit"))
	f.Materials().Register(mat)
	f.AddView(view.NewView("main", h.r, camera.NewCamera(), cubes(mat, 1)))

	stats := f.UpdateFrame(16 * time.Millisecond)
	assert.Equal(t, []string{"preUpdate", "update", "preDraw", "draw", "postDraw"}, calls)
	assert.Equal(t, uint64(0), stats.Frame)
	assert.Equal(t, 1, stats.Views)
	assert.Equal(t, 1, stats.Draw.Records)

	var order []string
	for _, c := range h.executed {
		switch c := c.(type) {
		case command.CmdMarker:
			order = append(order, c.Label)
		case command.CmdBeginFrame, command.CmdPrepareFrame, command.CmdMakeCurrent,
			command.CmdBeginRendering, command.CmdDrawBatch, command.CmdEndRendering,
			command.CmdSubmitFrame, command.CmdCommit, command.CmdEndFrame:
			order = append(order, c.Type().String())
		}
	}
	expected := []string{
		command.CommandTypeBeginFrame.String(),
		command.CommandTypePrepareFrame.String(),
		"preDraw",
		command.CommandTypeMakeCurrent.String(),
		command.CommandTypeBeginRendering.String(),
		"draw",
		command.CommandTypeDrawBatch.String(),
		"postDraw",
		command.CommandTypeEndRendering.String(),
		command.CommandTypeSubmitFrame.String(),
		command.CommandTypeCommit.String(),
		command.CommandTypeEndFrame.String(),
	}
	assert.Equal(t, expected, order)
	assert.Equal(t, uint64(1), h.r.Frame())
}

func TestUpdateFrameDrawsEveryFrame(t *testing.T) {
	h := newHarness(t)
	f, mat := newFramework(t, h, nil)
	f.AddView(view.NewView("main", h.r, camera.NewCamera(), cubes(mat, 2)))

	for range 3 {
		stats := f.UpdateFrame(10 * time.Millisecond)
		assert.Equal(t, 2, stats.Draw.Records)
		assert.Zero(t, stats.Draw.Skipped)
	}
	assert.Equal(t, uint64(3), f.Frames())
	assert.Equal(t, uint64(3), h.r.Frame())
	assert.Equal(t, uint64(6), h.dev.Stats().Draws)
	assert.Equal(t, uint64(3), h.dev.Stats().Presents)
	assert.Equal(t, 2, f.LastFrame().Draw.Records)
}

func TestSharedSceneUpdatesOnce(t *testing.T) {
	h := newHarness(t)
	c := &counter{}
	f := NewFramework(h.r)
	t.Cleanup(f.Destroy)
	mat := material.NewMaterial(material.WithName("white"), material.WithPipeline("unlit"))
	f.Materials().Register(mat)
	sc := cubes(mat, 1, c)
	f.AddView(view.NewView("left", h.r, camera.NewCamera(), sc))
	f.AddView(view.NewView("right", h.r, camera.NewCamera(), sc))

	stats := f.UpdateFrame(10 * time.Millisecond)
	assert.Equal(t, 1, c.updates)
	assert.Equal(t, 2, stats.Views)
	assert.Equal(t, 2, stats.Draw.Records)

	f.View("right").SetActive(false)
	stats = f.UpdateFrame(10 * time.Millisecond)
	assert.Equal(t, 2, c.updates)
	assert.Equal(t, 1, stats.Views)

	sc.SetActive(false)
	stats = f.UpdateFrame(10 * time.Millisecond)
	assert.Equal(t, 2, c.updates)
	assert.Zero(t, stats.Draw.Records)
}

func TestViewManagement(t *testing.T) {
	h := newHarness(t)
	f, _ := newFramework(t, h, cubes(nil, 1))
	f.AddView(nil)
	assert.Len(t, f.Views(), 1)
	assert.NotNil(t, f.View("main"))
	assert.Nil(t, f.View("missing"))
	assert.False(t, f.RemoveView("missing"))
	assert.True(t, f.RemoveView("main"))
	assert.Empty(t, f.Views())
}

func TestResizeUpdatesViewCameras(t *testing.T) {
	h := newHarness(t)
	f, _ := newFramework(t, h, cubes(nil, 1))
	f.Resize(800, 400)
	assert.InDelta(t, 2.0, f.View("main").Camera().Aspect(), 1e-6)
	f.Resize(0, 400)
	assert.InDelta(t, 2.0, f.View("main").Camera().Aspect(), 1e-6)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestStreamedTexturesDrainBeforeUpdate(t *testing.T) {
	h := newHarness(t)
	s := loader.NewStreamer(loader.NewLoader(), loader.WithWorkers(2))
	var calls []string
	results := map[string]loader.Result{}

	f, mat := newFramework(t, h, nil, WithStreamer(s))
	f.AddView(view.NewView("main", h.r, camera.NewCamera(), cubes(mat, 1)))
	f.SetHooks(Hooks{
		OnPreUpdate: func(float64) { calls = append(calls, "preUpdate") },
		OnTextureLoaded: func(res loader.Result) {
			calls = append(calls, "loaded")
			results[res.Name] = res
			if res.Err == nil {
				mat.SetTexture(res.Texture)
			}
		},
	})
	assert.Same(t, s, f.Streamer())

	require.NoError(t, s.Request(loader.Request{Name: "ok.png", Data: pngBytes(t)}))
	require.NoError(t, s.Request(loader.Request{Name: "bad.txt", Data: []byte("junk")}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))

	stats := f.UpdateFrame(10 * time.Millisecond)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, []string{"loaded", "loaded", "preUpdate"}, calls)
	require.NoError(t, results["ok.png"].Err)
	assert.ErrorIs(t, results["bad.txt"].Err, loader.ErrUnsupportedFormat)

	// The material picked the texture up during the same frame's material update.
	assert.NotEqual(t, command.DescriptorSetHandle(command.InvalidHandle), mat.DescriptorSet())
	assert.Equal(t, 1, stats.Draw.Records)
	assert.Zero(t, f.UpdateFrame(10*time.Millisecond).Loaded)
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	h := newHarness(t)
	p := profiler.NewProfiler(profiler.WithMemStats(false))
	f, _ := newFramework(t, h, cubes(nil, 1), WithMaxFrames(5), WithProfiler(p), WithFrameLimit(1000))

	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, uint64(5), f.Frames())
	assert.Equal(t, uint64(5), p.Frames())
	assert.Same(t, p, f.Profiler())
}

func TestRunStopsOnQuitAndContext(t *testing.T) {
	h := newHarness(t)
	f, _ := newFramework(t, h, cubes(nil, 1))
	f.SetHooks(Hooks{OnUpdate: func(float64) {
		if f.Frames() == 2 {
			f.Quit()
		}
	}})
	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, uint64(3), f.Frames())
	assert.NotPanics(t, f.Quit)

	h2 := newHarness(t)
	g, _ := newFramework(t, h2, cubes(nil, 1))
	ctx, cancel := context.WithCancel(context.Background())
	g.SetHooks(Hooks{OnUpdate: func(float64) {
		if g.Frames() == 1 {
			cancel()
		}
	}})
	assert.ErrorIs(t, g.Run(ctx), context.Canceled)
	assert.Equal(t, uint64(2), g.Frames())
}

func TestRunUsesClockDeltas(t *testing.T) {
	h := newHarness(t)
	now := time.Unix(100, 0)
	var deltas []float64
	f, _ := newFramework(t, h, cubes(nil, 1),
		WithMaxFrames(3),
		WithClock(func() time.Time {
			now = now.Add(5 * time.Millisecond)
			return now
		}),
		WithHooks(Hooks{OnUpdate: func(d float64) { deltas = append(deltas, d) }}),
	)
	require.NoError(t, f.Run(context.Background()))
	require.Len(t, deltas, 3)
	assert.InDelta(t, 0.005, deltas[0], 1e-9)
	assert.InDelta(t, 0.005, deltas[1], 1e-9)
}

func TestDestroyIsIdempotent(t *testing.T) {
	h := newHarness(t)
	f, _ := newFramework(t, h, cubes(nil, 1))
	f.UpdateFrame(time.Millisecond)
	f.Destroy()
	assert.NotPanics(t, f.Destroy)
	assert.Equal(t, uint64(1), h.dev.Stats().Presents)
}
