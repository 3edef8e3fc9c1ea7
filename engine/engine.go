// Package engine drives the frame lifecycle: it runs the update hooks, updates and collects
// every active view, records the frame into the renderer's command stream and flushes it to
// the render loop.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// Hooks are the application callbacks of UpdateFrame. Nil hooks are skipped. Draw hooks
// receive the renderer as the command stream to record into.
type Hooks struct {
	OnPreUpdate func(delta float64)
	OnUpdate    func(delta float64)
	OnPreDraw   func(cmd renderer.Renderer)
	OnDraw      func(cmd renderer.Renderer)

	// OnPostDraw runs inside the main pass after every view, where overlays are recorded.
	OnPostDraw func(cmd renderer.Renderer)

	// OnTextureLoaded receives every streamed texture on the main goroutine before the frame's
	// update hooks, so it may hand the texture to a material that uploads it in the same frame.
	OnTextureLoaded func(res loader.Result)
}

// FrameStats describes one UpdateFrame call.
type FrameStats struct {
	Frame  uint64
	Delta  time.Duration
	Views  int
	Loaded int
	Draw   renderqueue.DrawStats
}

// framework is the implementation of the Framework interface.
type framework struct {
	renderer  renderer.Renderer
	window    window.Window
	materials material.Registry
	views     []view.View
	hooks     Hooks

	streamer loader.Streamer
	profiler *profiler.Profiler

	pass       command.RenderPassInfo
	frameLimit time.Duration
	maxFrames  uint64
	now        func() time.Time

	frames uint64
	last   FrameStats
	scenes map[scene.Scene]struct{}

	quit     chan struct{}
	quitOnce sync.Once

	destroyOnce sync.Once
}

// Framework owns the renderer, the material registry and the views, and turns them into
// frames. All methods except Quit must be called from the goroutine that created the renderer.
type Framework interface {
	// Renderer returns the command stream frames are recorded into.
	Renderer() renderer.Renderer

	// Window returns the presentation window, nil when running headless.
	Window() window.Window

	// Materials returns the registry whose materials are flushed every frame.
	Materials() material.Registry

	// Streamer returns the texture streamer drained before every frame, nil if none.
	Streamer() loader.Streamer

	// Profiler returns the frame profiler, nil if profiling is disabled.
	Profiler() *profiler.Profiler

	// AddView appends a view. Views render in the order they were added.
	//
	// Parameters:
	//   - v: the view to add
	AddView(v view.View)

	// RemoveView removes the first view with the given name.
	//
	// Parameters:
	//   - name: the view name
	//
	// Returns:
	//   - bool: true if a view was removed
	RemoveView(name string) bool

	// View returns the first view with the given name, nil if none.
	View(name string) view.View

	// Views returns a copy of the view list.
	Views() []view.View

	// SetHooks replaces the application callbacks.
	SetHooks(h Hooks)

	// Resize forwards a new surface size to the renderer and every view.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	Resize(width, height int)

	// UpdateFrame runs one complete frame: drain streamed textures, update hooks, view update
	// and collection, material flush, recording of the main pass, flush to the render loop
	// and profiling.
	//
	// Parameters:
	//   - delta: the time since the previous frame
	//
	// Returns:
	//   - FrameStats: what the frame did
	UpdateFrame(delta time.Duration) FrameStats

	// Run calls UpdateFrame with wall-clock deltas until the window closes, Quit is called,
	// ctx ends or the configured frame count is reached.
	//
	// Parameters:
	//   - ctx: stops the loop when done
	//
	// Returns:
	//   - error: ctx.Err() when the context stopped the loop, nil otherwise
	Run(ctx context.Context) error

	// Quit stops Run after the current frame. Safe to call from any goroutine.
	Quit()

	// Frames returns the number of frames run.
	Frames() uint64

	// LastFrame returns the stats of the most recent frame.
	LastFrame() FrameStats

	// Destroy stops the streamer, destroys the renderer (draining in-flight frames) and closes
	// the window.
	Destroy()
}

var _ Framework = &framework{}

// NewFramework creates a Framework around r. The main pass clears to opaque black with depth 1.
//
// Parameters:
//   - r: the renderer frames are recorded into
//   - options: variadic list of FrameworkBuilderOption functions to configure the Framework
//
// Returns:
//   - Framework: the new framework
func NewFramework(r renderer.Renderer, options ...FrameworkBuilderOption) Framework {
	f := &framework{
		renderer:  r,
		materials: material.NewRegistry(),
		pass: command.RenderPassInfo{
			Clear:      command.ClearAll,
			ClearColor: common.Color{A: 1},
			ClearDepth: 1,
		},
		now:    time.Now,
		scenes: make(map[scene.Scene]struct{}),
		quit:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *framework) Renderer() renderer.Renderer  { return f.renderer }
func (f *framework) Window() window.Window        { return f.window }
func (f *framework) Materials() material.Registry { return f.materials }
func (f *framework) Streamer() loader.Streamer    { return f.streamer }
func (f *framework) Profiler() *profiler.Profiler { return f.profiler }
func (f *framework) SetHooks(h Hooks)             { f.hooks = h }
func (f *framework) Frames() uint64               { return f.frames }
func (f *framework) LastFrame() FrameStats        { return f.last }

func (f *framework) AddView(v view.View) {
	if v != nil {
		f.views = append(f.views, v)
	}
}

func (f *framework) RemoveView(name string) bool {
	for i, v := range f.views {
		if v.Name() == name {
			f.views = append(f.views[:i], f.views[i+1:]...)
			return true
		}
	}
	return false
}

func (f *framework) View(name string) view.View {
	for _, v := range f.views {
		if v.Name() == name {
			return v
		}
	}
	return nil
}

func (f *framework) Views() []view.View {
	return append([]view.View(nil), f.views...)
}

func (f *framework) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	f.renderer.Resize(width, height)
	for _, v := range f.views {
		v.Resize(width, height)
	}
	common.Logger().Debug("[Framework] resized", "width", width, "height", height)
}

func (f *framework) UpdateFrame(delta time.Duration) FrameStats {
	stats := FrameStats{Frame: f.renderer.Frame(), Delta: delta}
	dt := delta.Seconds()
	r := f.renderer

	stats.Loaded = f.drainLoads()

	if f.hooks.OnPreUpdate != nil {
		f.hooks.OnPreUpdate(dt)
	}
	if f.hooks.OnUpdate != nil {
		f.hooks.OnUpdate(dt)
	}

	f.updateViews(dt)
	if failed := f.materials.UpdateAll(r); failed > 0 {
		common.Logger().Warn("[Framework] material updates failed", "count", failed, "frame", stats.Frame)
	}

	r.BeginFrame()
	r.PrepareFrame()
	if f.hooks.OnPreDraw != nil {
		f.hooks.OnPreDraw(r)
	}

	swapchain := r.Swapchain()
	r.MakeCurrent(swapchain)
	r.BeginRendering(command.DefaultRenderTarget, f.pass)
	if f.hooks.OnDraw != nil {
		f.hooks.OnDraw(r)
	}
	for _, v := range f.views {
		if !v.Active() {
			continue
		}
		d := v.Render(r)
		stats.Views++
		stats.Draw.Renderables += d.Renderables
		stats.Draw.Batches += d.Batches
		stats.Draw.Records += d.Records
		stats.Draw.Indirect += d.Indirect
		stats.Draw.Skipped += d.Skipped
	}
	if f.hooks.OnPostDraw != nil {
		f.hooks.OnPostDraw(r)
	}
	r.EndRendering()
	r.Commit(swapchain)
	r.EndFrame()
	r.Flush()

	f.frames++
	if f.profiler != nil {
		f.profiler.Tick(profiler.Sample{Delta: delta, Draw: stats.Draw, Renderer: r.Stats()})
	}
	f.last = stats
	return stats
}

// drainLoads delivers the textures the streamer finished since the last frame.
func (f *framework) drainLoads() int {
	if f.streamer == nil {
		return 0
	}
	return f.streamer.Drain(func(res loader.Result) {
		if f.hooks.OnTextureLoaded != nil {
			f.hooks.OnTextureLoaded(res)
		}
	})
}

// updateViews advances each scene shown by an active view once, then lets every active view
// update its camera and collect its scene.
func (f *framework) updateViews(dt float64) {
	clear(f.scenes)
	for _, v := range f.views {
		if !v.Active() {
			continue
		}
		sc := v.Scene()
		if sc == nil || !sc.Active() {
			continue
		}
		if _, done := f.scenes[sc]; done {
			continue
		}
		f.scenes[sc] = struct{}{}
		sc.Update(dt)
	}
	for _, v := range f.views {
		if !v.Active() {
			continue
		}
		// Upload failures are logged by the view; the frame still renders what is ready.
		_ = v.Update(dt)
	}
}

func (f *framework) Run(ctx context.Context) error {
	last := f.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.quit:
			return nil
		default:
		}
		if f.window != nil && !f.window.Poll() {
			common.Logger().Info("[Framework] window closed", "frames", f.frames)
			return nil
		}

		start := f.now()
		delta := start.Sub(last)
		last = start
		f.UpdateFrame(delta)

		if f.maxFrames > 0 && f.frames >= f.maxFrames {
			return nil
		}
		if f.frameLimit > 0 {
			if remaining := f.frameLimit - f.now().Sub(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (f *framework) Quit() {
	f.quitOnce.Do(func() {
		close(f.quit)
	})
}

func (f *framework) Destroy() {
	f.destroyOnce.Do(func() {
		f.Quit()
		if f.streamer != nil {
			f.streamer.Close()
		}
		f.renderer.Destroy()
		if f.window != nil {
			if err := f.window.Close(); err != nil {
				common.Logger().Warn("[Framework] window close failed", "error", err)
			}
		}
		common.Logger().Info("[Framework] destroyed", "frames", f.frames)
	})
}
