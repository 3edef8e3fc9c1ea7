package config

import (
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// BackendType maps Renderer.Backend to the renderer backend.
func (c Config) BackendType() renderer.RendererBackendType {
	if strings.EqualFold(c.Renderer.Backend, "headless") {
		return renderer.BackendTypeHeadless
	}
	return renderer.BackendTypeWGPU
}

// RendererOptions converts the renderer settings into builder options.
//
// Returns:
//   - []renderer.RendererBuilderOption: the options for renderer.NewRenderer
func (c Config) RendererOptions() []renderer.RendererBuilderOption {
	r := c.Renderer
	mode := renderer.ModeThreaded
	if strings.EqualFold(r.Mode, "single") {
		mode = renderer.ModeSingleLoop
	}
	present := renderer.PresentModeVSync
	if strings.EqualFold(r.PresentMode, "uncapped") {
		present = renderer.PresentModeUncapped
	}
	return []renderer.RendererBuilderOption{
		renderer.WithMode(mode),
		renderer.WithBufferCount(r.BufferCount),
		renderer.WithBufferSize(r.BufferSizeMB << 20),
		renderer.WithArenaSizes(r.ConstantArenaKB<<10, r.VertexArenaKB<<10, r.IndexArenaKB<<10),
		renderer.WithPresentMode(present),
		renderer.WithMSAA(renderer.MSAASampleCount(r.MSAA)),
		renderer.WithThreadChecks(r.ThreadChecks),
		renderer.WithForceSoftwareRenderer(r.SoftwareRenderer),
	}
}

// WindowOptions converts the window settings into builder options.
func (c Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithSize(c.Window.Width, c.Window.Height),
	}
}

// FrameworkOptions converts the frame loop settings into builder options.
func (c Config) FrameworkOptions() []engine.FrameworkBuilderOption {
	cc := c.Engine.ClearColor
	return []engine.FrameworkBuilderOption{
		engine.WithFrameLimit(c.Engine.FrameLimit),
		engine.WithMaxFrames(c.Engine.MaxFrames),
		engine.WithClearColor(common.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}),
	}
}

// LoaderOptions converts the loader settings into builder options.
func (c Config) LoaderOptions() []loader.LoaderBuilderOption {
	return []loader.LoaderBuilderOption{loader.WithParallelism(c.Loader.Parallelism)}
}

// StreamerOptions converts the loader settings into streamer builder options.
func (c Config) StreamerOptions() []loader.StreamerBuilderOption {
	return []loader.StreamerBuilderOption{
		loader.WithWorkers(c.Loader.Workers),
		loader.WithQueueSize(c.Loader.QueueSize),
	}
}

// ProfilerOptions converts the profiler settings into builder options. pub may be nil.
//
// Parameters:
//   - pub: an extra snapshot publisher, such as the stats server
//
// Returns:
//   - []profiler.ProfilerBuilderOption: the options for profiler.NewProfiler
func (c Config) ProfilerOptions(pub profiler.Publisher) []profiler.ProfilerBuilderOption {
	opts := []profiler.ProfilerBuilderOption{
		profiler.WithInterval(time.Duration(c.Profiler.IntervalMS) * time.Millisecond),
	}
	if pub != nil {
		opts = append(opts, profiler.WithPublisher(pub))
	}
	return opts
}
