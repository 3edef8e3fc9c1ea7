package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// FrameworkBuilderOption is a functional option for configuring a Framework.
type FrameworkBuilderOption func(*framework)

// WithWindow sets the window polled by Run and closed by Destroy.
//
// Parameters:
//   - w: the presentation window
//
// Returns:
//   - FrameworkBuilderOption: option function to apply
func WithWindow(w window.Window) FrameworkBuilderOption {
	return func(f *framework) {
		f.window = w
	}
}

// WithViews appends views in render order.
func WithViews(views ...view.View) FrameworkBuilderOption {
	return func(f *framework) {
		for _, v := range views {
			f.AddView(v)
		}
	}
}

// WithHooks sets the application callbacks.
//
// Parameters:
//   - h: the hooks
//
// Returns:
//   - FrameworkBuilderOption: option function to apply
func WithHooks(h Hooks) FrameworkBuilderOption {
	return func(f *framework) {
		f.hooks = h
	}
}

// WithStreamer sets the texture streamer drained before every frame.
func WithStreamer(s loader.Streamer) FrameworkBuilderOption {
	return func(f *framework) {
		f.streamer = s
	}
}

// WithProfiler enables frame profiling.
//
// Parameters:
//   - p: the profiler ticked at the end of every frame
//
// Returns:
//   - FrameworkBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) FrameworkBuilderOption {
	return func(f *framework) {
		f.profiler = p
	}
}

// WithFrameLimit caps Run at fps frames per second. Zero or less leaves it uncapped.
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - FrameworkBuilderOption: option function to apply
func WithFrameLimit(fps float64) FrameworkBuilderOption {
	return func(f *framework) {
		if fps <= 0 {
			f.frameLimit = 0
			return
		}
		f.frameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithMaxFrames makes Run return after n frames. Zero runs until stopped.
func WithMaxFrames(n uint64) FrameworkBuilderOption {
	return func(f *framework) {
		f.maxFrames = n
	}
}

// WithClearColor sets the color the main pass clears to.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - FrameworkBuilderOption: option function to apply
func WithClearColor(c common.Color) FrameworkBuilderOption {
	return func(f *framework) {
		f.pass.ClearColor = c
	}
}

// WithClock replaces time.Now for frame deltas.
func WithClock(now func() time.Time) FrameworkBuilderOption {
	return func(f *framework) {
		f.now = now
	}
}
