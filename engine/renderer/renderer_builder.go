package renderer

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithDevice executes commands on d instead of creating a device for the backend type.
//
// Parameters:
//   - d: the device to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the device option to a renderer
func WithDevice(d Device) RendererBuilderOption {
	return func(r *renderer) {
		r.device = d
	}
}

// WithMode selects threaded or single-loop execution. The default is ModeThreaded.
//
// Parameters:
//   - mode: the execution mode
//
// Returns:
//   - RendererBuilderOption: a function that applies the mode option to a renderer
func WithMode(mode Mode) RendererBuilderOption {
	return func(r *renderer) {
		r.mode = mode
	}
}

// WithBufferCount sets how many circular command buffers the queue rotates through.
func WithBufferCount(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.queueOptions = append(r.queueOptions, command.WithBufferCount(n))
	}
}

// WithBufferSize sets the capacity in bytes of each circular command buffer.
func WithBufferSize(bytes int) RendererBuilderOption {
	return func(r *renderer) {
		r.queueOptions = append(r.queueOptions, command.WithBufferSize(bytes))
	}
}

// WithArenaSizes sets the per-slot capacity of the constant, vertex and index arenas.
// Zero keeps the default for that arena.
//
// Parameters:
//   - constant: the constant arena size in bytes
//   - vertex: the vertex arena size in bytes
//   - index: the index arena size in bytes
//
// Returns:
//   - RendererBuilderOption: a function that applies the arena sizes to a renderer
func WithArenaSizes(constant, vertex, index int) RendererBuilderOption {
	return func(r *renderer) {
		for kind, size := range [3]int{constant, vertex, index} {
			if size > 0 {
				r.arenaSizes[kind] = size
			}
		}
	}
}

// WithThreadChecks binds the constructing goroutine's OS thread as the main thread and makes
// CheckMainThread and CheckRenderThread panic on violations. The constructing goroutine is
// locked to its OS thread.
//
// Parameters:
//   - enabled: true to enable checks
//
// Returns:
//   - RendererBuilderOption: a function that applies the thread check option to a renderer
func WithThreadChecks(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.threadChecks = enabled
	}
}

// WithFatalHandler replaces the default render loop failure handler, which panics.
// fn runs on the render goroutine after the queue was closed.
func WithFatalHandler(fn func(v any)) RendererBuilderOption {
	return func(r *renderer) {
		r.fatal = fn
	}
}

// WithCommandObserver calls fn with every command right before it executes.
// fn runs on the render goroutine.
func WithCommandObserver(fn func(cmd command.Command)) RendererBuilderOption {
	return func(r *renderer) {
		r.observer = fn
	}
}

// WithPipeline pre-registers a single Pipeline in the renderer's pipeline cache under the
// given key. The pipeline is expected to already carry a device handle.
//
// Parameters:
//   - key: the unique identifier for the pipeline
//   - p: the Pipeline to cache
//
// Returns:
//   - RendererBuilderOption: a function that applies the pipeline option to a renderer
func WithPipeline(key string, p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelineCache[key] = p
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count. The default is MSAA4x.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.msaa = count
	}
}

// WithForceSoftwareRenderer requests the fallback (software) adapter. Requires a software
// Vulkan ICD such as lavapipe or SwiftShader.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
