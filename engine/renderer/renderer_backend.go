package renderer

// RendererBackendType identifies the Device implementation created by NewRenderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU device.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeHeadless selects a device that executes commands without a GPU.
	BackendTypeHeadless
)

// String returns the backend name as used in configuration files.
func (b RendererBackendType) String() string {
	switch b {
	case BackendTypeHeadless:
		return "headless"
	default:
		return "wgpu"
	}
}

// Mode selects where recorded commands are executed.
type Mode int

const (
	// ModeThreaded executes commands on a dedicated render goroutine locked to its OS thread.
	ModeThreaded Mode = iota

	// ModeSingleLoop executes commands inline on the recording goroutine during Flush.
	ModeSingleLoop
)

func (m Mode) String() string {
	if m == ModeSingleLoop {
		return "single"
	}
	return "threaded"
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount is the number of samples per pixel of the main color target.
// WebGPU guarantees 1 and 4; 8 and 16 depend on the adapter.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
	MSAA8x  MSAASampleCount = 8
	MSAA16x MSAASampleCount = 16
)
