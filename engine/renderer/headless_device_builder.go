package renderer

import "time"

// HeadlessDeviceBuilderOption is a functional option applied to a headless device during construction via NewHeadlessDevice.
type HeadlessDeviceBuilderOption func(*headlessDevice)

// WithExecDelay makes every executed EndFrame sleep for d, simulating a slow GPU.
//
// Parameters:
//   - d: the per-frame delay
//
// Returns:
//   - HeadlessDeviceBuilderOption: a function that applies the delay to a headless device
func WithExecDelay(d time.Duration) HeadlessDeviceBuilderOption {
	return func(h *headlessDevice) {
		h.execDelay = d
	}
}
