// Package window opens the native window the renderer presents into and turns its input events
// into callbacks for the camera controller and the Framework.
package window

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// Key identifies a keyboard key. Values match GLFW key codes.
type Key int

// Keys the demo and the default camera bindings react to.
const (
	KeyEscape Key = 256
	KeyW      Key = 87
	KeyA      Key = 65
	KeyS      Key = 83
	KeyD      Key = 68
	KeyQ      Key = 81
	KeyE      Key = 69
	KeySpace  Key = 32
	KeyR      Key = 82
)

// Callbacks groups the event handlers of a Window. Nil handlers are ignored.
type Callbacks struct {
	// Resize receives the new framebuffer size in pixels.
	Resize func(width, height int)

	// Scroll receives the vertical wheel delta, positive when scrolling up.
	Scroll func(delta float32)

	// Key receives key presses, repeats (down == true) and releases.
	Key func(key Key, down bool)

	// Drag receives the cursor movement in pixels while the middle mouse button is held.
	Drag func(dx, dy float32)
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	minWidth, minHeight int
	maxWidth, maxHeight int
	width, height       int

	callbacks Callbacks

	// platform holds the GLFW state, nil once closed.
	platform *glfwWindow
}

// Window is a native window that doubles as the renderer's presentation surface. All methods
// must be called from the thread that created the window.
type Window interface {
	renderer.Surface

	// Title returns the title shown in the title bar.
	Title() string

	// SetCallbacks replaces the event handlers.
	//
	// Parameters:
	//   - callbacks: the new handlers
	SetCallbacks(callbacks Callbacks)

	// Poll processes pending window events without blocking and dispatches them to the
	// callbacks.
	//
	// Returns:
	//   - bool: false once the window was asked to close
	Poll() bool

	// Running reports whether the window is open and has not been asked to close.
	Running() bool

	// RequestClose asks the window to close on the next Poll.
	RequestClose()

	// Close destroys the window and releases the platform library.
	//
	// Returns:
	//   - error: an error if the window was already closed
	Close() error
}

var _ Window = &engineWindow{}

// NewWindow opens a window. Defaults to a 1280x720 window resizable between 320x240 and
// 3840x2160.
//
// Parameters:
//   - options: variadic list of WindowBuilderOption functions to configure the window
//
// Returns:
//   - Window: the open window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-rt",
		minWidth:  320,
		minHeight: 240,
		maxWidth:  3840,
		maxHeight: 2160,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width = common.Clamp(w.width, w.minWidth, w.maxWidth)
	w.height = common.Clamp(w.height, w.minHeight, w.maxHeight)

	if err := openPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("open window %q: %w", w.title, err)
	}
	common.Logger().Info("[Window] opened", "title", w.title, "width", w.width, "height", w.height)
	return w, nil
}

func (w *engineWindow) Title() string {
	return w.title
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) SetCallbacks(callbacks Callbacks) {
	w.callbacks = callbacks
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) Poll() bool {
	if w.platform == nil {
		return false
	}
	w.platform.poll()
	return w.Running()
}

func (w *engineWindow) Running() bool {
	return w.platform != nil && w.platform.running()
}

func (w *engineWindow) RequestClose() {
	if w.platform != nil {
		w.platform.requestClose()
	}
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return fmt.Errorf("window %q is not open", w.title)
	}
	w.platform.destroy()
	w.platform = nil
	common.Logger().Info("[Window] closed", "title", w.title)
	return nil
}

// resized records a framebuffer size change and forwards it. Zero sizes (minimized windows)
// are dropped.
func (w *engineWindow) resized(width, height int) {
	if width <= 0 || height <= 0 || (width == w.width && height == w.height) {
		return
	}
	w.width, w.height = width, height
	if w.callbacks.Resize != nil {
		w.callbacks.Resize(width, height)
	}
}
